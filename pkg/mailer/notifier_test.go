package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	mailtpl "github.com/oksasatya/go-adoptme/pkg/mailer/templates"
)

type sent struct{ to, subject, text, html string }

type fakeSender struct {
	mails []sent
	err   error
}

func (f *fakeSender) Send(_ context.Context, to, subject, text, html string) error {
	f.mails = append(f.mails, sent{to, subject, text, html})
	return f.err
}

func event(typ string, status entity.AdoptionStatus) []byte {
	b, _ := json.Marshal(entity.AdoptionEvent{
		Type:       typ,
		AdoptionID: "665f1c2e9b1d4a3f8c7e6d5a",
		Status:     status,
		Notes:      "Adopción aprobada",
		OwnerEmail: "juan@test.com",
		OwnerName:  "Juan Pérez",
		PetName:    "Firulais",
		OccurredAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	return b
}

func TestNotifierRendersEveryEvent(t *testing.T) {
	tests := []struct {
		typ     string
		status  entity.AdoptionStatus
		subject string
	}{
		{entity.EventAdoptionRequested, entity.AdoptionPending, "Recibimos tu solicitud"},
		{entity.EventAdoptionApproved, entity.AdoptionApproved, "fue aprobada"},
		{entity.EventAdoptionRejected, entity.AdoptionRejected, "fue rechazada"},
		{entity.EventAdoptionCancelled, entity.AdoptionCancelled, "fue cancelada"},
		{entity.EventAdoptionCompleted, entity.AdoptionCompleted, "parte de tu familia"},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			s := &fakeSender{}
			n := &Notifier{Sender: s, Options: []mailtpl.Option{mailtpl.WithAppName("AdoptMe")}}
			if err := n.Handle(context.Background(), event(tt.typ, tt.status)); err != nil {
				t.Fatal(err)
			}
			m := s.mails[0]
			if m.to != "juan@test.com" || !strings.Contains(m.subject, tt.subject) || strings.Contains(m.subject, "\n") {
				t.Fatalf("mail = %+v", m)
			}
			if !strings.Contains(m.text, "Firulais") || !strings.Contains(m.html, "Juan Pérez") || !strings.Contains(m.html, "AdoptMe") {
				t.Fatalf("body = %q / %q", m.text, m.html)
			}
		})
	}
}

func TestNotifierDropsAndRetries(t *testing.T) {
	s := &fakeSender{}
	n := &Notifier{Sender: s}

	if err := n.Handle(context.Background(), []byte("{")); !errors.Is(err, ErrDrop) {
		t.Fatalf("bad json: %v", err)
	}
	if err := n.Handle(context.Background(), event("adoption.lost", "")); !errors.Is(err, ErrDrop) {
		t.Fatalf("unknown type: %v", err)
	}
	noRecipient, _ := json.Marshal(entity.AdoptionEvent{Type: entity.EventAdoptionApproved})
	if err := n.Handle(context.Background(), noRecipient); !errors.Is(err, ErrDrop) {
		t.Fatalf("no recipient: %v", err)
	}

	s.err = errors.New("mailgun 503")
	err := n.Handle(context.Background(), event(entity.EventAdoptionApproved, entity.AdoptionApproved))
	if err == nil || errors.Is(err, ErrDrop) {
		t.Fatalf("send failure should be retried: %v", err)
	}
}

func TestCheckTemplates(t *testing.T) {
	if err := CheckTemplates(); err != nil {
		t.Fatal(err)
	}
	if mailtpl.Known("password_reset") {
		t.Fatal("unexpected template set")
	}
}
