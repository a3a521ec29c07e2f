package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	mailtpl "github.com/oksasatya/go-adoptme/pkg/mailer/templates"
)

// ErrDrop marks a message that can never be delivered; the worker acks it.
var ErrDrop = errors.New("undeliverable message")

var templateByEvent = map[string]string{
	entity.EventAdoptionRequested: mailtpl.AdoptionRequested,
	entity.EventAdoptionApproved:  mailtpl.AdoptionApproved,
	entity.EventAdoptionRejected:  mailtpl.AdoptionRejected,
	entity.EventAdoptionCancelled: mailtpl.AdoptionCancelled,
	entity.EventAdoptionCompleted: mailtpl.AdoptionCompleted,
}

// CheckTemplates fails when an event type has no complete template set.
func CheckTemplates() error {
	for typ, name := range templateByEvent {
		if !mailtpl.Known(name) {
			return fmt.Errorf("templates for %s (%s) are missing", typ, name)
		}
	}
	return nil
}

// JobForEvent builds the email announcing ev to the adoption's owner.
func JobForEvent(ev entity.AdoptionEvent, opts ...mailtpl.Option) (EmailJob, error) {
	name, ok := templateByEvent[ev.Type]
	if !ok {
		return EmailJob{}, fmt.Errorf("%w: unknown event type %q", ErrDrop, ev.Type)
	}
	if ev.OwnerEmail == "" {
		return EmailJob{}, fmt.Errorf("%w: adoption %s has no recipient", ErrDrop, ev.AdoptionID)
	}
	opts = append([]mailtpl.Option{mailtpl.WithNotes(ev.Notes), mailtpl.WithTime(ev.OccurredAt)}, opts...)
	data := mailtpl.NewEmailData(ev.OwnerName, ev.OwnerEmail, ev.PetName, string(ev.Status), ev.AdoptionID, opts...)
	return EmailJob{To: ev.OwnerEmail, Template: name, Data: data}, nil
}

// Notifier turns queued adoption events into emails.
type Notifier struct {
	Sender  Sender
	Options []mailtpl.Option
}

// Handle decodes one message body and sends its email. Errors wrapping
// ErrDrop are permanent; anything else is worth a retry.
func (n *Notifier) Handle(ctx context.Context, body []byte) error {
	var ev entity.AdoptionEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", ErrDrop, err)
	}
	job, err := JobForEvent(ev, n.Options...)
	if err != nil {
		return err
	}
	subject, text, html, err := mailtpl.Render(job.Template, job.Data)
	if err != nil {
		return fmt.Errorf("%w: render %s: %v", ErrDrop, job.Template, err)
	}
	return n.Sender.Send(ctx, job.To, subject, text, html)
}
