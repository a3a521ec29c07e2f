package templates

import (
	"strings"
	"time"
)

// EmailData is what every adoption template is executed with.
type EmailData struct {
	Name       string
	Email      string
	PetName    string
	Status     string
	Notes      string
	AdoptionID string

	AppName    string
	SupportURL string

	Time   string
	TimeAt time.Time
}

// Option pattern
type Option func(*EmailData)

func WithAppName(name string) Option   { return func(d *EmailData) { d.AppName = name } }
func WithSupportURL(url string) Option { return func(d *EmailData) { d.SupportURL = url } }
func WithNotes(notes string) Option {
	return func(d *EmailData) { d.Notes = strings.TrimSpace(notes) }
}
func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02/01/2006 15:04")
	}
}

// NewEmailData fills the recipient and adoption fields, then applies opts.
func NewEmailData(name, email, petName, status, adoptionID string, opts ...Option) EmailData {
	d := EmailData{
		Name:       strings.TrimSpace(name),
		Email:      email,
		PetName:    petName,
		Status:     status,
		AdoptionID: adoptionID,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}
