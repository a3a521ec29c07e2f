package mailer

// EmailJob is one rendered-on-demand email: a template base name plus the
// data it is executed with, or literal Text/HTML.
type EmailJob struct {
	To       string `json:"to"`
	Subject  string `json:"subject,omitempty"`
	Text     string `json:"text,omitempty"`
	HTML     string `json:"html,omitempty"`
	Template string `json:"template,omitempty"` // e.g. "adoption_approved"
	Data     any    `json:"data,omitempty"`
}
