package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// AnnouncementEmailData holds data for the "send now" announcement email.
type AnnouncementEmailData struct {
	Email          string
	AnnouncementID string
	Title          string
	Content        string
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	// SendAnnouncement mails a to every recipient and returns how many messages were sent.
	SendAnnouncement(ctx context.Context, a *Announcement, recipients []string) (int, error)
}
