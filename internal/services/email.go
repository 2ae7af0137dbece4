package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"announcements/internal/domain"
)

const announcementTemplate = "announcement"

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendAnnouncement renders the "announcement" template for each recipient and sends it.
// Every recipient is attempted; failures are joined into the returned error.
func (s *emailService) SendAnnouncement(ctx context.Context, a *domain.Announcement, recipients []string) (int, error) {
	if a == nil {
		return 0, fmt.Errorf("announcement is nil")
	}
	var (
		sent int
		errs []error
	)
	for _, to := range recipients {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		data := &domain.AnnouncementEmailData{
			Email:          to,
			AnnouncementID: a.ID,
			Title:          a.Title,
			Content:        a.Content,
		}
		subject, htmlBody, textBody, err := s.renderer.Render(announcementTemplate, data)
		if err != nil {
			return sent, fmt.Errorf("failed to render announcement template: %w", err)
		}
		if err := s.mailer.Send(to, subject, htmlBody, textBody); err != nil {
			errs = append(errs, fmt.Errorf("send to %s: %w", to, err))
			continue
		}
		sent++
	}
	s.logger.DebugContext(ctx, "announcement emails dispatched", "announcement_id", a.ID, "sent", sent, "failed", len(errs))
	return sent, errors.Join(errs...)
}
