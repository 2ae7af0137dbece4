package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"announcements/internal/domain"
	"announcements/internal/metrics"
)

const (
	maxTitleLength = 50

	viewerAnonymous     = "anonymous"
	viewerAuthenticated = "authenticated"
)

type announcementService struct {
	repo           domain.AnnouncementRepository
	userRepo       domain.UserRepository
	emailService   domain.EmailService
	metrics        *metrics.Metrics
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time
}

// NewAnnouncementService returns an AnnouncementService backed by the given repositories.
// emailService may be nil, in which case "send now" requests are ignored.
func NewAnnouncementService(
	repo domain.AnnouncementRepository,
	userRepo domain.UserRepository,
	emailService domain.EmailService,
	m *metrics.Metrics,
	logger *slog.Logger,
	timeout time.Duration,
) domain.AnnouncementService {
	return &announcementService{
		repo:           repo,
		userRepo:       userRepo,
		emailService:   emailService,
		metrics:        m,
		logger:         logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *announcementService) Current(ctx context.Context, filter domain.CurrentFilter) ([]*domain.Announcement, error) {
	return s.current(ctx, viewerAnonymous, filter)
}

func (s *announcementService) current(ctx context.Context, viewer string, filter domain.CurrentFilter) ([]*domain.Announcement, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	start := time.Now()
	if filter.Now.IsZero() {
		filter.Now = s.now()
	}
	list, err := s.repo.Current(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveCurrent(viewer, start, len(list))
	return list, nil
}

func (s *announcementService) CurrentForContext(ctx context.Context, vc domain.ViewingContext, overrides *domain.CurrentOverrides) ([]*domain.Announcement, error) {
	filter, viewer, err := filterForContext(vc)
	if err != nil {
		return nil, err
	}
	return s.current(ctx, viewer, overrides.Apply(filter))
}

// filterForContext derives the default filter for a viewer: members see members-only
// announcements minus their own dismissals, anonymous viewers lose their local exclusions.
func filterForContext(vc domain.ViewingContext) (domain.CurrentFilter, string, error) {
	filter := domain.NewCurrentFilter()
	switch v := normalizeContext(vc).(type) {
	case domain.Authenticated:
		if strings.TrimSpace(v.UserID) == "" {
			return filter, "", fmt.Errorf("authenticated viewer has no identity: %w", domain.ErrInvalidContext)
		}
		filter.ForMembers = true
		filter.ExcludeForUser = v.UserID
		return filter, viewerAuthenticated, nil
	case domain.Anonymous:
		filter.Exclude = append(filter.Exclude, v.ExcludedIDs...)
		return filter, viewerAnonymous, nil
	default:
		return filter, "", fmt.Errorf("unsupported viewing context %T: %w", vc, domain.ErrInvalidContext)
	}
}

func normalizeContext(vc domain.ViewingContext) domain.ViewingContext {
	switch v := vc.(type) {
	case *domain.Authenticated:
		if v != nil {
			return *v
		}
	case *domain.Anonymous:
		if v != nil {
			return *v
		}
	default:
		return vc
	}
	return nil
}

func (s *announcementService) Get(ctx context.Context, id string) (*domain.Announcement, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get announcement: %w", err)
	}
	return a, nil
}

func (s *announcementService) Dismiss(ctx context.Context, vc domain.ViewingContext, id string) (*domain.DismissResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	vc = normalizeContext(vc)
	if auth, ok := vc.(domain.Authenticated); ok && strings.TrimSpace(auth.UserID) == "" {
		return nil, fmt.Errorf("authenticated viewer has no identity: %w", domain.ErrInvalidContext)
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get announcement: %w", err)
	}
	// Members-only announcements do not exist for anonymous viewers.
	if _, anon := vc.(domain.Anonymous); anon && a.MembersOnly {
		return nil, domain.ErrNotFound
	}
	if !a.IsDismissable {
		return nil, domain.ErrNotDismissable
	}

	switch v := vc.(type) {
	case domain.Authenticated:
		already, err := s.repo.HasDismissed(ctx, a.ID, v.UserID)
		if err != nil {
			return nil, fmt.Errorf("check dismissal: %w", err)
		}
		if !already {
			if err := s.repo.AddDismissal(ctx, a.ID, v.UserID); err != nil {
				return nil, fmt.Errorf("record dismissal: %w", err)
			}
			s.metrics.IncrementDismissals(viewerAuthenticated)
		}
		return &domain.DismissResult{AnnouncementID: a.ID, Recorded: !already}, nil
	case domain.Anonymous:
		s.metrics.IncrementDismissals(viewerAnonymous)
		return &domain.DismissResult{
			AnnouncementID: a.ID,
			Recorded:       !slices.Contains(v.ExcludedIDs, a.ID),
			ExcludeLocally: true,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported viewing context %T: %w", vc, domain.ErrInvalidContext)
	}
}

func validateInput(input *domain.AnnouncementInput) error {
	input.Title = strings.TrimSpace(input.Title)
	input.Content = strings.TrimSpace(input.Content)
	if input.Title == "" {
		return fmt.Errorf("title is required: %w", domain.ErrInvalidInput)
	}
	if len([]rune(input.Title)) > maxTitleLength {
		return fmt.Errorf("title must be at most %d characters: %w", maxTitleLength, domain.ErrInvalidInput)
	}
	if input.Content == "" {
		return fmt.Errorf("content is required: %w", domain.ErrInvalidInput)
	}
	return nil
}

func applyInput(a *domain.Announcement, input domain.AnnouncementInput) {
	a.Title = input.Title
	a.Content = input.Content
	a.SiteWide = input.SiteWide
	a.MembersOnly = input.MembersOnly
	a.StartDate = input.StartDate
	a.ExpirationDate = input.ExpirationDate
	a.IsDismissable = input.IsDismissable
}

func (s *announcementService) Create(ctx context.Context, creatorID string, input domain.AnnouncementInput) (*domain.Announcement, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if strings.TrimSpace(creatorID) == "" {
		return nil, fmt.Errorf("creator is required: %w", domain.ErrInvalidInput)
	}
	if err := validateInput(&input); err != nil {
		return nil, err
	}

	a := domain.NewAnnouncement(input.Title, input.Content, creatorID, s.now())
	applyInput(a, input)
	if err := a.ValidateWindow(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create announcement: %w", err)
	}
	s.metrics.IncrementCreated()
	s.logger.InfoContext(ctx, "announcement created", "announcement_id", a.ID, "creator_id", creatorID)

	if input.SendNow {
		s.sendNow(ctx, a)
	}
	return a, nil
}

func (s *announcementService) Update(ctx context.Context, id, creatorID string, input domain.AnnouncementInput) (*domain.Announcement, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := validateInput(&input); err != nil {
		return nil, err
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get announcement: %w", err)
	}
	if creatorID != "" && creatorID != a.CreatorID {
		return nil, domain.ErrCreatorImmutable
	}

	applyInput(a, input)
	if err := a.ValidateWindow(); err != nil {
		return nil, err
	}
	a.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, a); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update announcement: %w", err)
	}
	s.logger.InfoContext(ctx, "announcement updated", "announcement_id", a.ID)

	if input.SendNow {
		s.sendNow(ctx, a)
	}
	return a, nil
}

// sendNow mails the announcement to every user. Delivery failures are logged and never
// undo the save that triggered them.
func (s *announcementService) sendNow(ctx context.Context, a *domain.Announcement) {
	if s.emailService == nil {
		s.logger.WarnContext(ctx, "send now requested without an email service", "announcement_id", a.ID)
		return
	}
	recipients, err := s.userRepo.ListEmails(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "send now: list recipients", "announcement_id", a.ID, "err", err)
		return
	}
	sent, err := s.emailService.SendAnnouncement(ctx, a, recipients)
	s.metrics.AddNotificationsSent(sent)
	if err != nil {
		s.logger.ErrorContext(ctx, "send now: deliver", "announcement_id", a.ID, "sent", sent, "err", err)
		return
	}
	s.logger.InfoContext(ctx, "announcement sent", "announcement_id", a.ID, "recipients", sent)
}

func (s *announcementService) List(ctx context.Context, params domain.PaginationParams, membersOnly *bool) ([]*domain.Announcement, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	list, err := s.repo.List(ctx, params, membersOnly)
	if err != nil {
		return nil, 0, fmt.Errorf("list announcements: %w", err)
	}
	total, err := s.repo.Count(ctx, membersOnly)
	if err != nil {
		return nil, 0, fmt.Errorf("count announcements: %w", err)
	}
	return list, total, nil
}
