package controllers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"announcements/internal/domain"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	testAnnouncementID  = "5f0c3c8e-6b1f-4c47-9d4a-2b1c9e7f0a11"
	otherAnnouncementID = "0b6d1f6e-8a2c-4e1b-b3d5-7c9e2f4a6b80"
)

// fakeAnnouncementService implements domain.AnnouncementService for handler tests.
type fakeAnnouncementService struct {
	currentResult []*domain.Announcement
	currentErr    error
	getResult     *domain.Announcement
	getErr        error
	dismissResult *domain.DismissResult
	dismissErr    error
	createErr     error
	updateErr     error
	listResult    []*domain.Announcement
	listTotal     int
	listErr       error

	lastVC          domain.ViewingContext
	lastOverrides   *domain.CurrentOverrides
	lastDismissID   string
	lastCreatorID   string
	lastInput       domain.AnnouncementInput
	lastUpdateID    string
	lastListParams  domain.PaginationParams
	lastMembersOnly *bool
}

func (f *fakeAnnouncementService) Current(_ context.Context, _ domain.CurrentFilter) ([]*domain.Announcement, error) {
	return f.currentResult, f.currentErr
}

func (f *fakeAnnouncementService) CurrentForContext(_ context.Context, vc domain.ViewingContext, overrides *domain.CurrentOverrides) ([]*domain.Announcement, error) {
	f.lastVC = vc
	f.lastOverrides = overrides
	return f.currentResult, f.currentErr
}

func (f *fakeAnnouncementService) Get(_ context.Context, id string) (*domain.Announcement, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.getResult == nil || f.getResult.ID != id {
		return nil, domain.ErrNotFound
	}
	cp := *f.getResult
	return &cp, nil
}

func (f *fakeAnnouncementService) Dismiss(_ context.Context, vc domain.ViewingContext, id string) (*domain.DismissResult, error) {
	f.lastVC = vc
	f.lastDismissID = id
	return f.dismissResult, f.dismissErr
}

func (f *fakeAnnouncementService) Create(_ context.Context, creatorID string, input domain.AnnouncementInput) (*domain.Announcement, error) {
	f.lastCreatorID = creatorID
	f.lastInput = input
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &domain.Announcement{
		ID:             testAnnouncementID,
		Title:          input.Title,
		Content:        input.Content,
		CreatorID:      creatorID,
		SiteWide:       input.SiteWide,
		MembersOnly:    input.MembersOnly,
		StartDate:      input.StartDate,
		ExpirationDate: input.ExpirationDate,
		IsDismissable:  input.IsDismissable,
	}, nil
}

func (f *fakeAnnouncementService) Update(_ context.Context, id, creatorID string, input domain.AnnouncementInput) (*domain.Announcement, error) {
	f.lastUpdateID = id
	f.lastCreatorID = creatorID
	f.lastInput = input
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &domain.Announcement{
		ID:             id,
		Title:          input.Title,
		Content:        input.Content,
		SiteWide:       input.SiteWide,
		MembersOnly:    input.MembersOnly,
		StartDate:      input.StartDate,
		ExpirationDate: input.ExpirationDate,
		IsDismissable:  input.IsDismissable,
	}, nil
}

func (f *fakeAnnouncementService) List(_ context.Context, params domain.PaginationParams, membersOnly *bool) ([]*domain.Announcement, int, error) {
	f.lastListParams = params
	f.lastMembersOnly = membersOnly
	return f.listResult, f.listTotal, f.listErr
}

// fakeExclusionStore implements ExclusionStore in memory.
type fakeExclusionStore struct {
	loaded  []string
	saved   []string
	saveErr error
	saves   int
}

func (f *fakeExclusionStore) Load(_ *http.Request) []string {
	return append([]string{}, f.loaded...)
}

func (f *fakeExclusionStore) Save(_ http.ResponseWriter, ids []string) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append([]string{}, ids...)
	return nil
}

func ptr[T any](v T) *T { return &v }
