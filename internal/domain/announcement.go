package domain

import (
	"context"
	"errors"
	"slices"
	"time"
)

// Sentinel errors for announcement operations.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidContext    = errors.New("invalid viewing context")
	ErrInvalidTimeWindow = errors.New("start date must not be after expiration date")
	ErrNotDismissable    = errors.New("announcement is not dismissable")
	ErrCreatorImmutable  = errors.New("announcement creator cannot be changed")
)

// Announcement is a time-bounded message shown to site visitors.
// swagger:model Announcement
type Announcement struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	CreatorID      string     `json:"creator_id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	SiteWide       bool       `json:"site_wide"`
	MembersOnly    bool       `json:"members_only"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	IsDismissable  bool       `json:"is_dismissable"`
}

// NewAnnouncement returns an Announcement created by creatorID at createdAt.
// ID is set by the repository on create. Announcements are dismissable by default.
func NewAnnouncement(title, content, creatorID string, createdAt time.Time) *Announcement {
	return &Announcement{
		Title:         title,
		Content:       content,
		CreatorID:     creatorID,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
		IsDismissable: true,
	}
}

// ActiveAt reports whether t falls inside the announcement's window.
// A nil bound is open; both bounds are inclusive.
func (a *Announcement) ActiveAt(t time.Time) bool {
	if a.StartDate != nil && a.StartDate.After(t) {
		return false
	}
	if a.ExpirationDate != nil && a.ExpirationDate.Before(t) {
		return false
	}
	return true
}

// ValidateWindow returns ErrInvalidTimeWindow when the start date is after the expiration date.
// Selection never calls this; such records are simply never active.
func (a *Announcement) ValidateWindow() error {
	if a.StartDate != nil && a.ExpirationDate != nil && a.StartDate.After(*a.ExpirationDate) {
		return ErrInvalidTimeWindow
	}
	return nil
}

// CurrentFilter holds the parameters of a current-announcements query.
//
//   - Exclude: ids that are always omitted. Default: empty.
//   - ExcludeForUser: when non-empty, omit announcements this user dismissed. Default: none.
//   - SiteWide: when true, only site-wide announcements. Default: false.
//   - ForMembers: when true, members-only announcements are included. Default: false.
//   - Now: the instant the time window is evaluated at. Default (zero): wall clock at execution.
type CurrentFilter struct {
	Exclude        []string
	ExcludeForUser string
	SiteWide       bool
	ForMembers     bool
	Now            time.Time
}

// NewCurrentFilter returns a filter with defaults. Exclude is freshly allocated on every call.
func NewCurrentFilter() CurrentFilter {
	return CurrentFilter{Exclude: make([]string, 0)}
}

// Matches reports whether a passes every predicate of the filter at f.Now.
// dismissedBy reports whether the given user dismissed a; it is only consulted when ExcludeForUser is set.
func (f CurrentFilter) Matches(a *Announcement, dismissedBy func(userID string) bool) bool {
	if f.SiteWide && !a.SiteWide {
		return false
	}
	if slices.Contains(f.Exclude, a.ID) {
		return false
	}
	if f.ExcludeForUser != "" && dismissedBy != nil && dismissedBy(f.ExcludeForUser) {
		return false
	}
	if !f.ForMembers && a.MembersOnly {
		return false
	}
	return a.ActiveAt(f.Now)
}

// CurrentOverrides carries caller-supplied values that replace the defaults derived
// from a viewing context. A nil field keeps the default.
type CurrentOverrides struct {
	Exclude        *[]string
	ExcludeForUser *string
	SiteWide       *bool
	ForMembers     *bool
	Now            *time.Time
}

// Apply returns f with every non-nil override applied. f is not modified.
func (o *CurrentOverrides) Apply(f CurrentFilter) CurrentFilter {
	if o == nil {
		return f
	}
	if o.Exclude != nil {
		f.Exclude = slices.Clone(*o.Exclude)
	}
	if o.ExcludeForUser != nil {
		f.ExcludeForUser = *o.ExcludeForUser
	}
	if o.SiteWide != nil {
		f.SiteWide = *o.SiteWide
	}
	if o.ForMembers != nil {
		f.ForMembers = *o.ForMembers
	}
	if o.Now != nil {
		f.Now = *o.Now
	}
	return f
}

// ViewingContext describes who is looking at the site. It is either Anonymous or Authenticated.
type ViewingContext interface {
	viewingContext()
}

// Anonymous is a viewer without an identity. ExcludedIDs holds the announcements the
// viewer dismissed locally (for example in a cookie).
type Anonymous struct {
	ExcludedIDs []string
}

// Authenticated is a signed-in member.
type Authenticated struct {
	UserID string
}

func (Anonymous) viewingContext()     {}
func (Authenticated) viewingContext() {}

// AnnouncementInput holds the administrator-editable fields of an announcement.
type AnnouncementInput struct {
	Title          string
	Content        string
	SiteWide       bool
	MembersOnly    bool
	StartDate      *time.Time
	ExpirationDate *time.Time
	IsDismissable  bool
	SendNow        bool
}

// DismissResult tells the caller how a dismissal was handled.
// ExcludeLocally is set for anonymous viewers: the caller must add the id to its own excluded set.
type DismissResult struct {
	AnnouncementID string `json:"announcement_id"`
	Recorded       bool   `json:"recorded"`
	ExcludeLocally bool   `json:"exclude_locally"`
}

// AnnouncementRepository defines storage for announcements and their dismissals.
type AnnouncementRepository interface {
	// Current returns the announcements matching filter, newest first.
	Current(ctx context.Context, filter CurrentFilter) ([]*Announcement, error)
	GetByID(ctx context.Context, id string) (*Announcement, error)
	Create(ctx context.Context, a *Announcement) error
	// Update writes every editable field. The creator column is never written.
	Update(ctx context.Context, a *Announcement) error
	// AddDismissal records that userID dismissed the announcement. Repeating it is a no-op.
	AddDismissal(ctx context.Context, announcementID, userID string) error
	HasDismissed(ctx context.Context, announcementID, userID string) (bool, error)
	List(ctx context.Context, params PaginationParams, membersOnly *bool) ([]*Announcement, error)
	Count(ctx context.Context, membersOnly *bool) (int, error)
}

// AnnouncementService defines announcement selection, dismissal and administration.
type AnnouncementService interface {
	Current(ctx context.Context, filter CurrentFilter) ([]*Announcement, error)
	CurrentForContext(ctx context.Context, vc ViewingContext, overrides *CurrentOverrides) ([]*Announcement, error)
	Get(ctx context.Context, id string) (*Announcement, error)
	Dismiss(ctx context.Context, vc ViewingContext, id string) (*DismissResult, error)
	Create(ctx context.Context, creatorID string, input AnnouncementInput) (*Announcement, error)
	// Update edits an announcement. creatorID, when non-empty, must equal the stored creator.
	Update(ctx context.Context, id, creatorID string, input AnnouncementInput) (*Announcement, error)
	List(ctx context.Context, params PaginationParams, membersOnly *bool) ([]*Announcement, int, error)
}
