package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"announcements/internal/delivery/http/helpers"
	"announcements/internal/delivery/http/middleware"
	"announcements/internal/domain"

	"github.com/google/uuid"
)

// ExclusionStore persists the announcement ids an anonymous viewer dismissed.
type ExclusionStore interface {
	Load(r *http.Request) []string
	Save(w http.ResponseWriter, ids []string) error
}

// CurrentAnnouncementsSuccessResponse is the success response envelope for GET /announcements/current (200).
type CurrentAnnouncementsSuccessResponse struct {
	Data  []*domain.Announcement `json:"data"`
	Error *helpers.APIError      `json:"error"`
}

// AnnouncementSuccessResponse is the success response envelope for a single announcement.
type AnnouncementSuccessResponse struct {
	Data  *domain.Announcement `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// DismissSuccessResponse is the success response envelope for POST /announcements/{id}/dismiss (200).
type DismissSuccessResponse struct {
	Data  *domain.DismissResult `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

type AnnouncementController struct {
	Logger     *slog.Logger
	Service    domain.AnnouncementService
	Exclusions ExclusionStore
}

func NewAnnouncementController(logger *slog.Logger, svc domain.AnnouncementService, exclusions ExclusionStore) *AnnouncementController {
	return &AnnouncementController{
		Logger:     logger,
		Service:    svc,
		Exclusions: exclusions,
	}
}

// viewingContext resolves the viewer: a user set by auth middleware, else the anonymous
// viewer's cookie exclusions.
func (c *AnnouncementController) viewingContext(r *http.Request) domain.ViewingContext {
	if userID, ok := middleware.UserIDFromContext(r.Context()); ok {
		return domain.Authenticated{UserID: userID}
	}
	return domain.Anonymous{ExcludedIDs: c.Exclusions.Load(r)}
}

// Current godoc
// @Summary List current announcements
// @Description Returns the announcements active now for the caller, newest first. Signed-in members also see members-only announcements, minus the ones they dismissed. Anonymous viewers never see members-only announcements, and the ones they dismissed are read from a cookie. for_members can only narrow the result (false hides members-only announcements for a member).
// @Tags announcements
// @Produce json
// @Security BearerAuth
// @Param site_wide query bool false "Only site-wide announcements"
// @Param for_members query bool false "Set false to hide members-only announcements"
// @Success 200 {object} controllers.CurrentAnnouncementsSuccessResponse "data contains the announcements"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized (invalid token)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /announcements/current [get]
func (c *AnnouncementController) Current(w http.ResponseWriter, r *http.Request) {
	siteWide, ok := helpers.ParseOptionalBool(r, "site_wide")
	if !ok {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "site_wide must be a boolean")
		return
	}
	forMembers, ok := helpers.ParseOptionalBool(r, "for_members")
	if !ok {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "for_members must be a boolean")
		return
	}
	overrides := &domain.CurrentOverrides{SiteWide: siteWide}
	if forMembers != nil && !*forMembers {
		overrides.ForMembers = forMembers
	}

	list, err := c.Service.CurrentForContext(r.Context(), c.viewingContext(r), overrides)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidContext) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	if list == nil {
		list = []*domain.Announcement{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, list)
}

// Get godoc
// @Summary Get an announcement by ID
// @Description Returns a single announcement. Members-only announcements are reported as not found to anonymous viewers.
// @Tags announcements
// @Produce json
// @Security BearerAuth
// @Param id path string true "Announcement ID (UUID)"
// @Success 200 {object} controllers.AnnouncementSuccessResponse "data contains the announcement"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /announcements/{id} [get]
func (c *AnnouncementController) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := announcementIDFromPath(w, r)
	if !ok {
		return
	}
	a, err := c.Service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "announcement not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	if _, member := middleware.UserIDFromContext(r.Context()); a.MembersOnly && !member {
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "announcement not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, a)
}

// Dismiss godoc
// @Summary Dismiss an announcement
// @Description Hides a dismissable announcement from the caller. For signed-in members the dismissal is stored; for anonymous viewers the id is added to the exclusion cookie. Dismissing twice is a no-op.
// @Tags announcements
// @Produce json
// @Security BearerAuth
// @Param id path string true "Announcement ID (UUID)"
// @Success 200 {object} controllers.DismissSuccessResponse "data describes how the dismissal was handled"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized (invalid token or unknown user)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (not dismissable)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /announcements/{id}/dismiss [post]
func (c *AnnouncementController) Dismiss(w http.ResponseWriter, r *http.Request) {
	id, ok := announcementIDFromPath(w, r)
	if !ok {
		return
	}
	vc := c.viewingContext(r)
	result, err := c.Service.Dismiss(r.Context(), vc, id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "announcement not found")
		case errors.Is(err, domain.ErrNotDismissable):
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
		case errors.Is(err, domain.ErrInvalidContext):
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		case errors.Is(err, domain.ErrUserNotFound):
			helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unknown user")
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	if anon, isAnon := vc.(domain.Anonymous); isAnon && result.ExcludeLocally {
		ids := anon.ExcludedIDs
		if !slices.Contains(ids, result.AnnouncementID) {
			ids = append(ids, result.AnnouncementID)
		}
		if err := c.Exclusions.Save(w, ids); err != nil {
			c.Logger.ErrorContext(r.Context(), "save exclusion cookie", "announcement_id", id, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "could not store dismissal")
			return
		}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}

// announcementIDFromPath reads the {id} path value in canonical UUID form and writes a 400 when it is not a UUID.
func announcementIDFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if id == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing id")
		return "", false
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid announcement id")
		return "", false
	}
	return parsed.String(), true
}
