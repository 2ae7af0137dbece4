package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"announcements/internal/delivery/http/helpers"
	"announcements/internal/delivery/http/middleware"
	"announcements/internal/domain"
)

const maxTitleLength = 50

// CreateAnnouncementRequest is the request body for POST /admin/announcements.
// is_dismissable defaults to true. Dates are RFC 3339; omitted dates leave the window open.
type CreateAnnouncementRequest struct {
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	SiteWide       bool       `json:"site_wide"`
	MembersOnly    bool       `json:"members_only"`
	StartDate      *time.Time `json:"start_date"`
	ExpirationDate *time.Time `json:"expiration_date"`
	IsDismissable  *bool      `json:"is_dismissable"`
	SendNow        bool       `json:"send_now"`
}

// Validate implements Validator.
func (c CreateAnnouncementRequest) Validate() []string {
	return validateAnnouncementFields(c.Title, c.Content, c.StartDate, c.ExpirationDate)
}

func (c CreateAnnouncementRequest) input() domain.AnnouncementInput {
	dismissable := true
	if c.IsDismissable != nil {
		dismissable = *c.IsDismissable
	}
	return domain.AnnouncementInput{
		Title:          c.Title,
		Content:        c.Content,
		SiteWide:       c.SiteWide,
		MembersOnly:    c.MembersOnly,
		StartDate:      c.StartDate,
		ExpirationDate: c.ExpirationDate,
		IsDismissable:  dismissable,
		SendNow:        c.SendNow,
	}
}

// UpdateAnnouncementRequest is the request body for PATCH /admin/announcements/{id}.
// All fields optional; omitted fields are unchanged. Use clear_start_date / clear_expiration_date
// to reopen a bound. creator_id, when given, must match the stored creator.
type UpdateAnnouncementRequest struct {
	Title               *string    `json:"title"`
	Content             *string    `json:"content"`
	SiteWide            *bool      `json:"site_wide"`
	MembersOnly         *bool      `json:"members_only"`
	StartDate           *time.Time `json:"start_date"`
	ExpirationDate      *time.Time `json:"expiration_date"`
	ClearStartDate      bool       `json:"clear_start_date"`
	ClearExpirationDate bool       `json:"clear_expiration_date"`
	IsDismissable       *bool      `json:"is_dismissable"`
	CreatorID           *string    `json:"creator_id"`
	SendNow             bool       `json:"send_now"`
}

// Validate implements Validator. Only fields that are present are checked.
func (u UpdateAnnouncementRequest) Validate() []string {
	var errs []string
	if u.Title != nil {
		title := strings.TrimSpace(*u.Title)
		if title == "" {
			errs = append(errs, "title must not be empty")
		} else if utf8.RuneCountInString(title) > maxTitleLength {
			errs = append(errs, "title must be at most 50 characters")
		}
	}
	if u.Content != nil && strings.TrimSpace(*u.Content) == "" {
		errs = append(errs, "content must not be empty")
	}
	if u.ClearStartDate && u.StartDate != nil {
		errs = append(errs, "start_date and clear_start_date are mutually exclusive")
	}
	if u.ClearExpirationDate && u.ExpirationDate != nil {
		errs = append(errs, "expiration_date and clear_expiration_date are mutually exclusive")
	}
	return errs
}

// merge applies the request onto the stored announcement and returns the resulting input.
func (u UpdateAnnouncementRequest) merge(a *domain.Announcement) domain.AnnouncementInput {
	in := domain.AnnouncementInput{
		Title:          a.Title,
		Content:        a.Content,
		SiteWide:       a.SiteWide,
		MembersOnly:    a.MembersOnly,
		StartDate:      a.StartDate,
		ExpirationDate: a.ExpirationDate,
		IsDismissable:  a.IsDismissable,
		SendNow:        u.SendNow,
	}
	if u.Title != nil {
		in.Title = *u.Title
	}
	if u.Content != nil {
		in.Content = *u.Content
	}
	if u.SiteWide != nil {
		in.SiteWide = *u.SiteWide
	}
	if u.MembersOnly != nil {
		in.MembersOnly = *u.MembersOnly
	}
	if u.StartDate != nil {
		in.StartDate = u.StartDate
	}
	if u.ClearStartDate {
		in.StartDate = nil
	}
	if u.ExpirationDate != nil {
		in.ExpirationDate = u.ExpirationDate
	}
	if u.ClearExpirationDate {
		in.ExpirationDate = nil
	}
	if u.IsDismissable != nil {
		in.IsDismissable = *u.IsDismissable
	}
	return in
}

func validateAnnouncementFields(title, content string, start, expiration *time.Time) []string {
	var errs []string
	title = strings.TrimSpace(title)
	if title == "" {
		errs = append(errs, "title is required")
	} else if utf8.RuneCountInString(title) > maxTitleLength {
		errs = append(errs, "title must be at most 50 characters")
	}
	if strings.TrimSpace(content) == "" {
		errs = append(errs, "content is required")
	}
	if start != nil && expiration != nil && start.After(*expiration) {
		errs = append(errs, "start_date must not be after expiration_date")
	}
	return errs
}

// ListAnnouncementsResponse is the response body for GET /admin/announcements.
type ListAnnouncementsResponse struct {
	Items      []*domain.Announcement `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListAnnouncementsSuccessResponse is the success response envelope for GET /admin/announcements (200).
type ListAnnouncementsSuccessResponse struct {
	Data  ListAnnouncementsResponse `json:"data"`
	Error *helpers.APIError         `json:"error"`
}

type AdminController struct {
	Logger  *slog.Logger
	Service domain.AnnouncementService
}

func NewAdminController(logger *slog.Logger, svc domain.AnnouncementService) *AdminController {
	return &AdminController{
		Logger:  logger,
		Service: svc,
	}
}

// writeServiceError maps announcement service errors to responses.
func (c *AdminController) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "announcement not found")
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidTimeWindow):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrCreatorImmutable):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
	case errors.Is(err, domain.ErrUserNotFound):
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unknown user")
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
	}
}

// CreateAnnouncement godoc
// @Summary Create an announcement
// @Description Creates an announcement. The caller becomes its creator. With send_now the announcement is also emailed to every user; delivery failures do not fail the request. Requires the admin role.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param announcement body CreateAnnouncementRequest true "Announcement data"
// @Success 201 {object} controllers.AnnouncementSuccessResponse "data contains the created announcement"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/announcements [post]
func (c *AdminController) CreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req CreateAnnouncementRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	a, err := c.Service.Create(r.Context(), userID, req.input())
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, a)
}

// UpdateAnnouncement godoc
// @Summary Update an announcement
// @Description Partially updates an announcement. Omitted fields are unchanged. The creator cannot be changed. Requires the admin role.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Announcement ID (UUID)"
// @Param announcement body UpdateAnnouncementRequest true "Fields to change"
// @Success 200 {object} controllers.AnnouncementSuccessResponse "data contains the updated announcement"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (creator change)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/announcements/{id} [patch]
func (c *AdminController) UpdateAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, ok := announcementIDFromPath(w, r)
	if !ok {
		return
	}
	var req UpdateAnnouncementRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	current, err := c.Service.Get(r.Context(), id)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	creatorID := ""
	if req.CreatorID != nil {
		creatorID = *req.CreatorID
	}
	a, err := c.Service.Update(r.Context(), id, creatorID, req.merge(current))
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, a)
}

// ListAnnouncements godoc
// @Summary List all announcements
// @Description Returns a paginated list of every announcement regardless of its window, newest first. Optional members_only filters by audience. Requires the admin role.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param members_only query bool false "Filter by members_only"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListAnnouncementsSuccessResponse "data contains items and pagination"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /admin/announcements [get]
func (c *AdminController) ListAnnouncements(w http.ResponseWriter, r *http.Request) {
	membersOnly, ok := helpers.ParseOptionalBool(r, "members_only")
	if !ok {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "members_only must be a boolean")
		return
	}
	params := helpers.ParsePagination(r)
	list, total, err := c.Service.List(r.Context(), params, membersOnly)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []*domain.Announcement{}
	}
	meta := helpers.NewPaginationMeta(params.Page, params.PageSize, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListAnnouncementsResponse{Items: list, Pagination: meta})
}
