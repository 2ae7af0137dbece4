package http

import (
	"log/slog"
	"net/http"

	"announcements/internal/delivery/http/controllers"
	"announcements/internal/delivery/http/middleware"
	"announcements/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterDeps holds what NewRouter needs to wire routes and middleware.
type RouterDeps struct {
	Logger        *slog.Logger
	Announcements *controllers.AnnouncementController
	Admin         *controllers.AdminController
	Verifier      domain.TokenVerifier
	Roles         domain.RoleRepository
	Gatherer      prometheus.Gatherer
}

// NewRouter initializes the HTTP router with all application routes
func NewRouter(d RouterDeps) *http.ServeMux {
	mux := http.NewServeMux()

	optionalAuth := middleware.OptionalAuth(d.Verifier, d.Logger)
	requireAuth := middleware.RequireAuth(d.Verifier, d.Logger)
	requireAdmin := middleware.RequireAdmin(d.Roles, d.Logger)
	admin := func(next http.HandlerFunc) http.HandlerFunc { return requireAuth(requireAdmin(next)) }

	// Announcements
	mux.HandleFunc("GET /announcements/current", optionalAuth(d.Announcements.Current))
	mux.HandleFunc("GET /announcements/{id}", optionalAuth(d.Announcements.Get))
	mux.HandleFunc("POST /announcements/{id}/dismiss", optionalAuth(d.Announcements.Dismiss))

	// Admin
	mux.HandleFunc("GET /admin/announcements", admin(d.Admin.ListAnnouncements))
	mux.HandleFunc("POST /admin/announcements", admin(d.Admin.CreateAnnouncement))
	mux.HandleFunc("PATCH /admin/announcements/{id}", admin(d.Admin.UpdateAnnouncement))

	// Metrics
	mux.Handle("GET /metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
