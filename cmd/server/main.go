// @title Announcements API
// @version 1.0
// @description Site announcements: current-announcement selection, dismissal and administration.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"announcements/config"
	_ "announcements/docs"
	"announcements/internal/adapters/auth"
	"announcements/internal/adapters/email"
	"announcements/internal/adapters/session"
	httpdelivery "announcements/internal/delivery/http"
	"announcements/internal/delivery/http/controllers"
	"announcements/internal/delivery/http/middleware"
	"announcements/internal/metrics"
	"announcements/internal/repository/postgres"
	"announcements/internal/services"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	logger := config.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		cancelPing()
		logger.Error("ping database", "err", err)
		os.Exit(1)
	}
	cancelPing()

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Email.SESInsecureSkipVerify,
		},
	}, logger)
	if err != nil {
		logger.Error("create mailer", "err", err)
		os.Exit(1)
	}
	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		logger.Error("parse email templates", "err", err)
		os.Exit(1)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	announcementRepo := postgres.NewAnnouncementRepository(db)
	userRepo := postgres.NewUserRepository(db)
	roleRepo := postgres.NewRoleRepository(db)

	emailService := services.NewEmailService(mailer, renderer, logger)
	announcementService := services.NewAnnouncementService(announcementRepo, userRepo, emailService, m, logger, cfg.RequestTimeout)

	exclusions := session.NewCookieStore(cfg.CookieHashKey, cfg.CookieBlockKey, cfg.IsProduction(), logger)

	router := httpdelivery.NewRouter(httpdelivery.RouterDeps{
		Logger:        logger,
		Announcements: controllers.NewAnnouncementController(logger, announcementService, exclusions),
		Admin:         controllers.NewAdminController(logger, announcementService),
		Verifier:      auth.NewJWTVerifier(cfg.JWTSecret),
		Roles:         roleRepo,
		Gatherer:      prometheus.DefaultGatherer,
	})

	var handler http.Handler = router
	handler = middleware.Instrument(m, handler)
	handler = middleware.LoggingMiddleware(logger, handler)
	handler = middleware.CORS(cfg.AllowedOrigins, handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting", "addr", srv.Addr, "env", cfg.Environment, "email_provider", cfg.Email.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
	logger.Info("server stopped")
}
