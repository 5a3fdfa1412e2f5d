package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"marketplace/db"
	"marketplace/db/migrations"
	"marketplace/internal/auth"
	"marketplace/internal/config"
	"marketplace/internal/handlers"
	"marketplace/internal/mailer"
	"marketplace/internal/upload"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/lmittmann/tint"
)

func main() {
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
		}),
	))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	dbConn, err := sqlx.Connect("postgres", cfg.PostgresConn)
	if err != nil {
		slog.Error("cannot connect to DB", "err", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	if err := migrations.Run(cfg.PostgresConn); err != nil {
		slog.Error("failed to run migrations", "err", err)
		os.Exit(1)
	}

	store := db.NewStorage(dbConn)
	tokens := auth.NewTokenIssuer([]byte(cfg.AccessSecret), []byte(cfg.RefreshSecret))
	mail := mailer.New(cfg.Mail)

	h := handlers.NewHandler(store, tokens, mail,
		upload.NewDeliverableSaver(cfg.UploadDir),
		upload.NewBidVideoSaver(cfg.UploadDir))
	h.SecureCookies = cfg.SecureCookies

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.PingHandler)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.RegisterHandler)
			r.Post("/login", h.LoginHandler)
			r.Post("/token", h.RefreshHandler)
			r.Post("/logout", h.LogoutHandler)

			r.Group(func(r chi.Router) {
				r.Use(h.CheckToken)
				r.Get("/me", h.MeHandler)
				r.Put("/profile", h.UpdateProfileHandler)
				r.Delete("/account", h.DeleteAccountHandler)
			})
		})

		r.Route("/project", func(r chi.Router) {
			r.Use(h.CheckToken)
			r.With(h.RequireRole(db.RoleBuyer)).Post("/projects", h.CreateProjectHandler)
			r.Get("/projects", h.GetProjectsHandler)
			r.With(h.RequireRole(db.RoleSeller)).Get("/projects/open", h.GetOpenProjectsHandler)
			r.With(h.RequireRole(db.RoleSeller)).Get("/projects/my", h.GetMyProjectsHandler)
			r.Get("/projects/{id}", h.GetProjectHandler)
			r.With(h.RequireProjectOwnership).Put("/projects/{id}", h.UpdateProjectHandler)
			r.With(h.RequireProjectOwnership).Put("/projects/{id}/status", h.UpdateProjectStatusHandler)
			r.With(h.RequireRole(db.RoleBuyer), h.RequireProjectOwnership).
				Delete("/projects/{id}", h.DeleteProjectHandler)
		})

		r.Route("/bid", func(r chi.Router) {
			r.Use(h.CheckToken)
			r.With(h.RequireRole(db.RoleSeller)).Post("/bids", h.CreateBidHandler)
			r.With(h.RequireRole(db.RoleSeller)).Get("/bids/mine", h.GetMyBidsHandler)
			r.With(h.RequireRole(db.RoleSeller)).Post("/bids/video", h.UploadBidVideoHandler)
			r.With(h.RequireRole(db.RoleBuyer), h.RequireProjectOwnership).
				Get("/projects/{id}/bids", h.GetBidsForProjectHandler)
			r.With(h.RequireRole(db.RoleSeller)).Get("/projects/{id}/hasBid", h.HasBidHandler)
			r.With(h.RequireRole(db.RoleSeller)).Get("/projects/{id}/details", h.GetProjectDetailsHandler)
		})

		r.Route("/deliverable", func(r chi.Router) {
			r.Use(h.CheckToken)
			r.With(h.RequireRole(db.RoleSeller)).
				Post("/projects/{id}/deliverables", h.SubmitDeliverableHandler)
			r.With(h.RequireRole(db.RoleBuyer), h.RequireProjectOwnership).
				Get("/projects/{id}/deliverables", h.GetDeliverableHandler)
		})
	})

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		slog.Error("cannot create upload directory", "err", err)
		os.Exit(1)
	}
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))

	slog.Info("starting server", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
