package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/civicdesk/platform/internal/assistant"
	"github.com/civicdesk/platform/internal/audit"
	"github.com/civicdesk/platform/internal/complaint"
	complaintapi "github.com/civicdesk/platform/internal/complaint/api"
	complaintinfra "github.com/civicdesk/platform/internal/complaint/infrastructure"
	"github.com/civicdesk/platform/internal/identity"
	"github.com/civicdesk/platform/internal/media"
	"github.com/civicdesk/platform/internal/notification"
	"github.com/civicdesk/platform/internal/shared/auth"
	"github.com/civicdesk/platform/internal/shared/config"
	"github.com/civicdesk/platform/internal/shared/database"
	"github.com/civicdesk/platform/internal/shared/events"
	"github.com/civicdesk/platform/internal/shared/metrics"
	secmiddleware "github.com/civicdesk/platform/internal/shared/middleware"
)

// App holds all application dependencies
type App struct {
	Config *config.Config
	DB     *database.DB
	Bus    *events.Bus
	Notify *notification.Service
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	app := &App{Config: cfg}

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	app.DB = db
	defer db.Close()

	if err := database.Migrate(ctx, db.Pool); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	// Event streaming is optional; without it the platform runs with an
	// in-memory audit log and no published domain events.
	if cfg.EventStore.Enabled {
		bus, err := events.NewBus(ctx, cfg.EventStore)
		if err != nil {
			fmt.Printf("Warning: event store not available: %v\n", err)
			fmt.Println("Running without event streaming...")
		} else {
			app.Bus = bus
			defer bus.Close()
		}
	}

	// Notification dispatcher
	app.Notify = notification.NewService(
		notification.NewLogProvider("push"),
		notification.NewLogProvider("email"),
		notification.ServiceConfig{
			Workers:       cfg.Notify.Workers,
			BufferSize:    cfg.Notify.BufferSize,
			RetryAttempts: cfg.Notify.RetryAttempts,
			RetryDelay:    time.Duration(cfg.Notify.RetryDelaySec) * time.Second,
		},
	)
	if err := app.Notify.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start notification service: %v\n", err)
		os.Exit(1)
	}
	defer app.Notify.Stop()

	rateLimiter := secmiddleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.CORS(cfg.Server.CORSOrigins))
	r.Use(secmiddleware.MaxBody(cfg.Media.MaxUploadMB))
	r.Use(rateLimiter.Middleware)
	r.Use(metrics.Middleware)

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler(app))
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	r.Get("/", infoHandler)

	var bus events.EventBus
	if app.Bus != nil {
		bus = app.Bus
	}

	// Identity repository doubles as the staff directory for assignments
	identityRepo := identity.NewRepository(db.Pool)
	identityHandler := identity.NewHandler(identityRepo, cfg.Auth, bus)

	complaintRepo := complaintinfra.NewPostgresRepository(db.Pool)
	complaintService := complaint.NewService(complaintRepo, identityRepo, app.Notify, bus)
	complaintHandler := complaintapi.NewHandler(complaintService)

	// Audit log rides on the event store when available
	var auditRepo audit.Repository
	if app.Bus != nil {
		auditRepo = audit.NewKurrentDBRepository(app.Bus.Client())
	} else {
		auditRepo = audit.NewMemoryRepository()
	}
	if err := auditRepo.Initialize(ctx); err != nil {
		fmt.Printf("Warning: audit initialization failed: %v\n", err)
	}
	auditHandler := audit.NewHandler(auditRepo)

	if app.Bus != nil {
		auditSubscriber := audit.NewSubscriber(auditRepo, app.Bus)
		if err := auditSubscriber.Start(ctx); err != nil {
			fmt.Printf("Warning: audit subscriber failed to start: %v\n", err)
		}
	}

	mediaStore, err := media.NewStore(cfg.Media.Dir, cfg.Media.MaxUploadMB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize media store: %v\n", err)
		os.Exit(1)
	}
	mediaHandler := media.NewHandler(mediaStore)

	r.Route("/api/v1", func(r chi.Router) {
		// Public identity routes (register, login)
		r.Mount("/auth", identityHandler.Routes())

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(cfg.Auth))

			r.Mount("/users", identityHandler.ProtectedRoutes())
			r.Mount("/complaints", complaintHandler.Routes())
			r.Mount("/audit", auditHandler.Routes())
			r.Mount("/media", mediaHandler.Routes())

			// Assistant sidecar (optional)
			if cfg.Assistant.Enabled {
				assistantHandler := assistant.NewHandler(assistant.NewClient(cfg.Assistant), complaintService)
				r.Mount("/assistant", assistantHandler.Routes())
				fmt.Printf("Assistant enabled (service: %s)\n", cfg.Assistant.URL)
			}
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		fmt.Println("\nShutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			fmt.Printf("Server shutdown error: %v\n", err)
		}
		close(done)
	}()

	fmt.Println("============================================")
	fmt.Println("CivicDesk Complaint Platform")
	fmt.Println("============================================")
	fmt.Printf("Environment: %s\n", cfg.Server.Env)
	fmt.Printf("Server:      http://localhost:%d\n", cfg.Server.Port)
	fmt.Printf("API:         http://localhost:%d/api/v1\n", cfg.Server.Port)
	fmt.Printf("Health:      http://localhost:%d/health\n", cfg.Server.Port)
	fmt.Println("============================================")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}

	<-done
	fmt.Println("Server stopped")
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "CivicDesk Complaint Platform",
		"version": "0.1.0",
		"docs":    "/api/v1",
	})
}

func healthHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
		})
	}
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		if err := app.DB.Health(r.Context()); err != nil {
			checks["database"] = "not ready: " + err.Error()
		} else {
			checks["database"] = "ready"
		}

		if app.Bus != nil {
			if err := app.Bus.Health(); err != nil {
				checks["eventstore"] = "not ready: " + err.Error()
			} else {
				checks["eventstore"] = "ready"
			}
		} else {
			checks["eventstore"] = "not configured"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" && status != "not configured" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}
