// Package main is the entry point for the Pest Detectives app server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pest-detectives/backend/internal/api"
	"github.com/pest-detectives/backend/internal/api/middleware"
	"github.com/pest-detectives/backend/internal/appointment"
	"github.com/pest-detectives/backend/internal/calendar"
	"github.com/pest-detectives/backend/internal/config"
	"github.com/pest-detectives/backend/internal/diagnose"
	"github.com/pest-detectives/backend/internal/launcher"
	"github.com/pest-detectives/backend/internal/logging"
	"github.com/pest-detectives/backend/internal/nav"
	"github.com/pest-detectives/backend/internal/session"
	"github.com/pest-detectives/backend/internal/storage"
	"github.com/pest-detectives/backend/internal/storage/models"
	"github.com/pest-detectives/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

// sweepSpec is how often unfinished sign-in attempts are checked.
const sweepSpec = "@every 15s"

func main() {
	// Parse command-line flags; set flags override config
	addr := flag.String("addr", "", "HTTP server address")
	dataDir := flag.String("data", "", "Data directory for the SQLite database")
	staticDir := flag.String("static", "", "Directory for static frontend files")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *staticDir != "" {
		cfg.StaticDir = *staticDir
	}

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(cfg.Addr); err != nil {
			fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Allow overriding version via environment (e.g., injected by container build/runtime)
	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	log, err := logging.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("starting pest detectives server", zap.String("version", version), zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	if cfg.StorageBackend == config.BackendSQLite {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data directory %q: %w", cfg.DataDir, err)
		}
	}
	kv, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer kv.Close()

	// Initialize WebSocket hub
	hub := websocket.NewHub(log.Named("websocket"))
	go hub.Run(ctx)
	events := websocket.NewEventBroadcaster(hub, log)

	// Resolve the session gate before anything touches the appointment store
	sessions := session.NewManager(session.Options{
		KV:     kv,
		Key:    cfg.SessionKey,
		Logger: log.Named("session"),
	})
	if p := sessions.LoadSession(ctx); p != nil {
		log.Info("restored session", zap.String("provider", string(p.Provider)))
	}

	store := appointment.NewStore(appointment.Options{
		KV:            kv,
		Key:           cfg.AppointmentsKey,
		OfficeAddress: cfg.OfficeAddress,
		OnChange: func(records []models.AppointmentRecord) {
			events.BroadcastAppointmentsChanged(len(records))
		},
		Logger: log.Named("appointments"),
	})
	store.Load(ctx)

	signIn := session.NewSignIn(session.SignInOptions{
		Manager:          sessions,
		ClientID:         cfg.OAuthClientID,
		AuthURL:          cfg.OAuthAuthURL,
		RedirectURL:      cfg.OAuthRedirectURL,
		Timeout:          cfg.SignInTimeout,
		GuestEscapeHatch: cfg.GuestEscapeHatch,
		Logger:           log.Named("signin"),
	})

	// Launchers are built for the platform selected at startup
	platform, err := launcher.PlatformFor(cfg.Platform)
	if err != nil {
		return err
	}
	exporter := calendar.NewExporter(cfg.BusinessName, time.Local)
	support := launcher.NewSupport(
		launcher.ContactFromConfig(cfg),
		platform,
		launcher.NewHubLauncher(events, log.Named("launcher")),
		exporter,
		log.Named("support"),
	)

	navigator := nav.NewController(sessions, store, log.Named("nav"))
	defer navigator.Close()

	unsubscribe := sessions.Subscribe(func(state session.State, p *models.SessionProfile) {
		provider := ""
		if p != nil {
			provider = string(p.Provider)
		}
		events.BroadcastSessionChanged(string(state), string(navigator.Gate()), provider)
	})
	defer unsubscribe()

	sweeper := session.NewSweeper(signIn, sweepSpec, func(a session.Attempt) {
		events.BroadcastSignInExpired(a.ID, a.Reason)
	}, log.Named("sweeper"))
	if err := sweeper.Start(); err != nil {
		log.Warn("sign-in sweeper not started", zap.Error(err))
	} else {
		defer sweeper.Stop()
	}

	limiter := middleware.NewRateLimiter(cfg.SignInRatePerSec, cfg.SignInRateBurst)
	go limiter.Run(ctx)

	// Initialize HTTP router with services
	router := api.NewRouter(api.Services{
		KV:            kv,
		Hub:           hub,
		Session:       sessions,
		SignIn:        signIn,
		Appointments:  store,
		Nav:           navigator,
		Identifier:    diagnose.NewIdentifier(nil, log.Named("diagnose")),
		Support:       support,
		Calendar:      exporter,
		SignInLimiter: limiter,
		Logger:        log.Named("http"),
	}, cfg.StaticDir)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("serving http: %w", err)
	}

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint returned %d", resp.StatusCode)
	}
	return nil
}
