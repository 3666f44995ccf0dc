// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pest-detectives/backend/internal/api/handlers"
	"github.com/pest-detectives/backend/internal/api/middleware"
	"github.com/pest-detectives/backend/internal/appointment"
	"github.com/pest-detectives/backend/internal/calendar"
	"github.com/pest-detectives/backend/internal/diagnose"
	"github.com/pest-detectives/backend/internal/launcher"
	"github.com/pest-detectives/backend/internal/nav"
	"github.com/pest-detectives/backend/internal/session"
	"github.com/pest-detectives/backend/internal/storage"
	"github.com/pest-detectives/backend/internal/websocket"
)

// Services are the components the routes are served from.
type Services struct {
	KV           storage.KV
	Hub          *websocket.Hub
	Session      *session.Manager
	SignIn       *session.SignIn
	Appointments *appointment.Store
	Nav          *nav.Controller
	Identifier   *diagnose.Identifier
	Support      *launcher.Support
	Calendar     *calendar.Exporter

	// SignInLimiter throttles the sign-in endpoints; nil disables it.
	SignInLimiter *middleware.RateLimiter

	Logger *zap.Logger
}

// NewRouter creates and configures the HTTP router with all API routes.
// staticDir may be empty when no frontend is served.
func NewRouter(s Services, staticDir string) *mux.Router {
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))

	// API subrouter
	api := r.PathPrefix("/api").Subrouter()

	// Health and WebSocket endpoints
	api.HandleFunc("/health", handlers.HealthCheck(s.KV, s.Session, s.Hub)).Methods("GET")
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(s.Hub, log)).Methods("GET")

	// Session endpoints
	api.HandleFunc("/session", handlers.GetSession(s.Session, s.SignIn, s.Nav)).Methods("GET")
	api.HandleFunc("/session", handlers.SignOut(s.Session)).Methods("DELETE")

	signIn := api.PathPrefix("/session").Subrouter()
	if s.SignInLimiter != nil {
		signIn.Use(middleware.RateLimit(s.SignInLimiter))
	}
	signIn.HandleFunc("/guest", handlers.GuestSignIn(s.Session, s.SignIn, s.Nav)).Methods("POST")
	signIn.HandleFunc("/oauth/start", handlers.StartOAuth(s.SignIn)).Methods("POST")
	signIn.HandleFunc("/oauth/callback", handlers.OAuthCallback(s.Session, s.SignIn, s.Nav)).Methods("POST")

	// Everything below requires a resolved, signed-in session
	gated := api.NewRoute().Subrouter()
	gated.Use(middleware.RequireSession(s.Session))

	// Navigation endpoints
	gated.HandleFunc("/nav", handlers.GetNav(s.Nav)).Methods("GET")
	gated.HandleFunc("/nav/{tab}", handlers.Navigate(s.Nav)).Methods("POST")

	// Appointment endpoints
	gated.HandleFunc("/appointments", handlers.ListAppointments(s.Appointments)).Methods("GET")
	gated.HandleFunc("/appointments", handlers.CreateAppointment(s.Appointments)).Methods("POST")
	gated.HandleFunc("/appointments/count", handlers.CountAppointments(s.Appointments)).Methods("GET")
	gated.HandleFunc("/appointments/{id}", handlers.DeleteAppointment(s.Appointments)).Methods("DELETE")
	gated.HandleFunc("/appointments/{id}/ics", handlers.AppointmentICS(s.Appointments, s.Calendar, log)).Methods("GET")
	gated.HandleFunc("/appointments/{id}/calendar", handlers.AddAppointmentToCalendar(s.Appointments, s.Support)).Methods("POST")

	// Diagnose endpoints
	gated.HandleFunc("/diagnose", handlers.GetDiagnosis(s.Identifier)).Methods("GET")
	gated.HandleFunc("/diagnose", handlers.Identify(s.Identifier)).Methods("POST")

	// Support endpoints
	gated.HandleFunc("/support", handlers.GetSupport(s.Support)).Methods("GET")
	gated.HandleFunc("/support/intercept", handlers.InterceptLink(s.Support)).Methods("POST")
	gated.HandleFunc("/support/{action}", handlers.SupportAction(s.Support)).Methods("POST")

	// Serve static frontend files
	if staticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))
	}

	return r
}
