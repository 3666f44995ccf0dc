package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pest-detectives/backend/internal/api/middleware"
	"github.com/pest-detectives/backend/internal/nav"
	"github.com/pest-detectives/backend/internal/session"
	"github.com/pest-detectives/backend/internal/storage/models"
)

// Session request/response types

type SessionResponse struct {
	State           session.State          `json:"state"`
	Gate            nav.GateState          `json:"gate"`
	Profile         *models.SessionProfile `json:"profile"`
	OAuthConfigured bool                   `json:"oauth_configured"`
	GuestAvailable  bool                   `json:"guest_available"`
}

type OAuthCallbackRequest struct {
	AttemptID string `json:"attempt_id"`
	Success   bool   `json:"success"`
	IDToken   string `json:"id_token,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

func sessionResponse(mgr *session.Manager, signIn *session.SignIn, navigator *nav.Controller) SessionResponse {
	return SessionResponse{
		State:           mgr.State(),
		Gate:            navigator.Gate(),
		Profile:         mgr.Profile(),
		OAuthConfigured: signIn.OAuthConfigured(),
		GuestAvailable:  signIn.GuestAvailable(),
	}
}

// GetSession returns the session gate state and the active profile.
func GetSession(mgr *session.Manager, signIn *session.SignIn, navigator *nav.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sessionResponse(mgr, signIn, navigator))
	}
}

// GuestSignIn establishes a guest session.
func GuestSignIn(mgr *session.Manager, signIn *session.SignIn, navigator *nav.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := signIn.Guest(r.Context()); err != nil {
			if errors.Is(err, session.ErrGuestUnavailable) {
				middleware.WriteError(w, http.StatusForbidden, middleware.ErrUnauthorized, "Guest access is not available")
				return
			}
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to sign in")
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse(mgr, signIn, navigator))
	}
}

// StartOAuth opens an external sign-in attempt.
func StartOAuth(signIn *session.SignIn) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attempt, err := signIn.Start(r.Context())
		if err != nil {
			if errors.Is(err, session.ErrOAuthNotConfigured) {
				middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "Sign-in provider is not configured; continue as guest")
				return
			}
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to start sign-in")
			return
		}
		writeJSON(w, http.StatusCreated, attempt)
	}
}

// OAuthCallback records the result of an external sign-in attempt.
func OAuthCallback(mgr *session.Manager, signIn *session.SignIn, navigator *nav.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OAuthCallbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid JSON body")
			return
		}
		if req.AttemptID == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "attempt_id is required")
			return
		}

		_, err := signIn.Complete(r.Context(), req.AttemptID, session.Outcome{
			Success: req.Success,
			IDToken: req.IDToken,
			Reason:  req.Reason,
		})
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, sessionResponse(mgr, signIn, navigator))
		case errors.Is(err, session.ErrUnknownAttempt):
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Sign-in attempt not found")
		case errors.Is(err, session.ErrAttemptClosed):
			middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "Sign-in attempt is no longer pending")
		case errors.Is(err, session.ErrSignInFailed):
			middleware.WriteErrorWithDetails(w, http.StatusUnauthorized, middleware.ErrUnauthorized,
				"Sign-in did not complete", map[string]bool{"can_retry": true, "guest_available": signIn.GuestAvailable()})
		default:
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to complete sign-in")
		}
	}
}

// SignOut clears the session; the gate flips back immediately.
func SignOut(mgr *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mgr.ClearSession(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}
}
