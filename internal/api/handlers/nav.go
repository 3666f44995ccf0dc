package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pest-detectives/backend/internal/api/middleware"
	"github.com/pest-detectives/backend/internal/nav"
)

type NavResponse struct {
	Gate    nav.GateState `json:"gate"`
	Current nav.Tab       `json:"current"`
	Tabs    []nav.Tab     `json:"tabs"`
}

// GetNav returns the current tab.
func GetNav(navigator *nav.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, NavResponse{
			Gate:    navigator.Gate(),
			Current: navigator.Current(),
			Tabs:    nav.Tabs,
		})
	}
}

// Navigate switches tabs and returns the freshly loaded view.
func Navigate(navigator *nav.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tab, err := nav.ParseTab(mux.Vars(r)["tab"])
		if err != nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Unknown tab")
			return
		}

		view, err := navigator.Navigate(r.Context(), tab)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, view)
		case errors.Is(err, nav.ErrSessionLoading):
			middleware.WriteError(w, http.StatusServiceUnavailable, middleware.ErrLoading, "Session is still loading")
		case errors.Is(err, nav.ErrSignInRequired):
			middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Please sign in first")
		default:
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to navigate")
		}
	}
}
