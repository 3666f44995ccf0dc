package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pest-detectives/backend/internal/api/middleware"
	"github.com/pest-detectives/backend/internal/launcher"
)

type SupportResponse struct {
	Contact  launcher.Contact  `json:"contact"`
	Platform string            `json:"platform"`
	Actions  []launcher.Action `json:"actions"`
}

type InterceptRequest struct {
	URL string `json:"url"`
}

// GetSupport returns the contact details and available panel actions.
func GetSupport(support *launcher.Support) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, SupportResponse{
			Contact:  support.Contact(),
			Platform: support.Platform().Name(),
			Actions:  launcher.Actions,
		})
	}
}

// SupportAction launches a panel action on the device.
func SupportAction(support *launcher.Support) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		action, err := launcher.ParseAction(mux.Vars(r)["action"])
		if err != nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Unknown support action")
			return
		}

		u, err := support.Do(r.Context(), action)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to launch action")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": u})
	}
}

// InterceptLink decides whether a web view navigation must leave the app.
func InterceptLink(support *launcher.Support) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req InterceptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid JSON body")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"intercepted": support.Intercept(r.Context(), req.URL)})
	}
}
