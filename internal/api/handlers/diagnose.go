package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pest-detectives/backend/internal/api/middleware"
	"github.com/pest-detectives/backend/internal/diagnose"
)

type IdentifyRequest struct {
	PhotoRef string `json:"photo_ref"`
	// PermissionGranted reports the device's photo permission; omitted
	// means granted.
	PermissionGranted *bool `json:"permission_granted,omitempty"`
}

type DiagnosisResponse struct {
	Result   *diagnose.Result `json:"result"`
	PhotoRef string           `json:"photo_ref,omitempty"`
}

// GetDiagnosis returns the most recent identification, if any.
func GetDiagnosis(identifier *diagnose.Identifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var resp DiagnosisResponse
		if res, ref, ok := identifier.Last(); ok {
			resp.Result = &res
			resp.PhotoRef = ref
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// Identify runs the identification stub on the chosen photo.
func Identify(identifier *diagnose.Identifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req IdentifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid JSON body")
			return
		}

		picker := diagnose.StaticPicker{
			Ref:     req.PhotoRef,
			Granted: req.PermissionGranted == nil || *req.PermissionGranted,
		}
		res, err := diagnose.NewScreen(picker, identifier).PickAndIdentify(r.Context())
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, DiagnosisResponse{Result: &res, PhotoRef: req.PhotoRef})
		case errors.Is(err, diagnose.ErrPermissionNeeded):
			middleware.WriteError(w, http.StatusForbidden, middleware.ErrPermissionNeeded, err.Error())
		case errors.Is(err, diagnose.ErrNoInput):
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrNoInput, err.Error())
		default:
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to identify photo")
		}
	}
}
