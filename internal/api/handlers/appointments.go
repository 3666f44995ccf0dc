package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pest-detectives/backend/internal/api/middleware"
	"github.com/pest-detectives/backend/internal/appointment"
	"github.com/pest-detectives/backend/internal/calendar"
	"github.com/pest-detectives/backend/internal/launcher"
	"github.com/pest-detectives/backend/internal/storage/models"
)

type CreateAppointmentResponse struct {
	Appointment models.AppointmentRecord `json:"appointment"`
	// Form is the cleared input form after a successful submit.
	Form appointment.Form `json:"form"`
}

// ListAppointments reloads and returns the appointment log, newest first.
func ListAppointments(store *appointment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records := store.Load(r.Context())
		if records == nil {
			records = []models.AppointmentRecord{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

// CreateAppointment requests a new appointment.
func CreateAppointment(store *appointment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form appointment.Form
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid JSON body")
			return
		}

		rec, err := store.Add(r.Context(), &form)
		if err != nil {
			if errors.Is(err, appointment.ErrWhenRequired) {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, err.Error())
				return
			}
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to request appointment")
			return
		}

		writeJSON(w, http.StatusCreated, CreateAppointmentResponse{
			Appointment: rec,
			Form:        form,
		})
	}
}

// DeleteAppointment removes an appointment. Unknown ids are not an error.
func DeleteAppointment(store *appointment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store.Remove(r.Context(), mux.Vars(r)["id"])
		w.WriteHeader(http.StatusNoContent)
	}
}

// CountAppointments returns the number of stored appointments.
func CountAppointments(store *appointment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"count": store.Count(r.Context())})
	}
}

// AppointmentICS downloads an appointment as an .ics file.
func AppointmentICS(store *appointment.Store, exporter *calendar.Exporter, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		rec, ok := store.Get(id)
		if !ok {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Appointment not found")
			return
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="appointment.ics"`)
		if err := exporter.WriteICS(w, rec); err != nil {
			log.Warn("writing ics failed", zap.String("id", id), zap.Error(err))
		}
	}
}

// AddAppointmentToCalendar opens the add-to-calendar link on the device.
func AddAppointmentToCalendar(store *appointment.Store, support *launcher.Support) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := store.Get(mux.Vars(r)["id"])
		if !ok {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Appointment not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": support.AddToCalendar(r.Context(), rec)})
	}
}
