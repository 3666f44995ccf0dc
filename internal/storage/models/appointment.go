// Package models contains the domain models for the application.
package models

// Status is the lifecycle state of an appointment request.
type Status string

// Status constants
const (
	StatusRequested Status = "Requested"
	StatusConfirmed Status = "Confirmed"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusRequested, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// AppointmentRecord is a single appointment request kept on the device.
type AppointmentRecord struct {
	ID     string `json:"id"`
	When   string `json:"when"`
	Where  string `json:"where"`
	Note   string `json:"note"`
	Status Status `json:"status"`
}
