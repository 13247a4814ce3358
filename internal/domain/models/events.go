package models

import (
	"time"

	"github.com/google/uuid"
)

// TripStartedMessage is published on trip.started.<driver_id>.
type TripStartedMessage struct {
	TripID        uuid.UUID `json:"trip_id"`
	DriverID      uuid.UUID `json:"driver_id"`
	CompanyID     uuid.UUID `json:"company_id"`
	Destination   string    `json:"destination"`
	StartedAt     time.Time `json:"started_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// TripFinishedMessage is published on trip.finished.<driver_id>.
type TripFinishedMessage struct {
	TripID         uuid.UUID `json:"trip_id"`
	DriverID       uuid.UUID `json:"driver_id"`
	CompanyID      uuid.UUID `json:"company_id"`
	Destination    string    `json:"destination"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	AlertCount     int       `json:"alert_count"`
	ResponseCount  int       `json:"response_count"`
	Effectiveness  int       `json:"effectiveness"`
	FinishedAt     time.Time `json:"finished_at"`
	CorrelationID  string    `json:"correlation_id,omitempty"`
}
