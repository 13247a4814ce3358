package models

import (
	"time"

	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/google/uuid"
)

type Trip struct {
	ID             uuid.UUID        `json:"id"`
	CompanyID      uuid.UUID        `json:"company_id"`
	DriverID       uuid.UUID        `json:"driver_id"`
	Origin         string           `json:"origin"`
	Destination    string           `json:"destination"`
	Status         types.TripStatus `json:"status"`
	StartDate      time.Time        `json:"start_date"`
	EndDate        *time.Time       `json:"end_date,omitempty"`
	ElapsedSeconds int              `json:"elapsed_seconds"`
	AlertCount     int              `json:"alert_count"`
	ResponseCount  int              `json:"response_count"`
	Effectiveness  int              `json:"effectiveness"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at,omitzero"`
}

// TripUpdate holds the optional fields of a partial trip update.
type TripUpdate struct {
	Origin      *string
	Destination *string
	Status      *types.TripStatus
	EndDate     *time.Time

	ElapsedSeconds *int
	AlertCount     *int
	ResponseCount  *int
	Effectiveness  *int
}

// TripFilters narrows trip listings. Zero values mean "any".
type TripFilters struct {
	CompanyID   uuid.UUID
	DriverID    uuid.UUID
	Destination string
	Status      types.TripStatus
	DateFrom    *time.Time
	DateTo      *time.Time
	Filters
}
