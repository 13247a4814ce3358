package models

import (
	"time"

	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/google/uuid"
)

// ReportRow is one line of the trip report table.
type ReportRow struct {
	TripID          uuid.UUID        `json:"trip_id"`
	DriverID        uuid.UUID        `json:"driver_id"`
	DriverName      string           `json:"driver"`
	Destination     string           `json:"destination"`
	Date            time.Time        `json:"date"`
	DurationSeconds int              `json:"duration_seconds"`
	Duration        string           `json:"duration"`
	Alerts          int              `json:"alerts"`
	Responses       int              `json:"responses"`
	Score           int              `json:"score"`
	ScoreBand       string           `json:"score_band"`
	Status          types.TripStatus `json:"status"`
}

type TripReport struct {
	Rows     []ReportRow `json:"rows"`
	Metadata Metadata    `json:"metadata"`
}

// DriverStats are per-driver aggregates maintained from finished trips.
type DriverStats struct {
	DriverID      uuid.UUID `json:"driver_id"`
	CompanyID     uuid.UUID `json:"company_id"`
	DriverName    string    `json:"driver,omitempty"`
	Trips         int       `json:"trips"`
	TotalSeconds  int       `json:"total_seconds"`
	Alerts        int       `json:"alerts"`
	Responses     int       `json:"responses"`
	Effectiveness int       `json:"effectiveness"`
	LastTripID    uuid.UUID `json:"last_trip_id"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DashboardOverview is the supervisor landing page summary.
type DashboardOverview struct {
	Timestamp   time.Time    `json:"timestamp"`
	Metrics     DashMetrics  `json:"metrics"`
	RecentTrips []RecentTrip `json:"recent_trips"`
}

type DashMetrics struct {
	TotalDrivers      int     `json:"total_drivers"`
	ActiveTrips       int     `json:"active_trips"`
	TotalDestinations int     `json:"total_destinations"`
	WeeklyTrips       int     `json:"weekly_trips"`
	AverageScore      int     `json:"average_score"`
	AlertsThisWeek    int     `json:"alerts_this_week"`
	ResponseRate      float64 `json:"response_rate"`
}

type RecentTrip struct {
	TripID      uuid.UUID        `json:"trip_id"`
	DriverName  string           `json:"driver"`
	Destination string           `json:"destination"`
	StartDate   time.Time        `json:"start_date"`
	Score       int              `json:"score"`
	Status      types.TripStatus `json:"status"`
}
