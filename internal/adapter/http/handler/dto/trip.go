package dto

import (
	"time"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/pkg/validator"
	"github.com/google/uuid"
)

// CreateTripRequest records a finished trip. Supervisors must name the driver.
type CreateTripRequest struct {
	DriverID       uuid.UUID  `json:"driver_id"`
	Origin         string     `json:"origin"`
	Destination    string     `json:"destination"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	ElapsedSeconds int        `json:"elapsed_seconds"`
	AlertCount     int        `json:"alert_count"`
	ResponseCount  int        `json:"response_count"`
}

func (r *CreateTripRequest) Validate(v *validator.Validator) {
	v.Check(validator.NotBlank(r.Destination), "destination", "must be provided")
	v.Check(!r.StartDate.IsZero(), "start_date", "must be provided")
	v.Check(r.ElapsedSeconds >= 0, "elapsed_seconds", "must not be negative")
	v.Check(r.AlertCount >= 0, "alert_count", "must not be negative")
	v.Check(r.ResponseCount >= 0, "response_count", "must not be negative")
	v.Check(r.ResponseCount <= r.AlertCount, "response_count", "must not exceed alert_count")
	if r.EndDate != nil {
		v.Check(!r.EndDate.Before(r.StartDate), "end_date", "must not be before start_date")
	}
}

func (r *CreateTripRequest) ToModel() *models.Trip {
	end := r.EndDate
	if end == nil {
		e := r.StartDate.Add(time.Duration(r.ElapsedSeconds) * time.Second)
		end = &e
	}
	return &models.Trip{
		DriverID:       r.DriverID,
		Origin:         r.Origin,
		Destination:    r.Destination,
		Status:         types.TripFinished,
		StartDate:      r.StartDate,
		EndDate:        end,
		ElapsedSeconds: r.ElapsedSeconds,
		AlertCount:     r.AlertCount,
		ResponseCount:  r.ResponseCount,
	}
}

type UpdateTripRequest struct {
	Origin         *string           `json:"origin"`
	Destination    *string           `json:"destination"`
	Status         *types.TripStatus `json:"status"`
	EndDate        *time.Time        `json:"end_date"`
	ElapsedSeconds *int              `json:"elapsed_seconds"`
	AlertCount     *int              `json:"alert_count"`
	ResponseCount  *int              `json:"response_count"`
}

func (r *UpdateTripRequest) Validate(v *validator.Validator) {
	v.Check(r.Origin != nil || r.Destination != nil || r.Status != nil || r.EndDate != nil ||
		r.ElapsedSeconds != nil || r.AlertCount != nil || r.ResponseCount != nil, "body", "at least one field must be provided")
	if r.Destination != nil {
		v.Check(validator.NotBlank(*r.Destination), "destination", "must not be blank")
	}
	if r.Status != nil {
		v.Check(r.Status.Valid(), "status", "must be IN_PROGRESS or FINISHED")
	}
	for key, n := range map[string]*int{"elapsed_seconds": r.ElapsedSeconds, "alert_count": r.AlertCount, "response_count": r.ResponseCount} {
		if n != nil {
			v.Check(*n >= 0, key, "must not be negative")
		}
	}
}

func (r *UpdateTripRequest) ToModel() models.TripUpdate {
	return models.TripUpdate{
		Origin:         r.Origin,
		Destination:    r.Destination,
		Status:         r.Status,
		EndDate:        r.EndDate,
		ElapsedSeconds: r.ElapsedSeconds,
		AlertCount:     r.AlertCount,
		ResponseCount:  r.ResponseCount,
	}
}

type StartSessionRequest struct {
	Destination string `json:"destination"`
}

func (r *StartSessionRequest) Validate(v *validator.Validator) {
	v.Check(validator.NotBlank(r.Destination), "destination", "must be provided")
}
