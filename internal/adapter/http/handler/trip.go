package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/ispeed/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	"github.com/Temutjin2k/ispeed/pkg/validator"
	"github.com/google/uuid"
)

type TripService interface {
	Create(ctx context.Context, actor *models.User, trip *models.Trip) error
	List(ctx context.Context, actor *models.User, f models.TripFilters) ([]models.Trip, models.Metadata, error)
	Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Trip, error)
	Update(ctx context.Context, actor *models.User, id uuid.UUID, upd models.TripUpdate) (*models.Trip, error)
	Delete(ctx context.Context, actor *models.User, id uuid.UUID) error
	Routes() []string
}

// Trip serves the stored trip records and the route catalog.
type Trip struct {
	trips TripService
	l     logger.Logger
}

func NewTrip(trips TripService, l logger.Logger) *Trip {
	return &Trip{trips: trips, l: l}
}

// Routes godoc
// @Summary      Route catalog
// @Tags         Trips
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /routes [get]
func (h *Trip) Routes(w http.ResponseWriter, r *http.Request) {
	if err := writeJSON(w, http.StatusOK, envelope{"routes": h.trips.Routes()}, nil); err != nil {
		h.l.Error(r.Context(), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Create godoc
// @Summary      Record a finished trip
// @Tags         Trips
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      dto.CreateTripRequest  true  "Trip"
// @Success      201      {object}  map[string]any
// @Router       /trips [post]
func (h *Trip) Create(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "create_trip")

	req := &dto.CreateTripRequest{}
	if err := readJSON(w, r, req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	trip := req.ToModel()
	if err := h.trips.Create(ctx, models.UserFromContext(ctx), trip); err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to create trip", err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"trip": trip}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// List godoc
// @Summary      List trips
// @Description  Drivers see their own trips, supervisors the trips of their company
// @Tags         Trips
// @Security     BearerAuth
// @Produce      json
// @Param        driver_id    query     string  false  "Driver ID"
// @Param        destination  query     string  false  "Route"
// @Param        status       query     string  false  "IN_PROGRESS or FINISHED"
// @Param        date_from    query     string  false  "YYYY-MM-DD"
// @Param        date_to      query     string  false  "YYYY-MM-DD"
// @Param        page         query     int     false  "Page"
// @Param        page_size    query     int     false  "Page size"
// @Param        sort         query     string  false  "Sort column, prefix - for descending"
// @Success      200          {object}  map[string]any
// @Router       /trips [get]
func (h *Trip) List(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "list_trips")

	v := validator.New()
	f := readTripFilters(r.URL.Query(), v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	trips, meta, err := h.trips.List(ctx, models.UserFromContext(ctx), f)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to list trips", err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"trips": trips, "metadata": meta}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Get godoc
// @Summary      Get a trip
// @Tags         Trips
// @Security     BearerAuth
// @Produce      json
// @Param        trip_id  path      string  true  "Trip ID"
// @Success      200      {object}  map[string]any
// @Failure      404      {object}  map[string]any
// @Router       /trips/{trip_id} [get]
func (h *Trip) Get(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_trip")

	id, err := readUUIDParam(r, "trip_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	trip, err := h.trips.Get(ctx, models.UserFromContext(ctx), id)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to get trip", err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"trip": trip}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Update godoc
// @Summary      Update a stored trip
// @Description  Trips being monitored cannot be changed
// @Tags         Trips
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        trip_id  path      string                 true  "Trip ID"
// @Param        request  body      dto.UpdateTripRequest  true  "Fields to change"
// @Success      200      {object}  map[string]any
// @Failure      409      {object}  map[string]any
// @Router       /trips/{trip_id} [patch]
func (h *Trip) Update(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "update_trip")

	id, err := readUUIDParam(r, "trip_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	req := &dto.UpdateTripRequest{}
	if err := readJSON(w, r, req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	trip, err := h.trips.Update(ctx, models.UserFromContext(ctx), id, req.ToModel())
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to update trip", err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"trip": trip}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Delete godoc
// @Summary      Delete a stored trip
// @Tags         Trips
// @Security     BearerAuth
// @Param        trip_id  path  string  true  "Trip ID"
// @Success      204
// @Failure      409      {object}  map[string]any
// @Router       /trips/{trip_id} [delete]
func (h *Trip) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "delete_trip")

	id, err := readUUIDParam(r, "trip_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	if err := h.trips.Delete(ctx, models.UserFromContext(ctx), id); err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to delete trip", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
