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

type FleetService interface {
	Company(ctx context.Context, companyID uuid.UUID) (*models.Company, error)
	UpdateCompany(ctx context.Context, companyID uuid.UUID, upd models.CompanyUpdate) (*models.Company, error)
	AddCity(ctx context.Context, companyID uuid.UUID, name, address string) (*models.City, error)
	Cities(ctx context.Context, companyID uuid.UUID) ([]models.City, error)
	RemoveCity(ctx context.Context, companyID, cityID uuid.UUID) error
}

// Fleet serves the company profile and its cities.
type Fleet struct {
	fleet FleetService
	l     logger.Logger
}

func NewFleet(fleet FleetService, l logger.Logger) *Fleet {
	return &Fleet{fleet: fleet, l: l}
}

// GetCompany godoc
// @Summary      Company of the caller
// @Tags         Company
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /company [get]
func (h *Fleet) GetCompany(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_company")

	company, err := h.fleet.Company(ctx, models.UserFromContext(ctx).CompanyID)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to get company", err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"company": company}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// UpdateCompany godoc
// @Summary      Update the company profile
// @Tags         Company
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      dto.UpdateCompanyRequest  true  "Fields to change"
// @Success      200      {object}  map[string]any
// @Router       /company [patch]
func (h *Fleet) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "update_company")

	req := &dto.UpdateCompanyRequest{}
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

	company, err := h.fleet.UpdateCompany(ctx, models.UserFromContext(ctx).CompanyID, req.ToModel())
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to update company", err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"company": company}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// AddCity godoc
// @Summary      Add a city
// @Tags         Company
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      dto.CreateCityRequest  true  "City"
// @Success      201      {object}  map[string]any
// @Failure      409      {object}  map[string]any
// @Router       /cities [post]
func (h *Fleet) AddCity(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "add_city")

	req := &dto.CreateCityRequest{}
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

	city, err := h.fleet.AddCity(ctx, models.UserFromContext(ctx).CompanyID, req.Name, req.Address)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to add city", err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"city": city}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Cities godoc
// @Summary      List cities
// @Tags         Company
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /cities [get]
func (h *Fleet) Cities(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "list_cities")

	cities, err := h.fleet.Cities(ctx, models.UserFromContext(ctx).CompanyID)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to list cities", err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"cities": cities}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// RemoveCity godoc
// @Summary      Remove a city
// @Tags         Company
// @Security     BearerAuth
// @Param        city_id  path  string  true  "City ID"
// @Success      204
// @Router       /cities/{city_id} [delete]
func (h *Fleet) RemoveCity(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "remove_city")

	id, err := readUUIDParam(r, "city_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	if err := h.fleet.RemoveCity(ctx, models.UserFromContext(ctx).CompanyID, id); err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to remove city", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
