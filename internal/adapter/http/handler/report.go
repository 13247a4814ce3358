package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	"github.com/Temutjin2k/ispeed/pkg/validator"
)

type ReportService interface {
	TripReport(ctx context.Context, actor *models.User, f models.TripFilters) (*models.TripReport, error)
	ExportPDF(ctx context.Context, actor *models.User, f models.TripFilters) ([]byte, string, error)
	Overview(ctx context.Context, actor *models.User) (*models.DashboardOverview, error)
	DriverStats(ctx context.Context, actor *models.User) ([]models.DriverStats, error)
}

type Report struct {
	reports ReportService
	l       logger.Logger
}

func NewReport(reports ReportService, l logger.Logger) *Report {
	return &Report{reports: reports, l: l}
}

// Trips godoc
// @Summary      Trip report
// @Tags         Reports
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
// @Success      200          {object}  models.TripReport
// @Router       /reports/trips [get]
func (h *Report) Trips(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "trip_report")

	v := validator.New()
	f := readTripFilters(r.URL.Query(), v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	report, err := h.reports.TripReport(ctx, models.UserFromContext(ctx), f)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to build trip report", err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"rows": report.Rows, "metadata": report.Metadata}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Export godoc
// @Summary      Trip report as PDF
// @Tags         Reports
// @Security     BearerAuth
// @Produce      application/pdf
// @Param        driver_id    query  string  false  "Driver ID"
// @Param        destination  query  string  false  "Route"
// @Param        status       query  string  false  "IN_PROGRESS or FINISHED"
// @Param        date_from    query  string  false  "YYYY-MM-DD"
// @Param        date_to      query  string  false  "YYYY-MM-DD"
// @Success      200          {file}  file
// @Router       /reports/trips/export [get]
func (h *Report) Export(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "trip_report_export")

	v := validator.New()
	f := readTripFilters(r.URL.Query(), v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	body, filename, err := h.reports.ExportPDF(ctx, models.UserFromContext(ctx), f)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to export trip report", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.l.Warn(ctx, "failed to write report", "error", err.Error())
	}
}

// Drivers godoc
// @Summary      Per-driver aggregates
// @Tags         Reports
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /reports/drivers [get]
func (h *Report) Drivers(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "driver_stats")

	stats, err := h.reports.DriverStats(ctx, models.UserFromContext(ctx))
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to get driver stats", err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"drivers": stats}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Overview godoc
// @Summary      Supervisor dashboard
// @Tags         Reports
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  models.DashboardOverview
// @Router       /dashboard/overview [get]
func (h *Report) Overview(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "dashboard_overview")

	overview, err := h.reports.Overview(ctx, models.UserFromContext(ctx))
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to build overview", err)
		return
	}

	response := envelope{
		"timestamp":    overview.Timestamp,
		"metrics":      overview.Metrics,
		"recent_trips": overview.RecentTrips,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}
