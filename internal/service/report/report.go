package report

import (
	"context"
	"fmt"
	"time"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/internal/service/monitor"
	"github.com/Temutjin2k/ispeed/pkg/clock"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	"github.com/google/uuid"
)

const (
	overviewWindow  = 7 * 24 * time.Hour
	recentTripLimit = 5
	exportRowLimit  = 1000
)

type ReportRepo interface {
	TripRows(ctx context.Context, f models.TripFilters) ([]models.ReportRow, int, error)
	Metrics(ctx context.Context, companyID uuid.UUID, since time.Time) (models.DashMetrics, error)
	RecentTrips(ctx context.Context, companyID uuid.UUID, limit int) ([]models.RecentTrip, error)
}

type StatsRepo interface {
	List(ctx context.Context, companyID uuid.UUID) ([]models.DriverStats, error)
}

// LiveTrips knows the trips being monitored right now.
type LiveTrips interface {
	ActiveCount(companyID uuid.UUID) int
	Routes() []string
}

type Service struct {
	repo  ReportRepo
	stats StatsRepo
	live  LiveTrips
	clock clock.Clock
	log   logger.Logger
}

func NewService(repo ReportRepo, stats StatsRepo, live LiveTrips, clk clock.Clock, log logger.Logger) *Service {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Service{
		repo:  repo,
		stats: stats,
		live:  live,
		clock: clk,
		log:   log,
	}
}

// scope restricts filters to what actor may read.
func scope(actor *models.User, f models.TripFilters) models.TripFilters {
	f.CompanyID = actor.CompanyID
	if actor.Role == types.DriverRole {
		f.DriverID = actor.ID
	}
	return f
}

// TripReport returns one page of report rows.
func (s *Service) TripReport(ctx context.Context, actor *models.User, f models.TripFilters) (*models.TripReport, error) {
	f = scope(actor, f)

	rows, total, err := s.repo.TripRows(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		decorate(&rows[i])
	}

	return &models.TripReport{
		Rows:     rows,
		Metadata: models.CalculateMetadata(total, f.Page, f.PageSize),
	}, nil
}

// ExportPDF renders every row matching f, up to exportRowLimit, as a PDF table.
func (s *Service) ExportPDF(ctx context.Context, actor *models.User, f models.TripFilters) ([]byte, string, error) {
	ctx = wrap.WithAction(ctx, "export_trip_report")

	f = scope(actor, f)
	f.Page = 1
	f.PageSize = exportRowLimit

	rows, total, err := s.repo.TripRows(ctx, f)
	if err != nil {
		return nil, "", err
	}
	for i := range rows {
		decorate(&rows[i])
	}
	if total > len(rows) {
		s.log.Warn(ctx, "trip report export truncated", "total", total, "exported", len(rows))
	}

	now := s.clock.Now()
	body, err := renderPDF(rows, f, now)
	if err != nil {
		return nil, "", wrap.Error(ctx, fmt.Errorf("failed to render report: %w", err))
	}

	return body, fmt.Sprintf("trip-report-%s.pdf", now.Format("20060102-1504")), nil
}

// Overview aggregates the last 7 days of a company for the supervisor dashboard.
func (s *Service) Overview(ctx context.Context, actor *models.User) (*models.DashboardOverview, error) {
	now := s.clock.Now()

	m, err := s.repo.Metrics(ctx, actor.CompanyID, now.Add(-overviewWindow))
	if err != nil {
		return nil, err
	}
	m.ActiveTrips = s.live.ActiveCount(actor.CompanyID)
	m.TotalDestinations = len(s.live.Routes())

	recent, err := s.repo.RecentTrips(ctx, actor.CompanyID, recentTripLimit)
	if err != nil {
		return nil, err
	}

	return &models.DashboardOverview{
		Timestamp:   now,
		Metrics:     m,
		RecentTrips: recent,
	}, nil
}

// DriverStats returns the per-driver aggregates kept by the stats service.
func (s *Service) DriverStats(ctx context.Context, actor *models.User) ([]models.DriverStats, error) {
	stats, err := s.stats.List(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}

	out := stats[:0]
	for _, st := range stats {
		if actor.Role == types.DriverRole && st.DriverID != actor.ID {
			continue
		}
		st.Effectiveness = monitor.Effectiveness(st.Alerts, st.Responses)
		out = append(out, st)
	}
	return out, nil
}

func decorate(row *models.ReportRow) {
	row.Duration = FormatDuration(row.DurationSeconds)
	row.ScoreBand = ScoreBand(row.Score)
}

// FormatDuration renders seconds as "8h 30m".
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%dh %dm", seconds/3600, seconds%3600/60)
}

// ScoreBand classifies an effectiveness score: good from 85, fair from 70.
func ScoreBand(score int) string {
	switch {
	case score >= 85:
		return "good"
	case score >= 70:
		return "fair"
	default:
		return "poor"
	}
}
