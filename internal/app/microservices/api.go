package microservices

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Temutjin2k/ispeed/config"
	"github.com/Temutjin2k/ispeed/internal/adapter/http/handler"
	httpserver "github.com/Temutjin2k/ispeed/internal/adapter/http/server"
	wshandler "github.com/Temutjin2k/ispeed/internal/adapter/http/ws"
	"github.com/Temutjin2k/ispeed/internal/adapter/postgres"
	"github.com/Temutjin2k/ispeed/internal/adapter/rabbit"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/internal/service/auth"
	"github.com/Temutjin2k/ispeed/internal/service/fleet"
	"github.com/Temutjin2k/ispeed/internal/service/monitor"
	"github.com/Temutjin2k/ispeed/internal/service/report"
	"github.com/Temutjin2k/ispeed/internal/service/trip"
	"github.com/Temutjin2k/ispeed/internal/service/user"
	"github.com/Temutjin2k/ispeed/pkg/clock"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	"github.com/Temutjin2k/ispeed/pkg/metrics"
	postgresclient "github.com/Temutjin2k/ispeed/pkg/postgres"
	rabbitclient "github.com/Temutjin2k/ispeed/pkg/rabbit"
	"github.com/Temutjin2k/ispeed/pkg/trm"
	ws "github.com/Temutjin2k/ispeed/pkg/wsHub"
)

// APIService serves the REST API and the websocket stream and owns the live trips.
type APIService struct {
	postgresDB *postgresclient.PostgreDB
	rabbit     *rabbitclient.RabbitMQ
	hub        *ws.ConnectionHub
	trips      *trip.Service
	httpServer *httpserver.API

	cfg config.Config
	log logger.Logger
}

func NewAPI(ctx context.Context, cfg config.Config, log logger.Logger) (*APIService, error) {
	ctx = wrap.WithAction(ctx, "api_service_init")

	db, err := postgresclient.New(ctx, cfg.Database)
	if err != nil {
		log.Error(ctx, "failed to setup database", err)
		return nil, err
	}

	rabbitClient, err := rabbitclient.New(ctx, cfg.RabbitMQ.GetDSN(), log)
	if err != nil {
		log.Error(ctx, "failed to connect to rabbitmq", err)
		db.Close()
		return nil, err
	}

	s := &APIService{postgresDB: db, rabbit: rabbitClient, cfg: cfg, log: log}
	if err := s.init(ctx); err != nil {
		s.close(ctx)
		return nil, err
	}

	return s, nil
}

func (s *APIService) init(ctx context.Context) error {
	cfg, log := s.cfg, s.log
	txManager := trm.New(s.postgresDB.Pool)

	// repositories
	userRepo := postgres.NewUserRepo(s.postgresDB.Pool)
	companyRepo := postgres.NewCompanyRepo(s.postgresDB.Pool)
	cityRepo := postgres.NewCityRepo(s.postgresDB.Pool)
	refreshRepo := postgres.NewRefreshTokenRepo(s.postgresDB.Pool)
	tripRepo := postgres.NewTripRepo(s.postgresDB.Pool)
	reportRepo := postgres.NewReportRepo(s.postgresDB.Pool)
	statsRepo := postgres.NewDriverStatsRepo(s.postgresDB.Pool)

	broker, err := rabbit.NewTripBroker(s.rabbit, log)
	if err != nil {
		return fmt.Errorf("failed to setup trip broker: %w", err)
	}

	// live sessions
	mon, err := monitor.New(monitor.Config{
		TickInterval:     cfg.Monitor.TickInterval,
		ResolutionDelay:  cfg.Monitor.ResolutionDelay,
		AlertProbability: cfg.Monitor.AlertProbability,
	}, monitor.NewRouteCatalog(cfg.Monitor.Routes), clock.RealClock{}, monitor.NewRandSampler(), log)
	if err != nil {
		return err
	}

	s.hub = ws.NewConnHub(log)
	s.hub.OnChange = func(total int) {
		metrics.WebSocketConnectionsGauge.WithLabelValues(types.APIService.String()).Set(float64(total))
	}
	streamer := wshandler.NewSessionStreamer(s.hub)

	// services
	s.trips = trip.NewService(mon, tripRepo, userRepo, broker, streamer, nil, log)
	tokenSvc := auth.NewTokenService(cfg.Auth.JWTSecret, userRepo, refreshRepo, txManager, nil, cfg.Auth.RefreshTokenTTL, cfg.Auth.AccessTokenTTL, log)
	authSvc := auth.NewAuthService(userRepo, companyRepo, refreshRepo, tokenSvc, txManager, log)
	userSvc := user.NewService(userRepo, refreshRepo, s.trips, txManager, log)
	fleetSvc := fleet.NewService(companyRepo, cityRepo, txManager, log)
	reportSvc := report.NewService(reportRepo, statsRepo, s.trips, nil, log)

	if err := s.trips.FinishOrphaned(ctx); err != nil {
		return fmt.Errorf("failed to close orphaned trips: %w", err)
	}

	s.httpServer, err = httpserver.New(cfg, &httpserver.Services{
		Auth:    authSvc,
		Users:   userSvc,
		Fleet:   fleetSvc,
		Trips:   s.trips,
		Session: s.trips,
		Reports: reportSvc,
		Hub:     s.hub,
	}, map[string]handler.Pinger{
		"postgres": s.postgresDB.Pool,
		"rabbitmq": s.rabbit,
	}, log)
	if err != nil {
		log.Error(ctx, "failed to setup http server", err)
		return err
	}

	return nil
}

func (s *APIService) Start(ctx context.Context) error {
	defer func() {
		s.close(ctx)
		s.log.Info(ctx, "api service closed")
	}()

	errCh := make(chan error, 1)
	s.httpServer.Run(ctx, errCh)

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	s.log.Info(ctx, "service started", "routes", len(s.trips.Routes()))
	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		s.log.Info(ctx, "shutting down application", "signal", sig.String())
		return nil
	}
}

// close stops intake first, then persists the live trips, then releases connections.
func (s *APIService) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "api_service_close")

	if s.httpServer != nil {
		if err := s.httpServer.Stop(ctx); err != nil {
			s.log.Error(ctx, "failed to shutdown HTTP server", err)
		}
	}

	if s.trips != nil {
		if err := s.trips.Shutdown(ctx); err != nil {
			s.log.Error(ctx, "failed to persist live trips", err)
		}
	}

	if s.hub != nil {
		s.hub.Close()
	}

	if s.rabbit != nil {
		if err := s.rabbit.Close(ctx); err != nil {
			s.log.Warn(ctx, "failed to close rabbitmq connection", "error", err.Error())
		}
	}

	if s.postgresDB != nil {
		s.postgresDB.Close()
	}
}
