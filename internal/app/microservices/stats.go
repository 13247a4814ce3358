package microservices

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Temutjin2k/ispeed/config"
	"github.com/Temutjin2k/ispeed/internal/adapter/http/handler"
	httpserver "github.com/Temutjin2k/ispeed/internal/adapter/http/server"
	"github.com/Temutjin2k/ispeed/internal/adapter/postgres"
	"github.com/Temutjin2k/ispeed/internal/adapter/rabbit"
	"github.com/Temutjin2k/ispeed/internal/service/stats"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	postgresclient "github.com/Temutjin2k/ispeed/pkg/postgres"
	rabbitclient "github.com/Temutjin2k/ispeed/pkg/rabbit"
	"github.com/Temutjin2k/ispeed/pkg/trm"
)

// StatsService folds trip.finished events into the driver statistics.
type StatsService struct {
	postgresDB *postgresclient.PostgreDB
	rabbit     *rabbitclient.RabbitMQ
	consumer   *rabbit.TripConsumer
	stats      *stats.Service
	httpServer *httpserver.API

	cfg config.Config
	log logger.Logger
}

func NewStats(ctx context.Context, cfg config.Config, log logger.Logger) (*StatsService, error) {
	ctx = wrap.WithAction(ctx, "stats_service_init")

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

	statsRepo := postgres.NewDriverStatsRepo(db.Pool)
	statsSvc := stats.NewService(statsRepo, trm.New(db.Pool), log)

	server, err := httpserver.New(cfg, nil, map[string]handler.Pinger{
		"postgres": db.Pool,
		"rabbitmq": rabbitClient,
	}, log)
	if err != nil {
		log.Error(ctx, "failed to setup http server", err)
		_ = rabbitClient.Close(ctx)
		db.Close()
		return nil, err
	}

	return &StatsService{
		postgresDB: db,
		rabbit:     rabbitClient,
		consumer:   rabbit.NewTripConsumer(rabbitClient, log),
		stats:      statsSvc,
		httpServer: server,
		cfg:        cfg,
		log:        log,
	}, nil
}

func (s *StatsService) Start(ctx context.Context) error {
	consumeCtx, stopConsumer := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		stopConsumer()
		wg.Wait()
		s.close(ctx)
		s.log.Info(ctx, "stats service closed")
	}()

	errCh := make(chan error, 2)
	s.httpServer.Run(ctx, errCh)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.consumer.ConsumeTripFinished(consumeCtx, s.stats.HandleTripFinished); err != nil {
			errCh <- err
		}
	}()

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	s.log.Info(ctx, "service started")
	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		s.log.Info(ctx, "shutting down application", "signal", sig.String())
		return nil
	}
}

func (s *StatsService) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "stats_service_close")

	var errs []error
	if err := s.httpServer.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.rabbit.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		s.log.Warn(ctx, "unclean shutdown", "error", err.Error())
	}

	s.postgresDB.Close()
}
