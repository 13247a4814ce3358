package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Temutjin2k/ispeed/config"
	_ "github.com/Temutjin2k/ispeed/docs"
	"github.com/Temutjin2k/ispeed/internal/adapter/http/handler"
	"github.com/Temutjin2k/ispeed/internal/adapter/http/middleware"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	ws "github.com/Temutjin2k/ispeed/pkg/wsHub"
)

const serverIPAddress = "%s:%s"

type API struct {
	mode    types.ServiceMode
	mux     *http.ServeMux
	server  *http.Server
	routes  *handlers
	m       *middleware.Middleware
	limiter *middleware.RateLimiter

	addr string
	cfg  config.Config
	log  logger.Logger
}

type handlers struct {
	health  *handler.Health
	auth    *handler.Auth
	user    *handler.User
	fleet   *handler.Fleet
	trip    *handler.Trip
	session *handler.Session
	report  *handler.Report
}

// Services are the dependencies of the api-service routes.
type Services struct {
	Auth    handler.AuthService
	Users   handler.UserService
	Fleet   handler.FleetService
	Trips   handler.TripService
	Session handler.SessionService
	Reports handler.ReportService
	Hub     *ws.ConnectionHub
}

// New builds the HTTP server of the given mode. stats-service only serves
// /health and /metrics, so svc may be nil there.
func New(cfg config.Config, svc *Services, health map[string]handler.Pinger, log logger.Logger) (*API, error) {
	var (
		addr string
		auth middleware.AuthService
	)
	routes := &handlers{
		health: handler.NewHealth(cfg.Mode.String(), health, log),
	}

	switch cfg.Mode {
	case types.APIService:
		if svc == nil || svc.Auth == nil {
			return nil, errors.New("auth service is required")
		}
		addr = fmt.Sprintf(serverIPAddress, "0.0.0.0", cfg.Services.APIService)
		auth = svc.Auth
		routes.auth = handler.NewAuth(svc.Auth, log)
		routes.user = handler.NewUser(svc.Users, log)
		routes.fleet = handler.NewFleet(svc.Fleet, log)
		routes.trip = handler.NewTrip(svc.Trips, log)
		routes.session = handler.NewSession(svc.Session, svc.Auth, svc.Hub, cfg.HTTP.CORSAllowedOrigins, log)
		routes.report = handler.NewReport(svc.Reports, log)
	case types.StatsService:
		addr = fmt.Sprintf(serverIPAddress, "0.0.0.0", cfg.Services.StatsService)
	default:
		return nil, fmt.Errorf("invalid mode: %s", cfg.Mode)
	}

	api := &API{
		mode:    cfg.Mode,
		mux:     http.NewServeMux(),
		routes:  routes,
		m:       middleware.NewMiddleware(cfg.Mode, auth, log),
		limiter: middleware.NewRateLimiter(cfg.Mode.String(), cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst, nil),
		addr:    addr,
		cfg:     cfg,
		log:     log,
	}

	setupRoutes(api.mux, api.routes, api.m, api.mode)

	api.server = &http.Server{
		Addr:              api.addr,
		Handler:           api.withMiddleware(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	return api, nil
}

// Handler returns the root handler with every middleware applied.
func (a *API) Handler() http.Handler {
	return a.server.Handler
}

func (a *API) Stop(ctx context.Context) error {
	timeout := a.cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.limiter.Stop()

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

// withMiddleware applies middlewares to the mux, outermost first.
func (a *API) withMiddleware() http.Handler {
	mws := []func(http.Handler) http.Handler{
		a.m.Recover,
		a.m.RequestID,
		a.m.CORS(a.cfg.HTTP.CORSAllowedOrigins),
		a.m.Logging,
		a.m.Metrics,
		a.limiter.Handler,
	}
	if a.mode == types.APIService {
		mws = append(mws, a.m.Auth)
	}
	return middleware.Chain(a.mux, mws...)
}
