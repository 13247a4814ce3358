// Package monitor drives a single trip session: a fixed rate tick clock,
// randomly injected distraction alerts and their timed resolution.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Temutjin2k/ispeed/pkg/clock"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	"github.com/google/uuid"
)

const (
	DefaultTickInterval     = time.Second
	DefaultResolutionDelay  = 2 * time.Second
	DefaultAlertProbability = 0.05
)

// Config of the tick clock and the alert model.
type Config struct {
	TickInterval     time.Duration
	ResolutionDelay  time.Duration
	AlertProbability float64
}

func DefaultConfig() Config {
	return Config{
		TickInterval:     DefaultTickInterval,
		ResolutionDelay:  DefaultResolutionDelay,
		AlertProbability: DefaultAlertProbability,
	}
}

func (c Config) validate() error {
	var errs []error
	if c.TickInterval <= 0 {
		errs = append(errs, errors.New("tick interval must be positive"))
	}
	if c.ResolutionDelay <= 0 {
		errs = append(errs, errors.New("resolution delay must be positive"))
	}
	if c.AlertProbability < 0 || c.AlertProbability > 1 {
		errs = append(errs, fmt.Errorf("alert probability %v is outside [0,1]", c.AlertProbability))
	}
	return errors.Join(errs...)
}

// Catalog answers whether a destination is a known route.
type Catalog interface {
	Contains(route string) bool
	List() []string
}

// Observer receives a snapshot after every change of a session.
// It is called outside the session lock, must not block for long and must not call Stop.
type Observer func(Snapshot)

// Monitor starts sessions that share one configuration, clock and random source.
type Monitor struct {
	cfg     Config
	routes  Catalog
	clock   clock.Clock
	sampler Sampler
	l       logger.Logger
}

func New(cfg Config, routes Catalog, clk clock.Clock, sampler Sampler, l logger.Logger) (*Monitor, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid monitor config: %w", err)
	}
	if routes == nil {
		return nil, errors.New("route catalog is required")
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	if sampler == nil {
		sampler = NewRandSampler()
	}
	if l == nil {
		l = logger.NewNop()
	}

	return &Monitor{
		cfg:     cfg,
		routes:  routes,
		clock:   clk,
		sampler: sampler,
		l:       l,
	}, nil
}

// Routes returns the route catalog.
func (m *Monitor) Routes() []string {
	return m.routes.List()
}

// Start validates the destination and starts the tick clock of a new session.
// On error nothing is scheduled.
func (m *Monitor) Start(ctx context.Context, destination string, observer Observer) (*Session, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, &InvalidInputError{Field: "destination", Reason: "must be provided"}
	}
	if !m.routes.Contains(destination) {
		return nil, &InvalidInputError{Field: "destination", Value: destination, Reason: "unknown route"}
	}

	s := &Session{
		id:          uuid.New(),
		destination: destination,
		startedAt:   m.clock.Now(),
		cfg:         m.cfg,
		clock:       m.clock,
		sampler:     m.sampler,
		observer:    observer,
		l:           m.l,
		state:       StateIdle,
	}

	s.mu.Lock()
	s.tick = m.clock.AfterFunc(m.cfg.TickInterval, s.onTick)
	s.mu.Unlock()

	m.l.Debug(ctx, "trip session started", "session_id", s.id, "destination", destination)
	return s, nil
}

// Stop ends the session and returns its summary. Safe to call more than once.
func (m *Monitor) Stop(s *Session) TripSummary {
	return s.Stop()
}
