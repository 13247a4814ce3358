package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/pkg/clock"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	"github.com/google/uuid"
)

type State string

const (
	StateIdle        State = "IDLE"
	StateAlertActive State = "ALERT_ACTIVE"
	StateStopped     State = "STOPPED"
)

const AlertMessage = "Reduce speed!"

// Alert is a pending distraction alert.
type Alert struct {
	Seq            int       `json:"seq"`
	Message        string    `json:"message"`
	RaisedAt       time.Time `json:"raised_at"`
	RaisedAtSecond int       `json:"raised_at_second"`
	ResolvesAt     time.Time `json:"resolves_at"`
}

// Snapshot is a consistent copy of the session counters.
type Snapshot struct {
	SessionID      uuid.UUID `json:"session_id"`
	Version        uint64    `json:"version"`
	Destination    string    `json:"destination"`
	State          State     `json:"state"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	Elapsed        string    `json:"elapsed"`
	AlertCount     int       `json:"alert_count"`
	ResponseCount  int       `json:"response_count"`
	Effectiveness  int       `json:"effectiveness"`
	ActiveAlert    *Alert    `json:"active_alert,omitempty"`
	StartedAt      time.Time `json:"started_at"`
}

// TripSummary is the final result of a stopped session.
type TripSummary struct {
	SessionID      uuid.UUID `json:"session_id"`
	Destination    string    `json:"destination"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	AlertCount     int       `json:"alert_count"`
	ResponseCount  int       `json:"response_count"`
	Effectiveness  int       `json:"effectiveness"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
}

// Session is one active trip. All counters are guarded by mu; the tick timer
// re-arms itself after each tick so ticks never overlap.
type Session struct {
	id          uuid.UUID
	destination string
	startedAt   time.Time
	cfg         Config
	clock       clock.Clock
	sampler     Sampler
	observer    Observer
	l           logger.Logger

	mu        sync.Mutex
	state     State
	version   uint64
	elapsed   int
	alerts    int
	responses int
	active    *Alert
	tick      clock.Timer
	resolve   clock.Timer
	summary   TripSummary

	notifyMu  sync.Mutex
	delivered uint64
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

func (s *Session) Destination() string {
	return s.destination
}

func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Tick applies one tick now, outside the regular schedule.
// It is a no-op on a stopped session.
func (s *Session) Tick() {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	s.advance()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// ResolveAlert resolves the active alert now and cancels its timer.
// Returns false if there was nothing to resolve.
func (s *Session) ResolveAlert() bool {
	s.mu.Lock()
	if s.state == StateStopped || s.active == nil {
		s.mu.Unlock()
		return false
	}
	if s.resolve != nil {
		s.resolve.Stop()
	}
	s.resolveLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return true
}

// Stop cancels the pending tick and resolution timers and returns the summary.
// A callback already in flight sees the stopped state and does nothing.
// Calling Stop again returns the same summary.
func (s *Session) Stop() TripSummary {
	s.mu.Lock()
	if s.state == StateStopped {
		sum := s.summary
		s.mu.Unlock()
		return sum
	}

	s.state = StateStopped
	if s.tick != nil {
		s.tick.Stop()
		s.tick = nil
	}
	if s.resolve != nil {
		s.resolve.Stop()
		s.resolve = nil
	}
	s.active = nil
	s.version++

	s.summary = TripSummary{
		SessionID:      s.id,
		Destination:    s.destination,
		ElapsedSeconds: s.elapsed,
		AlertCount:     s.alerts,
		ResponseCount:  s.responses,
		Effectiveness:  Effectiveness(s.alerts, s.responses),
		StartedAt:      s.startedAt,
		EndedAt:        s.clock.Now(),
	}
	sum := s.summary
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.l.Debug(s.logCtx(types.ActionSessionStopped), "trip session stopped",
		"elapsed_seconds", sum.ElapsedSeconds,
		"alerts", sum.AlertCount,
		"responses", sum.ResponseCount,
		"effectiveness", sum.Effectiveness,
	)
	s.notify(snap)
	return sum
}

func (s *Session) onTick() {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	s.advance()
	s.tick = s.clock.AfterFunc(s.cfg.TickInterval, s.onTick)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

func (s *Session) onResolve(seq int) {
	s.mu.Lock()
	if s.state == StateStopped || s.active == nil || s.active.Seq != seq {
		s.mu.Unlock()
		return
	}
	s.resolveLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// advance counts one second and, when no alert is pending, draws the alert sample. Caller holds mu.
func (s *Session) advance() {
	s.elapsed++
	s.version++

	if s.active != nil {
		return
	}
	if s.sampler.Float64() >= s.cfg.AlertProbability {
		return
	}

	s.alerts++
	seq := s.alerts
	now := s.clock.Now()
	s.active = &Alert{
		Seq:            seq,
		Message:        AlertMessage,
		RaisedAt:       now,
		RaisedAtSecond: s.elapsed,
		ResolvesAt:     now.Add(s.cfg.ResolutionDelay),
	}
	s.state = StateAlertActive
	s.resolve = s.clock.AfterFunc(s.cfg.ResolutionDelay, func() { s.onResolve(seq) })

	s.l.Debug(s.logCtx(types.ActionSessionAlert), "distraction alert raised", "alert_seq", seq, "elapsed_seconds", s.elapsed)
}

// resolveLocked counts the driver response to the active alert. Caller holds mu.
func (s *Session) resolveLocked() {
	s.l.Debug(s.logCtx(types.ActionSessionResolved), "distraction alert resolved", "alert_seq", s.active.Seq, "elapsed_seconds", s.elapsed)
	s.responses++
	s.version++
	s.active = nil
	s.resolve = nil
	s.state = StateIdle
}

func (s *Session) snapshotLocked() Snapshot {
	var alert *Alert
	if s.active != nil {
		a := *s.active
		alert = &a
	}
	return Snapshot{
		SessionID:      s.id,
		Version:        s.version,
		Destination:    s.destination,
		State:          s.state,
		ElapsedSeconds: s.elapsed,
		Elapsed:        FormatElapsed(s.elapsed),
		AlertCount:     s.alerts,
		ResponseCount:  s.responses,
		Effectiveness:  Effectiveness(s.alerts, s.responses),
		ActiveAlert:    alert,
		StartedAt:      s.startedAt,
	}
}

// notify delivers snap unless a newer snapshot was already delivered,
// so observers never see the session go back in time.
func (s *Session) notify(snap Snapshot) {
	if s.observer == nil {
		return
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	if snap.Version <= s.delivered {
		return
	}
	s.delivered = snap.Version
	s.observer(snap)
}

func (s *Session) logCtx(action string) context.Context {
	ctx := wrap.WithAction(context.Background(), action)
	return wrap.WithLogCtx(ctx, wrap.LogCtx{TripID: s.id.String()})
}
