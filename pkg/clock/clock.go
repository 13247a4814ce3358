// Package clock abstracts time and one-shot timers so time-dependent logic
// can be driven deterministically in tests.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock provides the current time and schedules callbacks.
// Use RealClock in production and MockClock in tests.
type Clock interface {
	// Now returns the current time
	Now() time.Time
	// AfterFunc calls f in its own goroutine (RealClock) once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending callback scheduled by Clock.AfterFunc.
type Timer interface {
	// Stop prevents the callback from firing. It returns false if the
	// callback already fired or the timer was already stopped.
	Stop() bool
}

// RealClock implements Clock using the system time.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// MockClock is a manually advanced Clock. Callbacks run synchronously
// inside Advance, in due-time order, ties broken by scheduling order.
type MockClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*mockTimer
}

// NewMockClock creates a MockClock set to t.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *MockClock) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &mockTimer{clock: m, at: m.now.Add(d), seq: m.seq, f: f}
	m.timers = append(m.timers, t)
	return t
}

// Set changes the current time without firing any timers.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Advance moves the clock forward by d and fires every timer that becomes due,
// including timers scheduled by callbacks during the advance.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.popDue(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.at
		m.mu.Unlock()

		next.f()
	}
}

// Pending returns the number of scheduled timers that have not fired or been stopped.
func (m *MockClock) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// popDue removes and returns the earliest timer due at or before target. Caller holds mu.
func (m *MockClock) popDue(target time.Time) *mockTimer {
	if len(m.timers) == 0 {
		return nil
	}

	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].at.Equal(m.timers[j].at) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].at.Before(m.timers[j].at)
	})

	first := m.timers[0]
	if first.at.After(target) {
		return nil
	}
	m.timers = m.timers[1:]
	first.done = true
	return first
}

// remove deletes t from the pending list. Caller holds mu.
func (m *MockClock) remove(t *mockTimer) {
	for i, pending := range m.timers {
		if pending == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

type mockTimer struct {
	clock *MockClock
	at    time.Time
	seq   uint64
	f     func()
	done  bool
}

func (t *mockTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.done {
		return false
	}
	t.done = true
	t.clock.remove(t)
	return true
}
