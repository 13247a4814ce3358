package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	wshandler "github.com/Temutjin2k/ispeed/internal/adapter/http/ws"
	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/internal/service/monitor"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	ws "github.com/Temutjin2k/ispeed/pkg/wsHub"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	mu    sync.Mutex
	live  map[uuid.UUID]monitor.Snapshot
	trips map[uuid.UUID]*models.Trip
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{live: map[uuid.UUID]monitor.Snapshot{}, trips: map[uuid.UUID]*models.Trip{}}
}

func (f *fakeSessions) StartTrip(_ context.Context, driver *models.User, destination string) (*models.Trip, monitor.Snapshot, error) {
	if driver.Role != types.DriverRole {
		return nil, monitor.Snapshot{}, types.ErrForbidden
	}
	if destination != "Lima - Cusco" {
		return nil, monitor.Snapshot{}, &monitor.InvalidInputError{Field: "destination", Value: destination, Reason: "unknown route"}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	snap := monitor.Snapshot{SessionID: id, Destination: destination, State: monitor.StateIdle, Effectiveness: 100, Elapsed: "00:00:00"}
	trip := &models.Trip{ID: id, DriverID: driver.ID, CompanyID: driver.CompanyID, Destination: destination, Status: types.TripInProgress}
	f.live[id] = snap
	f.trips[id] = trip
	return trip, snap, nil
}

func (f *fakeSessions) Snapshot(_ context.Context, _ *models.User, id uuid.UUID) (monitor.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if snap, ok := f.live[id]; ok {
		return snap, nil
	}
	if _, ok := f.trips[id]; ok {
		return monitor.Snapshot{}, types.ErrTripNotActive
	}
	return monitor.Snapshot{}, types.ErrTripNotFound
}

func (f *fakeSessions) Watch(ctx context.Context, actor *models.User, id uuid.UUID) (monitor.Snapshot, error) {
	return f.Snapshot(ctx, actor, id)
}

func (f *fakeSessions) StopTrip(_ context.Context, _ *models.User, id uuid.UUID) (*models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.trips[id]
	if !ok {
		return nil, types.ErrTripNotFound
	}
	delete(f.live, id)
	end := time.Date(2024, 1, 15, 10, 0, 10, 0, time.UTC)
	trip.Status, trip.EndDate = types.TripFinished, &end
	trip.ElapsedSeconds, trip.AlertCount, trip.ResponseCount, trip.Effectiveness = 10, 1, 1, 100
	return trip, nil
}

func (f *fakeSessions) Get(_ context.Context, _ *models.User, id uuid.UUID) (*models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if trip, ok := f.trips[id]; ok {
		return trip, nil
	}
	return nil, types.ErrTripNotFound
}

type fakeTokens map[string]*models.User

func (f fakeTokens) RoleCheck(_ context.Context, token string) (*models.User, error) {
	if u, ok := f[token]; ok {
		return u, nil
	}
	return nil, types.ErrForbidden
}

var testDriver = &models.User{ID: uuid.New(), CompanyID: uuid.New(), Role: types.DriverRole, Status: types.ActiveStatus}

func newSessionHandler(t *testing.T) (*Session, *fakeSessions, *ws.ConnectionHub) {
	t.Helper()
	hub := ws.NewConnHub(logger.NewNop())
	t.Cleanup(hub.Close)
	sessions := newFakeSessions()
	h := NewSession(sessions, fakeTokens{"driver-token": testDriver}, hub, []string{"http://localhost:5173"}, logger.NewNop())
	return h, sessions, hub
}

func asUser(r *http.Request, u *models.User) *http.Request {
	return r.WithContext(models.WithUser(r.Context(), u))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSessionStart(t *testing.T) {
	h, _, _ := newSessionHandler(t)

	cases := []struct {
		name string
		user *models.User
		body string
		code int
	}{
		{"ok", testDriver, `{"destination":"Lima - Cusco"}`, http.StatusCreated},
		{"blank destination", testDriver, `{"destination":"  "}`, http.StatusUnprocessableEntity},
		{"unknown route", testDriver, `{"destination":"Lima - Tokyo"}`, http.StatusBadRequest},
		{"unknown field", testDriver, `{"route":"Lima - Cusco"}`, http.StatusBadRequest},
		{"supervisor", &models.User{ID: uuid.New(), Role: types.SupervisorRole}, `{"destination":"Lima - Cusco"}`, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := asUser(httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(tc.body)), tc.user)
			rec := httptest.NewRecorder()
			h.Start(rec, req)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
		})
	}
}

func TestSessionStopTwice(t *testing.T) {
	h, sessions, _ := newSessionHandler(t)
	trip, _, err := sessions.StartTrip(context.Background(), testDriver, "Lima - Cusco")
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions/{trip_id}/stop", h.Stop)
	mux.HandleFunc("GET /sessions/{trip_id}", h.Snapshot)

	for range 2 {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodPost, "/sessions/"+trip.ID.String()+"/stop", nil), testDriver))
		require.Equal(t, http.StatusOK, rec.Code)
		summary := decodeBody(t, rec)["summary"].(map[string]any)
		assert.EqualValues(t, 100, summary["effectiveness"])
		assert.EqualValues(t, 10, summary["elapsed_seconds"])
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/sessions/"+trip.ID.String(), nil), testDriver))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/sessions/not-a-uuid", nil), testDriver))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func startWSServer(t *testing.T, h *Session) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/sessions/{trip_id}", h.Stream)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readMessage(t *testing.T, c *websocket.Conn) models.WSMessage {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg models.WSMessage
	require.NoError(t, c.ReadJSON(&msg))
	return msg
}

func TestSessionStream(t *testing.T) {
	h, sessions, hub := newSessionHandler(t)
	streamer := wshandler.NewSessionStreamer(hub)
	trip, _, err := sessions.StartTrip(context.Background(), testDriver, "Lima - Cusco")
	require.NoError(t, err)

	url := startWSServer(t, h) + "/ws/sessions/" + trip.ID.String()
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.WriteJSON(map[string]string{"type": "auth", "token": "driver-token"}))
	first := readMessage(t, c)
	assert.Equal(t, models.WSTypeSessionSnapshot, first.Type)
	require.Eventually(t, func() bool { return len(hub.Subscribers(trip.ID)) == 1 }, 2*time.Second, 10*time.Millisecond)

	streamer.PushSnapshot(trip.ID, monitor.Snapshot{SessionID: trip.ID, ElapsedSeconds: 1, Elapsed: "00:00:01"})
	next := readMessage(t, c)
	assert.Equal(t, models.WSTypeSessionSnapshot, next.Type)
	assert.Equal(t, "00:00:01", next.Data.(map[string]any)["elapsed"])

	streamer.PushStopped(trip.ID, monitor.TripSummary{SessionID: trip.ID, ElapsedSeconds: 10, AlertCount: 1, ResponseCount: 1, Effectiveness: 100})
	last := readMessage(t, c)
	assert.Equal(t, models.WSTypeSessionStopped, last.Type)
	assert.EqualValues(t, 100, last.Data.(map[string]any)["effectiveness"])

	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = c.ReadMessage()
	assert.Error(t, err, "server closes the stream after the final message")
}

func TestSessionStreamRejectsBadAuth(t *testing.T) {
	h, sessions, hub := newSessionHandler(t)
	trip, _, err := sessions.StartTrip(context.Background(), testDriver, "Lima - Cusco")
	require.NoError(t, err)
	url := startWSServer(t, h) + "/ws/sessions/" + trip.ID.String()

	for _, first := range []any{
		map[string]string{"type": "auth", "token": "stolen"},
		map[string]string{"type": "hello"},
	} {
		c, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)

		require.NoError(t, c.WriteJSON(first))
		msg := readMessage(t, c)
		assert.Equal(t, models.WSTypeError, msg.Type)
		c.Close()
	}
	assert.Zero(t, hub.Len())
}

func TestSessionStreamOriginCheck(t *testing.T) {
	h, _, _ := newSessionHandler(t)
	url := startWSServer(t, h) + "/ws/sessions/" + uuid.NewString()

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
