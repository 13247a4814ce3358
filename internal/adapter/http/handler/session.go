package handler

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/Temutjin2k/ispeed/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/internal/service/monitor"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	"github.com/Temutjin2k/ispeed/pkg/validator"
	ws "github.com/Temutjin2k/ispeed/pkg/wsHub"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const wsAuthTimeout = 5 * time.Second

type SessionService interface {
	StartTrip(ctx context.Context, driver *models.User, destination string) (*models.Trip, monitor.Snapshot, error)
	Snapshot(ctx context.Context, actor *models.User, tripID uuid.UUID) (monitor.Snapshot, error)
	StopTrip(ctx context.Context, actor *models.User, tripID uuid.UUID) (*models.Trip, error)
	Watch(ctx context.Context, actor *models.User, tripID uuid.UUID) (monitor.Snapshot, error)
	Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Trip, error)
}

// TokenChecker resolves the user behind an access token.
type TokenChecker interface {
	RoleCheck(ctx context.Context, token string) (*models.User, error)
}

// Session serves live monitored trips over REST and websocket.
type Session struct {
	sessions SessionService
	tokens   TokenChecker
	hub      *ws.ConnectionHub
	upgrader websocket.Upgrader
	l        logger.Logger
}

// NewSession creates the handler. Browsers may only connect from allowedOrigins;
// clients that send no Origin header are always accepted.
func NewSession(sessions SessionService, tokens TokenChecker, hub *ws.ConnectionHub, allowedOrigins []string, l logger.Logger) *Session {
	return &Session{
		sessions: sessions,
		tokens:   tokens,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
		l: l,
	}
}

// Start godoc
// @Summary      Start a monitored trip
// @Description  Starts a trip session for the calling driver. One live trip per driver.
// @Tags         Sessions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      dto.StartSessionRequest  true  "Route"
// @Success      201      {object}  map[string]any
// @Failure      400      {object}  map[string]any
// @Failure      409      {object}  map[string]any
// @Router       /sessions [post]
func (h *Session) Start(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "start_session")

	req := &dto.StartSessionRequest{}
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

	trip, snap, err := h.sessions.StartTrip(ctx, models.UserFromContext(ctx), req.Destination)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to start trip", err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"trip": trip, "snapshot": snap}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Snapshot godoc
// @Summary      Live state of a trip
// @Tags         Sessions
// @Security     BearerAuth
// @Produce      json
// @Param        trip_id  path      string  true  "Trip ID"
// @Success      200      {object}  monitor.Snapshot
// @Failure      409      {object}  map[string]any
// @Router       /sessions/{trip_id} [get]
func (h *Session) Snapshot(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_session_snapshot")

	id, err := readUUIDParam(r, "trip_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	snap, err := h.sessions.Snapshot(ctx, models.UserFromContext(ctx), id)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to get snapshot", err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"snapshot": snap}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Stop godoc
// @Summary      Stop a monitored trip
// @Description  Stops the session and stores the trip as FINISHED. Stopping again returns the stored trip.
// @Tags         Sessions
// @Security     BearerAuth
// @Produce      json
// @Param        trip_id  path      string  true  "Trip ID"
// @Success      200      {object}  map[string]any
// @Router       /sessions/{trip_id}/stop [post]
func (h *Session) Stop(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "stop_session")

	id, err := readUUIDParam(r, "trip_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	trip, err := h.sessions.StopTrip(ctx, models.UserFromContext(ctx), id)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to stop trip", err)
		return
	}

	response := envelope{
		"trip":    trip,
		"summary": summaryOf(trip),
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Stream godoc
// @Summary      Follow a live trip over websocket
// @Description  The first client message must be {"type":"auth","token":"<access token>"}.
// @Description  The server then pushes session_snapshot messages and a final session_stopped.
// @Tags         Sessions
// @Param        trip_id  path  string  true  "Trip ID"
// @Router       /ws/sessions/{trip_id} [get]
func (h *Session) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionSessionStreaming)

	tripID, err := readUUIDParam(r, "trip_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	ctx = wrap.WithTripID(ctx, tripID.String())

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		h.l.Warn(ctx, "websocket upgrade failed", "error", err.Error())
		return
	}

	conn := ws.NewConn(ctx, tripID, raw)
	defer conn.Close()

	user, err := h.authenticate(ctx, conn)
	if err != nil {
		h.l.Debug(ctx, "websocket auth failed", "error", err.Error())
		sendWSError(conn, err.Error())
		return
	}
	ctx = wrap.WithUserID(ctx, user.ID.String())

	snap, err := h.sessions.Watch(ctx, user, tripID)
	if err != nil {
		sendWSError(conn, err.Error())
		return
	}

	if err := h.hub.Add(conn); err != nil {
		sendWSError(conn, err.Error())
		return
	}
	defer func() {
		if err := h.hub.Remove(conn); err != nil && !errors.Is(err, ws.ErrConnIsNotFound) {
			h.l.Warn(ctx, "failed to remove websocket connection", "error", err.Error())
		}
	}()

	if err := conn.Send(models.WSMessage{Type: models.WSTypeSessionSnapshot, Data: snap}); err != nil {
		return
	}

	// The trip may have stopped before the connection joined the hub.
	if _, err := h.sessions.Watch(ctx, user, tripID); errors.Is(err, types.ErrTripNotActive) {
		if trip, err := h.sessions.Get(ctx, user, tripID); err == nil {
			_ = conn.Send(models.WSMessage{Type: models.WSTypeSessionStopped, Data: summaryOf(trip)})
		}
		return
	}

	h.l.Debug(ctx, "websocket client joined")
	err = conn.Listen(func(msg map[string]any) error {
		if msg["type"] == "ping" {
			return conn.Send(models.WSMessage{Type: "pong"})
		}
		return nil
	})
	h.l.Debug(ctx, "websocket client left", "reason", err.Error())
}

func (h *Session) authenticate(ctx context.Context, conn *ws.Conn) (*models.User, error) {
	req := &dto.WSAuthRequest{}
	if err := conn.ReadJSON(req, wsAuthTimeout); err != nil {
		return nil, errors.New("expected auth message")
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		return nil, errors.New("expected auth message with token")
	}

	user, err := h.tokens.RoleCheck(ctx, req.Token)
	if err != nil || user.IsAnonymous() {
		return nil, errors.New("invalid credentials")
	}
	return user, nil
}

func sendWSError(conn *ws.Conn, message string) {
	_ = conn.Send(models.WSMessage{Type: models.WSTypeError, Data: map[string]string{"error": message}})
}

func summaryOf(trip *models.Trip) monitor.TripSummary {
	s := monitor.TripSummary{
		SessionID:      trip.ID,
		Destination:    trip.Destination,
		ElapsedSeconds: trip.ElapsedSeconds,
		AlertCount:     trip.AlertCount,
		ResponseCount:  trip.ResponseCount,
		Effectiveness:  trip.Effectiveness,
		StartedAt:      trip.StartDate,
	}
	if trip.EndDate != nil {
		s.EndedAt = *trip.EndDate
	}
	return s
}
