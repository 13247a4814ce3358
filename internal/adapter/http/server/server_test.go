package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Temutjin2k/ispeed/config"
	"github.com/Temutjin2k/ispeed/internal/adapter/http/handler"
	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	ws "github.com/Temutjin2k/ispeed/pkg/wsHub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authStub struct{ handler.AuthService }

func (authStub) RoleCheck(context.Context, string) (*models.User, error) {
	return nil, errors.New("invalid token")
}

type tripsStub struct{ handler.TripService }

func (tripsStub) Routes() []string { return []string{"Lima - Cusco"} }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func testConfig(mode types.ServiceMode) config.Config {
	cfg := config.Config{Mode: mode}
	cfg.HTTP.CORSAllowedOrigins = []string{"http://localhost:5173"}
	return cfg
}

func TestAPIServiceRoutes(t *testing.T) {
	svc := &Services{Auth: authStub{}, Trips: tripsStub{}, Hub: ws.NewConnHub(logger.NewNop())}
	api, err := New(testConfig(types.APIService), svc, map[string]handler.Pinger{"postgres": pinger{}}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(api.limiter.Stop)

	cases := []struct {
		method, path, auth string
		code               int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/routes", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/users", "", http.StatusUnauthorized},
		{http.MethodPost, "/sessions", "", http.StatusUnauthorized},
		{http.MethodGet, "/trips", "Bearer forged", http.StatusUnauthorized},
		{http.MethodGet, "/nowhere", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			rec := httptest.NewRecorder()
			api.Handler().ServeHTTP(rec, req)
			assert.Equal(t, tc.code, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestStatsServiceRoutes(t *testing.T) {
	api, err := New(testConfig(types.StatsService), nil, map[string]handler.Pinger{"rabbitmq": pinger{err: errors.New("down")}}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(api.limiter.Stop)

	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")

	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trips", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewRejectsUnknownMode(t *testing.T) {
	_, err := New(testConfig("ride-service"), nil, nil, logger.NewNop())
	assert.Error(t, err)

	_, err = New(testConfig(types.APIService), nil, nil, logger.NewNop())
	assert.Error(t, err)
}
