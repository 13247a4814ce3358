package server

import (
	"net/http"

	"github.com/Temutjin2k/ispeed/internal/adapter/http/middleware"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// setupRoutes - setups http routes
func setupRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware, mode types.ServiceMode) {
	// System Health
	mux.HandleFunc("GET /health", routes.health.HealthCheck)
	setupMetricsRoute(mux)

	if mode != types.APIService {
		return
	}

	setupSwaggerRoutes(mux)
	setupAuthRoutes(mux, routes, m)
	setupFleetRoutes(mux, routes, m)
	setupTripRoutes(mux, routes, m)
	setupSessionRoutes(mux, routes, m)
	setupReportRoutes(mux, routes, m)
}

func setupAuthRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.HandleFunc("POST /auth/register", routes.auth.Register)
	mux.HandleFunc("POST /auth/login", routes.auth.Login)
	mux.HandleFunc("POST /auth/refresh", routes.auth.Refresh)
	mux.Handle("POST /auth/logout", m.RequireRoles(routes.auth.Logout))
	mux.Handle("GET /auth/me", m.RequireRoles(routes.auth.Profile))
}

// setupFleetRoutes setups company, city and user management
func setupFleetRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("GET /company", m.RequireRoles(routes.fleet.GetCompany))
	mux.Handle("PATCH /company", m.RequireRoles(routes.fleet.UpdateCompany, types.SupervisorRole))

	mux.Handle("GET /cities", m.RequireRoles(routes.fleet.Cities))
	mux.Handle("POST /cities", m.RequireRoles(routes.fleet.AddCity, types.SupervisorRole))
	mux.Handle("DELETE /cities/{city_id}", m.RequireRoles(routes.fleet.RemoveCity, types.SupervisorRole))

	mux.Handle("POST /users", m.RequireRoles(routes.user.Create, types.SupervisorRole))
	mux.Handle("GET /users", m.RequireRoles(routes.user.List, types.SupervisorRole))
	mux.Handle("GET /users/{user_id}", m.RequireRoles(routes.user.Get, types.SupervisorRole))
	mux.Handle("PATCH /users/{user_id}", m.RequireRoles(routes.user.Update, types.SupervisorRole))
	mux.Handle("DELETE /users/{user_id}", m.RequireRoles(routes.user.Delete, types.SupervisorRole))
}

// setupTripRoutes setups the trip record store
func setupTripRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.HandleFunc("GET /routes", routes.trip.Routes)

	mux.Handle("POST /trips", m.RequireRoles(routes.trip.Create))
	mux.Handle("GET /trips", m.RequireRoles(routes.trip.List))
	mux.Handle("GET /trips/{trip_id}", m.RequireRoles(routes.trip.Get))
	mux.Handle("PATCH /trips/{trip_id}", m.RequireRoles(routes.trip.Update))
	mux.Handle("DELETE /trips/{trip_id}", m.RequireRoles(routes.trip.Delete))
}

// setupSessionRoutes setups live trip monitoring
func setupSessionRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("POST /sessions", m.RequireRoles(routes.session.Start, types.DriverRole))
	mux.Handle("GET /sessions/{trip_id}", m.RequireRoles(routes.session.Snapshot))
	mux.Handle("POST /sessions/{trip_id}/stop", m.RequireRoles(routes.session.Stop))
	mux.HandleFunc("GET /ws/sessions/{trip_id}", routes.session.Stream) // authenticated by the first message
}

func setupReportRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("GET /reports/trips", m.RequireRoles(routes.report.Trips))
	mux.Handle("GET /reports/trips/export", m.RequireRoles(routes.report.Export))
	mux.Handle("GET /reports/drivers", m.RequireRoles(routes.report.Drivers))
	mux.Handle("GET /dashboard/overview", m.RequireRoles(routes.report.Overview, types.SupervisorRole))
}

// setupSwaggerRoutes configures Swagger UI endpoint
func setupSwaggerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /swagger/", httpSwagger.Handler(httpSwagger.InstanceName("api")))
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func setupMetricsRoute(mux *http.ServeMux) {
	mux.Handle("GET /metrics", promhttp.Handler())
}
