package middleware

import (
	"bufio"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Temutjin2k/ispeed/pkg/metrics"
	"github.com/google/uuid"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// Hijack allows the responseWriter to implement the http.Hijacker interface
// which websocket.Upgrader requires.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Metrics records request counts and latencies under the service label.
func (m *Middleware) Metrics(next http.Handler) http.Handler {
	service := m.service.String()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// scrapes are not traffic
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		metrics.HttpRequestsInFlight.WithLabelValues(service).Inc()
		defer metrics.HttpRequestsInFlight.WithLabelValues(service).Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		metrics.RecordHTTPMetrics(service, r.Method, pathLabel(r.URL.Path), rw.statusCode, time.Since(start))
	})
}

// pathLabel replaces id segments so every trip shares one label value:
// /sessions/5b0e.../stop becomes /sessions/{id}/stop.
func pathLabel(path string) string {
	if strings.HasPrefix(path, "/swagger/") {
		return "/swagger/"
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if _, err := uuid.Parse(p); err == nil {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}
