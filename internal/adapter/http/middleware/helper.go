package middleware

import (
	"encoding/json"
	"net/http"

	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
)

const (
	msgAuthRequired = "authorization required"
	msgBadToken     = "invalid or expired token"
	msgForbidden    = "forbidden: insufficient role"
	msgRateLimited  = "rate limit exceeded, please try again later"
	msgInternal     = "the server encountered a problem and could not process your request"
)

// rejection has the same shape as the handlers' error bodies, plus the request id
// so a driver or supervisor can quote it.
type rejection struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// reject ends the request before it reaches a handler.
func reject(w http.ResponseWriter, r *http.Request, status int, message string) {
	body, err := json.Marshal(rejection{Error: message, RequestID: wrap.GetRequestID(r.Context())})
	if err != nil {
		http.Error(w, http.StatusText(status), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	reject(w, r, http.StatusUnauthorized, message)
}
