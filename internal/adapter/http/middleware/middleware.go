// Package middleware holds the HTTP middlewares shared by the api and stats services.
package middleware

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/pkg/logger"
)

// AuthService resolves a bearer token into the driver or supervisor it belongs to.
type AuthService interface {
	RoleCheck(ctx context.Context, token string) (*models.User, error)
}

type Middleware struct {
	service types.ServiceMode
	auth    AuthService // nil on the stats service
	log     logger.Logger
}

func NewMiddleware(service types.ServiceMode, auth AuthService, log logger.Logger) *Middleware {
	return &Middleware{
		service: service,
		auth:    auth,
		log:     log,
	}
}

// Chain wraps h so that the first middleware is the outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
