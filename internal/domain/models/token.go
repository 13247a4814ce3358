package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	Refresh = "refresh_token"
	Access  = "access_token"
)

type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// RefreshToken is the stored record of an issued refresh token. Only the hash is kept.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}
