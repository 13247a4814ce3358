package models

import (
	"context"
	"time"

	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID        `json:"id"`
	CompanyID uuid.UUID        `json:"company_id"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Phone     string           `json:"phone,omitempty"`
	Role      types.UserRole   `json:"role"`
	Status    types.UserStatus `json:"status"`
	password  string
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// GetPassword returns the stored password hash.
func (u *User) GetPassword() string {
	return u.password
}

func (u *User) SetPassword(hash string) {
	u.password = hash
}

func (u *User) IsAnonymous() bool {
	return u == nil || u.ID == uuid.Nil
}

func (u *User) HasRole(roles ...types.UserRole) bool {
	if u.IsAnonymous() {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// UserUpdate holds the optional fields of a partial user update.
type UserUpdate struct {
	Name   *string
	Phone  *string
	Role   *types.UserRole
	Status *types.UserStatus
}

type userCtxKey struct{}

var anonymous = &User{}

// AnonymousUser is stored in the request context when no bearer token was sent.
func AnonymousUser() *User {
	return anonymous
}

func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext returns the authenticated user or AnonymousUser.
func UserFromContext(ctx context.Context) *User {
	if u, ok := ctx.Value(userCtxKey{}).(*User); ok && u != nil {
		return u
	}
	return anonymous
}
