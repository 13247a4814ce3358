package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpToken           = errors.New("expired token")
	ErrUserInactive       = errors.New("user account is inactive")
)
