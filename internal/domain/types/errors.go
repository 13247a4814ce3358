package types

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("requested item not found")
	ErrForbidden    = errors.New("access to the resource is forbidden")

	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrCompanyNotFound = errors.New("company not found")
	ErrRUCTaken        = errors.New("company with this RUC already registered")
	ErrCityNotFound    = errors.New("city not found")
	ErrCityExists      = errors.New("city already exists")

	ErrTripNotFound      = errors.New("trip not found")
	ErrTripAlreadyActive = errors.New("driver already has an active trip")
	ErrTripNotActive     = errors.New("trip is not active")
	ErrTripIsLive        = errors.New("trip is being monitored and cannot be modified")

	ErrShuttingDown = errors.New("service is shutting down")
)
