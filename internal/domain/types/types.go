package types

type ServiceMode string

// API Service - REST/websocket surface, owns live trip sessions
// Stats Service - consumes finished trips and maintains per-driver aggregates
const (
	APIService   ServiceMode = "api-service"
	StatsService ServiceMode = "stats-service"
)

func (m ServiceMode) String() string {
	return string(m)
}

// UserRole is the role of an account inside a company.
type UserRole string

func (r UserRole) String() string {
	return string(r)
}

const (
	DriverRole     UserRole = "DRIVER"
	SupervisorRole UserRole = "SUPERVISOR"
)

func (r UserRole) Valid() bool {
	return r == DriverRole || r == SupervisorRole
}

// UserStatus of an account. Drivers added by a supervisor start as INVITED.
type UserStatus string

const (
	InvitedStatus  UserStatus = "INVITED"
	ActiveStatus   UserStatus = "ACTIVE"
	InActiveStatus UserStatus = "INACTIVE"
)

func (s UserStatus) Valid() bool {
	switch s {
	case InvitedStatus, ActiveStatus, InActiveStatus:
		return true
	}
	return false
}

type TripStatus string

const (
	TripInProgress TripStatus = "IN_PROGRESS"
	TripFinished   TripStatus = "FINISHED"
)

func (s TripStatus) Valid() bool {
	return s == TripInProgress || s == TripFinished
}

func (s TripStatus) String() string {
	return string(s)
}
