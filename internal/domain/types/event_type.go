package types

// TripEvent is the routing key prefix of a message on the trip exchange.
type TripEvent string

func (e TripEvent) String() string {
	return string(e)
}

const (
	EventTripStarted  TripEvent = "trip.started"
	EventTripFinished TripEvent = "trip.finished"
)

// RoutingKey returns "<event>.<suffix>", e.g. trip.finished.<driver_id>.
func (e TripEvent) RoutingKey(suffix string) string {
	return string(e) + "." + suffix
}

const (
	TripExchange     = "trip_topic"
	DriverStatsQueue = "driver_stats"
)
