// Package wshandler pushes live trip state to websocket clients.
package wshandler

import (
	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/service/monitor"
	ws "github.com/Temutjin2k/ispeed/pkg/wsHub"
	"github.com/google/uuid"
)

// SessionStreamer broadcasts session updates to every connection subscribed to the trip.
type SessionStreamer struct {
	connections *ws.ConnectionHub
}

func NewSessionStreamer(connections *ws.ConnectionHub) *SessionStreamer {
	return &SessionStreamer{
		connections: connections,
	}
}

func (s *SessionStreamer) PushSnapshot(tripID uuid.UUID, snap monitor.Snapshot) {
	s.connections.Broadcast(tripID, models.WSMessage{
		Type: models.WSTypeSessionSnapshot,
		Data: snap,
	})
}

// PushStopped sends the final summary and disconnects the watchers of the trip.
func (s *SessionStreamer) PushStopped(tripID uuid.UUID, summary monitor.TripSummary) {
	s.connections.CloseTopic(tripID, models.WSMessage{
		Type: models.WSTypeSessionStopped,
		Data: summary,
	})
}
