package server

import (
	"log"

	"github.com/LemmyAI/tankduel/internal/game"
	"github.com/LemmyAI/tankduel/internal/protocol"
	"github.com/LemmyAI/tankduel/internal/room"
)

// Broadcaster delivers frames to the participants of a match.
type Broadcaster struct {
	registry *room.Registry
}

// NewBroadcaster creates a broadcaster that resolves connections through registry.
func NewBroadcaster(registry *room.Registry) *Broadcaster {
	return &Broadcaster{registry: registry}
}

// Broadcast sends frame to every participant of m except excludeID ("" excludes no one).
// The caller must hold m's lock. Delivery is best effort: closed or missing
// connections are skipped and encode or send failures are only logged.
func (b *Broadcaster) Broadcast(m *game.Match, frame protocol.Frame, excludeID string) {
	data, err := protocol.Encode(frame)
	if err != nil {
		log.Printf("❌ Encode %s for %s failed: %v", frame.FrameType(), m.ID, err)
		return
	}

	for _, playerID := range m.Players() {
		if playerID == excludeID {
			continue
		}
		conn := b.registry.Conn(playerID)
		if conn == nil || !conn.IsOpen() {
			continue
		}
		if err := conn.Send(data); err != nil {
			log.Printf("⚠️ Broadcast %s to %s failed: %v", frame.FrameType(), playerID, err)
		}
	}
}
