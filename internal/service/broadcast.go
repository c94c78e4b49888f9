package service

// Battle event types pushed to subscribed clients.
const (
	EventWindowOpened  = "window_opened"
	EventRoundResolved = "round_resolved"
	EventBattleEnded   = "battle_ended"
	EventBattleAborted = "battle_aborted"
)

// Broadcaster sends real-time events to connected clients.
// Implemented by the WebSocket hub.
type Broadcaster interface {
	BroadcastBattleEvent(battleID string, eventType string, data any)
}

// NoopBroadcaster is a no-op implementation for testing or when WS is disabled.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastBattleEvent(string, string, any) {}
