package observability

// EventEnvelope is the wire shape of every event published to the bus.
type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

// Routing keys for the websocket and session lifecycle streams.
const (
	RoutingKeyWSEvents = "ws_events.chats"
	RoutingKeySessions = "session_events"
)

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
