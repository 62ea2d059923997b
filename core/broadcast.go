package core

// Broadcast rooms. Connected staff clients are grouped by their
// authenticated role; membership is decided server-side.
const (
	RoomCoordinators = "coordinators"
	RoomAdmins       = "admins"
)

// Event kinds published over the realtime channel.
const (
	EventNewAnnotation         = "new_annotation"
	EventEmergencyRequest      = "emergency_request"
	EventEmergencyStatusUpdate = "emergency_status_update"
)

type Event struct {
	Kind    string      `json:"type"`
	Payload interface{} `json:"payload"`

	// Rooms scopes delivery; All additionally fans out to every connected
	// session regardless of room.
	Rooms []string `json:"-"`
	All   bool     `json:"-"`
}

// Broadcaster fans events out to connected clients. Publishing is
// fire-and-forget: delivery is at-most-once and failures are logged, never
// returned — the triggering mutation stands regardless.
type Broadcaster interface {
	Publish(evt Event)
}

// NopBroadcaster drops every event. Used when no hub is wired (CLI, tests).
type NopBroadcaster struct{}

var _ Broadcaster = (*NopBroadcaster)(nil)

func (NopBroadcaster) Publish(Event) {}
