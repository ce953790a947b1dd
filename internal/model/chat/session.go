package chat

import "time"

// State is the submission state of a coaching session.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
)

// Session is the public view of a coaching session.
type Session struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	PersonaID string    `json:"personaId"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"createdAt"`
}
