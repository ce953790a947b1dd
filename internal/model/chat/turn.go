package chat

import (
	"time"

	"github.com/zhouzirui/ruffie/backend/internal/model/rubric"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the coaching transcript. Turns are append-only.
type Turn struct {
	ID        string        `json:"id"`
	Role      Role          `json:"role"`
	Content   string        `json:"content"`
	Grade     *rubric.Grade `json:"grade,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Graded reports whether an assistant turn carries a rubric grade.
func (t Turn) Graded() bool {
	return t.Grade != nil
}

// GreetingText opens every fresh session.
const GreetingText = "Hi, I'm RUFfie, your Risk Up Front coach. Paste a risk statement and I'll restate it, " +
	"map it to Cause, Effect and Impact, grade it from A to D and ask one question to sharpen it."

// TurnView is a Turn as sent to clients, with the severity band of its grade.
type TurnView struct {
	Turn
	Band rubric.Band `json:"band,omitempty"`
}

// View decorates t for display.
func (t Turn) View() TurnView {
	view := TurnView{Turn: t}
	if t.Grade != nil {
		view.Band = t.Grade.Band()
	}
	return view
}

// Views decorates a transcript for display.
func Views(turns []Turn) []TurnView {
	views := make([]TurnView, 0, len(turns))
	for _, turn := range turns {
		views = append(views, turn.View())
	}
	return views
}
