package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/ruffie/backend/internal/model/chat"
	"github.com/zhouzirui/ruffie/backend/internal/model/rubric"
)

// Conversation is the ordered, append-only transcript of one coaching session.
// The first turn is always the assistant greeting.
type Conversation struct {
	mu    sync.RWMutex
	turns []chat.Turn
	now   func() time.Time
}

// NewConversation starts a transcript holding only the greeting.
func NewConversation() *Conversation {
	c := &Conversation{now: func() time.Time { return time.Now().UTC() }}
	c.Reset()
	return c
}

// Reset drops every turn and reinstates the greeting.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = make([]chat.Turn, 0, 16)
	c.turns = append(c.turns, c.newTurn(chat.RoleAssistant, chat.GreetingText, nil))
}

// AppendUser records a submission.
func (c *Conversation) AppendUser(content string) chat.Turn {
	return c.append(chat.RoleUser, content, nil)
}

// AppendAssistant records a coached response or a diagnostic. grade may be nil.
func (c *Conversation) AppendAssistant(content string, grade *rubric.Grade) chat.Turn {
	return c.append(chat.RoleAssistant, content, grade)
}

func (c *Conversation) append(role chat.Role, content string, grade *rubric.Grade) chat.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	turn := c.newTurn(role, content, grade)
	c.turns = append(c.turns, turn)
	return turn
}

func (c *Conversation) newTurn(role chat.Role, content string, grade *rubric.Grade) chat.Turn {
	var g *rubric.Grade
	if grade != nil {
		copied := *grade
		g = &copied
	}
	return chat.Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Grade:     g,
		CreatedAt: c.now(),
	}
}

// Transcript returns a copy of every turn in order.
func (c *Conversation) Transcript() []chat.Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()

	copied := make([]chat.Turn, len(c.turns))
	copy(copied, c.turns)
	return copied
}

// Recent returns at most the last n turns, oldest first.
func (c *Conversation) Recent(n int) []chat.Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if n <= 0 {
		return nil
	}
	start := 0
	if len(c.turns) > n {
		start = len(c.turns) - n
	}
	copied := make([]chat.Turn, len(c.turns)-start)
	copy(copied, c.turns[start:])
	return copied
}

// Len reports the number of turns.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}
