package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/ruffie/backend/internal/model/chat"
	"github.com/zhouzirui/ruffie/backend/internal/model/persona"
)

// HistoryLimit caps how many prior turns are sent with a submission.
const HistoryLimit = 10

// Composer builds the ordered message list sent to the model gateway. It has no
// side effects and never touches the network.
type Composer struct {
	personas persona.Store
	template prompt.ChatTemplate
}

// NewComposer creates a Composer backed by the given persona catalogue.
func NewComposer(personas persona.Store) *Composer {
	template := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage(submissionTemplate),
	)

	return &Composer{
		personas: personas,
		template: template,
	}
}

// Compose returns the system rubric (with the persona voice when key is not the
// default), the last HistoryLimit turns of history reduced to role and content,
// and the wrapped submission. history must not include the submission itself.
func (c *Composer) Compose(ctx context.Context, submission string, history []chat.Turn, key persona.Key) ([]*schema.Message, error) {
	messages, err := c.template.Format(ctx, map[string]any{
		"system":     c.SystemPrompt(key),
		"history":    historyMessages(history),
		"submission": submission,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to format coaching prompt: %w", err)
	}
	return messages, nil
}

// SystemPrompt returns the rubric instruction for the persona.
func (c *Composer) SystemPrompt(key persona.Key) string {
	if key == persona.Default || c.personas == nil {
		return rubricPrompt
	}

	p, ok := c.personas.FindByID(key)
	if !ok || strings.TrimSpace(p.Voice) == "" {
		return rubricPrompt
	}

	var builder strings.Builder
	builder.WriteString(rubricPrompt)
	builder.WriteString("\n\n")
	builder.WriteString(personaHeading)
	builder.WriteString("\n")
	builder.WriteString(p.Voice)
	builder.WriteString("\nThe voice changes tone only. Keep the process and the \"Grade: X\" line exactly as specified.")
	return builder.String()
}

func historyMessages(turns []chat.Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	startIdx := 0
	if len(turns) > HistoryLimit {
		startIdx = len(turns) - HistoryLimit
	}

	history := make([]*schema.Message, 0, len(turns)-startIdx)
	for _, turn := range turns[startIdx:] {
		switch turn.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(turn.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return history
}
