package ai

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ArkGateway sends messages through an eino chat model.
type ArkGateway struct {
	chatModel model.ChatModel
}

// NewArkGateway wraps an already configured chat model.
func NewArkGateway(chatModel model.ChatModel) *ArkGateway {
	return &ArkGateway{chatModel: chatModel}
}

// Send generates a single non-streaming reply.
func (g *ArkGateway) Send(ctx context.Context, messages []*schema.Message) (string, error) {
	response, err := g.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", classifyModelError(err)
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return NoResponseText, nil
	}

	log.Printf("[gateway] ark reply length=%d", len(response.Content))
	return response.Content, nil
}

// classifyModelError maps SDK errors onto the gateway error kinds.
func classifyModelError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &NetworkError{Err: err}
	}
	return &UpstreamError{Status: http.StatusBadGateway, Message: err.Error()}
}
