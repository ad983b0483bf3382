package output

import (
	"context"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
)

type ChatRequest struct {
	Messages    []entity.Message
	Temperature float32
}

type ChatResponse struct {
	Content string
}

// LLMPort is the single model capability the runtime needs: given a prompt
// and history, return model text. Implementations must honor ctx
// cancellation and surface it as a context error.
type LLMPort interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
