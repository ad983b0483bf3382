// Package langchain adapts langchaingo-backed providers to the runtime's
// model port. It covers any OpenAI-compatible endpoint configured through
// credentials, which keeps provider choice a pure configuration concern.
package langchain

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/application/port/output"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
)

var _ output.LLMPort = (*Adapter)(nil)

type Adapter struct {
	model  llms.Model
	logger output.LoggerPort
}

func NewAdapter(creds entity.Credentials, logger output.LoggerPort) (*Adapter, error) {
	opts := []openai.Option{
		openai.WithToken(creds.APIKey),
		openai.WithModel(creds.Model),
	}
	if creds.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(creds.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init langchain model: %w", err)
	}
	return &Adapter{model: model, logger: logger}, nil
}

func (a *Adapter) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	content := make([]llms.MessageContent, 0, len(req.Messages))
	for _, msg := range req.Messages {
		content = append(content, llms.TextParts(roleOf(msg.Role), msg.Content))
	}

	resp, err := a.model.GenerateContent(ctx, content,
		llms.WithTemperature(float64(req.Temperature)))
	if err != nil {
		return nil, fmt.Errorf("generate content failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	if a.logger != nil {
		a.logger.Debug("Model responded", "chars", len(resp.Choices[0].Content))
	}
	return &output.ChatResponse{Content: resp.Choices[0].Content}, nil
}

func roleOf(role entity.MessageRole) llms.ChatMessageType {
	switch role {
	case entity.RoleSystem:
		return llms.ChatMessageTypeSystem
	case entity.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
