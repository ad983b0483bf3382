package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/application/port/output"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
)

type fakeLLM struct {
	response string
	err      error
	lastReq  output.ChatRequest
}

func (f *fakeLLM) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &output.ChatResponse{Content: f.response}, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)                      {}
func (nopLogger) Info(string, ...any)                       {}
func (nopLogger) Warn(string, ...any)                       {}
func (nopLogger) Error(string, ...any)                      {}
func (n nopLogger) WithField(string, any) output.LoggerPort { return n }
func (nopLogger) Close() error                              { return nil }

func TestBuildPlan_YouTubeSearchFromModelOutput(t *testing.T) {
	llm := &fakeLLM{response: "```json\n" + `{
  "analysis": "The user wants a YouTube search.",
  "todos": [{"task": "search youtube", "reason": "user asked"}],
  "plan": [{"action": "search_youtube", "query": "funny cat videos"}]
}` + "\n```"}

	p := New(llm, nopLogger{})
	plan, err := p.BuildPlan(context.Background(), "Search for funny cat videos on YouTube", nil, "", nil)
	require.NoError(t, err)

	require.Len(t, plan.Steps, 1)
	step := plan.Steps[0]
	assert.Equal(t, entity.ActionSearchYouTube, step.Kind)
	assert.Equal(t, "funny cat videos", step.Query)
	require.NotNil(t, step.Target)
	assert.Equal(t, entity.TargetActive, step.Target.Mode)
}

func TestBuildPlan_FastPathSkipsModel(t *testing.T) {
	llm := &fakeLLM{err: errors.New("should not be called")}

	p := New(llm, nopLogger{})
	plan, err := p.BuildPlan(context.Background(), "go to github.com", nil, "", nil)
	require.NoError(t, err)

	require.Len(t, plan.Steps, 1)
	assert.Equal(t, entity.ActionNavigate, plan.Steps[0].Kind)
	assert.Equal(t, "https://github.com", plan.Steps[0].URL)
}

func TestBuildPlan_UnparseableResponseDegradesToReply(t *testing.T) {
	llm := &fakeLLM{response: "Sorry, I can only answer in prose."}

	p := New(llm, nopLogger{})
	plan, err := p.BuildPlan(context.Background(), "do something complicated", nil, "", nil)
	require.NoError(t, err)

	require.Len(t, plan.Steps, 1)
	assert.Equal(t, entity.ActionReply, plan.Steps[0].Kind)
	assert.Contains(t, plan.Steps[0].Message, "prose")
}

func TestBuildPlan_ArrayResponseDegradesToReply(t *testing.T) {
	llm := &fakeLLM{response: `[{"action":"navigate","url":"https://example.com"}]`}

	p := New(llm, nopLogger{})
	plan, err := p.BuildPlan(context.Background(), "do something complicated", nil, "", nil)
	require.NoError(t, err)

	require.Len(t, plan.Steps, 1)
	assert.Equal(t, entity.ActionReply, plan.Steps[0].Kind)
}

func TestBuildPlan_ModelErrorPropagates(t *testing.T) {
	llm := &fakeLLM{err: errors.New("auth failure")}

	p := New(llm, nopLogger{})
	_, err := p.BuildPlan(context.Background(), "do something complicated", nil, "", nil)
	assert.Error(t, err)
}

func TestBuildPlan_PromptCarriesTabsAndContext(t *testing.T) {
	llm := &fakeLLM{response: `{"analysis":"","plan":[{"action":"reply","message":"ok"}]}`}
	tabs := []entity.TabInfo{{ID: 1, Active: true, Title: "Home", URL: "https://example.com"}}

	p := New(llm, nopLogger{})
	_, err := p.BuildPlan(context.Background(), "click the login button", tabs, "Forms: 1 login form", nil)
	require.NoError(t, err)

	require.Len(t, llm.lastReq.Messages, 2)
	system := llm.lastReq.Messages[0].Content
	assert.Contains(t, system, "https://example.com")
	assert.Contains(t, system, "Forms: 1 login form")
	assert.Contains(t, system, "at most 20 steps")
}

func TestParseEnvelope(t *testing.T) {
	t.Run("plain object", func(t *testing.T) {
		env, err := ParseEnvelope(`{"analysis":"a","plan":[{"action":"wait","ms":500}]}`)
		require.NoError(t, err)
		assert.Equal(t, "a", env.Analysis)
		require.Len(t, env.Plan, 1)
		assert.Equal(t, 500, env.Plan[0].durationMS())
	})

	t.Run("fenced with surrounding prose", func(t *testing.T) {
		env, err := ParseEnvelope("Here you go:\n{\"plan\":[{\"action\":\"reply\",\"message\":\"hi\"}]}\nEnjoy!")
		require.NoError(t, err)
		require.Len(t, env.Plan, 1)
	})

	t.Run("array shaped rejected", func(t *testing.T) {
		_, err := ParseEnvelope(`[1,2,3]`)
		assert.Error(t, err)
	})

	t.Run("no json rejected", func(t *testing.T) {
		_, err := ParseEnvelope("nothing here")
		assert.Error(t, err)
	})
}
