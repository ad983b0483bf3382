// Package planner turns a natural-language instruction into a bounded,
// sanitized action plan, either through deterministic fast paths or a single
// model round trip.
package planner

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/application/port/output"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
)

var (
	allTabsPhraseRe  = regexp.MustCompile(`(?i)\b(all|every|each)\s+(open\s+)?tabs?\b`)
	onDomainPhraseRe = regexp.MustCompile(`(?i)\bon\s+((?:[a-z0-9][a-z0-9\-]*\.)+[a-z]{2,})\s+tabs?\b`)
)

type Planner struct {
	llm    output.LLMPort
	logger output.LoggerPort
}

func New(llm output.LLMPort, logger output.LoggerPort) *Planner {
	return &Planner{llm: llm, logger: logger}
}

// BuildPlan produces a sanitized plan for the prompt. Fast paths are tried
// first; otherwise one model round trip is made and its output is treated as
// adversarial input. BuildPlan fails only when the model call itself fails.
func (p *Planner) BuildPlan(ctx context.Context, prompt string, tabs []entity.TabInfo, pageContext string, defaultTarget *entity.TargetSpec) (*entity.Plan, error) {
	if defaultTarget == nil {
		defaultTarget = InferDefaultTarget(prompt)
	}

	if raw, ok := FastPlan(prompt); ok {
		p.logger.Debug("Fast-path plan matched", "steps", len(raw))
		return &entity.Plan{Steps: Sanitize(raw, defaultTarget)}, nil
	}

	system, err := BuildPrompt(tabs, pageContext, defaultTarget)
	if err != nil {
		return nil, err
	}

	resp, err := p.llm.Chat(ctx, output.ChatRequest{
		Messages: []entity.Message{
			{Role: entity.RoleSystem, Content: system},
			{Role: entity.RoleUser, Content: prompt},
		},
		Temperature: 0.0,
	})
	if err != nil {
		return nil, fmt.Errorf("planner llm request failed: %w", err)
	}

	env, err := ParseEnvelope(resp.Content)
	if err != nil {
		p.logger.Warn("Planner response unparseable, degrading to reply", "error", err)
		return &entity.Plan{Steps: replyOnly(resp.Content)}, nil
	}

	plan := &entity.Plan{
		Analysis: strings.TrimSpace(env.Analysis),
		Steps:    Sanitize(env.Plan, defaultTarget),
	}
	for _, t := range env.Todos {
		todo := entity.Todo{Task: strings.TrimSpace(t.Task), Reason: strings.TrimSpace(t.Reason)}
		if todo.Task == "" {
			continue
		}
		if t.Step != nil {
			if step, ok := sanitizeStep(*t.Step, defaultTarget); ok {
				todo.Step = &step
			}
		}
		plan.Todos = append(plan.Todos, todo)
	}
	return plan, nil
}

// InferDefaultTarget derives the default target from prompt phrasing:
// "on x.tld tabs" selects a domain, "all tabs" selects everything, anything
// else stays on the active tab.
func InferDefaultTarget(prompt string) *entity.TargetSpec {
	if m := onDomainPhraseRe.FindStringSubmatch(prompt); m != nil {
		return &entity.TargetSpec{Mode: entity.TargetDomain, Value: strings.ToLower(m[1])}
	}
	if allTabsPhraseRe.MatchString(prompt) {
		return &entity.TargetSpec{Mode: entity.TargetAll}
	}
	return entity.ActiveTarget()
}

func replyOnly(content string) []entity.Step {
	msg := strings.TrimSpace(content)
	if msg == "" {
		msg = unsafePlanReply
	}
	return Sanitize([]RawStep{{Action: "reply", Message: msg}}, nil)
}
