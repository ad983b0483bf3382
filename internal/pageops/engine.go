// Package pageops executes single content actions against one resolved page:
// clicking, typing, form filling, analysis, scraping, visualization and
// media control. Element location heuristics live here too; the DOM
// primitives come from the injected page port.
package pageops

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/application/port/output"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
)

const (
	maxVisualizeElements = 80
	visualizeRevert      = 2200 * time.Millisecond
)

type Engine struct {
	logger output.LoggerPort
}

func NewEngine(logger output.LoggerPort) *Engine {
	return &Engine{logger: logger}
}

// Execute runs one wire-shaped action against a page. Failures become error
// replies at this boundary; the envelope/reply pair is the injected-surface
// contract and never carries Go errors across it.
func (e *Engine) Execute(ctx context.Context, page output.PagePort, env entity.ActionEnvelope) entity.SurfaceReply {
	var (
		reply entity.SurfaceReply
		err   error
	)

	switch env.Action {
	case entity.ActionClick:
		reply, err = e.click(ctx, page, env)
	case entity.ActionType:
		reply, err = e.typeText(ctx, page, env)
	case entity.ActionFillForm:
		reply, err = e.fillForm(ctx, page, env)
	case entity.ActionAnalyzePage:
		reply, err = e.analyze(ctx, page, env)
	case entity.ActionScrapePage:
		reply, err = e.scrape(ctx, page, env)
	case entity.ActionVisualizePage:
		reply, err = e.visualize(ctx, page)
	case entity.ActionPlayMedia:
		reply, err = e.playMedia(ctx, page)
	default:
		err = fmt.Errorf("action %q is not a content action", env.Action)
	}

	if err != nil {
		e.logger.Debug("Page operation failed", "action", env.Action, "error", err)
		return entity.ErrorReply(err.Error())
	}
	return reply
}

func (e *Engine) click(ctx context.Context, page output.PagePort, env entity.ActionEnvelope) (entity.SurfaceReply, error) {
	if env.Selector != "" {
		if err := page.ClickSelector(ctx, env.Selector); err == nil {
			return entity.SuccessReply("clicked " + env.Selector), nil
		} else if env.Text == "" {
			return entity.SurfaceReply{}, fmt.Errorf("element not found for selector %q: %w", env.Selector, err)
		}
	}

	target, err := findClickable(ctx, page, env.Text)
	if err != nil {
		return entity.SurfaceReply{}, err
	}
	if err := page.ClickSelector(ctx, target.Selector); err != nil {
		return entity.SurfaceReply{}, fmt.Errorf("click failed on %q: %w", target.Selector, err)
	}
	return entity.SuccessReply(fmt.Sprintf("clicked %q", clickLabel(*target))), nil
}

// findClickable matches visible clickable elements by exact text first, then
// by substring.
func findClickable(ctx context.Context, page output.PagePort, text string) (*entity.ClickTarget, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("element not found: no selector matched and no text given")
	}

	targets, err := page.Clickables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clickable elements: %w", err)
	}

	want := normalize(text)
	for i := range targets {
		if normalize(targets[i].Text) == want || normalize(targets[i].AriaLabel) == want {
			return &targets[i], nil
		}
	}
	for i := range targets {
		if strings.Contains(normalize(targets[i].Text), want) ||
			strings.Contains(normalize(targets[i].AriaLabel), want) {
			return &targets[i], nil
		}
	}
	return nil, fmt.Errorf("element not found with text %q", text)
}

func clickLabel(t entity.ClickTarget) string {
	if t.Text != "" {
		return t.Text
	}
	if t.AriaLabel != "" {
		return t.AriaLabel
	}
	return t.Selector
}

func (e *Engine) typeText(ctx context.Context, page output.PagePort, env entity.ActionEnvelope) (entity.SurfaceReply, error) {
	selector := env.Selector
	if _, err := page.ReadValue(ctx, selector); err != nil {
		// Selector did not resolve directly; fall back to fuzzy matching.
		fields, ferr := page.FormFields(ctx)
		if ferr != nil {
			return entity.SurfaceReply{}, fmt.Errorf("input not found: %w", err)
		}
		match := ResolveField(fields, entity.FieldQuery{Name: env.Selector, Label: env.Selector, Placeholder: env.Selector})
		if match == nil {
			return entity.SurfaceReply{}, fmt.Errorf("input not found for %q", env.Selector)
		}
		selector = match.Selector
	}

	if err := page.SetValue(ctx, selector, env.Text, env.Clear); err != nil {
		return entity.SurfaceReply{}, fmt.Errorf("set value on %q: %w", selector, err)
	}
	if err := verifyValue(ctx, page, selector, env.Text, env.Clear); err != nil {
		return entity.SurfaceReply{}, err
	}
	return entity.SuccessReply(fmt.Sprintf("typed into %s", selector)), nil
}

// verifyValue re-reads the field and compares whitespace-normalized text.
// A mismatch is a hard failure: typing must never silently half-succeed.
func verifyValue(ctx context.Context, page output.PagePort, selector, text string, cleared bool) error {
	got, err := page.ReadValue(ctx, selector)
	if err != nil {
		return fmt.Errorf("verify value of %q: %w", selector, err)
	}
	if cleared {
		if normalize(got) != normalize(text) {
			return fmt.Errorf("value verification failed for %q", selector)
		}
		return nil
	}
	if !strings.Contains(normalize(got), normalize(text)) {
		return fmt.Errorf("value verification failed for %q", selector)
	}
	return nil
}
