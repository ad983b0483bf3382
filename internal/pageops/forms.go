package pageops

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/application/port/output"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
)

// FillReport is the structured data attached to a fill_form reply.
type FillReport struct {
	Filled       []string `json:"filled"`
	Missing      []string `json:"missing,omitempty"`
	Unverified   []string `json:"unverified,omitempty"`
	SubmitMethod string   `json:"submit_method,omitempty"`
}

var submitKeywordRe = regexp.MustCompile(`(?i)\b(submit|log ?in|sign ?in|sign ?up|register|continue|next|create account|search|apply|send|save)\b`)

func (e *Engine) fillForm(ctx context.Context, page output.PagePort, env entity.ActionEnvelope) (entity.SurfaceReply, error) {
	candidates, err := page.FormFields(ctx)
	if err != nil {
		return entity.SurfaceReply{}, fmt.Errorf("list form fields: %w", err)
	}

	report := FillReport{}
	usedForm := ""
	for _, q := range env.Fields {
		label := fieldLabel(q)
		match := ResolveField(candidates, q)
		if match == nil {
			report.Missing = append(report.Missing, label)
			continue
		}
		if err := page.SetValue(ctx, match.Selector, q.Value, true); err != nil {
			report.Missing = append(report.Missing, label)
			continue
		}
		if err := verifyValue(ctx, page, match.Selector, q.Value, true); err != nil {
			report.Unverified = append(report.Unverified, label)
			continue
		}
		report.Filled = append(report.Filled, label)
		if usedForm == "" {
			usedForm = formOfField(ctx, page, match.Selector)
		}
	}

	if len(report.Filled) == 0 {
		return entity.SurfaceReply{}, fmt.Errorf("field not found: none of the requested fields could be filled (missing: %s)",
			strings.Join(report.Missing, ", "))
	}

	if env.Submit {
		report.SubmitMethod = e.submit(ctx, page, env.SubmitSelector, usedForm)
	}

	detail := fmt.Sprintf("filled %d/%d fields", len(report.Filled), len(env.Fields))
	if env.Submit {
		detail += ", submit: " + report.SubmitMethod
	}
	return entity.SuccessReplyData(detail, report), nil
}

func fieldLabel(q entity.FieldQuery) string {
	for _, s := range []string{q.Name, q.Label, q.Placeholder, q.Selector, q.Type} {
		if s != "" {
			return s
		}
	}
	return "field"
}

// formOfField finds the snapshot form containing the selector, used to scope
// submission fallbacks.
func formOfField(ctx context.Context, page output.PagePort, selector string) string {
	snap, err := page.Snapshot(ctx)
	if err != nil {
		return ""
	}
	for _, form := range snap.Forms {
		for _, f := range form.Fields {
			if f.Selector == selector {
				return form.Selector
			}
		}
	}
	return ""
}

// submit tries the submission methods in fixed priority order and reports
// which one worked ("none" when all failed). Exactly one method ever runs to
// completion: the first that succeeds.
func (e *Engine) submit(ctx context.Context, page output.PagePort, explicitSelector, formSelector string) string {
	if explicitSelector != "" {
		if err := page.ClickSelector(ctx, explicitSelector); err == nil {
			return "explicit_selector"
		}
	}

	snap, _ := page.Snapshot(ctx)
	var form *entity.FormInfo
	for i := range snap.Forms {
		if snap.Forms[i].Selector == formSelector {
			form = &snap.Forms[i]
			break
		}
	}

	if form != nil && form.SubmitSelector != "" {
		if err := page.ClickSelector(ctx, form.SubmitSelector); err == nil {
			return "form_submit_button"
		}
	}

	if formSelector != "" {
		if err := page.SubmitForm(ctx, formSelector); err == nil {
			return "native_form_submit"
		}
	}

	if formSelector != "" {
		if sel := keywordButton(snap.Buttons, formSelector); sel != "" {
			if err := page.ClickSelector(ctx, sel); err == nil {
				return "form_keyword_button"
			}
		}
	}
	if sel := keywordButton(snap.Buttons, ""); sel != "" {
		if err := page.ClickSelector(ctx, sel); err == nil {
			return "document_keyword_button"
		}
	}

	return "none"
}

// keywordButton returns the first button whose text looks submit-like,
// optionally scoped to buttons whose selector sits inside formSelector.
func keywordButton(buttons []entity.ClickTarget, formSelector string) string {
	for _, b := range buttons {
		if formSelector != "" && !strings.HasPrefix(b.Selector, formSelector) {
			continue
		}
		if submitKeywordRe.MatchString(b.Text) || submitKeywordRe.MatchString(b.AriaLabel) {
			return b.Selector
		}
	}
	return ""
}
