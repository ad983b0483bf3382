package planner

import (
	"encoding/json"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
)

// Bounds applied during sanitization. Model output is clamped, never trusted.
const (
	MaxPlanSteps = 20

	maxReplyLen     = 2500
	maxQueryLen     = 280
	maxSelectorLen  = 320
	maxClickTextLen = 180
	maxTypeTextLen  = 1200
	maxFormFields   = 12
	maxFieldValue   = 1200

	minAnalyzeChars     = 500
	maxAnalyzeChars     = 9000
	defaultAnalyzeChars = 3000
	minScrapeChars      = 800
	maxScrapeChars      = 15000
	defaultScrapeChars  = 5000

	minWaitMS = 80
	maxWaitMS = 20000
)

const unsafePlanReply = "I could not turn that request into a safe action plan. Please rephrase it."

// Sanitize turns an untrusted candidate plan into a bounded, schema-valid
// one. Unknown actions are dropped, fields are clamped, URLs validated and
// default targets attached. It never fails: an empty result is replaced by a
// single explanatory reply step.
func Sanitize(raw []RawStep, defaultTarget *entity.TargetSpec) []entity.Step {
	if defaultTarget == nil {
		defaultTarget = entity.ActiveTarget()
	}

	steps := make([]entity.Step, 0, len(raw))
	for _, rs := range raw {
		if len(steps) >= MaxPlanSteps {
			break
		}
		step, ok := sanitizeStep(rs, defaultTarget)
		if !ok {
			continue
		}
		steps = append(steps, step)
	}

	if len(steps) == 0 {
		steps = append(steps, entity.Step{Kind: entity.ActionReply, Message: unsafePlanReply})
	}
	return steps
}

func sanitizeStep(rs RawStep, defaultTarget *entity.TargetSpec) (entity.Step, bool) {
	kind := entity.ActionKind(strings.ToLower(strings.TrimSpace(rs.Action)))
	if !kind.Known() {
		return entity.Step{}, false
	}

	step := entity.Step{Kind: kind}
	if kind.NeedsTarget() {
		step.Target = normalizeTarget(rs.Target, defaultTarget)
	}

	switch kind {
	case entity.ActionReply:
		msg := strings.TrimSpace(rs.Message)
		if msg == "" {
			return entity.Step{}, false
		}
		step.Message = clamp(msg, maxReplyLen)

	case entity.ActionNavigate, entity.ActionOpenTab:
		u, ok := NormalizeURL(rs.URL)
		if !ok {
			return entity.Step{}, false
		}
		step.URL = u

	case entity.ActionSwitchTab:
		if rs.TabID <= 0 {
			return entity.Step{}, false
		}
		step.TabID = rs.TabID

	case entity.ActionGoogleSearch, entity.ActionSearchYouTube:
		q := strings.TrimSpace(rs.Query)
		if q == "" {
			return entity.Step{}, false
		}
		step.Query = clamp(q, maxQueryLen)

	case entity.ActionPlayMedia:
		step.Selector = clamp(strings.TrimSpace(rs.Selector), maxSelectorLen)

	case entity.ActionClick:
		sel := clamp(strings.TrimSpace(rs.Selector), maxSelectorLen)
		txt := clamp(strings.TrimSpace(rs.Text), maxClickTextLen)
		if sel == "" && txt == "" {
			return entity.Step{}, false
		}
		step.Selector = sel
		step.Text = txt

	case entity.ActionType:
		sel := clamp(strings.TrimSpace(rs.Selector), maxSelectorLen)
		if sel == "" || strings.TrimSpace(rs.Text) == "" {
			return entity.Step{}, false
		}
		step.Selector = sel
		step.Text = clamp(rs.Text, maxTypeTextLen)
		step.Clear = rs.Clear

	case entity.ActionFillForm:
		fields := sanitizeFields(rs.Fields)
		if len(fields) == 0 {
			return entity.Step{}, false
		}
		step.Fields = fields
		step.Submit = rs.Submit
		step.SubmitSelector = clamp(strings.TrimSpace(rs.SubmitSelector), maxSelectorLen)

	case entity.ActionAnalyzePage:
		step.MaxChars = clampInt(orDefault(rs.MaxChars, defaultAnalyzeChars), minAnalyzeChars, maxAnalyzeChars)

	case entity.ActionScrapePage:
		step.MaxChars = clampInt(orDefault(rs.MaxChars, defaultScrapeChars), minScrapeChars, maxScrapeChars)

	case entity.ActionVisualizePage:
		// no parameters

	case entity.ActionWait:
		step.DurationMS = clampInt(rs.durationMS(), minWaitMS, maxWaitMS)
	}

	return step, true
}

func sanitizeFields(raw []RawField) []entity.FieldQuery {
	fields := make([]entity.FieldQuery, 0, maxFormFields)
	for _, rf := range raw {
		if len(fields) >= maxFormFields {
			break
		}
		if strings.TrimSpace(rf.Value) == "" {
			continue
		}
		fields = append(fields, entity.FieldQuery{
			Selector:    clamp(strings.TrimSpace(rf.Selector), maxSelectorLen),
			Name:        clamp(strings.TrimSpace(rf.Name), maxClickTextLen),
			Label:       clamp(strings.TrimSpace(rf.Label), maxClickTextLen),
			Placeholder: clamp(strings.TrimSpace(rf.Placeholder), maxClickTextLen),
			Type:        clamp(strings.ToLower(strings.TrimSpace(rf.Type)), 32),
			Value:       clamp(rf.Value, maxFieldValue),
		})
	}
	return fields
}

// normalizeTarget validates an explicit structured target, maps a bare
// string heuristically, and otherwise falls back to the caller default.
func normalizeTarget(raw json.RawMessage, defaultTarget *entity.TargetSpec) *entity.TargetSpec {
	if len(raw) == 0 {
		return cloneTarget(defaultTarget)
	}

	var spec entity.TargetSpec
	if err := json.Unmarshal(raw, &spec); err == nil && spec.Mode != "" {
		if !spec.Mode.Known() {
			return cloneTarget(defaultTarget)
		}
		if spec.Mode == entity.TargetTabID && spec.TabID <= 0 {
			return cloneTarget(defaultTarget)
		}
		if (spec.Mode == entity.TargetDomain || spec.Mode == entity.TargetURLContains) && strings.TrimSpace(spec.Value) == "" {
			return cloneTarget(defaultTarget)
		}
		return &spec
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.ToLower(strings.TrimSpace(s))
		switch {
		case s == "all":
			return &entity.TargetSpec{Mode: entity.TargetAll}
		case s == "active" || s == "current":
			return &entity.TargetSpec{Mode: entity.TargetActive}
		case strings.Contains(s, ".") && !strings.Contains(s, " "):
			return &entity.TargetSpec{Mode: entity.TargetDomain, Value: s}
		}
	}

	return cloneTarget(defaultTarget)
}

func cloneTarget(t *entity.TargetSpec) *entity.TargetSpec {
	if t == nil {
		return entity.ActiveTarget()
	}
	cp := *t
	return &cp
}

// NormalizeURL validates that raw parses as http(s), prepending a scheme
// when missing. The second return is false when no safe URL can be formed.
func NormalizeURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	host := u.Hostname()
	if host == "" || (!strings.Contains(host, ".") && host != "localhost") {
		return "", false
	}
	return u.String(), true
}

// clamp cuts s to at most max bytes without splitting a rune.
func clamp(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
