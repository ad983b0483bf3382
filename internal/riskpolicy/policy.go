// Package riskpolicy classifies each step's sensitivity before execution.
// Classification is a pure function of the step, the originating prompt and
// the last host visited in the run; nothing here is stored.
package riskpolicy

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/redact"
)

const (
	defaultApprovalTimeout  = 20 * time.Second
	navigateApprovalTimeout = 25 * time.Second
	formApprovalTimeout     = 30 * time.Second
)

var (
	authIntentRe = regexp.MustCompile(`(?i)\b(log ?in|sign ?in|sign ?up|register|password|credential|authenticat|2fa|otp)`)
	// Button text or selectors suggesting an irreversible or financial action.
	sensitiveClickRe = regexp.MustCompile(`(?i)\b(submit|log ?in|sign ?in|sign ?up|checkout|pay(ment)?|purchase|buy|order|confirm|delete)\b`)
)

// Classify derives the risk tier for one step. lastHost is the host of the
// most recent successful URL-bearing step, or "" at the start of a run;
// the first navigation of a run is deliberately not treated as cross-domain.
func Classify(step entity.Step, prompt, lastHost string) entity.Risk {
	switch step.Kind {
	case entity.ActionReply, entity.ActionWait, entity.ActionSwitchTab,
		entity.ActionAnalyzePage, entity.ActionScrapePage, entity.ActionVisualizePage:
		return entity.Risk{Level: entity.RiskLow, ApprovalTimeout: defaultApprovalTimeout}

	case entity.ActionNavigate, entity.ActionOpenTab:
		return classifyNavigation(step, lastHost)

	case entity.ActionFillForm:
		return classifyFillForm(step, prompt)

	case entity.ActionClick:
		return classifyClick(step)

	case entity.ActionType:
		if authIntentRe.MatchString(prompt) {
			return entity.Risk{
				Level:           entity.RiskHigh,
				Reasons:         []string{"typing during an authentication flow"},
				ApprovalTimeout: formApprovalTimeout,
			}
		}
		return medium()

	default:
		// google_search, search_youtube, play_media
		return medium()
	}
}

func classifyNavigation(step entity.Step, lastHost string) entity.Risk {
	host := hostOf(step.URL)
	if lastHost != "" && host != "" && !sameHost(host, lastHost) {
		return entity.Risk{
			Level:           entity.RiskHigh,
			Reasons:         []string{"navigation to a different site: " + host},
			ApprovalTimeout: navigateApprovalTimeout,
		}
	}
	return medium()
}

func classifyFillForm(step entity.Step, prompt string) entity.Risk {
	var reasons []string
	if step.Submit {
		reasons = append(reasons, "form will be submitted")
	}
	if authIntentRe.MatchString(prompt) {
		reasons = append(reasons, "prompt suggests an authentication flow")
	}
	for _, f := range step.Fields {
		if redact.CredentialType(f.Type) || redact.CredentialType(f.Name) ||
			redact.CredentialType(f.Label) || looksLikeSecret(f.Value) {
			reasons = append(reasons, "a field carries credential-like content")
			break
		}
	}

	if len(reasons) > 0 {
		return entity.Risk{Level: entity.RiskHigh, Reasons: reasons, ApprovalTimeout: formApprovalTimeout}
	}
	return medium()
}

func classifyClick(step entity.Step) entity.Risk {
	if sensitiveClickRe.MatchString(step.Selector) || sensitiveClickRe.MatchString(step.Text) {
		return entity.Risk{
			Level:           entity.RiskHigh,
			Reasons:         []string{"click target looks like a submit/login/payment control"},
			ApprovalTimeout: formApprovalTimeout,
		}
	}
	return medium()
}

func medium() entity.Risk {
	return entity.Risk{Level: entity.RiskMedium, ApprovalTimeout: defaultApprovalTimeout}
}

var secretValueRe = regexp.MustCompile(`^(sk-|ghp_|xox[bap]-|eyJ)[A-Za-z0-9_\-.]+$`)

func looksLikeSecret(v string) bool {
	v = strings.TrimSpace(v)
	if secretValueRe.MatchString(v) {
		return true
	}
	// Long single-token opaque values are treated as secrets.
	return len(v) >= 32 && !strings.ContainsAny(v, " \t\n")
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func sameHost(a, b string) bool {
	a = strings.TrimPrefix(a, "www.")
	b = strings.TrimPrefix(b, "www.")
	return a == b || strings.HasSuffix(a, "."+b) || strings.HasSuffix(b, "."+a)
}
