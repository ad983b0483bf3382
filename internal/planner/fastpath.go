package planner

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Fast-path plans are deterministic shortcuts for two common intent shapes:
// pure navigation and registration/login against an explicit URL. Their
// output still goes through the sanitizer like everything else.

var (
	navIntentRe   = regexp.MustCompile(`(?i)\b(go to|open|visit|navigate to|take me to)\b`)
	mediaIntentRe = regexp.MustCompile(`(?i)\b(play|watch|listen to)\b`)
	authIntentRe  = regexp.MustCompile(`(?i)\b(register|sign ?up|create (an )?account|log ?in|sign ?in)\b`)

	explicitURLRe = regexp.MustCompile(`(?i)\bhttps?://[^\s"'<>]+`)
	bareDomainRe  = regexp.MustCompile(`(?i)\b([a-z0-9][a-z0-9\-]*\.)+[a-z]{2,}\b`)

	credPhraseRe = regexp.MustCompile(`(?i)\b(email|e-mail|username|user|login|password|pass)\b\s*[:=]?\s*(\S+)`)
	randomWordRe = regexp.MustCompile(`(?i)\brandom\b`)
)

// wellKnownSites maps plain keywords to destinations for prompts like
// "open youtube".
var wellKnownSites = map[string]string{
	"youtube":       "youtube.com",
	"google":        "google.com",
	"gmail":         "mail.google.com",
	"github":        "github.com",
	"reddit":        "reddit.com",
	"wikipedia":     "wikipedia.org",
	"twitter":       "x.com",
	"x":             "x.com",
	"amazon":        "amazon.com",
	"stackoverflow": "stackoverflow.com",
	"linkedin":      "linkedin.com",
	"facebook":      "facebook.com",
	"instagram":     "instagram.com",
	"netflix":       "netflix.com",
	"maps":          "maps.google.com",
}

// FastPlan returns a deterministic raw plan for recognized intent shapes.
// The second return is false when the prompt needs the model planner.
func FastPlan(prompt string) ([]RawStep, bool) {
	if steps, ok := registrationPlan(prompt); ok {
		return steps, true
	}
	if steps, ok := navigationPlan(prompt); ok {
		return steps, true
	}
	return nil, false
}

func navigationPlan(prompt string) ([]RawStep, bool) {
	if !navIntentRe.MatchString(prompt) || mediaIntentRe.MatchString(prompt) {
		return nil, false
	}
	// Authentication prompts carry more work than a bare navigation.
	if authIntentRe.MatchString(prompt) {
		return nil, false
	}

	dest := resolveDestination(prompt)
	if dest == "" {
		return nil, false
	}
	return []RawStep{{Action: "navigate", URL: dest}}, true
}

func resolveDestination(prompt string) string {
	if m := explicitURLRe.FindString(prompt); m != "" {
		if u, ok := NormalizeURL(strings.TrimRight(m, ".,;:!?)")); ok {
			return u
		}
	}
	if m := bareDomainRe.FindString(prompt); m != "" {
		if u, ok := NormalizeURL(m); ok {
			return u
		}
	}
	for _, word := range strings.Fields(strings.ToLower(prompt)) {
		word = strings.Trim(word, ".,;:!?\"'")
		if site, ok := wellKnownSites[word]; ok {
			if u, ok := NormalizeURL(site); ok {
				return u
			}
		}
	}
	return ""
}

// registrationPlan handles "register/login on <url>" prompts with a fixed
// navigate → analyze → fill sequence. Credential values explicitly marked
// "random" are generated; otherwise key=value phrases from the prompt are
// used.
func registrationPlan(prompt string) ([]RawStep, bool) {
	if !authIntentRe.MatchString(prompt) {
		return nil, false
	}
	m := explicitURLRe.FindString(prompt)
	if m == "" {
		return nil, false
	}
	dest, ok := NormalizeURL(strings.TrimRight(m, ".,;:!?)"))
	if !ok {
		return nil, false
	}

	creds := extractCredentials(prompt)

	fields := []RawField{
		{Name: "email", Type: "email", Value: creds.email},
		{Name: "password", Type: "password", Value: creds.password},
	}
	if creds.username != "" {
		fields = append([]RawField{{Name: "username", Type: "text", Value: creds.username}}, fields...)
	}

	return []RawStep{
		{Action: "navigate", URL: dest},
		{Action: "analyze_page"},
		{Action: "fill_form", Fields: fields, Submit: true},
	}, true
}

func stopword(s string) bool {
	switch strings.ToLower(s) {
	case "to", "on", "at", "in", "into", "with", "and", "the", "a", "an", "using", "for", "":
		return true
	}
	return false
}

type credentialSet struct {
	email    string
	username string
	password string
}

func extractCredentials(prompt string) credentialSet {
	var creds credentialSet

	for _, m := range credPhraseRe.FindAllStringSubmatch(prompt, -1) {
		key := strings.ToLower(m[1])
		val := strings.Trim(m[2], ".,;:!?\"'")
		if randomWordRe.MatchString(val) || stopword(val) {
			continue
		}
		switch {
		case strings.HasPrefix(key, "e"):
			creds.email = val
		case strings.HasPrefix(key, "pass"):
			creds.password = val
		default:
			creds.username = val
		}
	}

	if creds.email == "" {
		creds.email = randomEmail()
	}
	if creds.password == "" {
		creds.password = randomPassword()
	}
	return creds
}

func randomEmail() string {
	return "user-" + shortID() + "@example.com"
}

func randomPassword() string {
	// Mixed-case, digit and symbol so common complexity checks pass.
	return "Aa1!" + shortID()
}

func shortID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return id[:12]
}
