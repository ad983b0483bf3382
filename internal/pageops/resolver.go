package pageops

import (
	"strings"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
)

// Scoring weights: an exact attribute match beats any number of substring
// matches on a single attribute, and type compatibility adds a smaller edge.
const (
	scoreExact      = 3
	scoreContains   = 1
	scoreTypeExact  = 2
	scoreTypeCompat = 1
)

// ResolveField picks the best candidate for a fuzzy field query, or nil when
// nothing matches. A provided selector is authoritative: if any candidate
// carries it, that candidate wins without scoring. Ties break on document
// order.
func ResolveField(candidates []entity.FieldCandidate, query entity.FieldQuery) *entity.FieldCandidate {
	if query.Selector != "" {
		for i := range candidates {
			if candidates[i].Selector == query.Selector {
				return &candidates[i]
			}
		}
	}

	best := -1
	bestScore := 0
	for i := range candidates {
		score := scoreCandidate(&candidates[i], query)
		if score <= 0 {
			continue
		}
		if score > bestScore ||
			(score == bestScore && candidates[i].Order < candidates[best].Order) {
			best = i
			bestScore = score
		}
	}

	if best < 0 {
		return nil
	}
	return &candidates[best]
}

func scoreCandidate(c *entity.FieldCandidate, q entity.FieldQuery) int {
	attrs := []string{c.Name, c.ID, c.Label, c.Placeholder, c.AriaLabel, c.Autocomplete}
	queries := []string{q.Name, q.Label, q.Placeholder}

	score := 0
	for _, attr := range attrs {
		na := normalize(attr)
		if na == "" {
			continue
		}
		for _, query := range queries {
			nq := normalize(query)
			if nq == "" {
				continue
			}
			switch {
			case na == nq:
				score += scoreExact
			case strings.Contains(na, nq) || strings.Contains(nq, na):
				score += scoreContains
			}
		}
	}

	score += typeScore(c.Type, q.Type)
	return score
}

func typeScore(candidateType, queryType string) int {
	ct := normalize(candidateType)
	qt := normalize(queryType)
	if qt == "" {
		return 0
	}
	if ct == qt {
		return scoreTypeExact
	}
	// A generic "text" query still fits semantically text-like inputs.
	if qt == "text" {
		switch ct {
		case "search", "email", "url":
			return scoreTypeCompat
		}
	}
	return 0
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
