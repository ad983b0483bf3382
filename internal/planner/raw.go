package planner

import "encoding/json"

// RawStep is an untrusted candidate step as decoded from model output.
// Nothing in here is trusted until the sanitizer has been over it.
type RawStep struct {
	Action         string          `json:"action"`
	Message        string          `json:"message"`
	URL            string          `json:"url"`
	Query          string          `json:"query"`
	Selector       string          `json:"selector"`
	Text           string          `json:"text"`
	Clear          bool            `json:"clear"`
	Fields         []RawField      `json:"fields"`
	Submit         bool            `json:"submit"`
	SubmitSelector string          `json:"submit_selector"`
	MaxChars       int             `json:"max_chars"`
	DurationMS     int             `json:"duration_ms"`
	MS             int             `json:"ms"`
	TabID          int             `json:"tab_id"`
	Target         json.RawMessage `json:"target"`
}

type RawField struct {
	Selector    string `json:"selector"`
	Name        string `json:"name"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder"`
	Type        string `json:"type"`
	Value       string `json:"value"`
}

type RawTodo struct {
	Task   string   `json:"task"`
	Reason string   `json:"reason"`
	Step   *RawStep `json:"step"`
}

// RawEnvelope is the JSON shape requested from the model.
type RawEnvelope struct {
	Analysis string    `json:"analysis"`
	Todos    []RawTodo `json:"todos"`
	Plan     []RawStep `json:"plan"`
}

func (s RawStep) durationMS() int {
	if s.DurationMS > 0 {
		return s.DurationMS
	}
	return s.MS
}
