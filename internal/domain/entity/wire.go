package entity

import "encoding/json"

// ActionEnvelope is the one wire-shaped contract of the runtime: it crosses
// the injection boundary between the dispatcher and the execution surface
// inside a tab. Field names are frozen; changing them breaks every injected
// surface already running.
type ActionEnvelope struct {
	Action         ActionKind   `json:"action"`
	Selector       string       `json:"selector,omitempty"`
	Text           string       `json:"text,omitempty"`
	Clear          bool         `json:"clear,omitempty"`
	Fields         []FieldQuery `json:"fields,omitempty"`
	Submit         bool         `json:"submit,omitempty"`
	SubmitSelector string       `json:"submit_selector,omitempty"`
	MaxChars       int          `json:"max_chars,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// SurfaceReply is the per-tab response to an ActionEnvelope.
type SurfaceReply struct {
	Status string          `json:"status"`
	Detail string          `json:"detail"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func SuccessReply(detail string) SurfaceReply {
	return SurfaceReply{Status: StatusSuccess, Detail: detail}
}

func SuccessReplyData(detail string, data any) SurfaceReply {
	raw, err := json.Marshal(data)
	if err != nil {
		return SurfaceReply{Status: StatusSuccess, Detail: detail}
	}
	return SurfaceReply{Status: StatusSuccess, Detail: detail, Data: raw}
}

func ErrorReply(detail string) SurfaceReply {
	return SurfaceReply{Status: StatusError, Detail: detail}
}

func (r SurfaceReply) OK() bool {
	return r.Status == StatusSuccess
}

// EnvelopeForStep projects the content-relevant fields of a step onto the
// wire contract.
func EnvelopeForStep(step Step) ActionEnvelope {
	return ActionEnvelope{
		Action:         step.Kind,
		Selector:       step.Selector,
		Text:           step.Text,
		Clear:          step.Clear,
		Fields:         step.Fields,
		Submit:         step.Submit,
		SubmitSelector: step.SubmitSelector,
		MaxChars:       step.MaxChars,
	}
}
