package entity

// ActionKind discriminates the step union. The set is closed: the sanitizer
// drops anything else before it can reach execution.
type ActionKind string

const (
	ActionReply         ActionKind = "reply"
	ActionNavigate      ActionKind = "navigate"
	ActionOpenTab       ActionKind = "open_tab"
	ActionSwitchTab     ActionKind = "switch_tab"
	ActionGoogleSearch  ActionKind = "google_search"
	ActionSearchYouTube ActionKind = "search_youtube"
	ActionPlayMedia     ActionKind = "play_media"
	ActionClick         ActionKind = "click"
	ActionType          ActionKind = "type"
	ActionFillForm      ActionKind = "fill_form"
	ActionAnalyzePage   ActionKind = "analyze_page"
	ActionScrapePage    ActionKind = "scrape_page"
	ActionVisualizePage ActionKind = "visualize_page"
	ActionWait          ActionKind = "wait"
)

func (k ActionKind) String() string {
	return string(k)
}

// Known reports whether k belongs to the allowed action set.
func (k ActionKind) Known() bool {
	switch k {
	case ActionReply, ActionNavigate, ActionOpenTab, ActionSwitchTab,
		ActionGoogleSearch, ActionSearchYouTube, ActionPlayMedia,
		ActionClick, ActionType, ActionFillForm,
		ActionAnalyzePage, ActionScrapePage, ActionVisualizePage, ActionWait:
		return true
	}
	return false
}

// NeedsTarget reports whether a step of this kind must carry a target spec.
// REPLY, SWITCH_TAB, WAIT and OPEN_TAB bypass tab targeting entirely.
func (k ActionKind) NeedsTarget() bool {
	switch k {
	case ActionReply, ActionSwitchTab, ActionWait, ActionOpenTab:
		return false
	}
	return true
}

// NavigationClass reports whether the action executes by mutating a tab's
// location rather than by a content-script round trip.
func (k ActionKind) NavigationClass() bool {
	switch k {
	case ActionNavigate, ActionGoogleSearch, ActionSearchYouTube:
		return true
	}
	return false
}

// ContentClass reports whether the action requires the injected execution
// surface in the target tab.
func (k ActionKind) ContentClass() bool {
	switch k {
	case ActionClick, ActionType, ActionFillForm,
		ActionAnalyzePage, ActionScrapePage, ActionVisualizePage, ActionPlayMedia:
		return true
	}
	return false
}

// FieldQuery is a fuzzy descriptor used to locate one form field.
// Value is mandatory for fill operations; Selector, when present, is an
// authoritative override that skips heuristic matching.
type FieldQuery struct {
	Selector    string `json:"selector,omitempty"`
	Name        string `json:"name,omitempty"`
	Label       string `json:"label,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Type        string `json:"type,omitempty"`
	Value       string `json:"value"`
}

// Step is one validated plan entry. Only the fields relevant to Kind are
// populated; everything else stays zero.
type Step struct {
	Kind ActionKind `json:"action"`

	Message  string       `json:"message,omitempty"`
	URL      string       `json:"url,omitempty"`
	Query    string       `json:"query,omitempty"`
	Selector string       `json:"selector,omitempty"`
	Text     string       `json:"text,omitempty"`
	Clear    bool         `json:"clear,omitempty"`
	Fields   []FieldQuery `json:"fields,omitempty"`
	Submit   bool         `json:"submit,omitempty"`
	// SubmitSelector, when set on a fill_form step, is tried first during
	// form submission.
	SubmitSelector string `json:"submit_selector,omitempty"`
	MaxChars       int    `json:"max_chars,omitempty"`
	DurationMS     int    `json:"duration_ms,omitempty"`
	TabID          int    `json:"tab_id,omitempty"`

	Target *TargetSpec `json:"target,omitempty"`
}

// Plan is an ordered, capped sequence of sanitized steps. Order is execution
// order; steps are never reordered.
type Plan struct {
	Analysis string `json:"analysis,omitempty"`
	Todos    []Todo `json:"todos,omitempty"`
	Steps    []Step `json:"plan"`
}

// Todo is advisory only: shown to the user as a preview, never executed.
type Todo struct {
	Task   string `json:"task"`
	Reason string `json:"reason,omitempty"`
	Step   *Step  `json:"step,omitempty"`
}
