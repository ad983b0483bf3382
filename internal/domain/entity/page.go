package entity

// TabInfo mirrors the tab inventory entry exposed by the tab manager.
type TabInfo struct {
	ID     int    `json:"tab_id"`
	Active bool   `json:"active"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

type PageInfo struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// FieldCandidate is one visible, enabled, writable field-like element
// (input, textarea, select) as seen by the element resolver.
type FieldCandidate struct {
	Selector     string `json:"selector"`
	Tag          string `json:"tag"`
	Type         string `json:"type,omitempty"`
	Name         string `json:"name,omitempty"`
	ID           string `json:"id,omitempty"`
	Label        string `json:"label,omitempty"`
	Placeholder  string `json:"placeholder,omitempty"`
	AriaLabel    string `json:"aria_label,omitempty"`
	Autocomplete string `json:"autocomplete,omitempty"`
	// Order is the element's position in document order, used to break
	// score ties deterministically.
	Order int `json:"-"`
}

// ClickTarget is one visible element with a clickable role.
type ClickTarget struct {
	Selector  string `json:"selector"`
	Tag       string `json:"tag"`
	Role      string `json:"role,omitempty"`
	Text      string `json:"text,omitempty"`
	AriaLabel string `json:"aria_label,omitempty"`
	Href      string `json:"href,omitempty"`
}

// FormInfo summarizes one form for page analysis and submission fallbacks.
type FormInfo struct {
	Selector       string           `json:"selector"`
	Action         string           `json:"action,omitempty"`
	Method         string           `json:"method,omitempty"`
	SubmitSelector string           `json:"submit_selector,omitempty"`
	Fields         []FieldCandidate `json:"fields,omitempty"`
}

type LinkInfo struct {
	Text string `json:"text,omitempty"`
	Href string `json:"href"`
}

// PageSnapshot is the structured result of analyze_page: bounded lists of
// forms, clickable buttons, links and headings plus authentication hints.
type PageSnapshot struct {
	URL        string        `json:"url,omitempty"`
	Title      string        `json:"title,omitempty"`
	Forms      []FormInfo    `json:"forms,omitempty"`
	Buttons    []ClickTarget `json:"buttons,omitempty"`
	Links      []LinkInfo    `json:"links,omitempty"`
	Headings   []string      `json:"headings,omitempty"`
	LoginHints []string      `json:"login_hints,omitempty"`
	TextSample string        `json:"text_sample,omitempty"`
}

type Screenshot struct {
	Data   []byte `json:"-"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}
