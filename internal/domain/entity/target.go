package entity

// TargetMode selects which live tabs a step applies to. Resolution happens
// lazily at dispatch time because tabs may close or change between planning
// and execution.
type TargetMode string

const (
	TargetActive      TargetMode = "active"
	TargetAll         TargetMode = "all"
	TargetTabID       TargetMode = "tab_id"
	TargetDomain      TargetMode = "domain"
	TargetURLContains TargetMode = "url_contains"
)

func (m TargetMode) Known() bool {
	switch m {
	case TargetActive, TargetAll, TargetTabID, TargetDomain, TargetURLContains:
		return true
	}
	return false
}

type TargetSpec struct {
	Mode  TargetMode `json:"mode"`
	Value string     `json:"value,omitempty"`
	TabID int        `json:"tab_id,omitempty"`
}

// ActiveTarget is the fallback when neither the plan nor the caller supplies
// a target.
func ActiveTarget() *TargetSpec {
	return &TargetSpec{Mode: TargetActive}
}

func (t *TargetSpec) Describe() string {
	if t == nil {
		return "active tab"
	}
	switch t.Mode {
	case TargetAll:
		return "all tabs"
	case TargetTabID:
		return "one tab"
	case TargetDomain:
		return "tabs on " + t.Value
	case TargetURLContains:
		return "tabs matching " + t.Value
	default:
		return "active tab"
	}
}
