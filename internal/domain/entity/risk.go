package entity

import "time"

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Risk is recomputed per step from the step itself, the prompt and the last
// visited host; it is never stored.
type Risk struct {
	Level           RiskLevel     `json:"level"`
	Reasons         []string      `json:"reasons,omitempty"`
	ApprovalTimeout time.Duration `json:"-"`
}

// ApprovalRequest is what the approval collaborator sees for a high-risk step.
type ApprovalRequest struct {
	RunID   string `json:"run_id"`
	Summary string `json:"summary"`
	Risk    Risk   `json:"risk"`
}

type ApprovalDecision struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}
