package entity

import "errors"

// Distinguished error classes. Cancellation must never be reported as an
// ordinary failure, and restricted pages must never look like generic
// dispatch errors.
var (
	ErrCancelled      = errors.New("run cancelled")
	ErrRestrictedPage = errors.New("restricted page: automation is not allowed here")
	ErrApprovalDenied = errors.New("step not approved")
	ErrTabNotFound    = errors.New("tab not found")
	ErrNoTargetTabs   = errors.New("no tabs matched the target")
)
