package output

import (
	"context"
	"time"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
)

// PagePort is the primitive surface the page operations engine drives inside
// one tab. Implementations resolve selectors against the live DOM; the
// heuristics that choose selectors live above this interface.
type PagePort interface {
	Info(ctx context.Context) (entity.PageInfo, error)
	// Snapshot is the parsed structural view of the page: forms, buttons,
	// links, headings and login hints, already bounded.
	Snapshot(ctx context.Context) (entity.PageSnapshot, error)
	VisibleText(ctx context.Context, maxChars int) (string, error)

	FormFields(ctx context.Context) ([]entity.FieldCandidate, error)
	Clickables(ctx context.Context) ([]entity.ClickTarget, error)

	ClickSelector(ctx context.Context, selector string) error
	SetValue(ctx context.Context, selector, value string, clear bool) error
	ReadValue(ctx context.Context, selector string) (string, error)
	SubmitForm(ctx context.Context, formSelector string) error

	// Highlight outlines up to maxElements interactive elements and reverts
	// the styling after revertAfter. Returns how many were outlined.
	Highlight(ctx context.Context, maxElements int, revertAfter time.Duration) (int, error)
	ToggleMedia(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) (*entity.Screenshot, error)
}
