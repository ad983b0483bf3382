package output

import (
	"context"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
)

// ApprovalPort suspends until a human (or policy) resolves the request.
// Implementations must resolve on approve, deny or timeout, whichever comes
// first, and must honor ctx cancellation.
type ApprovalPort interface {
	Request(ctx context.Context, req entity.ApprovalRequest) (entity.ApprovalDecision, error)
}
