package output

import (
	"context"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
)

// TabsPort is the tab-manager capability: inventory plus per-tab location
// control. Tab state is always read live; nothing here is cached.
type TabsPort interface {
	List(ctx context.Context) ([]entity.TabInfo, error)
	OpenTab(ctx context.Context, url string) (entity.TabInfo, error)
	ActivateTab(ctx context.Context, tabID int) error
	Navigate(ctx context.Context, tabID int, url string) error
	// State returns the latest tab info and whether the tab has reached a
	// ready (load-complete or restricted-internal) state.
	State(ctx context.Context, tabID int) (entity.TabInfo, bool, error)
}

// SurfacePort delivers content actions into a tab. Inject is idempotent:
// injecting into an already-prepared tab is a no-op.
type SurfacePort interface {
	Inject(ctx context.Context, tabID int) error
	Deliver(ctx context.Context, tabID int, env entity.ActionEnvelope) (entity.SurfaceReply, error)
}
