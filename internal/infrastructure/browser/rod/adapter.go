// Package rod drives a real Chromium instance through go-rod and exposes it
// behind the runtime's tab, surface and page ports. Pages are addressed by
// small stable integers so the rest of the system never sees CDP target ids.
package rod

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/application/port/output"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/pageops"
)

var (
	_ output.TabsPort    = (*Adapter)(nil)
	_ output.SurfacePort = (*Adapter)(nil)
)

type Config struct {
	Headless bool
	// SlowMotion delays each browser action, useful when watching runs live.
	SlowMotion time.Duration
	Trace      bool
	// ElementTimeout bounds every selector lookup.
	ElementTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Headless:       true,
		SlowMotion:     0,
		Trace:          false,
		ElementTimeout: 5 * time.Second,
	}
}

type Adapter struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	engine   *pageops.Engine
	logger   output.LoggerPort
	cfg      Config

	mu       sync.Mutex
	ids      map[proto.TargetTargetID]int
	activeID int
	nextID   int
}

func NewAdapter(ctx context.Context, cfg Config, logger output.LoggerPort) (*Adapter, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Devtools(false).
		NoSandbox(true)

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().
		ControlURL(url).
		Context(ctx).
		Trace(cfg.Trace).
		SlowMotion(cfg.SlowMotion)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	return &Adapter{
		browser:  browser,
		launcher: l,
		engine:   pageops.NewEngine(logger),
		logger:   logger,
		cfg:      cfg,
		ids:      make(map[proto.TargetTargetID]int),
	}, nil
}

func (a *Adapter) Close() {
	if a.browser != nil {
		_ = a.browser.Close()
	}
	if a.launcher != nil {
		a.launcher.Kill()
		a.launcher.Cleanup()
	}
}

// idFor assigns a stable small integer to a CDP target. Ids are never
// reused within one browser session.
func (a *Adapter) idFor(target proto.TargetTargetID) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id, ok := a.ids[target]; ok {
		return id
	}
	a.nextID++
	a.ids[target] = a.nextID
	return a.nextID
}

func (a *Adapter) List(ctx context.Context) ([]entity.TabInfo, error) {
	pages, err := a.browser.Pages()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	a.mu.Lock()
	active := a.activeID
	a.mu.Unlock()

	out := make([]entity.TabInfo, 0, len(pages))
	for _, page := range pages {
		info, err := page.Context(ctx).Info()
		if err != nil {
			continue
		}
		id := a.idFor(info.TargetID)
		out = append(out, entity.TabInfo{
			ID:     id,
			Active: id == active || (active == 0 && len(out) == 0),
			Title:  info.Title,
			URL:    info.URL,
		})
	}
	return out, nil
}

func (a *Adapter) OpenTab(ctx context.Context, url string) (entity.TabInfo, error) {
	page, err := a.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return entity.TabInfo{}, fmt.Errorf("open tab: %w", err)
	}
	info, err := page.Info()
	if err != nil {
		return entity.TabInfo{}, fmt.Errorf("read new tab info: %w", err)
	}

	id := a.idFor(info.TargetID)
	a.mu.Lock()
	a.activeID = id
	a.mu.Unlock()

	return entity.TabInfo{ID: id, Active: true, Title: info.Title, URL: info.URL}, nil
}

func (a *Adapter) ActivateTab(ctx context.Context, tabID int) error {
	page, err := a.pageByID(ctx, tabID)
	if err != nil {
		return err
	}
	if _, err := page.Activate(); err != nil {
		return fmt.Errorf("activate tab %d: %w", tabID, err)
	}
	a.mu.Lock()
	a.activeID = tabID
	a.mu.Unlock()
	return nil
}

func (a *Adapter) Navigate(ctx context.Context, tabID int, url string) error {
	page, err := a.pageByID(ctx, tabID)
	if err != nil {
		return err
	}
	if err := page.Context(ctx).Navigate(url); err != nil {
		return fmt.Errorf("navigate tab %d: %w", tabID, err)
	}
	return nil
}

func (a *Adapter) State(ctx context.Context, tabID int) (entity.TabInfo, bool, error) {
	page, err := a.pageByID(ctx, tabID)
	if err != nil {
		return entity.TabInfo{}, false, err
	}
	info, err := page.Context(ctx).Info()
	if err != nil {
		return entity.TabInfo{}, false, fmt.Errorf("read tab %d info: %w", tabID, err)
	}

	tab := entity.TabInfo{ID: tabID, Title: info.Title, URL: info.URL}

	res, err := page.Context(ctx).Eval(`() => document.readyState`)
	if err != nil {
		return tab, false, nil
	}
	return tab, res.Value.Str() == "complete", nil
}

func (a *Adapter) pageByID(ctx context.Context, tabID int) (*rod.Page, error) {
	pages, err := a.browser.Pages()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	for _, page := range pages {
		info, err := page.Context(ctx).Info()
		if err != nil {
			continue
		}
		if a.idFor(info.TargetID) == tabID {
			return page, nil
		}
	}
	return nil, fmt.Errorf("%w: id %d", entity.ErrTabNotFound, tabID)
}

// PageFor binds the page port to one tab. Exposed for callers that want to
// drive page primitives directly, such as the screenshot path.
func (a *Adapter) PageFor(ctx context.Context, tabID int) (output.PagePort, error) {
	page, err := a.pageByID(ctx, tabID)
	if err != nil {
		return nil, err
	}
	return &tabPage{page: page, timeout: a.cfg.ElementTimeout}, nil
}

// CaptureScreenshot grabs a resized JPEG of the tab. The dispatcher attaches
// it to the results of visual actions.
func (a *Adapter) CaptureScreenshot(ctx context.Context, tabID int) (*entity.Screenshot, error) {
	page, err := a.PageFor(ctx, tabID)
	if err != nil {
		return nil, err
	}
	return page.Screenshot(ctx)
}

const surfaceFlag = "__agent_surface_v1"

// Inject marks the tab as prepared. The flag survives until navigation, so
// repeated injection is a cheap no-op, and its absence after a reload makes
// the dispatcher's retry loop re-prepare the tab.
func (a *Adapter) Inject(ctx context.Context, tabID int) error {
	page, err := a.pageByID(ctx, tabID)
	if err != nil {
		return err
	}
	_, err = page.Context(ctx).Eval(`(flag) => { window[flag] = true; return true }`, surfaceFlag)
	if err != nil {
		return fmt.Errorf("inject into tab %d: %w", tabID, err)
	}
	return nil
}

// Deliver runs one envelope inside the tab. Failures inside the action come
// back as error replies; only transport problems surface as Go errors.
func (a *Adapter) Deliver(ctx context.Context, tabID int, env entity.ActionEnvelope) (entity.SurfaceReply, error) {
	page, err := a.pageByID(ctx, tabID)
	if err != nil {
		return entity.SurfaceReply{}, err
	}

	res, err := page.Context(ctx).Eval(`(flag) => window[flag] === true`, surfaceFlag)
	if err != nil || !res.Value.Bool() {
		return entity.SurfaceReply{}, fmt.Errorf("surface not ready in tab %d", tabID)
	}

	reply := a.engine.Execute(ctx, &tabPage{page: page, timeout: a.cfg.ElementTimeout}, env)
	return reply, nil
}
