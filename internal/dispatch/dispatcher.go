// Package dispatch routes sanitized steps onto live browser tabs: it expands
// target specs into tab sets, fans content actions out per tab, and shields
// callers from the flakiness of freshly navigated pages with bounded waits
// and retries.
package dispatch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/application/port/output"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
)

type Config struct {
	// TabReadyTimeout bounds the wait for a tab to finish loading before an
	// action runs in it. On timeout the action proceeds with the best known
	// tab state rather than failing.
	TabReadyTimeout time.Duration
	TabReadyPoll    time.Duration

	// ContentTimeout bounds a single injected round trip. Each retry
	// attempt gets a fresh budget.
	ContentTimeout time.Duration

	TransientRetries int
	TransientBackoff time.Duration
}

func DefaultConfig() Config {
	return Config{
		TabReadyTimeout:  4500 * time.Millisecond,
		TabReadyPoll:     120 * time.Millisecond,
		ContentTimeout:   20 * time.Second,
		TransientRetries: 8,
		TransientBackoff: 180 * time.Millisecond,
	}
}

// Screenshotter is an optional surface capability: capturing a resized
// image of a tab. Detected at construction; absent on surfaces that cannot
// render.
type Screenshotter interface {
	CaptureScreenshot(ctx context.Context, tabID int) (*entity.Screenshot, error)
}

type Dispatcher struct {
	tabs    output.TabsPort
	surface output.SurfacePort
	shots   Screenshotter
	logger  output.LoggerPort
	cfg     Config
}

func New(tabs output.TabsPort, surface output.SurfacePort, logger output.LoggerPort, cfg Config) *Dispatcher {
	d := &Dispatcher{tabs: tabs, surface: surface, logger: logger, cfg: cfg}
	if s, ok := surface.(Screenshotter); ok {
		d.shots = s
	}
	return d
}

// Dispatch executes one step against its resolved tabs and reports per-tab
// outcomes. A step dispatched to N tabs always yields N results, and the
// report counts as success when at least one tab succeeded.
func (d *Dispatcher) Dispatch(ctx context.Context, step entity.Step) (entity.StepReport, error) {
	report := entity.StepReport{Step: step}

	switch {
	case step.Kind == entity.ActionWait:
		if err := d.sleep(ctx, time.Duration(step.DurationMS)*time.Millisecond); err != nil {
			return report, err
		}
		report.Results = []entity.TabResult{{Status: entity.StatusSuccess,
			Detail: fmt.Sprintf("waited %dms", step.DurationMS)}}
		return report, nil

	case step.Kind == entity.ActionOpenTab:
		tab, err := d.tabs.OpenTab(ctx, step.URL)
		if err != nil {
			return report, fmt.Errorf("open tab: %w", err)
		}
		report.Results = []entity.TabResult{{TabID: tab.ID, URL: step.URL,
			Status: entity.StatusSuccess, Detail: "opened " + step.URL}}
		return report, nil

	case step.Kind == entity.ActionSwitchTab:
		if err := d.tabs.ActivateTab(ctx, step.TabID); err != nil {
			return report, fmt.Errorf("switch to tab %d: %w", step.TabID, err)
		}
		report.Results = []entity.TabResult{{TabID: step.TabID,
			Status: entity.StatusSuccess, Detail: fmt.Sprintf("switched to tab %d", step.TabID)}}
		return report, nil

	case step.Kind.NavigationClass():
		return d.dispatchNavigation(ctx, step)

	case step.Kind.ContentClass():
		return d.dispatchContent(ctx, step)
	}

	return report, fmt.Errorf("step kind %q is not dispatchable", step.Kind)
}

func (d *Dispatcher) dispatchNavigation(ctx context.Context, step entity.Step) (entity.StepReport, error) {
	report := entity.StepReport{Step: step}

	dest := step.URL
	switch step.Kind {
	case entity.ActionGoogleSearch:
		dest = "https://www.google.com/search?q=" + url.QueryEscape(step.Query)
	case entity.ActionSearchYouTube:
		dest = "https://www.youtube.com/results?search_query=" + url.QueryEscape(step.Query)
	}

	targets, err := d.ResolveTargets(ctx, step.Target)
	if err != nil {
		return report, err
	}

	for _, tab := range targets {
		res := entity.TabResult{TabID: tab.ID, Title: tab.Title, URL: tab.URL}
		if err := d.tabs.Navigate(ctx, tab.ID, dest); err != nil {
			res.Status = entity.StatusError
			res.Detail = fmt.Sprintf("navigate to %s: %v", dest, err)
		} else {
			observed := d.waitReady(ctx, entity.TabInfo{ID: tab.ID, Title: tab.Title, URL: dest})
			res.Status = entity.StatusSuccess
			res.Detail = "navigated to " + dest
			res.Title = observed.Title
			res.URL = observed.URL
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

// dispatchContent fans one content action out to every target tab
// concurrently and collects all results before returning.
func (d *Dispatcher) dispatchContent(ctx context.Context, step entity.Step) (entity.StepReport, error) {
	report := entity.StepReport{Step: step}

	targets, err := d.ResolveTargets(ctx, step.Target)
	if err != nil {
		return report, err
	}

	env := entity.EnvelopeForStep(step)
	results := make([]entity.TabResult, len(targets))

	var wg sync.WaitGroup
	for i, tab := range targets {
		wg.Add(1)
		go func(i int, tab entity.TabInfo) {
			defer wg.Done()
			results[i] = d.deliverToTab(ctx, tab, env)
		}(i, tab)
	}
	wg.Wait()

	report.Results = results
	return report, nil
}

func (d *Dispatcher) deliverToTab(ctx context.Context, tab entity.TabInfo, env entity.ActionEnvelope) entity.TabResult {
	res := entity.TabResult{TabID: tab.ID, Title: tab.Title, URL: tab.URL}

	if restrictedURL(tab.URL) {
		res.Status = entity.StatusError
		res.Detail = entity.ErrRestrictedPage.Error()
		return res
	}

	tab = d.waitReady(ctx, tab)
	res.Title, res.URL = tab.Title, tab.URL

	// Re-check after the wait: the tab may have landed on an internal page.
	if restrictedURL(tab.URL) {
		res.Status = entity.StatusError
		res.Detail = entity.ErrRestrictedPage.Error()
		return res
	}

	reply, err := d.deliverWithRetry(ctx, tab.ID, env)
	if err != nil {
		res.Status = entity.StatusError
		res.Detail = err.Error()
		return res
	}

	res.Status = reply.Status
	res.Detail = reply.Detail
	res.Data = reply.Data

	if env.Action == entity.ActionVisualizePage && reply.OK() && d.shots != nil {
		if shot, err := d.shots.CaptureScreenshot(ctx, tab.ID); err == nil {
			res.Screenshot = shot
		} else {
			d.logger.Debug("Screenshot capture failed", "tab_id", tab.ID, "error", err)
		}
	}
	return res
}

// waitReady polls the tab until it reports a ready state or the budget runs
// out. Timing out is not an error: the freshest observed state is returned
// and the action proceeds best-effort.
func (d *Dispatcher) waitReady(ctx context.Context, tab entity.TabInfo) entity.TabInfo {
	deadline := time.Now().Add(d.cfg.TabReadyTimeout)
	best := tab

	for {
		info, ready, err := d.tabs.State(ctx, tab.ID)
		if err == nil {
			best = info
			if ready {
				return best
			}
		}
		if time.Now().After(deadline) {
			d.logger.Debug("Tab readiness wait timed out", "tab_id", tab.ID, "url", best.URL)
			return best
		}
		if sleepErr := d.sleep(ctx, d.cfg.TabReadyPoll); sleepErr != nil {
			return best
		}
	}
}

// deliverWithRetry injects the execution surface and delivers the envelope,
// retrying transient delivery failures with a fixed backoff. Inject is
// idempotent so repeating it on retry is safe.
func (d *Dispatcher) deliverWithRetry(ctx context.Context, tabID int, env entity.ActionEnvelope) (entity.SurfaceReply, error) {
	var lastErr error

	for attempt := 1; attempt <= d.cfg.TransientRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return entity.SurfaceReply{}, err
		}

		reply, err := d.attemptDelivery(ctx, tabID, env)
		if err == nil {
			return reply, nil
		}
		lastErr = err

		if !isTransient(lastErr) {
			return entity.SurfaceReply{}, lastErr
		}
		d.logger.Debug("Transient delivery failure", "tab_id", tabID, "attempt", attempt, "error", lastErr)
		if err := d.sleep(ctx, d.cfg.TransientBackoff); err != nil {
			return entity.SurfaceReply{}, lastErr
		}
	}
	return entity.SurfaceReply{}, lastErr
}

// attemptDelivery runs one inject-and-deliver round trip under its own
// timeout budget.
func (d *Dispatcher) attemptDelivery(ctx context.Context, tabID int, env entity.ActionEnvelope) (entity.SurfaceReply, error) {
	rtCtx, cancel := context.WithTimeout(ctx, d.cfg.ContentTimeout)
	defer cancel()

	if err := d.surface.Inject(rtCtx, tabID); err != nil {
		return entity.SurfaceReply{}, fmt.Errorf("inject into tab %d: %w", tabID, err)
	}
	reply, err := d.surface.Deliver(rtCtx, tabID, env)
	if err != nil {
		return entity.SurfaceReply{}, fmt.Errorf("deliver to tab %d: %w", tabID, err)
	}
	return reply, nil
}

// transientMarkers match the failure modes of a surface that is still being
// set up in a freshly loaded tab. A timed-out round trip retries too; the
// next attempt gets a fresh budget.
var transientMarkers = []string{
	"could not establish connection",
	"receiving end does not exist",
	"message port closed",
	"surface not ready",
	"not yet injected",
	"loading",
	"context deadline exceeded",
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func (d *Dispatcher) sleep(ctx context.Context, dur time.Duration) error {
	if dur <= 0 {
		return nil
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
