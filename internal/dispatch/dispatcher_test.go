package dispatch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/application/port/output"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)                      {}
func (nopLogger) Info(string, ...any)                       {}
func (nopLogger) Warn(string, ...any)                       {}
func (nopLogger) Error(string, ...any)                      {}
func (l nopLogger) WithField(string, any) output.LoggerPort { return l }
func (nopLogger) Close() error                              { return nil }

type fakeTabs struct {
	mu         sync.Mutex
	tabs       []entity.TabInfo
	navigated  map[int]string
	activated  []int
	nextID     int
	notReady   map[int]bool
	stateCalls int
}

func newFakeTabs(tabs ...entity.TabInfo) *fakeTabs {
	return &fakeTabs{tabs: tabs, navigated: map[int]string{}, notReady: map[int]bool{}, nextID: 100}
}

func (f *fakeTabs) List(context.Context) ([]entity.TabInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entity.TabInfo, len(f.tabs))
	copy(out, f.tabs)
	return out, nil
}

func (f *fakeTabs) OpenTab(_ context.Context, url string) (entity.TabInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	tab := entity.TabInfo{ID: f.nextID, URL: url, Active: true}
	f.tabs = append(f.tabs, tab)
	return tab, nil
}

func (f *fakeTabs) ActivateTab(_ context.Context, tabID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tabs {
		if t.ID == tabID {
			f.activated = append(f.activated, tabID)
			return nil
		}
	}
	return entity.ErrTabNotFound
}

func (f *fakeTabs) Navigate(_ context.Context, tabID int, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigated[tabID] = url
	for i := range f.tabs {
		if f.tabs[i].ID == tabID {
			f.tabs[i].URL = url
		}
	}
	return nil
}

func (f *fakeTabs) State(_ context.Context, tabID int) (entity.TabInfo, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateCalls++
	for _, t := range f.tabs {
		if t.ID == tabID {
			return t, !f.notReady[tabID], nil
		}
	}
	return entity.TabInfo{}, false, entity.ErrTabNotFound
}

var _ output.TabsPort = (*fakeTabs)(nil)

type fakeSurface struct {
	mu        sync.Mutex
	injected  map[int]int
	delivered map[int]int
	failFirst map[int]int
	hangFirst int
	failErr   error
	reply     entity.SurfaceReply
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		injected:  map[int]int{},
		delivered: map[int]int{},
		failFirst: map[int]int{},
		reply:     entity.SuccessReply("done"),
	}
}

func (f *fakeSurface) Inject(_ context.Context, tabID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.injected[tabID]++
	return nil
}

func (f *fakeSurface) Deliver(ctx context.Context, tabID int, _ entity.ActionEnvelope) (entity.SurfaceReply, error) {
	f.mu.Lock()
	f.delivered[tabID]++
	hang := f.hangFirst > 0
	if hang {
		f.hangFirst--
	}
	fail := f.failFirst[tabID] > 0
	if fail {
		f.failFirst[tabID]--
	}
	failErr, reply := f.failErr, f.reply
	f.mu.Unlock()

	if hang {
		<-ctx.Done()
		return entity.SurfaceReply{}, ctx.Err()
	}
	if fail {
		return entity.SurfaceReply{}, failErr
	}
	return reply, nil
}

var _ output.SurfacePort = (*fakeSurface)(nil)

func testConfig() Config {
	return Config{
		TabReadyTimeout:  40 * time.Millisecond,
		TabReadyPoll:     5 * time.Millisecond,
		ContentTimeout:   500 * time.Millisecond,
		TransientRetries: 8,
		TransientBackoff: time.Millisecond,
	}
}

func newDispatcher(tabs *fakeTabs, surface output.SurfacePort) *Dispatcher {
	return New(tabs, surface, nopLogger{}, testConfig())
}

func inventory() *fakeTabs {
	return newFakeTabs(
		entity.TabInfo{ID: 1, URL: "https://news.ycombinator.com/item?id=1", Title: "HN"},
		entity.TabInfo{ID: 2, URL: "https://mail.google.com/inbox", Title: "Mail", Active: true},
		entity.TabInfo{ID: 3, URL: "https://docs.google.com/doc", Title: "Doc"},
	)
}

func TestResolveTargets_DefaultsToActive(t *testing.T) {
	d := newDispatcher(inventory(), newFakeSurface())

	got, err := d.ResolveTargets(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].ID)
}

func TestResolveTargets_NoActiveFallsBackToFirst(t *testing.T) {
	tabs := newFakeTabs(
		entity.TabInfo{ID: 7, URL: "https://a.test"},
		entity.TabInfo{ID: 8, URL: "https://b.test"},
	)
	d := newDispatcher(tabs, newFakeSurface())

	got, err := d.ResolveTargets(context.Background(), entity.ActiveTarget())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 7, got[0].ID)
}

func TestResolveTargets_All(t *testing.T) {
	d := newDispatcher(inventory(), newFakeSurface())

	got, err := d.ResolveTargets(context.Background(), &entity.TargetSpec{Mode: entity.TargetAll})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestResolveTargets_TabID(t *testing.T) {
	d := newDispatcher(inventory(), newFakeSurface())

	got, err := d.ResolveTargets(context.Background(), &entity.TargetSpec{Mode: entity.TargetTabID, TabID: 3})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].ID)

	_, err = d.ResolveTargets(context.Background(), &entity.TargetSpec{Mode: entity.TargetTabID, TabID: 99})
	assert.ErrorIs(t, err, entity.ErrTabNotFound)
}

func TestResolveTargets_DomainMatchesSubdomains(t *testing.T) {
	d := newDispatcher(inventory(), newFakeSurface())

	got, err := d.ResolveTargets(context.Background(), &entity.TargetSpec{Mode: entity.TargetDomain, Value: "google.com"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].ID)
	assert.Equal(t, 3, got[1].ID)
}

func TestResolveTargets_DomainNoMatch(t *testing.T) {
	d := newDispatcher(inventory(), newFakeSurface())

	_, err := d.ResolveTargets(context.Background(), &entity.TargetSpec{Mode: entity.TargetDomain, Value: "example.org"})
	assert.ErrorIs(t, err, entity.ErrNoTargetTabs)
}

func TestResolveTargets_URLContains(t *testing.T) {
	d := newDispatcher(inventory(), newFakeSurface())

	got, err := d.ResolveTargets(context.Background(), &entity.TargetSpec{Mode: entity.TargetURLContains, Value: "ycombinator"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].ID)
}

func TestResolveTargets_EmptyInventory(t *testing.T) {
	d := newDispatcher(newFakeTabs(), newFakeSurface())

	_, err := d.ResolveTargets(context.Background(), nil)
	assert.ErrorIs(t, err, entity.ErrNoTargetTabs)
}

func TestDispatch_WaitSleepsAndSucceeds(t *testing.T) {
	d := newDispatcher(inventory(), newFakeSurface())

	start := time.Now()
	report, err := d.Dispatch(context.Background(), entity.Step{Kind: entity.ActionWait, DurationMS: 30})
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestDispatch_WaitHonorsCancellation(t *testing.T) {
	d := newDispatcher(inventory(), newFakeSurface())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := d.Dispatch(ctx, entity.Step{Kind: entity.ActionWait, DurationMS: 5000})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDispatch_OpenTab(t *testing.T) {
	tabs := inventory()
	d := newDispatcher(tabs, newFakeSurface())

	report, err := d.Dispatch(context.Background(), entity.Step{Kind: entity.ActionOpenTab, URL: "https://example.com"})
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Len(t, tabs.tabs, 4)
}

func TestDispatch_SwitchTab(t *testing.T) {
	tabs := inventory()
	d := newDispatcher(tabs, newFakeSurface())

	report, err := d.Dispatch(context.Background(), entity.Step{Kind: entity.ActionSwitchTab, TabID: 3})
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, []int{3}, tabs.activated)

	_, err = d.Dispatch(context.Background(), entity.Step{Kind: entity.ActionSwitchTab, TabID: 42})
	assert.ErrorIs(t, err, entity.ErrTabNotFound)
}

func TestDispatch_GoogleSearchBuildsEscapedURL(t *testing.T) {
	tabs := inventory()
	d := newDispatcher(tabs, newFakeSurface())

	report, err := d.Dispatch(context.Background(), entity.Step{
		Kind:   entity.ActionGoogleSearch,
		Query:  "best go http router",
		Target: entity.ActiveTarget(),
	})
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, "https://www.google.com/search?q=best+go+http+router", tabs.navigated[2])
}

func TestDispatch_YouTubeSearchBuildsURL(t *testing.T) {
	tabs := inventory()
	d := newDispatcher(tabs, newFakeSurface())

	_, err := d.Dispatch(context.Background(), entity.Step{
		Kind:   entity.ActionSearchYouTube,
		Query:  "funny cat videos",
		Target: entity.ActiveTarget(),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/results?search_query=funny+cat+videos", tabs.navigated[2])
}

func TestDispatch_NavigateAllTabs(t *testing.T) {
	tabs := inventory()
	d := newDispatcher(tabs, newFakeSurface())

	report, err := d.Dispatch(context.Background(), entity.Step{
		Kind:   entity.ActionNavigate,
		URL:    "https://example.com",
		Target: &entity.TargetSpec{Mode: entity.TargetAll},
	})
	require.NoError(t, err)
	assert.Len(t, report.Results, 3)
	assert.Len(t, tabs.navigated, 3)
}

func TestDispatch_NavigationWaitsForReadiness(t *testing.T) {
	tabs := inventory()
	tabs.notReady[2] = true
	d := newDispatcher(tabs, newFakeSurface())

	start := time.Now()
	report, err := d.Dispatch(context.Background(), entity.Step{
		Kind:   entity.ActionNavigate,
		URL:    "https://example.com",
		Target: entity.ActiveTarget(),
	})
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.GreaterOrEqual(t, time.Since(start), testConfig().TabReadyTimeout)

	tabs.mu.Lock()
	polled := tabs.stateCalls
	tabs.mu.Unlock()
	assert.Greater(t, polled, 0)
}

func TestDispatch_NavigationReportsObservedState(t *testing.T) {
	tabs := inventory()
	d := newDispatcher(tabs, newFakeSurface())

	report, err := d.Dispatch(context.Background(), entity.Step{
		Kind:   entity.ActionNavigate,
		URL:    "https://example.com/landing",
		Target: entity.ActiveTarget(),
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "https://example.com/landing", report.Results[0].URL)
	assert.Equal(t, "Mail", report.Results[0].Title)
}

func TestDispatch_ContentFansOutPerTab(t *testing.T) {
	tabs := inventory()
	surface := newFakeSurface()
	d := newDispatcher(tabs, surface)

	report, err := d.Dispatch(context.Background(), entity.Step{
		Kind:   entity.ActionAnalyzePage,
		Target: &entity.TargetSpec{Mode: entity.TargetAll},
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 3)
	assert.True(t, report.OK())
	for _, id := range []int{1, 2, 3} {
		assert.Equal(t, 1, surface.delivered[id], "tab %d", id)
	}
}

func TestDispatch_RestrictedTabFailsOthersProceed(t *testing.T) {
	tabs := newFakeTabs(
		entity.TabInfo{ID: 1, URL: "chrome://settings"},
		entity.TabInfo{ID: 2, URL: "https://example.com", Active: true},
	)
	surface := newFakeSurface()
	d := newDispatcher(tabs, surface)

	report, err := d.Dispatch(context.Background(), entity.Step{
		Kind:   entity.ActionScrapePage,
		Target: &entity.TargetSpec{Mode: entity.TargetAll},
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.True(t, report.OK())

	byTab := map[int]entity.TabResult{}
	for _, r := range report.Results {
		byTab[r.TabID] = r
	}
	assert.Equal(t, entity.StatusError, byTab[1].Status)
	assert.Contains(t, byTab[1].Detail, "restricted")
	assert.Equal(t, entity.StatusSuccess, byTab[2].Status)
	assert.Zero(t, surface.delivered[1])
}

func TestDispatch_TransientDeliveryRetries(t *testing.T) {
	tabs := inventory()
	surface := newFakeSurface()
	surface.failFirst[2] = 2
	surface.failErr = fmt.Errorf("could not establish connection with tab")
	d := newDispatcher(tabs, surface)

	report, err := d.Dispatch(context.Background(), entity.Step{
		Kind:   entity.ActionClick,
		Text:   "More",
		Target: entity.ActiveTarget(),
	})
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 3, surface.delivered[2])
}

func TestDispatch_NonTransientFailsImmediately(t *testing.T) {
	tabs := inventory()
	surface := newFakeSurface()
	surface.failFirst[2] = 1
	surface.failErr = fmt.Errorf("permission denied")
	d := newDispatcher(tabs, surface)

	report, err := d.Dispatch(context.Background(), entity.Step{
		Kind:   entity.ActionClick,
		Text:   "More",
		Target: entity.ActiveTarget(),
	})
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.Equal(t, 1, surface.delivered[2])
	assert.Contains(t, report.FirstError(), "permission denied")
}

func TestDispatch_TransientGivesUpAfterBudget(t *testing.T) {
	tabs := inventory()
	surface := newFakeSurface()
	surface.failFirst[2] = 50
	surface.failErr = fmt.Errorf("receiving end does not exist")
	d := newDispatcher(tabs, surface)

	report, err := d.Dispatch(context.Background(), entity.Step{
		Kind:   entity.ActionClick,
		Text:   "More",
		Target: entity.ActiveTarget(),
	})
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.Equal(t, testConfig().TransientRetries, surface.delivered[2])
}

func TestDispatch_DeliveryTimeoutRetriesWithFreshBudget(t *testing.T) {
	tabs := inventory()
	surface := newFakeSurface()
	surface.hangFirst = 1
	cfg := testConfig()
	cfg.ContentTimeout = 20 * time.Millisecond
	d := New(tabs, surface, nopLogger{}, cfg)

	report, err := d.Dispatch(context.Background(), entity.Step{
		Kind:   entity.ActionClick,
		Text:   "More",
		Target: entity.ActiveTarget(),
	})
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 2, surface.delivered[2])
}

func TestDispatch_NotReadyTabProceedsAfterBudget(t *testing.T) {
	tabs := inventory()
	tabs.notReady[2] = true
	surface := newFakeSurface()
	d := newDispatcher(tabs, surface)

	start := time.Now()
	report, err := d.Dispatch(context.Background(), entity.Step{
		Kind:   entity.ActionAnalyzePage,
		Target: entity.ActiveTarget(),
	})
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.GreaterOrEqual(t, time.Since(start), testConfig().TabReadyTimeout)
	assert.Equal(t, 1, surface.delivered[2])
}

type screenshotSurface struct {
	*fakeSurface
	mu       sync.Mutex
	captured []int
}

func (s *screenshotSurface) CaptureScreenshot(_ context.Context, tabID int) (*entity.Screenshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captured = append(s.captured, tabID)
	return &entity.Screenshot{Format: "jpeg", Width: 800, Height: 600}, nil
}

func TestDispatch_VisualizeAttachesScreenshot(t *testing.T) {
	tabs := inventory()
	surface := &screenshotSurface{fakeSurface: newFakeSurface()}
	d := newDispatcher(tabs, surface)

	report, err := d.Dispatch(context.Background(), entity.Step{
		Kind:   entity.ActionVisualizePage,
		Target: entity.ActiveTarget(),
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	require.NotNil(t, report.Results[0].Screenshot)
	assert.Equal(t, "jpeg", report.Results[0].Screenshot.Format)
	assert.Equal(t, []int{2}, surface.captured)
}

func TestDispatch_NonVisualActionsSkipScreenshot(t *testing.T) {
	tabs := inventory()
	surface := &screenshotSurface{fakeSurface: newFakeSurface()}
	d := newDispatcher(tabs, surface)

	report, err := d.Dispatch(context.Background(), entity.Step{
		Kind:   entity.ActionAnalyzePage,
		Target: entity.ActiveTarget(),
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Nil(t, report.Results[0].Screenshot)
	assert.Empty(t, surface.captured)
}

func TestDispatch_ReplyIsNotDispatchable(t *testing.T) {
	d := newDispatcher(inventory(), newFakeSurface())

	_, err := d.Dispatch(context.Background(), entity.Step{Kind: entity.ActionReply, Message: "hi"})
	assert.Error(t, err)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(fmt.Errorf("Could not establish connection. Receiving end does not exist.")))
	assert.True(t, isTransient(fmt.Errorf("the message port closed before a response was received")))
	assert.True(t, isTransient(fmt.Errorf("deliver to tab 2: %w", context.DeadlineExceeded)))
	assert.False(t, isTransient(context.Canceled))
	assert.False(t, isTransient(fmt.Errorf("element not found")))
	assert.False(t, isTransient(nil))
}

func TestRestrictedURL(t *testing.T) {
	for _, u := range []string{
		"chrome://extensions", "chrome-extension://abc/page.html", "about:blank",
		"devtools://devtools/bundled", "view-source:https://x.test", "edge://settings",
	} {
		assert.True(t, restrictedURL(u), u)
	}
	assert.False(t, restrictedURL("https://example.com/about:blank"))
	assert.False(t, restrictedURL("http://localhost:3000"))
}
