// Package runner owns the run lifecycle: plan, gate, execute, summarize.
// It is the only component that sees a task end to end, and the only one
// allowed to decide that a run is done, stopped or failed.
package runner

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/application/port/output"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/redact"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/riskpolicy"
)

// PlanBuilder is the planning collaborator the runner drives.
type PlanBuilder interface {
	BuildPlan(ctx context.Context, prompt string, tabs []entity.TabInfo, pageContext string, defaultTarget *entity.TargetSpec) (*entity.Plan, error)
}

// StepDispatcher executes one step against its target tabs.
type StepDispatcher interface {
	Dispatch(ctx context.Context, step entity.Step) (entity.StepReport, error)
}

type Config struct {
	// StepPacing is the idle gap between consecutive steps, long enough for
	// pages to settle and short enough not to feel sluggish.
	StepPacing time.Duration
	// ContextMaxChars bounds the page text gathered before planning when the
	// prompt refers to the current page.
	ContextMaxChars int
}

func DefaultConfig() Config {
	return Config{
		StepPacing:      350 * time.Millisecond,
		ContextMaxChars: 3000,
	}
}

type Runner struct {
	planner    PlanBuilder
	dispatcher StepDispatcher
	tabs       output.TabsPort
	approver   output.ApprovalPort
	sink       output.SinkPort
	logger     output.LoggerPort
	registry   *Registry
	cfg        Config
}

func New(
	planner PlanBuilder,
	dispatcher StepDispatcher,
	tabs output.TabsPort,
	approver output.ApprovalPort,
	sink output.SinkPort,
	logger output.LoggerPort,
	registry *Registry,
	cfg Config,
) *Runner {
	return &Runner{
		planner:    planner,
		dispatcher: dispatcher,
		tabs:       tabs,
		approver:   approver,
		sink:       sink,
		logger:     logger,
		registry:   registry,
		cfg:        cfg,
	}
}

// pageContextRe gates pre-planning page analysis: prompts that refer to the
// current page or imply acting on its content get a context snapshot first.
var pageContextRe = regexp.MustCompile(`(?i)\b(this (page|tab|site)|current (page|tab)|the page|on here|analy[sz]e|inspect|scrape|log ?in|sign ?in|fill|submit)\b`)

// Run executes one task end to end and returns its summary. The run is
// registered under runID for the duration of execution so it can be
// cancelled by id, and removed as soon as it finishes. An empty runID gets a
// fresh one.
func (r *Runner) Run(ctx context.Context, runID, prompt string) (entity.RunSummary, error) {
	if runID == "" {
		runID = uuid.NewString()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	run := r.registry.register(runID, cancel)
	defer r.registry.remove(runID)

	summary := entity.RunSummary{RunID: runID, State: entity.RunPlanning}
	run.setState(entity.RunPlanning)
	r.sink.Status(ctx, "planning...")

	tabs, err := r.tabs.List(ctx)
	if err != nil {
		r.logger.Warn("Tab inventory unavailable during planning", "error", err)
		tabs = nil
	}

	pageContext := r.gatherPageContext(ctx, prompt)

	plan, err := r.planner.BuildPlan(ctx, prompt, tabs, pageContext, nil)
	if err != nil {
		if run.Cancelled() {
			return r.finish(ctx, run, summary, entity.RunStopped, "stopped during planning")
		}
		summary.Message = redact.String(err.Error())
		return r.finishErr(ctx, run, summary, fmt.Errorf("planning failed: %w", err))
	}

	r.previewPlan(ctx, plan)

	run.setState(entity.RunExecuting)
	summary.State = entity.RunExecuting

	lastHost := ""
	lastReply := ""
	aborted := false

	for i, step := range plan.Steps {
		if run.Cancelled() || ctx.Err() != nil {
			summary.Skipped += len(plan.Steps) - i
			return r.finish(ctx, run, summary, entity.RunStopped, entity.ErrCancelled.Error())
		}

		if i > 0 {
			if err := pace(ctx, r.cfg.StepPacing); err != nil {
				summary.Skipped += len(plan.Steps) - i
				return r.finish(ctx, run, summary, entity.RunStopped, entity.ErrCancelled.Error())
			}
		}

		if step.Kind == entity.ActionReply {
			lastReply = redact.String(step.Message)
			r.sink.Message(ctx, lastReply)
			summary.Completed++
			continue
		}

		risk := riskpolicy.Classify(step, prompt, lastHost)
		if risk.Level == entity.RiskHigh {
			approved, stopped := r.requestApproval(ctx, run, runID, step, risk)
			if stopped {
				summary.Skipped += len(plan.Steps) - i
				return r.finish(ctx, run, summary, entity.RunStopped, entity.ErrCancelled.Error())
			}
			if !approved {
				r.sink.Status(ctx, entity.ErrApprovalDenied.Error()+": "+describeStep(step))
				summary.Skipped++
				continue
			}
		}

		r.sink.Status(ctx, "executing: "+describeStep(step))
		report, err := r.executeStep(ctx, step)
		if err != nil {
			if run.Cancelled() || ctx.Err() != nil {
				summary.Skipped += len(plan.Steps) - i
				return r.finish(ctx, run, summary, entity.RunStopped, entity.ErrCancelled.Error())
			}
			summary.Failed++
			summary.Skipped += len(plan.Steps) - i - 1
			summary.Message = redact.String(fmt.Sprintf("step %d (%s) failed: %v", i+1, step.Kind, err))
			aborted = true
			break
		}

		if report.OK() {
			summary.Completed++
			if host := successHost(report); host != "" {
				lastHost = host
			}
			continue
		}

		summary.Failed++
		summary.Skipped += len(plan.Steps) - i - 1
		summary.Message = redact.String(fmt.Sprintf("step %d (%s) failed: %s", i+1, step.Kind, report.FirstError()))
		aborted = true
		break
	}

	if run.Cancelled() {
		return r.finish(ctx, run, summary, entity.RunStopped, entity.ErrCancelled.Error())
	}
	if aborted {
		return r.finish(ctx, run, summary, entity.RunFailed, summary.Message)
	}
	if summary.Message == "" {
		summary.Message = lastReply
	}
	return r.finish(ctx, run, summary, entity.RunDone, summary.Message)
}

// executeStep dispatches the step, and for element-resolution failures on
// interactive actions makes one recovery attempt: analyze the page first so
// the injected surface is warm and the DOM has settled, then retry.
func (r *Runner) executeStep(ctx context.Context, step entity.Step) (entity.StepReport, error) {
	report, err := r.dispatcher.Dispatch(ctx, step)
	if err != nil {
		return report, err
	}
	if report.OK() || !recoverable(step, report) {
		return report, nil
	}

	r.logger.Info("Recovering from resolution failure", "action", step.Kind, "error", report.FirstError())
	probe := entity.Step{Kind: entity.ActionAnalyzePage, Target: step.Target}
	if _, perr := r.dispatcher.Dispatch(ctx, probe); perr != nil {
		return report, nil
	}
	retried, err := r.dispatcher.Dispatch(ctx, step)
	if err != nil {
		return report, nil
	}
	return retried, nil
}

// recoverable limits the retry to interactive actions whose failure reads
// like a missed element rather than a page or transport problem.
func recoverable(step entity.Step, report entity.StepReport) bool {
	switch step.Kind {
	case entity.ActionClick, entity.ActionType, entity.ActionFillForm:
	default:
		return false
	}
	return strings.Contains(strings.ToLower(report.FirstError()), "not found")
}

// requestApproval blocks on the approval collaborator. The second return is
// true when the run was stopped while waiting.
func (r *Runner) requestApproval(ctx context.Context, run *Run, runID string, step entity.Step, risk entity.Risk) (approved, stopped bool) {
	req := entity.ApprovalRequest{
		RunID:   runID,
		Summary: redact.String(describeStep(step)),
		Risk:    risk,
	}

	actx, cancel := context.WithTimeout(ctx, risk.ApprovalTimeout)
	defer cancel()

	decision, err := r.approver.Request(actx, req)
	if run.Cancelled() || ctx.Err() != nil {
		return false, true
	}
	if err != nil {
		r.logger.Warn("Approval request not resolved, treating as denied", "error", err)
		return false, false
	}
	return decision.Approved, false
}

// gatherPageContext analyzes the active tab before planning, but only when
// the prompt actually refers to the current page.
func (r *Runner) gatherPageContext(ctx context.Context, prompt string) string {
	if !pageContextRe.MatchString(prompt) {
		return ""
	}

	report, err := r.dispatcher.Dispatch(ctx, entity.Step{
		Kind:     entity.ActionAnalyzePage,
		MaxChars: r.cfg.ContextMaxChars,
		Target:   entity.ActiveTarget(),
	})
	if err != nil {
		r.logger.Debug("Page context gathering failed", "error", err)
		return ""
	}
	for _, res := range report.Results {
		if res.OK() && len(res.Data) > 0 {
			return string(res.Data)
		}
	}
	return ""
}

func (r *Runner) previewPlan(ctx context.Context, plan *entity.Plan) {
	if plan.Analysis != "" {
		r.sink.Status(ctx, redact.String(plan.Analysis))
	}
	for _, todo := range plan.Todos {
		r.sink.Status(ctx, "todo: "+redact.String(todo.Task))
	}
}

func (r *Runner) finish(ctx context.Context, run *Run, summary entity.RunSummary, state entity.RunState, msg string) (entity.RunSummary, error) {
	run.setState(state)
	summary.State = state
	if summary.Message == "" {
		summary.Message = msg
	}
	r.sink.Status(ctx, fmt.Sprintf("run %s: %d completed, %d skipped, %d failed",
		state, summary.Completed, summary.Skipped, summary.Failed))
	return summary, nil
}

func (r *Runner) finishErr(ctx context.Context, run *Run, summary entity.RunSummary, err error) (entity.RunSummary, error) {
	run.setState(entity.RunFailed)
	summary.State = entity.RunFailed
	r.sink.Status(ctx, "run failed: "+redact.String(err.Error()))
	return summary, err
}

// successHost extracts the host of the first successful URL-bearing result,
// feeding the cross-domain risk check of later steps.
func successHost(report entity.StepReport) string {
	for _, res := range report.Results {
		if res.OK() && res.URL != "" {
			return hostOf(res.URL)
		}
	}
	return ""
}

func hostOf(rawURL string) string {
	u := strings.ToLower(rawURL)
	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	for _, sep := range []string{"/", "?", "#", ":"} {
		if i := strings.Index(u, sep); i >= 0 {
			u = u[:i]
		}
	}
	return u
}

// describeStep renders a short human-readable label for status lines and
// approval prompts. Values that could carry secrets go through redaction at
// the call sites.
func describeStep(step entity.Step) string {
	switch step.Kind {
	case entity.ActionReply:
		return "reply"
	case entity.ActionNavigate:
		return "navigate to " + step.URL
	case entity.ActionOpenTab:
		return "open tab " + step.URL
	case entity.ActionSwitchTab:
		return fmt.Sprintf("switch to tab %d", step.TabID)
	case entity.ActionGoogleSearch:
		return "google search " + quoted(step.Query)
	case entity.ActionSearchYouTube:
		return "youtube search " + quoted(step.Query)
	case entity.ActionClick:
		if step.Selector != "" {
			return "click " + step.Selector
		}
		return "click " + quoted(step.Text)
	case entity.ActionType:
		return "type into " + step.Selector
	case entity.ActionFillForm:
		label := fmt.Sprintf("fill %d form fields", len(step.Fields))
		if step.Submit {
			label += " and submit"
		}
		return label + " on " + step.Target.Describe()
	case entity.ActionWait:
		return fmt.Sprintf("wait %dms", step.DurationMS)
	default:
		return string(step.Kind) + " on " + step.Target.Describe()
	}
}

func quoted(s string) string {
	return fmt.Sprintf("%q", s)
}

func pace(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
