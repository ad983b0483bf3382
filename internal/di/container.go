// Package di wires the runtime together: infrastructure adapters on the
// outside, the planner, dispatcher and runner in the middle.
package di

import (
	"context"
	"fmt"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/application/port/output"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/dispatch"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/infrastructure/approval"
	rodinfra "github.com/iamawmrit/rithcon-aiagent-extension/internal/infrastructure/browser/rod"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/infrastructure/httpapi"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/infrastructure/llm/langchain"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/infrastructure/llm/openrouter"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/infrastructure/logger"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/planner"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/runner"
)

type Container struct {
	Browser  *rodinfra.Adapter
	LLM      output.LLMPort
	Logger   output.LoggerPort
	Registry *runner.Registry
	Runner   *runner.Runner
	API      *httpapi.Server
}

type Config struct {
	Credentials     entity.Credentials
	BrowserHeadless bool
	Debug           bool
}

func NewContainer(ctx context.Context, cfg Config) (*Container, error) {
	logCfg := logger.DefaultConfig()
	logCfg.Debug = cfg.Debug
	log, err := logger.NewZapAdapter(logCfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	browserCfg := rodinfra.DefaultConfig()
	browserCfg.Headless = cfg.BrowserHeadless
	browser, err := rodinfra.NewAdapter(ctx, browserCfg, log)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("create browser: %w", err)
	}

	llm, err := newLLM(cfg.Credentials, log)
	if err != nil {
		browser.Close()
		log.Close()
		return nil, err
	}

	plan := planner.New(llm, log)
	disp := dispatch.New(browser, browser, log, dispatch.DefaultConfig())
	registry := runner.NewRegistry()

	run := runner.New(
		plan,
		disp,
		browser,
		approval.NewConsoleApprover(log),
		approval.NewConsoleSink(),
		log,
		registry,
		runner.DefaultConfig(),
	)

	return &Container{
		Browser:  browser,
		LLM:      llm,
		Logger:   log,
		Registry: registry,
		Runner:   run,
		API:      httpapi.NewServer(run, registry, log),
	}, nil
}

func newLLM(creds entity.Credentials, log output.LoggerPort) (output.LLMPort, error) {
	switch creds.Provider {
	case "", "openrouter":
		llmCfg := openrouter.DefaultConfig(creds.APIKey, creds.Model)
		if creds.BaseURL != "" {
			llmCfg.BaseURL = creds.BaseURL
		}
		llmCfg.Logger = log
		return openrouter.NewAdapter(llmCfg), nil
	default:
		return langchain.NewAdapter(creds, log)
	}
}

func (c *Container) Close() {
	if c.Browser != nil {
		c.Browser.Close()
	}
	if c.Logger != nil {
		c.Logger.Close()
	}
}
