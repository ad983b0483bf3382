package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/di"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/infrastructure/env"
)

func main() {
	envService := env.NewService()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	container, err := di.NewContainer(ctx, di.Config{
		Credentials: entity.Credentials{
			APIKey:   envService.MustGet("LLM_API_KEY"),
			Provider: envService.GetDefault("LLM_PROVIDER", "openrouter"),
			Model:    envService.MustGet("LLM_MODEL"),
			BaseURL:  envService.Get("LLM_BASE_URL"),
		},
		BrowserHeadless: envService.GetBool("BROWSER_HEADLESS", true),
		Debug:           envService.GetBool("DEBUG", false),
	})
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}
	defer container.Close()

	if addr := envService.Get("HTTP_ADDR"); addr != "" {
		serve(ctx, container, addr)
		return
	}

	runOnce(ctx, container, envService.GetDuration("TASK_TIMEOUT", 30*time.Minute))
}

// serve runs the HTTP command surface until the process is signalled.
func serve(ctx context.Context, container *di.Container, addr string) {
	server := &http.Server{
		Addr:    addr,
		Handler: container.API.Handler("agent"),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	container.Logger.Info("HTTP API listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("http server failed: %v", err)
	}
}

// runOnce reads one task from stdin and executes it to completion.
func runOnce(ctx context.Context, container *di.Container, timeout time.Duration) {
	fmt.Println("\nEnter a task for the agent:")
	reader := bufio.NewReader(os.Stdin)
	task, err := reader.ReadString('\n')
	if err != nil {
		log.Fatalf("read input: %v", err)
	}
	task = strings.TrimSpace(task)
	if task == "" {
		log.Fatal("empty task")
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	container.Logger.Info("Task started", "task", task)
	summary, err := container.Runner.Run(runCtx, "", task)
	if err != nil {
		container.Logger.Error("Task failed", "error", err)
		fmt.Printf("\nrun failed: %v\n", err)
		os.Exit(1)
	}

	container.Logger.Info("Task finished",
		"state", summary.State,
		"completed", summary.Completed,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	fmt.Printf("\n%s (%d completed, %d skipped, %d failed)\n",
		summary.State, summary.Completed, summary.Skipped, summary.Failed)
	if summary.Message != "" {
		fmt.Println(summary.Message)
	}
}
