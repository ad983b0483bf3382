// Package approval implements the human-in-the-loop surfaces on the console:
// approval prompts for high-risk steps and the status/message sink.
package approval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/application/port/output"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
)

var _ output.ApprovalPort = (*ConsoleApprover)(nil)

// ConsoleApprover asks the operator to confirm a high-risk step. The answer
// races against the risk-scaled timeout carried by the request; silence is a
// denial.
type ConsoleApprover struct {
	in     io.Reader
	logger output.LoggerPort
}

func NewConsoleApprover(logger output.LoggerPort) *ConsoleApprover {
	return &ConsoleApprover{in: os.Stdin, logger: logger}
}

func (a *ConsoleApprover) Request(ctx context.Context, req entity.ApprovalRequest) (entity.ApprovalDecision, error) {
	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Printf("\n[APPROVAL REQUIRED] %s\n", req.Summary)
	for _, reason := range req.Risk.Reasons {
		color.New(color.Faint).Printf("  - %s\n", reason)
	}
	fmt.Printf("Approve? [y/N] (auto-deny in %s): ", req.Risk.ApprovalTimeout)

	answers := make(chan string, 1)
	go func() {
		line, err := bufio.NewReader(a.in).ReadString('\n')
		if err != nil {
			return
		}
		answers <- strings.ToLower(strings.TrimSpace(line))
	}()

	select {
	case <-ctx.Done():
		if a.logger != nil {
			a.logger.Info("Approval timed out or cancelled", "run_id", req.RunID)
		}
		return entity.ApprovalDecision{Approved: false, Reason: "no answer before timeout"}, nil
	case answer := <-answers:
		if answer == "y" || answer == "yes" {
			return entity.ApprovalDecision{Approved: true}, nil
		}
		return entity.ApprovalDecision{Approved: false, Reason: "denied by operator"}, nil
	}
}

var _ output.SinkPort = (*ConsoleSink)(nil)

// ConsoleSink renders run output for the operator. Status lines are dim,
// agent messages stand out.
type ConsoleSink struct{}

func NewConsoleSink() *ConsoleSink { return &ConsoleSink{} }

func (s *ConsoleSink) Status(_ context.Context, text string) {
	color.New(color.Faint).Printf("  %s\n", text)
}

func (s *ConsoleSink) Message(_ context.Context, text string) {
	color.New(color.FgGreen, color.Bold).Printf("\n%s\n", text)
}
