package ssh

import (
	"context"
	"os/exec"
	"time"

	"github.com/fgeck/relops-reboot/internal/models"
	"github.com/rs/zerolog"
)

// waitDelay bounds how long a killed ssh process may hold its output pipes.
const waitDelay = time.Second

// CommandExecutor allows mocking exec.Command in tests.
type CommandExecutor interface {
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DefaultExecutor is the default command executor using os/exec.
type DefaultExecutor struct{}

// Execute runs a command and returns its merged output. The process is killed
// when ctx expires and its pipes are closed at most waitDelay later.
func (e *DefaultExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelay
	return cmd.CombinedOutput()
}

// ExecTransport implements Transport by spawning the OpenSSH client.
type ExecTransport struct {
	executor CommandExecutor
	binary   string
	options  models.TransportOptions
	logger   zerolog.Logger
}

// NewExec creates a transport that runs the given ssh binary.
func NewExec(logger zerolog.Logger, binary string, options models.TransportOptions) *ExecTransport {
	return NewExecWithExecutor(logger, binary, options, &DefaultExecutor{})
}

// NewExecWithExecutor creates an exec transport with a custom executor (for testing).
func NewExecWithExecutor(logger zerolog.Logger, binary string, options models.TransportOptions, executor CommandExecutor) *ExecTransport {
	if binary == "" {
		binary = "ssh"
	}
	return &ExecTransport{
		executor: executor,
		binary:   binary,
		options:  options,
		logger:   logger,
	}
}

// BaseArgs returns the ssh command line without the remote command.
func (t *ExecTransport) BaseArgs(params models.ConnectionParams) []string {
	return BaseArgs(t.binary, params, t.options)
}

// Run spawns one ssh process executing command on the host.
func (t *ExecTransport) Run(ctx context.Context, params models.ConnectionParams, command string) ([]byte, error) {
	args := append(t.BaseArgs(params), command)

	output, err := t.executor.Execute(ctx, args[0], args[1:]...)
	if err != nil && ctx.Err() != nil {
		return output, ctx.Err()
	}
	return output, err
}
