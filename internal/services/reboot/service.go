// Package reboot reboots remote hosts of unknown operating system over SSH.
package reboot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fgeck/relops-reboot/internal/models"
	"github.com/fgeck/relops-reboot/internal/services/ssh"
	"github.com/rs/zerolog"
)

var (
	// ErrConfiguration is returned before any network attempt when the input cannot work.
	ErrConfiguration = errors.New("invalid reboot configuration")
	// ErrAllAttemptsFailed is returned when every reboot command failed or timed out.
	ErrAllAttemptsFailed = errors.New("all ssh reboot commands failed")
	// ErrUnreachable is returned when an attempt timed out under the abort policy.
	ErrUnreachable = errors.New("host unreachable")
)

// RebootError reports a failed reboot together with every attempt made.
type RebootError struct {
	Hostname string
	Attempts []models.AttemptResult
	cause    error
}

func (e *RebootError) Error() string {
	if errors.Is(e.cause, ErrUnreachable) {
		return fmt.Sprintf("%s ssh reboot timed out, host unreachable.", e.Hostname)
	}
	return fmt.Sprintf("%s All ssh reboot commands failed.", e.Hostname)
}

func (e *RebootError) Unwrap() error {
	return e.cause
}

// Service defines the interface for reboot operations.
type Service interface {
	Reboot(ctx context.Context, params models.ConnectionParams, commands models.CommandList) (*models.RebootOutcome, error)
}

// Impl implements the reboot Service interface.
type Impl struct {
	transport     ssh.Transport
	timeoutPolicy models.TimeoutPolicy
	logger        zerolog.Logger
}

// New creates a new reboot service using the given transport.
func New(logger zerolog.Logger, transport ssh.Transport, policy models.TimeoutPolicy) *Impl {
	if policy == "" {
		policy = models.TimeoutContinue
	}
	return &Impl{
		transport:     transport,
		timeoutPolicy: policy,
		logger:        logger,
	}
}

// Reboot tries each command in order until one exits zero.
//
// Every failed attempt is recorded. When all commands fail the outcome is
// returned together with a *RebootError wrapping ErrAllAttemptsFailed, or
// ErrUnreachable when the abort policy stopped at a timeout.
func (s *Impl) Reboot(ctx context.Context, params models.ConnectionParams, commands models.CommandList) (*models.RebootOutcome, error) {
	if err := checkInput(params, commands); err != nil {
		return nil, err
	}

	commands = commands.Clone()
	outcome := &models.RebootOutcome{Hostname: params.Hostname}

	s.logger.Debug().
		Str("host", params.Hostname).
		Msgf("ssh reboot with base args: %s", strings.Join(s.transport.BaseArgs(params), " "))

	for _, command := range commands {
		attempt := s.attempt(ctx, params, command)

		// The caller gave up; a failed attempt says nothing about the host.
		if !attempt.ExitSucceeded && ctx.Err() != nil {
			return outcome, ctx.Err()
		}

		outcome.Attempts = append(outcome.Attempts, attempt)

		if attempt.ExitSucceeded {
			outcome.Success = true
			outcome.Output = attempt.Output
			s.logger.Info().
				Str("host", params.Hostname).
				Str("command", command).
				Dur("duration", attempt.Duration).
				Msg("ssh reboot command succeeded")
			return outcome, nil
		}

		s.logger.Info().
			Err(attempt.Error).
			Str("host", params.Hostname).
			Str("command", command).
			Str("kind", attempt.FailureKind.String()).
			Str("output", attempt.Output).
			Msgf("%s ssh reboot with command %s failed", params.Hostname, command)

		if attempt.FailureKind == models.FailureTimeout && s.timeoutPolicy == models.TimeoutAbort {
			return outcome, &RebootError{
				Hostname: params.Hostname,
				Attempts: outcome.Attempts,
				cause:    ErrUnreachable,
			}
		}
	}

	return outcome, &RebootError{
		Hostname: params.Hostname,
		Attempts: outcome.Attempts,
		cause:    ErrAllAttemptsFailed,
	}
}

// attempt runs one command with its own deadline. The transport releases the
// connection before returning, so no attempt overlaps the next one.
func (s *Impl) attempt(ctx context.Context, params models.ConnectionParams, command string) models.AttemptResult {
	attemptCtx, cancel := context.WithTimeout(ctx, params.Timeout)
	defer cancel()

	start := time.Now()
	output, err := s.transport.Run(attemptCtx, params, command)

	result := models.AttemptResult{
		Command:  command,
		Output:   string(output),
		Duration: time.Since(start),
	}

	switch {
	case errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		// A late exit status does not matter once the deadline has passed.
		result.FailureKind = models.FailureTimeout
		result.Error = fmt.Errorf("command %q timed out after %s: %w", command, params.Timeout, context.DeadlineExceeded)
	case err != nil:
		result.FailureKind = models.FailureNonZeroExit
		result.Error = err
	default:
		result.ExitSucceeded = true
		result.FailureKind = models.FailureNone
	}

	return result
}

func checkInput(params models.ConnectionParams, commands models.CommandList) error {
	if err := params.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if len(commands) == 0 {
		return fmt.Errorf("%w: no reboot commands configured", ErrConfiguration)
	}
	if _, err := os.Stat(params.IdentityFile); err != nil {
		return fmt.Errorf("%w: identity file: %w", ErrConfiguration, err)
	}
	return nil
}
