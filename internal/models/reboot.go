// Package models contains the data structures used throughout relops-reboot.
package models

import (
	"fmt"
	"time"
)

// Connection defaults.
const (
	DefaultPort    = 22
	DefaultTimeout = 5 * time.Second
)

// DefaultRebootCommands is the fallback order used when no commands are configured.
// The "shutdown" variant is for Windows hosts and uses hyphens because it runs
// through a bash shell; the 3 second delay leaves time to read the exit status.
var DefaultRebootCommands = CommandList{"reboot", "shutdown -f -t 3 -r"}

// CommandList is an ordered list of reboot commands. The first entry is always tried first.
type CommandList []string

// Clone returns a copy so callers cannot mutate a shared list.
func (c CommandList) Clone() CommandList {
	out := make(CommandList, len(c))
	copy(out, c)
	return out
}

// ConnectionParams holds the parameters for a single reboot invocation.
type ConnectionParams struct {
	Hostname     string
	LoginName    string
	IdentityFile string        // path to the private key
	Port         int           // 1-65535
	Timeout      time.Duration // per attempt
}

// Validate checks the value ranges. The hostname itself is validated by the caller.
func (p ConnectionParams) Validate() error {
	if p.Hostname == "" {
		return fmt.Errorf("hostname is required")
	}
	if p.LoginName == "" {
		return fmt.Errorf("login name is required")
	}
	if p.IdentityFile == "" {
		return fmt.Errorf("identity file is required")
	}
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", p.Port)
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", p.Timeout)
	}
	return nil
}

// FailureKind classifies a failed attempt.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureNonZeroExit
	FailureTimeout
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureNonZeroExit:
		return "non_zero_exit"
	case FailureTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// AttemptResult holds the result of running one reboot command.
type AttemptResult struct {
	Command       string
	ExitSucceeded bool
	Output        string // stdout and stderr merged
	FailureKind   FailureKind
	Error         error
	Duration      time.Duration
}

// RebootOutcome holds the result of a reboot invocation.
type RebootOutcome struct {
	Hostname string
	Success  bool
	Output   string // output of the successful attempt
	Attempts []AttemptResult
}

// SuccessfulCommand returns the command that rebooted the host, if any.
func (o *RebootOutcome) SuccessfulCommand() string {
	if o == nil || !o.Success || len(o.Attempts) == 0 {
		return ""
	}
	return o.Attempts[len(o.Attempts)-1].Command
}

// TimeoutPolicy decides what happens after an attempt times out.
type TimeoutPolicy string

const (
	// TimeoutContinue tries the next command after a timeout.
	TimeoutContinue TimeoutPolicy = "continue"
	// TimeoutAbort stops at the first timeout and reports the host as unreachable.
	TimeoutAbort TimeoutPolicy = "abort"
)

// TransportOptions are the fixed SSH options applied to every attempt.
type TransportOptions struct {
	KeepAliveInterval time.Duration
	LogLevel          string
	// InsecureAcceptAnyHostKey disables host key verification and does not
	// persist known hosts. Host identity is not pinned, so a man in the middle
	// on the management network goes undetected. Set to false together with
	// KnownHostsFile to verify host keys.
	InsecureAcceptAnyHostKey bool
	KnownHostsFile           string
}

// DefaultTransportOptions returns the options every attempt uses unless overridden.
func DefaultTransportOptions() TransportOptions {
	return TransportOptions{
		KeepAliveInterval:        2 * time.Second,
		LogLevel:                 "ERROR",
		InsecureAcceptAnyHostKey: true,
	}
}
