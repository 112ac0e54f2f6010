package models

import "time"

// Config holds the complete configuration for relops-reboot.
type Config struct {
	Reboot   RebootConfig
	Wait     *WaitConfig     // nil if not configured
	WOL      *WOLConfig      // nil if not configured
	Telegram *TelegramConfig // nil if not configured
}

// RebootConfig holds the connection defaults and fallback behaviour.
type RebootConfig struct {
	LoginName     string
	IdentityFile  string
	Port          int
	Timeout       time.Duration
	Commands      CommandList
	TimeoutPolicy TimeoutPolicy
	Transport     string // "native" (default) or "openssh"
	SSHBinary     string // used by the openssh transport
	Options       TransportOptions
}

// Params builds the connection parameters for a host.
func (c RebootConfig) Params(hostname string) ConnectionParams {
	return ConnectionParams{
		Hostname:     hostname,
		LoginName:    c.LoginName,
		IdentityFile: c.IdentityFile,
		Port:         c.Port,
		Timeout:      c.Timeout,
	}
}

// WaitConfig controls waiting for a host to come back after a reboot.
type WaitConfig struct {
	DownTimeout  time.Duration // max time for the SSH port to stop answering
	UpTimeout    time.Duration // max time for the SSH port to answer again
	PollInterval time.Duration
}

// WaitResult holds the result of waiting for a host.
type WaitResult struct {
	WentDown bool
	CameUp   bool
	Duration time.Duration
	Error    error
}
