package models

import "time"

// WOLConfig holds Wake-on-LAN configuration.
type WOLConfig struct {
	MACAddress  string
	BroadcastIP string
	Timeout     time.Duration // max time to wait for the SSH port after the packet
	// PollInterval is how often the SSH port is probed. Zero skips waiting.
	PollInterval time.Duration
}

// WOLResult holds the result of a Wake-on-LAN operation.
type WOLResult struct {
	PacketSent   bool
	TargetReady  bool
	WaitDuration time.Duration
	Error        error
}
