package models

import "time"

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// TelegramMessage holds the data for a reboot notification.
type TelegramMessage struct {
	RunID     string
	Success   bool
	Host      string
	StartTime time.Time
	Duration  time.Duration

	// Command that rebooted the host (if successful).
	Command string
	Output  string

	Attempts []AttemptResult

	// Error info (if failed).
	ErrorMessage string
}

// TelegramResult holds the result of a Telegram notification.
type TelegramResult struct {
	MessageSent bool
	Error       error
}
