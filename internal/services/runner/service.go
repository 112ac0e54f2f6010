// Package runner orchestrates the reboot workflow around the reboot service.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/fgeck/relops-reboot/internal/config"
	"github.com/fgeck/relops-reboot/internal/models"
	"github.com/fgeck/relops-reboot/internal/services/reboot"
	"github.com/fgeck/relops-reboot/internal/services/ssh"
	"github.com/fgeck/relops-reboot/internal/services/telegram"
	"github.com/fgeck/relops-reboot/internal/services/wait"
	"github.com/fgeck/relops-reboot/internal/services/wol"
	"github.com/rs/zerolog"
)

// Service defines the interface for the reboot runner.
type Service interface {
	Run(ctx context.Context, cfg models.Config, req Request) (*models.RebootOutcome, error)
}

// Request identifies one reboot run.
type Request struct {
	Hostname string
	RunID    string
}

// Impl implements the runner Service interface.
type Impl struct {
	rebootSvc   reboot.Service
	wolSvc      wol.Service
	waitSvc     wait.Service
	telegramSvc telegram.Service
	logger      zerolog.Logger
}

// New creates a new runner with the transport selected by cfg.
func New(logger zerolog.Logger, cfg models.RebootConfig) *Impl {
	return &Impl{
		rebootSvc:   reboot.New(logger, NewTransport(logger, cfg), cfg.TimeoutPolicy),
		wolSvc:      wol.New(logger),
		waitSvc:     wait.New(logger),
		telegramSvc: telegram.New(logger),
		logger:      logger,
	}
}

// NewWithServices creates a new runner with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	rebootSvc reboot.Service,
	wolSvc wol.Service,
	waitSvc wait.Service,
	telegramSvc telegram.Service,
) *Impl {
	return &Impl{
		rebootSvc:   rebootSvc,
		wolSvc:      wolSvc,
		waitSvc:     waitSvc,
		telegramSvc: telegramSvc,
		logger:      logger,
	}
}

// NewTransport returns the SSH transport named by cfg.Transport.
func NewTransport(logger zerolog.Logger, cfg models.RebootConfig) ssh.Transport {
	if cfg.Transport == config.TransportOpenSSH {
		return ssh.NewExec(logger, cfg.SSHBinary, cfg.Options)
	}
	return ssh.New(logger, cfg.Options)
}

// Run wakes the host if configured, reboots it, waits for it if configured
// and reports the outcome. The reboot outcome is returned even on failure.
func (s *Impl) Run(ctx context.Context, cfg models.Config, req Request) (*models.RebootOutcome, error) {
	startTime := time.Now()
	var outcome *models.RebootOutcome
	var runErr error

	logger := s.logger.With().Str("run_id", req.RunID).Str("host", req.Hostname).Logger()
	logger.Info().Msg("starting reboot run")

	defer func() {
		if cfg.Telegram != nil {
			s.sendNotification(ctx, cfg, req, startTime, outcome, runErr)
		}
	}()

	params := cfg.Reboot.Params(req.Hostname)

	// Step 1: Wake-on-LAN (if configured)
	if cfg.WOL != nil {
		if err := s.runWOL(ctx, req.Hostname, params.Port, cfg.WOL); err != nil {
			runErr = err
			return nil, err
		}
	}

	// Step 2: Reboot
	var err error
	outcome, err = s.rebootSvc.Reboot(ctx, params, cfg.Reboot.Commands)
	if err != nil {
		runErr = err
		return outcome, err
	}

	logger.Info().
		Str("command", outcome.SuccessfulCommand()).
		Int("attempts", len(outcome.Attempts)).
		Msg("reboot command accepted")

	// Step 3: Wait for the host to come back (if configured)
	if cfg.Wait != nil {
		result, err := s.waitSvc.WaitForReboot(ctx, req.Hostname, params.Port, *cfg.Wait)
		if err != nil {
			runErr = fmt.Errorf("wait failed: %w", err)
			return outcome, runErr
		}
		if result.Error != nil {
			runErr = fmt.Errorf("wait failed: %w", result.Error)
			return outcome, runErr
		}
	}

	logger.Info().
		Dur("duration", time.Since(startTime)).
		Msg("reboot run completed successfully")

	return outcome, nil
}

func (s *Impl) runWOL(ctx context.Context, host string, port int, cfg *models.WOLConfig) error {
	result, err := s.wolSvc.Wake(ctx, host, port, *cfg)
	if err != nil {
		return fmt.Errorf("WOL failed: %w", err)
	}
	if result.Error != nil {
		return fmt.Errorf("WOL failed: %w", result.Error)
	}

	s.logger.Info().
		Bool("packet_sent", result.PacketSent).
		Bool("target_ready", result.TargetReady).
		Dur("wait_duration", result.WaitDuration).
		Msg("WOL completed")

	return nil
}

func (s *Impl) sendNotification(
	ctx context.Context,
	cfg models.Config,
	req Request,
	startTime time.Time,
	outcome *models.RebootOutcome,
	runErr error,
) {
	msg := models.TelegramMessage{
		RunID:     req.RunID,
		Success:   runErr == nil,
		Host:      req.Hostname,
		StartTime: startTime,
		Duration:  time.Since(startTime),
	}

	if outcome != nil {
		msg.Attempts = outcome.Attempts
		msg.Command = outcome.SuccessfulCommand()
		msg.Output = outcome.Output
	}
	if runErr != nil {
		msg.ErrorMessage = runErr.Error()
	}

	// The run context may already be cancelled; the notification still goes out.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	result, err := s.telegramSvc.SendNotification(notifyCtx, *cfg.Telegram, msg)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to send Telegram notification")
		return
	}
	if result.Error != nil {
		s.logger.Error().Err(result.Error).Msg("failed to send Telegram notification")
		return
	}

	s.logger.Info().Msg("Telegram notification sent")
}
