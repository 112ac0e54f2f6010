// Package wait polls a host's SSH port to follow it through a reboot.
package wait

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fgeck/relops-reboot/internal/models"
	"github.com/rs/zerolog"
)

const probeTimeout = 2 * time.Second

// Service defines the interface for waiting on a host.
type Service interface {
	WaitForReboot(ctx context.Context, host string, port int, cfg models.WaitConfig) (*models.WaitResult, error)
	WaitForPort(ctx context.Context, host string, port int, up bool, timeout, interval time.Duration) error
}

// Dialer allows mocking TCP connections.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Impl implements the wait Service interface.
type Impl struct {
	dialer Dialer
	logger zerolog.Logger
}

// New creates a new wait service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		dialer: &net.Dialer{Timeout: probeTimeout},
		logger: logger,
	}
}

// NewWithDialer creates a new wait service with a custom dialer (for testing).
func NewWithDialer(logger zerolog.Logger, dialer Dialer) *Impl {
	return &Impl{
		dialer: dialer,
		logger: logger,
	}
}

// WaitForReboot waits for the SSH port to stop answering and then to answer again.
func (s *Impl) WaitForReboot(ctx context.Context, host string, port int, cfg models.WaitConfig) (*models.WaitResult, error) {
	result := &models.WaitResult{}
	start := time.Now()

	s.logger.Info().
		Str("host", host).
		Int("port", port).
		Dur("down_timeout", cfg.DownTimeout).
		Dur("up_timeout", cfg.UpTimeout).
		Msg("waiting for host to reboot")

	if err := s.WaitForPort(ctx, host, port, false, cfg.DownTimeout, cfg.PollInterval); err != nil {
		result.Duration = time.Since(start)
		result.Error = fmt.Errorf("host did not go down: %w", err)
		return result, nil //nolint:nilerr // error is stored in result struct by design
	}
	result.WentDown = true
	s.logger.Info().Str("host", host).Dur("elapsed", time.Since(start)).Msg("host went down")

	if err := s.WaitForPort(ctx, host, port, true, cfg.UpTimeout, cfg.PollInterval); err != nil {
		result.Duration = time.Since(start)
		result.Error = fmt.Errorf("host did not come back: %w", err)
		return result, nil //nolint:nilerr // error is stored in result struct by design
	}
	result.CameUp = true
	result.Duration = time.Since(start)

	s.logger.Info().
		Str("host", host).
		Dur("duration", result.Duration).
		Msg("host is back up")

	return result, nil
}

// WaitForPort polls until the port's reachability matches up or timeout elapses.
func (s *Impl) WaitForPort(ctx context.Context, host string, port int, up bool, timeout, interval time.Duration) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	operation := func() error {
		reachable := s.probe(ctx, addr)
		if reachable == up {
			return nil
		}
		s.logger.Debug().Str("addr", addr).Bool("reachable", reachable).Msg("host not in expected state yet")
		return fmt.Errorf("%s reachable=%t, want %t", addr, reachable, up)
	}

	if err := backoff.Retry(operation, backoff.WithContext(backoff.NewConstantBackOff(interval), ctx)); err != nil {
		return fmt.Errorf("timeout waiting for %s: %w", addr, err)
	}
	return nil
}

func (s *Impl) probe(ctx context.Context, addr string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	conn, err := s.dialer.DialContext(probeCtx, "tcp", addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
