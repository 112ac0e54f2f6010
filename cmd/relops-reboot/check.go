package main

import (
	"context"
	"fmt"

	"github.com/fgeck/relops-reboot/internal/hostcheck"
	"github.com/fgeck/relops-reboot/internal/services/runner"
	"github.com/fgeck/relops-reboot/internal/services/ssh"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <hostname>",
	Short: "Check that a host accepts SSH logins without rebooting it",
	Long: `Connect to the host with the configured credentials and run a harmless
command. Nothing is rebooted.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	addConnectionFlags(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	hostname := args[0]
	if err := hostcheck.Validate(hostname); err != nil {
		log.Error().Err(err).Msg("invalid hostname")
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, cfg.Reboot.Timeout)
	defer cancelTimeout()

	transport := runner.NewTransport(log.Logger, cfg.Reboot)
	output, err := ssh.TestConnection(ctx, transport, cfg.Reboot.Params(hostname))
	if err != nil {
		log.Error().Err(err).Str("host", hostname).Msg("connection check failed")
		return fmt.Errorf("%s connection check failed: %w", hostname, err)
	}

	log.Info().Str("host", hostname).Msg("connection check succeeded")
	fmt.Fprint(cmd.OutOrStdout(), output)
	return nil
}
