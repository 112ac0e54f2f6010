package main

import (
	"errors"
	"fmt"

	"github.com/fgeck/relops-reboot/internal/hostcheck"
	"github.com/fgeck/relops-reboot/internal/services/wol"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var wakeCmd = &cobra.Command{
	Use:   "wake <hostname>",
	Short: "Send a Wake-on-LAN packet and wait for SSH to answer",
	Long: `Send a Wake-on-LAN magic packet using the MAC address from --mac or the
wol section of the config file, then wait for the host's SSH port to accept
connections.`,
	Args: cobra.ExactArgs(1),
	RunE: runWake,
}

func init() {
	addConnectionFlags(wakeCmd)
}

func runWake(cmd *cobra.Command, args []string) error {
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
	if cfg.WOL == nil {
		return errors.New("no MAC address: pass --mac or configure wol.mac_address")
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := wol.New(log.Logger).Wake(ctx, hostname, cfg.Reboot.Port, *cfg.WOL)
	if err != nil {
		return fmt.Errorf("%s wake failed: %w", hostname, err)
	}
	if result.Error != nil {
		log.Error().Err(result.Error).Str("host", hostname).Msg("wake failed")
		return fmt.Errorf("%s wake failed: %w", hostname, result.Error)
	}

	log.Info().
		Str("host", hostname).
		Bool("target_ready", result.TargetReady).
		Dur("wait_duration", result.WaitDuration).
		Msg("host is awake")
	return nil
}
