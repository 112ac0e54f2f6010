package main

import (
	"fmt"
	"os"

	"github.com/fgeck/relops-reboot/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file without connecting to any host.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		log.Error().Msg("config file is required")
		return cmd.Help()
	}

	// Check if file exists
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		log.Error().Str("file", configFile).Msg("config file not found")
		return fmt.Errorf("config file not found: %s", configFile)
	}

	parser := config.NewParser()
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to parse config")
		return err
	}

	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	out := cmd.OutOrStdout()
	r := cfg.Reboot

	// Print configuration summary
	fmt.Fprintln(out, "Configuration is valid!")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Reboot:")
	fmt.Fprintf(out, "  Login name: %s\n", r.LoginName)
	fmt.Fprintf(out, "  Identity file: %s\n", r.IdentityFile)
	fmt.Fprintf(out, "  Port: %d\n", r.Port)
	fmt.Fprintf(out, "  Timeout: %s\n", r.Timeout)
	fmt.Fprintf(out, "  Timeout policy: %s\n", r.TimeoutPolicy)
	fmt.Fprintf(out, "  Transport: %s\n", r.Transport)
	fmt.Fprintln(out, "  Commands:")
	for i, c := range r.Commands {
		fmt.Fprintf(out, "    %d. %s\n", i+1, c)
	}
	if r.Options.InsecureAcceptAnyHostKey {
		fmt.Fprintln(out, "  Host keys: accept any (insecure)")
	} else {
		fmt.Fprintf(out, "  Host keys: %s\n", r.Options.KnownHostsFile)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Optional Features:")
	fmt.Fprintf(out, "  Wake-on-LAN: %v\n", cfg.WOL != nil)
	fmt.Fprintf(out, "  Wait for host: %v\n", cfg.Wait != nil)
	fmt.Fprintf(out, "  Telegram: %v\n", cfg.Telegram != nil)

	if cfg.WOL != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "WOL Configuration:")
		fmt.Fprintf(out, "  MAC Address: %s\n", cfg.WOL.MACAddress)
		fmt.Fprintf(out, "  Broadcast IP: %s\n", cfg.WOL.BroadcastIP)
	}

	if cfg.Wait != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Wait Configuration:")
		fmt.Fprintf(out, "  Down timeout: %s\n", cfg.Wait.DownTimeout)
		fmt.Fprintf(out, "  Up timeout: %s\n", cfg.Wait.UpTimeout)
		fmt.Fprintf(out, "  Poll interval: %s\n", cfg.Wait.PollInterval)
	}

	if cfg.Telegram != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Telegram Configuration:")
		fmt.Fprintf(out, "  Chat ID: %s\n", cfg.Telegram.ChatID)
		fmt.Fprintln(out, "  Bot Token: (configured)")
	}

	return nil
}
