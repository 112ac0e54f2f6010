package main

import (
	"fmt"

	"github.com/fgeck/relops-reboot/internal/config"
	"github.com/fgeck/relops-reboot/internal/hostcheck"
	"github.com/fgeck/relops-reboot/internal/models"
	"github.com/fgeck/relops-reboot/internal/services/runner"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	commands       []string
	abortOnTimeout bool
	waitForHost    bool
)

var rebootCmd = &cobra.Command{
	Use:   "reboot <hostname>",
	Short: "Reboot a remote host over SSH",
	Long: `Reboot a remote host by trying each reboot command in order over SSH.
The first command that exits with status zero wins and its output is printed.

Workflow:
1. Wake-on-LAN (if configured)
2. Try each reboot command with a per-attempt timeout
3. Wait for the host to go down and come back (if --wait or configured)
4. Send Telegram notification (if configured)`,
	Args: cobra.ExactArgs(1),
	RunE: runReboot,
}

func init() {
	addConnectionFlags(rebootCmd)
	rebootCmd.Flags().StringArrayVar(&commands, "command", nil, "reboot command to try, repeatable (default: reboot, shutdown -f -t 3 -r)")
	rebootCmd.Flags().BoolVar(&abortOnTimeout, "abort-on-timeout", false, "treat a timed out attempt as unreachable and stop")
	rebootCmd.Flags().BoolVar(&waitForHost, "wait", false, "wait for the host to go down and come back")
}

func runReboot(cmd *cobra.Command, args []string) error {
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
	if cmd.Flags().Changed("command") {
		cfg.Reboot.Commands = models.CommandList(commands)
	}
	if abortOnTimeout {
		cfg.Reboot.TimeoutPolicy = models.TimeoutAbort
	}
	if waitForHost && cfg.Wait == nil {
		cfg.Wait = config.DefaultWaitConfig()
	}
	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return err
	}

	runID := uuid.NewString()
	log.Debug().
		Str("run_id", runID).
		Str("host", hostname).
		Str("transport", cfg.Reboot.Transport).
		Strs("commands", cfg.Reboot.Commands).
		Dur("timeout", cfg.Reboot.Timeout).
		Msg("configuration loaded")

	ctx, cancel := signalContext()
	defer cancel()

	runnerSvc := runner.New(log.Logger, cfg.Reboot)
	outcome, err := runnerSvc.Run(ctx, *cfg, runner.Request{Hostname: hostname, RunID: runID})
	if err != nil {
		log.Error().Err(err).Str("host", hostname).Msg("reboot failed")
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), outcome.Output)
	return nil
}
