package main

import (
	"time"

	"github.com/fgeck/relops-reboot/internal/config"
	"github.com/fgeck/relops-reboot/internal/models"
	"github.com/spf13/cobra"
)

// Connection flags shared by the commands that talk to a host.
var (
	loginName      string
	identityFile   string
	port           int
	timeoutSeconds int
	transport      string
	macAddress     string
)

func addConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&loginName, "login-name", "l", "", "remote login name")
	cmd.Flags().StringVarP(&identityFile, "identity-file", "i", "", "private key used for authentication")
	cmd.Flags().IntVarP(&port, "port", "p", models.DefaultPort, "SSH port")
	cmd.Flags().IntVar(&timeoutSeconds, "timeout", int(models.DefaultTimeout/time.Second), "per-attempt timeout in seconds")
	cmd.Flags().StringVar(&transport, "transport", config.TransportNative, "SSH transport: native or openssh")
	cmd.Flags().StringVar(&macAddress, "mac", "", "MAC address for Wake-on-LAN (overrides wol.mac_address)")
}

// loadConfig reads the config file if one was given and applies the flags
// that were set explicitly on cmd.
func loadConfig(cmd *cobra.Command) (*models.Config, error) {
	parser := config.NewParser()

	var (
		cfg *models.Config
		err error
	)
	if configFile != "" {
		cfg, err = parser.LoadFile(configFile)
	} else {
		cfg, err = parser.Defaults()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("login-name") {
		cfg.Reboot.LoginName = loginName
	}
	if flags.Changed("identity-file") {
		cfg.Reboot.IdentityFile = identityFile
	}
	if flags.Changed("port") {
		cfg.Reboot.Port = port
	}
	if flags.Changed("timeout") {
		cfg.Reboot.Timeout = time.Duration(timeoutSeconds) * time.Second
	}
	if flags.Changed("transport") {
		cfg.Reboot.Transport = transport
	}
	if flags.Changed("mac") {
		if cfg.WOL == nil {
			cfg.WOL = &models.WOLConfig{
				BroadcastIP:  "255.255.255.255",
				Timeout:      5 * time.Minute,
				PollInterval: 5 * time.Second,
			}
		}
		cfg.WOL.MACAddress = macAddress
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
