// Package config provides configuration file parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fgeck/relops-reboot/internal/models"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Transports supported by the reboot command.
const (
	TransportNative  = "native"
	TransportOpenSSH = "openssh"
)

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	return &Parser{v: v}
}

// LoadFile loads configuration from a file path. A .env file next to the
// config file is loaded first so its variables can be referenced as ${VAR}.
func (p *Parser) LoadFile(path string) (*models.Config, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.Config, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

// Defaults returns the configuration used when no file is given.
func (p *Parser) Defaults() (*models.Config, error) {
	return p.parse()
}

// loadDotEnv loads path into the environment without overriding existing variables.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

//nolint:gocognit,gocyclo // parsing config requires checking many fields
func (p *Parser) parse() (*models.Config, error) {
	cfg := &models.Config{}

	timeout, err := p.seconds("reboot.timeout")
	if err != nil {
		return nil, err
	}
	keepAlive, err := p.seconds("reboot.keep_alive_interval")
	if err != nil {
		return nil, err
	}

	cfg.Reboot = models.RebootConfig{
		LoginName:     p.expandEnv(p.v.GetString("reboot.login_name")),
		IdentityFile:  p.expandEnv(p.v.GetString("reboot.identity_file")),
		Port:          p.v.GetInt("reboot.port"),
		Timeout:       timeout,
		Commands:      models.CommandList(p.v.GetStringSlice("reboot.commands")),
		TimeoutPolicy: models.TimeoutPolicy(p.v.GetString("reboot.timeout_policy")),
		Transport:     p.v.GetString("reboot.transport"),
		SSHBinary:     p.expandEnv(p.v.GetString("reboot.ssh_binary")),
		Options:       models.DefaultTransportOptions(),
	}

	// Set defaults.
	if cfg.Reboot.Port == 0 {
		cfg.Reboot.Port = models.DefaultPort
	}
	if cfg.Reboot.Timeout == 0 {
		cfg.Reboot.Timeout = models.DefaultTimeout
	}
	if len(cfg.Reboot.Commands) == 0 {
		cfg.Reboot.Commands = models.DefaultRebootCommands.Clone()
	}
	if cfg.Reboot.TimeoutPolicy == "" {
		cfg.Reboot.TimeoutPolicy = models.TimeoutContinue
	}
	if cfg.Reboot.Transport == "" {
		cfg.Reboot.Transport = TransportNative
	}
	if cfg.Reboot.SSHBinary == "" {
		cfg.Reboot.SSHBinary = "ssh"
	}
	if keepAlive != 0 {
		cfg.Reboot.Options.KeepAliveInterval = keepAlive
	}
	if p.v.IsSet("reboot.host_key.accept_any") {
		cfg.Reboot.Options.InsecureAcceptAnyHostKey = p.v.GetBool("reboot.host_key.accept_any")
	}
	cfg.Reboot.Options.KnownHostsFile = p.expandEnv(p.v.GetString("reboot.host_key.known_hosts_file"))

	validPolicies := map[models.TimeoutPolicy]bool{models.TimeoutContinue: true, models.TimeoutAbort: true}
	if !validPolicies[cfg.Reboot.TimeoutPolicy] {
		return nil, fmt.Errorf("reboot.timeout_policy must be one of: continue, abort")
	}
	validTransports := map[string]bool{TransportNative: true, TransportOpenSSH: true}
	if !validTransports[cfg.Reboot.Transport] {
		return nil, fmt.Errorf("reboot.transport must be one of: native, openssh")
	}
	if !cfg.Reboot.Options.InsecureAcceptAnyHostKey && cfg.Reboot.Options.KnownHostsFile == "" {
		return nil, fmt.Errorf("reboot.host_key.known_hosts_file is required when host_key.accept_any is false")
	}

	// Parse optional wait config.
	if p.v.IsSet("wait") {
		cfg.Wait = &models.WaitConfig{
			DownTimeout:  p.v.GetDuration("wait.down_timeout"),
			UpTimeout:    p.v.GetDuration("wait.up_timeout"),
			PollInterval: p.v.GetDuration("wait.poll_interval"),
		}
		applyWaitDefaults(cfg.Wait)
	}

	// Parse optional WOL config.
	if p.v.IsSet("wol") {
		cfg.WOL = &models.WOLConfig{
			MACAddress:   p.v.GetString("wol.mac_address"),
			BroadcastIP:  p.v.GetString("wol.broadcast_ip"),
			Timeout:      p.v.GetDuration("wol.timeout"),
			PollInterval: p.v.GetDuration("wol.poll_interval"),
		}

		if cfg.WOL.MACAddress == "" {
			return nil, fmt.Errorf("wol.mac_address is required when wol is configured")
		}
		if cfg.WOL.BroadcastIP == "" {
			cfg.WOL.BroadcastIP = "255.255.255.255"
		}
		if cfg.WOL.Timeout == 0 {
			cfg.WOL.Timeout = 5 * time.Minute
		}
	}

	// Parse optional Telegram config.
	if p.v.IsSet("telegram") {
		cfg.Telegram = &models.TelegramConfig{
			BotToken: p.expandEnv(p.v.GetString("telegram.bot_token")),
			ChatID:   p.expandEnv(p.v.GetString("telegram.chat_id")),
		}

		if cfg.Telegram.BotToken == "" {
			return nil, fmt.Errorf("telegram.bot_token is required when telegram is configured")
		}
		if cfg.Telegram.ChatID == "" {
			return nil, fmt.Errorf("telegram.chat_id is required when telegram is configured")
		}
	}

	return cfg, nil
}

// applyWaitDefaults fills unset wait durations.
func applyWaitDefaults(w *models.WaitConfig) {
	if w.DownTimeout == 0 {
		w.DownTimeout = 2 * time.Minute
	}
	if w.UpTimeout == 0 {
		w.UpTimeout = 10 * time.Minute
	}
	if w.PollInterval == 0 {
		w.PollInterval = 5 * time.Second
	}
}

// DefaultWaitConfig returns the wait settings used when --wait is given without a wait section.
func DefaultWaitConfig() *models.WaitConfig {
	w := &models.WaitConfig{}
	applyWaitDefaults(w)
	return w
}

// seconds reads a duration where a bare number means seconds, as in "timeout: 5".
func (p *Parser) seconds(key string) (time.Duration, error) {
	switch v := p.v.Get(key).(type) {
	case nil:
		return 0, nil
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second, nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return d, nil
	default:
		return p.v.GetDuration(key), nil
	}
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	r := cfg.Reboot
	if r.Port < 1 || r.Port > 65535 {
		return fmt.Errorf("reboot.port must be between 1 and 65535")
	}
	if r.Timeout <= 0 {
		return fmt.Errorf("reboot.timeout must be positive")
	}
	if r.Transport != TransportNative && r.Transport != TransportOpenSSH {
		return fmt.Errorf("reboot.transport must be one of: native, openssh")
	}
	if r.TimeoutPolicy != models.TimeoutContinue && r.TimeoutPolicy != models.TimeoutAbort {
		return fmt.Errorf("reboot.timeout_policy must be one of: continue, abort")
	}
	if len(r.Commands) == 0 {
		return fmt.Errorf("reboot.commands must not be empty")
	}
	for i, c := range r.Commands {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("reboot.commands[%d] is empty", i)
		}
	}

	if w := cfg.Wait; w != nil {
		if w.DownTimeout < 0 || w.UpTimeout < 0 {
			return fmt.Errorf("wait timeouts must not be negative")
		}
		if w.PollInterval < 0 {
			return fmt.Errorf("wait.poll_interval must not be negative")
		}
	}
	if w := cfg.WOL; w != nil {
		if w.Timeout < 0 {
			return fmt.Errorf("wol.timeout must not be negative")
		}
		if w.PollInterval < 0 {
			return fmt.Errorf("wol.poll_interval must not be negative")
		}
	}

	return nil
}
