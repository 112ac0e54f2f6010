package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fgeck/relops-reboot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_LoadReader_MinimalConfig(t *testing.T) {
	yaml := `
reboot:
  login_name: "reboot"
  identity_file: "/etc/relops/id_ed25519"
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, "reboot", cfg.Reboot.LoginName)
	assert.Equal(t, "/etc/relops/id_ed25519", cfg.Reboot.IdentityFile)
	// Check defaults
	assert.Equal(t, 22, cfg.Reboot.Port)
	assert.Equal(t, 5*time.Second, cfg.Reboot.Timeout)
	assert.Equal(t, models.CommandList{"reboot", "shutdown -f -t 3 -r"}, cfg.Reboot.Commands)
	assert.Equal(t, models.TimeoutContinue, cfg.Reboot.TimeoutPolicy)
	assert.Equal(t, TransportNative, cfg.Reboot.Transport)
	assert.Equal(t, "ssh", cfg.Reboot.SSHBinary)
	assert.Equal(t, 2*time.Second, cfg.Reboot.Options.KeepAliveInterval)
	assert.Equal(t, "ERROR", cfg.Reboot.Options.LogLevel)
	assert.True(t, cfg.Reboot.Options.InsecureAcceptAnyHostKey)
	assert.Nil(t, cfg.Wait)
	assert.Nil(t, cfg.WOL)
	assert.Nil(t, cfg.Telegram)
}

func TestParser_LoadReader_FullConfig(t *testing.T) {
	yaml := `
reboot:
  login_name: "reboot"
  identity_file: "/etc/relops/id_ed25519"
  port: 2222
  timeout: 10
  commands:
    - "reboot"
    - "shutdown -f -t 3 -r"
    - "shutdown -r now"
  timeout_policy: abort
  transport: openssh
  ssh_binary: /usr/bin/ssh
  keep_alive_interval: 5s
  host_key:
    accept_any: false
    known_hosts_file: /etc/relops/known_hosts

wait:
  down_timeout: 1m
  up_timeout: 15m
  poll_interval: 10s

wol:
  mac_address: "AA:BB:CC:DD:EE:FF"
  broadcast_ip: "192.168.1.255"
  timeout: 10m
  poll_interval: 5s

telegram:
  bot_token: "123456:ABC-DEF"
  chat_id: "-100123456789"
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)

	assert.Equal(t, 2222, cfg.Reboot.Port)
	assert.Equal(t, 10*time.Second, cfg.Reboot.Timeout)
	assert.Equal(t, models.CommandList{"reboot", "shutdown -f -t 3 -r", "shutdown -r now"}, cfg.Reboot.Commands)
	assert.Equal(t, models.TimeoutAbort, cfg.Reboot.TimeoutPolicy)
	assert.Equal(t, TransportOpenSSH, cfg.Reboot.Transport)
	assert.Equal(t, "/usr/bin/ssh", cfg.Reboot.SSHBinary)
	assert.Equal(t, 5*time.Second, cfg.Reboot.Options.KeepAliveInterval)
	assert.False(t, cfg.Reboot.Options.InsecureAcceptAnyHostKey)
	assert.Equal(t, "/etc/relops/known_hosts", cfg.Reboot.Options.KnownHostsFile)

	require.NotNil(t, cfg.Wait)
	assert.Equal(t, time.Minute, cfg.Wait.DownTimeout)
	assert.Equal(t, 15*time.Minute, cfg.Wait.UpTimeout)
	assert.Equal(t, 10*time.Second, cfg.Wait.PollInterval)

	require.NotNil(t, cfg.WOL)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", cfg.WOL.MACAddress)
	assert.Equal(t, "192.168.1.255", cfg.WOL.BroadcastIP)
	assert.Equal(t, 10*time.Minute, cfg.WOL.Timeout)
	assert.Equal(t, 5*time.Second, cfg.WOL.PollInterval)

	require.NotNil(t, cfg.Telegram)
	assert.Equal(t, "123456:ABC-DEF", cfg.Telegram.BotToken)
	assert.Equal(t, "-100123456789", cfg.Telegram.ChatID)
}

func TestParser_TimeoutFormats(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected time.Duration
	}{
		{"integer seconds", "7", 7 * time.Second},
		{"quoted seconds", `"3"`, 3 * time.Second},
		{"duration", "1500ms", 1500 * time.Millisecond},
		{"float seconds", "2.5", 2500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewParser().LoadReader("reboot:\n  timeout: " + tt.value + "\n")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.Reboot.Timeout)
		})
	}
}

func TestParser_InvalidTimeout(t *testing.T) {
	_, err := NewParser().LoadReader("reboot:\n  timeout: soon\n")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reboot.timeout")
}

func TestParser_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_RELOPS_KEY", "/secrets/id_ed25519")
	t.Setenv("TEST_TELEGRAM_TOKEN", "env-token")

	yaml := `
reboot:
  identity_file: "${TEST_RELOPS_KEY}"
telegram:
  bot_token: "${TEST_TELEGRAM_TOKEN}"
  chat_id: "42"
`
	cfg, err := NewParser().LoadReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, "/secrets/id_ed25519", cfg.Reboot.IdentityFile)
	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
}

func TestParser_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "invalid timeout policy",
			yaml:    "reboot:\n  timeout_policy: retry\n",
			wantErr: "reboot.timeout_policy must be one of",
		},
		{
			name:    "invalid transport",
			yaml:    "reboot:\n  transport: telnet\n",
			wantErr: "reboot.transport must be one of",
		},
		{
			name:    "strict host key without known hosts",
			yaml:    "reboot:\n  host_key:\n    accept_any: false\n",
			wantErr: "known_hosts_file is required",
		},
		{
			name:    "wol without mac",
			yaml:    "wol:\n  broadcast_ip: 192.168.1.255\n",
			wantErr: "wol.mac_address is required",
		},
		{
			name:    "telegram without token",
			yaml:    "telegram:\n  chat_id: \"42\"\n",
			wantErr: "telegram.bot_token is required",
		},
		{
			name:    "telegram without chat",
			yaml:    "telegram:\n  bot_token: \"abc\"\n",
			wantErr: "telegram.chat_id is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser().LoadReader(tt.yaml)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParser_WaitDefaults(t *testing.T) {
	cfg, err := NewParser().LoadReader("wait:\n  poll_interval: 1s\n")

	require.NoError(t, err)
	require.NotNil(t, cfg.Wait)
	assert.Equal(t, 2*time.Minute, cfg.Wait.DownTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Wait.UpTimeout)
	assert.Equal(t, time.Second, cfg.Wait.PollInterval)
	assert.Equal(t, &models.WaitConfig{
		DownTimeout:  2 * time.Minute,
		UpTimeout:    10 * time.Minute,
		PollInterval: 5 * time.Second,
	}, DefaultWaitConfig())
}

func TestParser_WOLDefaults(t *testing.T) {
	cfg, err := NewParser().LoadReader("wol:\n  mac_address: \"AA:BB:CC:DD:EE:FF\"\n")

	require.NoError(t, err)
	require.NotNil(t, cfg.WOL)
	assert.Equal(t, "255.255.255.255", cfg.WOL.BroadcastIP)
	assert.Equal(t, 5*time.Minute, cfg.WOL.Timeout)
	assert.Zero(t, cfg.WOL.PollInterval)
}

func TestParser_Defaults(t *testing.T) {
	cfg, err := NewParser().Defaults()

	require.NoError(t, err)
	assert.Equal(t, 22, cfg.Reboot.Port)
	assert.Equal(t, 5*time.Second, cfg.Reboot.Timeout)
	assert.Equal(t, models.DefaultRebootCommands, cfg.Reboot.Commands)
}

func TestParser_DefaultCommandsAreCopied(t *testing.T) {
	cfg, err := NewParser().Defaults()
	require.NoError(t, err)

	cfg.Reboot.Commands[0] = "poweroff"

	assert.Equal(t, "reboot", models.DefaultRebootCommands[0])
}

func TestParser_NegativePollIntervalRejected(t *testing.T) {
	cfg, err := NewParser().LoadReader("wait:\n  poll_interval: -1s\n")
	require.NoError(t, err)

	assert.ErrorContains(t, Validate(cfg), "wait.poll_interval")
}

func TestParser_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
reboot:
  login_name: "reboot"
  identity_file: "/etc/relops/id_ed25519"
  port: 2200
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewParser().LoadFile(path)

	require.NoError(t, err)
	assert.Equal(t, 2200, cfg.Reboot.Port)
}

func TestParser_LoadFile_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TEST_RELOPS_DOTENV_TOKEN=from-dotenv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("TEST_RELOPS_DOTENV_TOKEN") })

	path := filepath.Join(dir, "config.yaml")
	content := `
telegram:
  bot_token: "${TEST_RELOPS_DOTENV_TOKEN}"
  chat_id: "42"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewParser().LoadFile(path)

	require.NoError(t, err)
	require.NotNil(t, cfg.Telegram)
	assert.Equal(t, "from-dotenv", cfg.Telegram.BotToken)
}

func TestParser_LoadFile_NotFound(t *testing.T) {
	_, err := NewParser().LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestValidate(t *testing.T) {
	valid := func() *models.Config {
		cfg, err := NewParser().Defaults()
		require.NoError(t, err)
		return cfg
	}

	assert.NoError(t, Validate(valid()))
	assert.Error(t, Validate(nil))

	cfg := valid()
	cfg.Reboot.Port = 0
	assert.ErrorContains(t, Validate(cfg), "reboot.port")

	cfg = valid()
	cfg.Reboot.Port = 65536
	assert.ErrorContains(t, Validate(cfg), "reboot.port")

	cfg = valid()
	cfg.Reboot.Timeout = -time.Second
	assert.ErrorContains(t, Validate(cfg), "reboot.timeout")

	cfg = valid()
	cfg.Reboot.Transport = "telnet"
	assert.ErrorContains(t, Validate(cfg), "reboot.transport")

	cfg = valid()
	cfg.Reboot.TimeoutPolicy = "retry"
	assert.ErrorContains(t, Validate(cfg), "reboot.timeout_policy")

	cfg = valid()
	cfg.Reboot.Commands = nil
	assert.ErrorContains(t, Validate(cfg), "reboot.commands")

	cfg = valid()
	cfg.Reboot.Commands = models.CommandList{"reboot", "  "}
	assert.ErrorContains(t, Validate(cfg), "reboot.commands[1]")

	cfg = valid()
	cfg.Wait = &models.WaitConfig{DownTimeout: time.Minute, UpTimeout: time.Minute, PollInterval: -time.Second}
	assert.ErrorContains(t, Validate(cfg), "wait.poll_interval")

	cfg = valid()
	cfg.Wait = &models.WaitConfig{DownTimeout: -time.Minute, UpTimeout: time.Minute, PollInterval: time.Second}
	assert.ErrorContains(t, Validate(cfg), "wait timeouts")

	cfg = valid()
	cfg.WOL = &models.WOLConfig{MACAddress: "AA:BB:CC:DD:EE:FF", Timeout: time.Minute, PollInterval: -time.Second}
	assert.ErrorContains(t, Validate(cfg), "wol.poll_interval")

	cfg = valid()
	cfg.WOL = &models.WOLConfig{MACAddress: "AA:BB:CC:DD:EE:FF", Timeout: -time.Minute}
	assert.ErrorContains(t, Validate(cfg), "wol.timeout")
}
