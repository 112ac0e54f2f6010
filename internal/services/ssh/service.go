// Package ssh runs single commands on remote hosts over SSH.
package ssh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/fgeck/relops-reboot/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// keepAliveCountMax matches the OpenSSH ServerAliveCountMax default.
const keepAliveCountMax = 3

// Transport runs one command on a remote host per call.
type Transport interface {
	// Run connects to the host, executes command and returns stdout and stderr merged.
	// Every resource it acquires is released before it returns, including on ctx expiry.
	Run(ctx context.Context, params models.ConnectionParams, command string) ([]byte, error)
	// BaseArgs returns the non-secret connection arguments for logging.
	BaseArgs(params models.ConnectionParams) []string
}

// SSHClient wraps ssh.Client for mocking.
type SSHClient interface {
	NewSession() (SSHSession, error)
	SendKeepAlive() error
	Close() error
}

// SSHSession wraps ssh.Session for mocking.
type SSHSession interface {
	CombinedOutput(cmd string) ([]byte, error)
	Close() error
}

// ClientFactory creates SSH clients.
type ClientFactory interface {
	NewClient(ctx context.Context, network, addr string, config *ssh.ClientConfig) (SSHClient, error)
}

// DefaultClientFactory is the default SSH client factory.
type DefaultClientFactory struct{}

// NewClient dials addr and performs the SSH handshake, both bounded by ctx.
func (f *DefaultClientFactory) NewClient(ctx context.Context, network, addr string, config *ssh.ClientConfig) (SSHClient, error) {
	dialer := net.Dialer{Timeout: config.Timeout}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})

	return &defaultSSHClient{client: ssh.NewClient(c, chans, reqs)}, nil
}

type defaultSSHClient struct {
	client *ssh.Client
}

func (c *defaultSSHClient) NewSession() (SSHSession, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return nil, err
	}
	return &defaultSSHSession{session: session}, nil
}

func (c *defaultSSHClient) SendKeepAlive() error {
	_, _, err := c.client.SendRequest("keepalive@openssh.com", true, nil)
	return err
}

func (c *defaultSSHClient) Close() error {
	return c.client.Close()
}

type defaultSSHSession struct {
	session *ssh.Session
}

func (s *defaultSSHSession) CombinedOutput(cmd string) ([]byte, error) {
	return s.session.CombinedOutput(cmd)
}

func (s *defaultSSHSession) Close() error {
	return s.session.Close()
}

// NativeTransport implements Transport with golang.org/x/crypto/ssh.
type NativeTransport struct {
	clientFactory ClientFactory
	options       models.TransportOptions
	logger        zerolog.Logger
}

// New creates a new native SSH transport.
func New(logger zerolog.Logger, options models.TransportOptions) *NativeTransport {
	return &NativeTransport{
		clientFactory: &DefaultClientFactory{},
		options:       options,
		logger:        logger,
	}
}

// NewWithClientFactory creates a new native SSH transport with a custom client factory (for testing).
func NewWithClientFactory(logger zerolog.Logger, options models.TransportOptions, factory ClientFactory) *NativeTransport {
	return &NativeTransport{
		clientFactory: factory,
		options:       options,
		logger:        logger,
	}
}

// BaseArgs returns the OpenSSH equivalent of the options this transport applies.
func (t *NativeTransport) BaseArgs(params models.ConnectionParams) []string {
	return BaseArgs("ssh", params, t.options)
}

func (t *NativeTransport) buildConfig(params models.ConnectionParams) (*ssh.ClientConfig, error) {
	key, err := os.ReadFile(params.IdentityFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key from %s: %w", params.IdentityFile, err)
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	hostKeyCallback, err := HostKeyCallback(t.options)
	if err != nil {
		return nil, err
	}

	// Only public key auth is offered, which disables password authentication.
	return &ssh.ClientConfig{
		User: params.LoginName,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		HostKeyCallback: hostKeyCallback,
		Timeout:         params.Timeout,
	}, nil
}

// HostKeyCallback returns the host key policy selected by options.
func HostKeyCallback(options models.TransportOptions) (ssh.HostKeyCallback, error) {
	if options.InsecureAcceptAnyHostKey {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // trusted management network, see TransportOptions
	}
	if options.KnownHostsFile == "" {
		return nil, fmt.Errorf("known hosts file is required when host key checking is enabled")
	}
	callback, err := knownhosts.New(options.KnownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load known hosts from %s: %w", options.KnownHostsFile, err)
	}
	return callback, nil
}

// Run executes command on the host in a new connection.
func (t *NativeTransport) Run(ctx context.Context, params models.ConnectionParams, command string) ([]byte, error) {
	sshConfig, err := t.buildConfig(params)
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(params.Hostname, strconv.Itoa(params.Port))

	client, err := t.clientFactory.NewClient(ctx, "tcp", addr, sshConfig)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	defer func() { _ = client.Close() }()

	// Closing the client unblocks every pending channel, session and request.
	stopClose := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stopClose()

	session, err := client.NewSession()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	defer func() { _ = session.Close() }()

	type runResult struct {
		output []byte
		err    error
	}
	done := make(chan runResult, 1)

	go func() {
		output, err := session.CombinedOutput(command)
		done <- runResult{output, err}
	}()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	if t.options.KeepAliveInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			t.keepAlive(client, stop)
		}()
	}
	// The client is closed before joining so a keep-alive waiting for a reply returns.
	defer func() {
		close(stop)
		_ = client.Close()
		wg.Wait()
	}()

	select {
	case res := <-done:
		return res.output, res.err
	case <-ctx.Done():
		_ = client.Close()
		res := <-done
		return res.output, ctx.Err()
	}
}

func (t *NativeTransport) keepAlive(client SSHClient, stop <-chan struct{}) {
	ticker := time.NewTicker(t.options.KeepAliveInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := client.SendKeepAlive(); err != nil {
				failures++
				t.logger.Debug().Err(err).Int("failures", failures).Msg("keep-alive failed")
				if failures >= keepAliveCountMax {
					_ = client.Close()
					return
				}
				continue
			}
			failures = 0
		}
	}
}

// BaseArgs builds the OpenSSH command line, without the remote command, for params.
func BaseArgs(binary string, params models.ConnectionParams, options models.TransportOptions) []string {
	args := []string{
		binary,
		"-o", "PasswordAuthentication=no",
		"-o", fmt.Sprintf("ServerAliveInterval=%d", int(options.KeepAliveInterval/time.Second)),
		"-o", "LogLevel=" + options.LogLevel,
	}

	if options.InsecureAcceptAnyHostKey {
		args = append(args,
			"-o", "StrictHostKeyChecking=no",
			"-o", "UserKnownHostsFile=/dev/null",
		)
	} else {
		args = append(args,
			"-o", "StrictHostKeyChecking=yes",
			"-o", "UserKnownHostsFile="+options.KnownHostsFile,
		)
	}

	return append(args,
		"-i", params.IdentityFile,
		"-l", params.LoginName,
		"-p", strconv.Itoa(params.Port),
		params.Hostname,
	)
}

// ExitStatus extracts the remote exit status from an error returned by a Transport.
func ExitStatus(err error) (int, bool) {
	var sshErr *ssh.ExitError
	if errors.As(err, &sshErr) {
		return sshErr.ExitStatus(), true
	}
	var execErr *exec.ExitError
	if errors.As(err, &execErr) {
		return execErr.ExitCode(), true
	}
	return 0, false
}

// TestConnection verifies connectivity and credentials without rebooting.
func TestConnection(ctx context.Context, t Transport, params models.ConnectionParams) (string, error) {
	output, err := t.Run(ctx, params, "echo OK")
	if err != nil {
		return string(output), fmt.Errorf("test command failed: %w", err)
	}
	return string(output), nil
}
