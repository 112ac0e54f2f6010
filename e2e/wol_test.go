//go:build e2e

package e2e

import (
	"context"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/fgeck/relops-reboot/internal/models"
	"github.com/fgeck/relops-reboot/internal/services/wait"
	"github.com/fgeck/relops-reboot/internal/services/wol"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// Mock implementations for E2E tests
type mockWOLClient struct{}

func (m *mockWOLClient) Wake(broadcastIP string, mac net.HardwareAddr) error {
	return nil
}

func TestWOL_WithListeningTarget_E2E(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = listener.Close() }()

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	port := listener.Addr().(*net.TCPAddr).Port
	svc := wol.NewWithClients(testLogger(), &mockWOLClient{}, wait.New(testLogger()))

	cfg := models.WOLConfig{
		MACAddress:   "AA:BB:CC:DD:EE:FF",
		BroadcastIP:  "255.255.255.255",
		Timeout:      5 * time.Second,
		PollInterval: 100 * time.Millisecond,
	}

	result, err := svc.Wake(context.Background(), "127.0.0.1", port, cfg)

	require.NoError(t, err)
	assert.True(t, result.PacketSent)
	assert.True(t, result.TargetReady)
	assert.Nil(t, result.Error)
}

func TestWOL_TargetNeverReady_E2E(t *testing.T) {
	// Reserve a port and release it so nothing answers there.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	svc := wol.NewWithClients(testLogger(), &mockWOLClient{}, wait.New(testLogger()))

	cfg := models.WOLConfig{
		MACAddress:   "AA:BB:CC:DD:EE:FF",
		BroadcastIP:  "255.255.255.255",
		Timeout:      300 * time.Millisecond,
		PollInterval: 50 * time.Millisecond,
	}

	result, err := svc.Wake(context.Background(), "127.0.0.1", port, cfg)

	require.NoError(t, err)
	assert.True(t, result.PacketSent)
	assert.False(t, result.TargetReady)
	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Error(), "timeout")
}

// RealWOL tests - only run if explicitly configured
func TestRealWOL_E2E(t *testing.T) {
	mac := os.Getenv("TEST_WOL_MAC")
	if mac == "" {
		t.Skip("TEST_WOL_MAC not set")
	}

	host := os.Getenv("TEST_SSH_HOST")

	svc := wol.New(testLogger())

	cfg := models.WOLConfig{
		MACAddress:   mac,
		BroadcastIP:  "255.255.255.255",
		Timeout:      5 * time.Minute,
		PollInterval: 10 * time.Second,
	}

	result, err := svc.Wake(context.Background(), host, models.DefaultPort, cfg)

	require.NoError(t, err)
	assert.True(t, result.PacketSent)
}
