package core

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponderBroadcastsBeacons(t *testing.T) {
	cfg := testConfig(t)

	pc, err := net.ListenPacket("udp4", loopback(t, cfg.DiscoveryPort).String())
	require.NoError(t, err)
	defer pc.Close()

	ctx, cancel := context.WithCancel(t.Context())
	errch := make(chan error, 1)
	go func() {
		errch <- NewResponder(cfg, nil).Start(ctx, 5001)
	}()

	buf := make([]byte, maxDatagramSize)
	for range 3 {
		require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))

		n, _, err := pc.ReadFrom(buf)
		require.NoError(t, err)
		assert.Equal(t, "GRAB_TRANSFER_RECEIVER|5001", string(buf[:n]))
	}

	cancel()

	select {
	case err := <-errch:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("responder did not stop")
	}
}

func TestResponderRejectsBadPort(t *testing.T) {
	cfg := testConfig(t)

	err := NewResponder(cfg, nil).Start(t.Context(), 0)
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestResponderSetupFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.BroadcastAddr = "not a host"

	err := NewResponder(cfg, nil).Start(t.Context(), 5001)
	assert.ErrorIs(t, err, ErrBind)
}
