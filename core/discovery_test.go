package core

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startResponder(t *testing.T, cfg Config, port int) {
	t.Helper()

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})

	go func() {
		defer close(done)
		NewResponder(cfg, nil).Start(ctx, port)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestDiscoverFindsResponder(t *testing.T) {
	cfg := testConfig(t)
	startResponder(t, cfg, 5001)

	set, err := NewDiscoverer(cfg, nil).Discover(t.Context(), 500*time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, []PeerAddress{loopback(t, 5001)}, set.List())
}

func TestDiscoverEmptyWithinTimeout(t *testing.T) {
	cfg := testConfig(t)
	timeout := 300 * time.Millisecond

	start := time.Now()
	set, err := NewDiscoverer(cfg, nil).Discover(t.Context(), timeout)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.True(t, set.Empty())
	assert.GreaterOrEqual(t, elapsed, timeout-20*time.Millisecond)
	assert.Less(t, elapsed, timeout+250*time.Millisecond)
}

func TestDiscoverIgnoresMalformedDatagrams(t *testing.T) {
	cfg := testConfig(t)

	conn, err := net.Dial("udp4", loopback(t, cfg.DiscoveryPort).String())
	require.NoError(t, err)
	defer conn.Close()

	payloads := []string{
		"HELLO|5001",
		"GRAB_TRANSFER_RECEIVER|abc",
		"GRAB_TRANSFER_RECEIVER|5001|x",
		"GRAB_TRANSFER_RECEIVER",
		"GRAB_TRANSFER_RECEIVER|6000",
	}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	go func() {
		ticker := time.NewTicker(25 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, p := range payloads {
					conn.Write([]byte(p))
				}
			}
		}
	}()

	timeout := 400 * time.Millisecond
	start := time.Now()
	set, err := NewDiscoverer(cfg, nil).Discover(t.Context(), timeout)
	elapsed := time.Since(start)
	require.NoError(t, err)

	assert.Equal(t, []PeerAddress{loopback(t, 6000)}, set.List())
	assert.Less(t, elapsed, timeout+250*time.Millisecond, "traffic extended the window")
}

func TestDiscoverCollapsesRepeatedBeacons(t *testing.T) {
	cfg := testConfig(t)
	cfg.BeaconInterval = 20 * time.Millisecond
	startResponder(t, cfg, 7001)

	set, err := NewDiscoverer(cfg, nil).Discover(t.Context(), 300*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())
}

func TestDiscoverStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)

	ctx, cancel := context.WithCancel(t.Context())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	set, err := NewDiscoverer(cfg, nil).Discover(ctx, 5*time.Second)

	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, set.Empty())
	assert.Less(t, time.Since(start), time.Second)
}

func TestDiscoverBindError(t *testing.T) {
	cfg := testConfig(t)

	held, err := net.ListenUDP("udp4", &net.UDPAddr{Port: cfg.DiscoveryPort})
	require.NoError(t, err)
	defer held.Close()

	_, err = NewDiscoverer(cfg, nil).Discover(t.Context(), 100*time.Millisecond)
	assert.ErrorIs(t, err, ErrBind)
}
