package core

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()

	cfg := DefaultConfig()
	cfg.DiscoveryPort = freeUDPPort(t)
	cfg.TransferPort = freeTCPPort(t)
	cfg.BroadcastAddr = "127.0.0.1"
	cfg.ListenAddr = "127.0.0.1"
	cfg.BeaconInterval = 50 * time.Millisecond
	cfg.SaveDir = t.TempDir()

	require.NoError(t, cfg.Validate())
	return cfg
}

func freeTCPPort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	return ln.Addr().(*net.TCPAddr).Port
}

func freeUDPPort(t *testing.T) int {
	t.Helper()

	pc, err := net.ListenPacket("udp4", ":0")
	require.NoError(t, err)
	defer pc.Close()

	return pc.LocalAddr().(*net.UDPAddr).Port
}

func writeTemp(t *testing.T, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func loopback(t *testing.T, port int) PeerAddress {
	t.Helper()

	p, err := NewPeerAddress("127.0.0.1", port)
	require.NoError(t, err)
	return p
}

// dialRaw opens a transfer connection and writes payload as is.
func dialRaw(t *testing.T, cfg Config, payload []byte) {
	t.Helper()

	conn, err := net.Dial("tcp", loopback(t, cfg.TransferPort).String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(payload)
	require.NoError(t, err)
}
