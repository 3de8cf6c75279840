package core

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDiscoveryPort  = 5002
	DefaultTransferPort   = 5001
	DefaultMarker         = "GRAB_TRANSFER_RECEIVER"
	DefaultSeparator      = "<SEPARATOR>"
	DefaultBeaconInterval = time.Second
	DefaultBufferSize     = 4096
	DefaultBroadcastAddr  = "255.255.255.255"
	DefaultListenAddr     = "0.0.0.0"
	DefaultBeaconTTL      = 1

	VERSION = "0.1.0"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config carries every tunable of the protocol. Components copy it at
// construction, so two instances with different ports can share a process.
type Config struct {
	DiscoveryPort  int           `yaml:"discovery_port"`
	TransferPort   int           `yaml:"transfer_port"`
	Marker         string        `yaml:"marker"`
	Separator      string        `yaml:"separator"`
	BeaconInterval time.Duration `yaml:"beacon_interval"`
	BufferSize     int           `yaml:"buffer_size"`
	BroadcastAddr  string        `yaml:"broadcast_addr"`
	ListenAddr     string        `yaml:"listen_addr"`
	SaveDir        string        `yaml:"save_dir"`
	BeaconTTL      int           `yaml:"beacon_ttl"`
}

func DefaultConfig() Config {
	return Config{
		DiscoveryPort:  DefaultDiscoveryPort,
		TransferPort:   DefaultTransferPort,
		Marker:         DefaultMarker,
		Separator:      DefaultSeparator,
		BeaconInterval: DefaultBeaconInterval,
		BufferSize:     DefaultBufferSize,
		BroadcastAddr:  DefaultBroadcastAddr,
		ListenAddr:     DefaultListenAddr,
		SaveDir:        ".",
		BeaconTTL:      DefaultBeaconTTL,
	}
}

// LoadConfig reads a YAML file over the defaults. Keys missing from the
// file keep their default value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if !validPort(c.DiscoveryPort) {
		return fmt.Errorf("%w: discovery port %d out of range", ErrInvalidConfig, c.DiscoveryPort)
	}
	if !validPort(c.TransferPort) {
		return fmt.Errorf("%w: transfer port %d out of range", ErrInvalidConfig, c.TransferPort)
	}
	if c.Marker == "" || strings.Contains(c.Marker, beaconDelim) {
		return fmt.Errorf("%w: marker must be non-empty and must not contain %q", ErrInvalidConfig, beaconDelim)
	}
	if c.Separator == "" || strings.ContainsRune(c.Separator, SizeEnd) {
		return fmt.Errorf("%w: separator must be non-empty and single-line", ErrInvalidConfig)
	}
	if c.BeaconInterval <= 0 {
		return fmt.Errorf("%w: beacon interval must be positive", ErrInvalidConfig)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("%w: buffer size must be positive", ErrInvalidConfig)
	}
	if len(c.Separator) >= c.BufferSize {
		return fmt.Errorf("%w: buffer size must exceed separator length", ErrInvalidConfig)
	}
	return nil
}

func (c Config) bufferSize() int {
	if c.BufferSize > 0 {
		return c.BufferSize
	}
	return DefaultBufferSize
}

func validPort(p int) bool {
	return p >= 1 && p <= 65535
}
