// Package cmd is the grabxfer command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Dyastin-0/grabxfer/core"
	"github.com/Dyastin-0/grabxfer/logger"
	"github.com/common-nighthawk/go-figure"
	"github.com/urfave/cli/v3"
)

const defaultDir = "grabxfer/received"

func New() *cli.Command {
	return &cli.Command{
		Name:    "grabxfer",
		Usage:   "discover a receiver on the local network and hand it a file",
		Version: core.VERSION,
		Flags:   globalFlags(),
		Action:  rootAction,
		Commands: []*cli.Command{
			receiveCommand(),
			sendCommand(),
			discoverCommand(),
		},
	}
}

func rootAction(ctx context.Context, cmd *cli.Command) error {
	figure := figure.NewFigure("grabxfer", "", true)
	figure.Print()

	fmt.Println()

	return cli.ShowAppHelp(cmd)
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML file with protocol settings",
		},
		&cli.IntFlag{
			Name:  "port",
			Usage: "TCP transfer port",
			Value: core.DefaultTransferPort,
		},
		&cli.IntFlag{
			Name:  "discovery-port",
			Usage: "UDP discovery port",
			Value: core.DefaultDiscoveryPort,
		},
		&cli.StringFlag{
			Name:  "broadcast",
			Usage: "address beacons are sent to",
			Value: core.DefaultBroadcastAddr,
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "also print logs to stderr",
		},
	}
}

// loadConfig layers flags that were set explicitly over the config file
// over the defaults.
func loadConfig(cmd *cli.Command) (core.Config, error) {
	cfg := core.DefaultConfig()

	if path := cmd.String("config"); path != "" {
		var err error
		cfg, err = core.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
	}

	if cmd.IsSet("port") {
		cfg.TransferPort = int(cmd.Int("port"))
	}
	if cmd.IsSet("discovery-port") {
		cfg.DiscoveryPort = int(cmd.Int("discovery-port"))
	}
	if cmd.IsSet("broadcast") {
		cfg.BroadcastAddr = cmd.String("broadcast")
	}
	if cmd.IsSet("dir") {
		cfg.SaveDir = cmd.String("dir")
	}
	if cmd.IsSet("interval") {
		cfg.BeaconInterval = cmd.Duration("interval")
	}

	return cfg, cfg.Validate()
}

func newLogger(cmd *cli.Command) logger.Logger {
	l := logger.New()

	path, err := logger.LogPath("logs")
	if err != nil {
		return logger.Nop()
	}

	if cmd.Bool("verbose") {
		l.InitMultiWriter(path)
	} else {
		l.Init(path)
	}

	return l
}

func timeoutFlag() cli.Flag {
	return &cli.DurationFlag{
		Name:    "timeout",
		Aliases: []string{"t"},
		Usage:   "how long to listen for receivers",
		Value:   3 * time.Second,
	}
}

func homeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "./"
	}

	return homeDir
}

func defaultSaveDir() string {
	return filepath.Join(homeDir(), defaultDir)
}
