package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Dyastin-0/grabxfer/core"
	"github.com/Dyastin-0/grabxfer/progress"
	"github.com/Dyastin-0/grabxfer/styles"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

func receiveCommand() *cli.Command {
	return &cli.Command{
		Name:  "receive",
		Usage: "advertise this machine and wait for a file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "directory to save received files to",
				Value:   defaultSaveDir(),
			},
			&cli.BoolFlag{
				Name:    "keep",
				Aliases: []string{"k"},
				Usage:   "keep receiving after the first file",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "time between beacons",
				Value: core.DefaultBeaconInterval,
			},
		},
		Action: receiveAction,
	}
}

func receiveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if !cmd.IsSet("dir") && cfg.SaveDir == "." {
		cfg.SaveDir = cmd.String("dir")
	}

	log := newLogger(cmd)
	bars := progress.New()

	r := core.NewReceiver(cfg, log)
	r.Keep = cmd.Bool("keep")
	r.Listener().OnProgress = bars.Track("receiving")
	r.OnFile = func(rc *core.Receipt) {
		bars.Reset()
		printReceipt(rc)
	}

	fmt.Println(styles.INFO.Render(fmt.Sprintf(
		"waiting on port %d, saving to %s", cfg.TransferPort, cfg.SaveDir,
	)))

	err = r.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", core.Describe(err), err)
	}

	return nil
}

func printReceipt(rc *core.Receipt) {
	size := humanize.Bytes(uint64(rc.Received))

	if rc.Truncated() {
		fmt.Println(styles.WARN.Render(fmt.Sprintf(
			"received %s of %s for %s, sender stopped early",
			size, humanize.Bytes(uint64(rc.Declared)), styles.PATH.Render(rc.Path),
		)))
		return
	}

	fmt.Println(styles.SUCCESS.Render(fmt.Sprintf(
		"received %s (%s) from %s at %s",
		styles.PATH.Render(rc.Path), size, rc.Remote, time.Now().Format(time.Kitchen),
	)))
}
