package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Dyastin-0/grabxfer/core"
	"github.com/Dyastin-0/grabxfer/progress"
	"github.com/Dyastin-0/grabxfer/styles"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/urfave/cli/v3"
)

func sendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "send a file to a receiver",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "to",
				Usage: "receiver host:port, skips discovery",
			},
			timeoutFlag(),
			&cli.BoolFlag{
				Name:  "remove",
				Usage: "delete the file once it was sent",
			},
		},
		Action: sendAction,
	}
}

func sendAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("missing <file> argument")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := newLogger(cmd)
	bars := progress.New()

	s := core.NewSender(cfg, log)
	s.OnProgress = bars.Track("sending")

	var dst core.PeerAddress
	if to := cmd.String("to"); to != "" {
		dst, err = core.ParsePeerAddress(to)
		if err != nil {
			return err
		}
		err = s.Send(ctx, path, dst)
	} else {
		finder := spinnerFinder{core.NewDiscoverer(cfg, log)}
		dst, err = s.SendDiscovered(ctx, path, finder, cmd.Duration("timeout"), chooseReceiver)
	}
	bars.Wait()

	if errors.Is(err, core.ErrNoReceivers) {
		fmt.Println(styles.INFO.Render("no receivers found"))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", core.Describe(err), err)
	}

	fmt.Println(styles.SUCCESS.Render(fmt.Sprintf("sent %s to %s", path, dst)))

	if cmd.Bool("remove") {
		if err := os.Remove(path); err != nil {
			fmt.Println(styles.WARN.Render(fmt.Sprintf("could not remove %s: %v", path, err)))
		}
	}

	return nil
}

func discoverCommand() *cli.Command {
	return &cli.Command{
		Name:   "discover",
		Usage:  "list receivers currently advertising",
		Flags:  []cli.Flag{timeoutFlag()},
		Action: discoverAction,
	}
}

func discoverAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	set, err := spinnerFinder{core.NewDiscoverer(cfg, newLogger(cmd))}.Discover(ctx, cmd.Duration("timeout"))
	if err != nil {
		return fmt.Errorf("%s: %w", core.Describe(err), err)
	}

	if set.Empty() {
		fmt.Println(styles.INFO.Render("no receivers found"))
		return nil
	}

	fmt.Println(styles.INFO.Render("receivers"))
	for _, p := range set.List() {
		fmt.Println(styles.SUCCESS.PaddingLeft(2).Render(p.String()))
	}

	return nil
}

// spinnerFinder shows a spinner for the length of the discovery window.
type spinnerFinder struct {
	d *core.Discoverer
}

func (f spinnerFinder) Discover(ctx context.Context, timeout time.Duration) (*core.ReceiverSet, error) {
	var set *core.ReceiverSet

	err := spinner.New().
		Title(fmt.Sprintf("looking for receivers (%s)", timeout)).
		Context(ctx).
		ActionWithErr(func(ctx context.Context) error {
			var err error
			set, err = f.d.Discover(ctx, timeout)
			return err
		}).
		Run()
	if err == nil && set == nil {
		set = core.NewReceiverSet()
	}

	return set, err
}

func chooseReceiver(receivers []core.PeerAddress) (core.PeerAddress, bool) {
	options := make([]huh.Option[int], 0, len(receivers))
	for i, p := range receivers {
		options = append(options, huh.NewOption(p.String(), i))
	}

	choice := -1
	err := huh.NewSelect[int]().
		Title("select receiver").
		Options(options...).
		Value(&choice).
		Run()
	if err != nil || choice < 0 {
		return core.PeerAddress{}, false
	}

	return receivers[choice], true
}
