package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/Dyastin-0/livechat/core"
	"github.com/Dyastin-0/livechat/cui"
	"github.com/urfave/cli/v3"
)

func peersCommand() *cli.Command {
	return &cli.Command{
		Name:  "peers",
		Usage: "check which peers are reachable",
		Flags: append(defaultFlags(),
			discoverFlag(),
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "keep polling and print every change",
			},
		),
		Action: peersAction,
	}
}

func peersAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := newLogger(cmd, cfg, false)

	targets, err := knownTargets(ctx, cmd, cfg, log)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return core.ErrNoTargets
	}

	monitor := core.NewMonitor(core.MonitorOptions{
		ProbeTimeout: cfg.ProbeTimeout,
		Logger:       log,
	})

	changes, err := cui.Probe(ctx, monitor, targets)
	if err != nil {
		return err
	}
	cui.PrintStates(os.Stdout, changes)

	if !cmd.Bool("watch") {
		return nil
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-monitor.Events():
				cui.PrintEvent(os.Stdout, ev)
			}
		}
	}()

	// The first poll only reports real changes since the table above.
	err = monitor.Run(ctx, targets, cfg.ProbeInterval)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
