package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Dyastin-0/livechat/core"
	"github.com/Dyastin-0/livechat/cui"
	"github.com/Dyastin-0/livechat/progress"
	"github.com/urfave/cli/v3"
)

func sendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "send a picture or video to peers",
		ArgsUsage: "FILE",
		Flags: append(defaultFlags(),
			discoverFlag(),
			&cli.StringFlag{
				Name:  "caption",
				Usage: "text shown with the media",
			},
			&cli.BoolFlag{
				Name:  "pick",
				Usage: "choose FILE interactively",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "send to every known peer without asking",
			},
		),
		Action: sendAction,
	}
}

func sendAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		if !cmd.Bool("pick") {
			return ErrMissingFile
		}

		picked, err := cui.NewFilePicker(".").Run()
		if err != nil {
			return err
		}
		path = picked
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := newLogger(cmd, cfg, false)

	targets, err := knownTargets(ctx, cmd, cfg, log)
	if err != nil {
		return err
	}

	p := progress.New()
	client, err := newClient(cfg, log, nil, p)
	if err != nil {
		return err
	}

	// Explicit --peer flags and --all skip the picker.
	if !cmd.IsSet("peer") && !cmd.Bool("all") {
		changes, err := cui.Probe(ctx, core.NewMonitor(core.MonitorOptions{ProbeTimeout: cfg.ProbeTimeout}), targets)
		if err != nil {
			return err
		}

		states := make(map[string]bool, len(changes))
		for _, c := range changes {
			states[c.Target.String()] = c.Connected
		}

		targets, err = cui.SelectTargets(targets, states)
		if err != nil {
			return err
		}
	}

	results, err := client.SendFile(ctx, path, targets, cmd.String("caption"))
	if err != nil {
		return err
	}
	p.Wait()

	cui.PrintResults(os.Stdout, filepath.Base(path), results)

	if failed := len(results.Failed()); failed > 0 {
		return fmt.Errorf("%d of %d sends failed", failed, len(results))
	}

	return nil
}
