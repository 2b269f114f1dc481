package cmd

import (
	"context"
	"os"

	"github.com/Dyastin-0/livechat/core"
	"github.com/Dyastin-0/livechat/cui"
	"github.com/urfave/cli/v3"
)

func sweepCommand() *cli.Command {
	return &cli.Command{
		Name:   "sweep",
		Usage:  "delete received files older than the retention window",
		Flags:  defaultFlags(),
		Action: sweepAction,
	}
}

func sweepAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := newLogger(cmd, cfg, false)

	removed := core.NewSweeper(cfg.Dir, cfg.Retention, log).Sweep()
	cui.PrintSwept(os.Stdout, removed)

	return nil
}
