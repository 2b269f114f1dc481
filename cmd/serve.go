package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Dyastin-0/livechat/core"
	"github.com/Dyastin-0/livechat/cui"
	"github.com/Dyastin-0/livechat/discovery"
	"github.com/Dyastin-0/livechat/styles"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const mediaQueueSize = 64

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "receive media and watch configured peers",
		Flags: append(defaultFlags(),
			&cli.BoolFlag{
				Name:  "advertise",
				Usage: "announce this listener over mDNS",
			},
		),
		Action: serveAction,
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("advertise") {
		cfg.Advertise = cmd.Bool("advertise")
	}

	log := newLogger(cmd, cfg, true)

	queue := core.NewMediaQueue(mediaQueueSize)

	client, err := newClient(cfg, log, queue, nil)
	if err != nil {
		return err
	}

	if cfg.Advertise {
		adv := discovery.NewAdvertiser(log)
		if err := adv.Start(cfg.Name, cfg.Port, map[string]string{"version": Version}); err != nil {
			log.WithErr(err).Warn("failed to advertise, peers must be configured by address")
		} else {
			defer adv.Stop()
		}
	}

	targets, err := cfg.Targets()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return client.Serve(ctx)
	})

	if len(targets) > 0 {
		g.Go(func() error {
			err := client.Watch(ctx, targets, cfg.ProbeInterval)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})

		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case ev := <-client.Events():
					cui.PrintEvent(os.Stdout, ev)
				}
			}
		})
	}

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case item := <-queue.Items():
				line := fmt.Sprintf("new media %s", item.FilePath)
				if item.Caption != "" {
					line += fmt.Sprintf(" %q", item.Caption)
				}
				fmt.Println(styles.SUCCESS.Render(line))
			}
		}
	})

	err = g.Wait()

	stats := client.Stats()
	stats.Log(log)
	cui.PrintStats(os.Stdout, stats.Snapshot())

	if dropped := queue.Dropped(); dropped > 0 {
		log.WithInt("dropped", int(dropped)).Warn("media notifications dropped")
	}

	return err
}
