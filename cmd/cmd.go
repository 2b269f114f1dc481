// Package cmd is the livechat command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/Dyastin-0/livechat/config"
	"github.com/Dyastin-0/livechat/core"
	"github.com/Dyastin-0/livechat/cui"
	"github.com/Dyastin-0/livechat/discovery"
	"github.com/Dyastin-0/livechat/logger"
	"github.com/Dyastin-0/livechat/progress"
	"github.com/Dyastin-0/livechat/tofu"
	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

const (
	Version = "0.3.0"

	defaultPort = 8080
)

var ErrMissingFile = errors.New("missing FILE argument")

func New() *cli.Command {
	return &cli.Command{
		Name:    "livechat",
		Usage:   "share pictures and videos with peers on the local network",
		Version: Version,
		Action:  livechatAction,
		Commands: []*cli.Command{
			serveCommand(),
			sendCommand(),
			peersCommand(),
			sweepCommand(),
		},
	}
}

func livechatAction(ctx context.Context, cmd *cli.Command) error {
	figure := figure.NewFigure("livechat", "", true)
	figure.Print()

	fmt.Println()

	return cli.ShowAppHelp(cmd)
}

func defaultFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to a YAML config file",
		},
		&cli.UintFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Value:   defaultPort,
		},
		&cli.StringFlag{
			Name:    "dir",
			Aliases: []string{"d"},
			Usage:   "receive directory",
		},
		&cli.StringSliceFlag{
			Name:  "peer",
			Usage: "peer address as host or host:port, repeatable",
		},
		&cli.BoolFlag{
			Name:  "tls",
			Usage: "use the trust-on-first-use TLS transport",
		},
		&cli.DurationFlag{
			Name:  "io-timeout",
			Usage: "read/write deadline per connection, 0 disables",
		},
		&cli.StringFlag{
			Name:  "log-file",
			Usage: "log file path",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
		},
	}
}

func discoverFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "discover",
		Usage: "also look for peers advertising over mDNS",
	}
}

// loadConfig reads the config file and applies any flags set on the command line.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("port") {
		p := cmd.Uint("port")
		if p == 0 || p > math.MaxUint16 {
			return nil, fmt.Errorf("%w: port %d out of range", config.ErrInvalid, p)
		}
		cfg.Port = uint16(p)
	}
	if cmd.IsSet("dir") {
		cfg.Dir = cmd.String("dir")
	}
	if cmd.IsSet("peer") {
		cfg.Peers = cmd.StringSlice("peer")
	}
	if cmd.IsSet("tls") {
		cfg.TLS.Enabled = cmd.Bool("tls")
	}
	if cmd.IsSet("io-timeout") {
		cfg.IOTimeout = cmd.Duration("io-timeout")
	}
	if cmd.IsSet("log-file") {
		cfg.LogFile = cmd.String("log-file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newLogger writes to the log file, and also to the console when console is set.
func newLogger(cmd *cli.Command, cfg *config.Config, console bool) logger.Logger {
	if cmd.Bool("verbose") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	path := cfg.LogFile
	if path == "" {
		p, err := logger.LogPath("")
		if err != nil {
			p = filepath.Join(os.TempDir(), config.ServiceName+".log")
		}
		path = p
	}

	l := logger.New()
	if console {
		l.InitMultiWriter(path)
	} else {
		l.Init(path)
	}

	return l
}

func newTransport(cfg *config.Config, log logger.Logger) (core.Transport, error) {
	if !cfg.TLS.Enabled {
		return core.TCP{}, nil
	}

	t, err := tofu.New(cfg.Name, cfg.TLS.CertDir, cfg.TLS.TrustDir, log)
	if err != nil {
		return nil, err
	}

	if !cfg.TLS.TrustNew {
		t.OnNewPeer = cui.ConfirmPeer
	}

	return t, nil
}

func newClient(cfg *config.Config, log logger.Logger, sink core.MediaSink, p *progress.Progress) (*core.Client, error) {
	box, err := cfg.Box()
	if err != nil {
		return nil, err
	}

	transport, err := newTransport(cfg, log)
	if err != nil {
		return nil, err
	}

	return core.NewClient(core.ClientOptions{
		Addr:           cfg.Addr(),
		Dir:            cfg.Dir,
		Box:            box,
		Transport:      transport,
		ConnectTimeout: cfg.SendTimeout,
		ProbeTimeout:   cfg.ProbeTimeout,
		IOTimeout:      cfg.IOTimeout,
		Retention:      cfg.Retention,
		MaxPayload:     cfg.MaxPayload,
		MaxInbound:     cfg.MaxInbound,
		MaxOutbound:    cfg.MaxOutbound,
		Sink:           sink,
		Progress:       p,
		Logger:         log,
	}), nil
}

// knownTargets returns the configured peers plus, with --discover, those found over mDNS.
func knownTargets(ctx context.Context, cmd *cli.Command, cfg *config.Config, log logger.Logger) ([]core.PeerTarget, error) {
	targets, err := cfg.Targets()
	if err != nil {
		return nil, err
	}

	if !cmd.Bool("discover") {
		return targets, nil
	}

	resolver, err := discovery.NewResolver(log)
	if err != nil {
		return nil, err
	}

	found, err := resolver.Discover(ctx, discovery.DefaultBrowseTimeout)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		seen[t.String()] = true
	}
	for _, t := range found {
		if !seen[t.String()] {
			targets = append(targets, t)
		}
	}

	return targets, nil
}
