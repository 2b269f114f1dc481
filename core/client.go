package core

import (
	"context"
	"time"

	"github.com/Dyastin-0/livechat/cipherbox"
	"github.com/Dyastin-0/livechat/logger"
	"github.com/Dyastin-0/livechat/progress"
)

type ClientOptions struct {
	Addr      string
	Dir       string
	Box       cipherbox.Box
	Transport Transport

	ConnectTimeout time.Duration
	ProbeTimeout   time.Duration
	IOTimeout      time.Duration
	Retention      time.Duration

	MaxPayload  int64
	MaxInbound  int
	MaxOutbound int

	Sink     MediaSink
	Progress *progress.Progress
	Logger   logger.Logger
}

// Client ties the sending and receiving halves to one receive directory and one set of
// counters.
type Client struct {
	sender   *Sender
	listener *Listener
	monitor  *Monitor
	sweeper  *Sweeper
	stats    *Stats
	log      logger.Logger
}

func NewClient(opts ClientOptions) *Client {
	if opts.Box == nil {
		opts.Box = cipherbox.NewDefault()
	}
	if opts.Transport == nil {
		opts.Transport = TCP{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	stats := NewStats()
	sweeper := NewSweeper(opts.Dir, opts.Retention, opts.Logger)

	receiver := NewReceiver(opts.Dir, opts.Box, opts.MaxPayload, stats)

	return &Client{
		sender: NewSender(opts.Box, SenderOptions{
			Transport:      opts.Transport,
			ConnectTimeout: opts.ConnectTimeout,
			IOTimeout:      opts.IOTimeout,
			MaxOutbound:    opts.MaxOutbound,
			MaxPayload:     opts.MaxPayload,
			Progress:       opts.Progress,
			Stats:          stats,
			Logger:         opts.Logger,
		}),
		listener: NewListener(receiver, ListenerOptions{
			Addr:       opts.Addr,
			Transport:  opts.Transport,
			IOTimeout:  opts.IOTimeout,
			MaxInbound: opts.MaxInbound,
			Sink:       opts.Sink,
			Sweeper:    sweeper,
			Logger:     opts.Logger,
		}),
		// Probes are plain TCP connects whatever the transfer transport is.
		monitor: NewMonitor(MonitorOptions{
			ProbeTimeout: opts.ProbeTimeout,
			Logger:       opts.Logger,
		}),
		sweeper: sweeper,
		stats:   stats,
		log:     opts.Logger,
	}
}

// Serve runs the listener until ctx is cancelled. Expired files are swept once at startup.
func (c *Client) Serve(ctx context.Context) error {
	c.sweeper.Sweep()
	return c.listener.Start(ctx)
}

// SendFile delivers filePath to every target and reports per-target outcomes.
func (c *Client) SendFile(ctx context.Context, filePath string, targets []PeerTarget, caption string) (Results, error) {
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	return c.sender.SendFile(ctx, filePath, targets, caption)
}

// Watch polls targets every interval until ctx is cancelled. Changes arrive on Events.
func (c *Client) Watch(ctx context.Context, targets []PeerTarget, interval time.Duration) error {
	return c.monitor.Run(ctx, targets, interval)
}

func (c *Client) Events() <-chan ConnectionStateChanged {
	return c.monitor.Events()
}

func (c *Client) CheckConnections(ctx context.Context, targets []PeerTarget) []ConnectionStateChanged {
	return c.monitor.CheckConnections(ctx, targets)
}

func (c *Client) Sweep() []string {
	return c.sweeper.Sweep()
}

func (c *Client) Stats() *Stats {
	return c.stats
}

func (c *Client) Listener() *Listener {
	return c.listener
}
