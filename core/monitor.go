package core

import (
	"context"
	"maps"
	"net"
	"sync"
	"time"

	"github.com/Dyastin-0/livechat/logger"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultProbeTimeout  = time.Second
	DefaultProbeInterval = 10 * time.Second
)

// ConnectionStateChanged is published when a target's reachability flips,
// and once for each target the first time it is probed.
type ConnectionStateChanged struct {
	Target    PeerTarget
	Address   string
	Connected bool
	At        time.Time
}

type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

type MonitorOptions struct {
	ProbeTimeout time.Duration
	Dial         DialFunc
	EventBuffer  int
	Logger       logger.Logger
}

// Monitor probes peers with a bare TCP connect. It never holds a probe connection open and
// does not share connections with the transfer path.
type Monitor struct {
	timeout time.Duration
	dial    DialFunc
	log     logger.Logger
	events  chan ConnectionStateChanged

	mu     sync.Mutex
	states map[string]bool
}

func NewMonitor(opts MonitorOptions) *Monitor {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.Dial == nil {
		opts.Dial = (&net.Dialer{}).DialContext
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	return &Monitor{
		timeout: opts.ProbeTimeout,
		dial:    opts.Dial,
		log:     opts.Logger,
		events:  make(chan ConnectionStateChanged, opts.EventBuffer),
		states:  make(map[string]bool),
	}
}

// Events delivers the changes found by Run.
func (m *Monitor) Events() <-chan ConnectionStateChanged {
	return m.events
}

// Probe reports whether a TCP connection to t can be opened within the probe timeout.
func (m *Monitor) Probe(ctx context.Context, t PeerTarget) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	conn, err := m.dial(ctx, "tcp", t.String())
	if err != nil {
		return false
	}
	conn.Close()

	return true
}

// CheckConnections probes every target concurrently and returns the state changes,
// in target order.
func (m *Monitor) CheckConnections(ctx context.Context, targets []PeerTarget) []ConnectionStateChanged {
	reachable := make([]bool, len(targets))

	g := &errgroup.Group{}
	for i, t := range targets {
		g.Go(func() error {
			reachable[i] = m.Probe(ctx, t)
			return nil
		})
	}
	_ = g.Wait()

	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var changes []ConnectionStateChanged
	for i, t := range targets {
		key := t.String()

		prev, seen := m.states[key]
		if seen && prev == reachable[i] {
			continue
		}
		m.states[key] = reachable[i]

		changes = append(changes, ConnectionStateChanged{
			Target:    t,
			Address:   t.Address,
			Connected: reachable[i],
			At:        now,
		})
	}

	return changes
}

// Run polls targets immediately and then every interval, publishing changes on Events
// until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context, targets []PeerTarget, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for _, change := range m.CheckConnections(ctx, targets) {
			m.log.WithStr("target", change.Target.String()).
				WithBool("connected", change.Connected).
				Info("connection state changed")

			select {
			case m.events <- change:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// States returns a copy of the last known reachability per target.
func (m *Monitor) States() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return maps.Clone(m.states)
}
