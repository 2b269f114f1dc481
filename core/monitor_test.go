package core

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNet answers probes from a reachability table.
type fakeNet struct {
	mu   sync.Mutex
	up   map[string]bool
	hits map[string]int
}

func newFakeNet() *fakeNet {
	return &fakeNet{up: map[string]bool{}, hits: map[string]int{}}
}

func (f *fakeNet) set(addr string, up bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.up[addr] = up
}

func (f *fakeNet) dial(ctx context.Context, network, addr string) (net.Conn, error) {
	f.mu.Lock()
	up := f.up[addr]
	f.hits[addr]++
	f.mu.Unlock()

	if !up {
		return nil, errors.New("connection refused")
	}

	client, server := net.Pipe()
	server.Close()
	return client, nil
}

func TestCheckConnectionsTransitions(t *testing.T) {
	fn := newFakeNet()
	m := NewMonitor(MonitorOptions{Dial: fn.dial})

	target := NewPeerTarget("10.0.0.2", 8080)
	targets := []PeerTarget{target}

	fn.set(target.String(), true)

	// First observation is reported.
	changes := m.CheckConnections(context.Background(), targets)
	require.Len(t, changes, 1)
	assert.True(t, changes[0].Connected)
	assert.Equal(t, "10.0.0.2", changes[0].Address)

	// Same state, nothing to report.
	assert.Empty(t, m.CheckConnections(context.Background(), targets))
	assert.Empty(t, m.CheckConnections(context.Background(), targets))

	// reachable -> unreachable
	fn.set(target.String(), false)
	changes = m.CheckConnections(context.Background(), targets)
	require.Len(t, changes, 1)
	assert.False(t, changes[0].Connected)
	assert.Empty(t, m.CheckConnections(context.Background(), targets))

	// unreachable -> reachable
	fn.set(target.String(), true)
	changes = m.CheckConnections(context.Background(), targets)
	require.Len(t, changes, 1)
	assert.True(t, changes[0].Connected)

	assert.Equal(t, map[string]bool{"10.0.0.2:8080": true}, m.States())
}

func TestCheckConnectionsIndependentTargets(t *testing.T) {
	fn := newFakeNet()
	m := NewMonitor(MonitorOptions{Dial: fn.dial})

	a := NewPeerTarget("10.0.0.2", 8080)
	b := NewPeerTarget("10.0.0.3", 8080)
	fn.set(a.String(), true)

	changes := m.CheckConnections(context.Background(), []PeerTarget{a, b})
	require.Len(t, changes, 2)
	assert.Equal(t, a, changes[0].Target)
	assert.True(t, changes[0].Connected)
	assert.Equal(t, b, changes[1].Target)
	assert.False(t, changes[1].Connected)

	fn.set(b.String(), true)
	changes = m.CheckConnections(context.Background(), []PeerTarget{a, b})
	require.Len(t, changes, 1)
	assert.Equal(t, b, changes[0].Target)
}

func TestProbeRealListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	target := NewPeerTarget("127.0.0.1", uint16(addr.Port))

	m := NewMonitor(MonitorOptions{ProbeTimeout: 500 * time.Millisecond})
	assert.True(t, m.Probe(context.Background(), target))

	ln.Close()
	assert.False(t, m.Probe(context.Background(), target))
}

func TestProbeTimeout(t *testing.T) {
	m := NewMonitor(MonitorOptions{
		ProbeTimeout: 50 * time.Millisecond,
		Dial: func(ctx context.Context, network, addr string) (net.Conn, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})

	start := time.Now()
	assert.False(t, m.Probe(context.Background(), NewPeerTarget("10.255.255.1", 8080)))
	assert.Less(t, time.Since(start), time.Second)
}

func TestRunPublishesOnlyTransitions(t *testing.T) {
	fn := newFakeNet()
	m := NewMonitor(MonitorOptions{Dial: fn.dial})

	target := NewPeerTarget("10.0.0.9", 8080)
	fn.set(target.String(), true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- m.Run(ctx, []PeerTarget{target}, 10*time.Millisecond)
	}()

	select {
	case ev := <-m.Events():
		assert.True(t, ev.Connected)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial event")
	}

	// Several identical polls produce no events.
	time.Sleep(60 * time.Millisecond)
	select {
	case ev := <-m.Events():
		t.Fatalf("unexpected event %+v", ev)
	default:
	}

	fn.set(target.String(), false)

	select {
	case ev := <-m.Events():
		assert.False(t, ev.Connected)
		assert.Equal(t, target, ev.Target)
	case <-time.After(2 * time.Second):
		t.Fatal("no transition event")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
