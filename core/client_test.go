package core

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRoundTrip(t *testing.T) {
	queue := NewMediaQueue(4)
	receiving := NewClient(ClientOptions{
		Addr:      "127.0.0.1:0",
		Dir:       filepath.Join(t.TempDir(), "LiveChat"),
		Sink:      queue,
		IOTimeout: time.Second,
	})

	ln, err := receiving.Listener().Listen()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- receiving.Listener().Serve(ctx, ln) }()
	defer func() {
		cancel()
		<-done
	}()

	target := NewPeerTarget("127.0.0.1", uint16(ln.Addr().(*net.TCPAddr).Port))

	path := filepath.Join(t.TempDir(), "clip.png")
	require.NoError(t, os.WriteFile(path, pngBytes(300), 0644))

	sending := NewClient(ClientOptions{Dir: t.TempDir()})
	results, err := sending.SendFile(context.Background(), path, []PeerTarget{target}, "look")
	require.NoError(t, err)
	require.NoError(t, results.Err())

	select {
	case item := <-queue.Items():
		assert.Equal(t, "look", item.Caption)
	case <-time.After(2 * time.Second):
		t.Fatal("nothing received")
	}

	assert.Equal(t, int64(1), sending.Stats().Snapshot().Sent)
	assert.Equal(t, int64(1), receiving.Stats().Snapshot().Received)

	changes := sending.CheckConnections(context.Background(), []PeerTarget{target})
	require.Len(t, changes, 1)
	assert.True(t, changes[0].Connected)
}

func TestClientSendFileNoTargets(t *testing.T) {
	c := NewClient(ClientOptions{Dir: t.TempDir()})
	_, err := c.SendFile(context.Background(), "whatever.png", nil, "")
	assert.ErrorIs(t, err, ErrNoTargets)
}
