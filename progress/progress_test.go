package progress

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarWriter(t *testing.T) {
	data := make([]byte, 1024)

	dst := &bytes.Buffer{}

	progress := NewWithOutput(io.Discard)
	bar := progress.NewBar(int64(len(data)), "10.0.0.2:8080")

	n, err := bar.Writer(dst).Write(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)

	done := make(chan struct{})
	go func() {
		progress.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("progress did not finish")
	}

	assert.Equal(t, data, dst.Bytes())
	assert.True(t, bar.Completed())
}

func TestAbortedBarDoesNotBlockWait(t *testing.T) {
	progress := NewWithOutput(nil)
	bar := progress.NewBar(4096, "10.0.0.3:8080")

	_, err := bar.Writer(io.Discard).Write(make([]byte, 100))
	require.NoError(t, err)
	bar.Abort()

	done := make(chan struct{})
	go func() {
		progress.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("aborted bar blocked Wait")
	}
}
