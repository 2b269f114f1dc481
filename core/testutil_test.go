package core

import (
	"bytes"
	"sync"
	"testing"

	"github.com/Dyastin-0/livechat/cipherbox"
	"github.com/stretchr/testify/require"
)

func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

func pngBytes(n int) []byte {
	data := make([]byte, len(pngHeader)+n)
	copy(data, pngHeader)
	for i := len(pngHeader); i < len(data); i++ {
		data[i] = byte(i)
	}
	return data
}

// encodeFrame returns the wire bytes of an encrypted frame.
func encodeFrame(t *testing.T, box cipherbox.Box, name, caption string, plain []byte) []byte {
	t.Helper()

	payload, err := box.Encrypt(plain)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = NewProto(0).WriteFrame(&buf, &Frame{
		FrameHeader: FrameHeader{Name: name, Caption: caption},
		Payload:     payload,
	})
	require.NoError(t, err)

	return buf.Bytes()
}

// lockedBuffer lets a logger write from connection goroutines while a test reads.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
