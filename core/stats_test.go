package core

import (
	"strings"
	"testing"

	"github.com/Dyastin-0/livechat/logger"
	"github.com/stretchr/testify/assert"
)

func TestStatsLog(t *testing.T) {
	s := NewStats()
	s.Received.Add(3)
	s.BytesIn.Add(2048)

	snap := s.Snapshot()
	assert.Equal(t, int64(3), snap.Received)

	buf := &lockedBuffer{}
	s.Log(logger.NewWithWriter(buf))

	out := buf.String()
	assert.True(t, strings.Contains(out, `"received":3`))
	assert.Contains(t, out, `"bytes_in":"2.0 kB"`)
}
