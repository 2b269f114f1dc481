package core

import (
	"sync/atomic"
	"time"

	"github.com/Dyastin-0/livechat/logger"
	"github.com/dustin/go-humanize"
)

// Stats counts transfers in both directions. Safe for concurrent use.
type Stats struct {
	Received atomic.Int64
	Rejected atomic.Int64
	Sent     atomic.Int64
	Failed   atomic.Int64
	BytesIn  atomic.Int64
	BytesOut atomic.Int64

	start time.Time
}

type StatsSnapshot struct {
	Received int64
	Rejected int64
	Sent     int64
	Failed   int64
	BytesIn  int64
	BytesOut int64
	Uptime   time.Duration
}

func NewStats() *Stats {
	return &Stats{start: time.Now()}
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Received: s.Received.Load(),
		Rejected: s.Rejected.Load(),
		Sent:     s.Sent.Load(),
		Failed:   s.Failed.Load(),
		BytesIn:  s.BytesIn.Load(),
		BytesOut: s.BytesOut.Load(),
		Uptime:   time.Since(s.start),
	}
}

func (s *Stats) Log(l logger.Logger) {
	snap := s.Snapshot()

	l.WithInt("received", int(snap.Received)).
		WithInt("rejected", int(snap.Rejected)).
		WithInt("sent", int(snap.Sent)).
		WithInt("failed", int(snap.Failed)).
		WithStr("bytes_in", humanize.Bytes(uint64(snap.BytesIn))).
		WithStr("bytes_out", humanize.Bytes(uint64(snap.BytesOut))).
		WithStr("uptime", snap.Uptime.Round(time.Second).String()).
		Info("transfer stats")
}
