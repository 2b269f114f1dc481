package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Dyastin-0/livechat/cipherbox"
	"github.com/Dyastin-0/livechat/logger"
	"github.com/Dyastin-0/livechat/progress"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultSendTimeout = 5 * time.Second
	DefaultMaxOutbound = 8
)

type SenderOptions struct {
	Transport Transport

	// ConnectTimeout bounds each connect attempt.
	ConnectTimeout time.Duration

	// IOTimeout is the deadline for writing a frame once connected. Zero means no deadline.
	IOTimeout time.Duration

	// MaxOutbound caps concurrent connections per SendToTargets call. Zero means one per target.
	MaxOutbound int

	MaxPayload int64
	Progress   *progress.Progress
	Stats      *Stats
	Logger     logger.Logger
}

type Sender struct {
	proto       *Proto
	box         cipherbox.Box
	transport   Transport
	timeout     time.Duration
	ioTimeout   time.Duration
	maxOutbound int
	progress    *progress.Progress
	stats       *Stats
	log         logger.Logger
}

// TargetResult is the outcome of delivering one frame to one target.
type TargetResult struct {
	Target   PeerTarget
	Bytes    int64
	Duration time.Duration
	Err      error
}

func (r TargetResult) OK() bool {
	return r.Err == nil
}

// Results holds one entry per requested target, in request order.
type Results []TargetResult

func (r Results) Succeeded() []PeerTarget {
	var out []PeerTarget
	for _, res := range r {
		if res.OK() {
			out = append(out, res.Target)
		}
	}
	return out
}

func (r Results) Failed() Results {
	var out Results
	for _, res := range r {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Err joins every per-target error, or returns nil when all succeeded.
func (r Results) Err() error {
	var errs []error
	for _, res := range r {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Target, res.Err))
		}
	}
	return errors.Join(errs...)
}

func NewSender(box cipherbox.Box, opts SenderOptions) *Sender {
	if opts.Transport == nil {
		opts.Transport = TCP{}
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultSendTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Stats == nil {
		opts.Stats = NewStats()
	}

	return &Sender{
		proto:       NewProto(opts.MaxPayload),
		box:         box,
		transport:   opts.Transport,
		timeout:     opts.ConnectTimeout,
		ioTimeout:   opts.IOTimeout,
		maxOutbound: opts.MaxOutbound,
		progress:    opts.Progress,
		stats:       opts.Stats,
		log:         opts.Logger,
	}
}

// SendFile reads filePath and delivers it to every target.
// Only the base name of filePath goes on the wire.
func (s *Sender) SendFile(ctx context.Context, filePath string, targets []PeerTarget, caption string) (Results, error) {
	fileBytes, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fsError("read", filePath, err)
	}

	return s.SendToTargets(ctx, fileBytes, targets, filepath.Base(filePath), caption), nil
}

// SendToTargets encrypts fileBytes once and writes one frame per target, each over its own
// connection. Attempts run concurrently and a failing target never affects the others.
func (s *Sender) SendToTargets(ctx context.Context, fileBytes []byte, targets []PeerTarget, fileName, caption string) Results {
	results := make(Results, len(targets))
	for i, t := range targets {
		results[i].Target = t
	}

	if len(targets) == 0 {
		return results
	}

	frame, err := s.buildFrame(fileBytes, fileName, caption)
	if err != nil {
		s.log.WithErr(err).WithStr("file", fileName).Error("failed to build frame")
		for i := range results {
			results[i].Err = err
		}
		s.stats.Failed.Add(int64(len(targets)))
		return results
	}

	g := &errgroup.Group{}
	if s.maxOutbound > 0 {
		g.SetLimit(s.maxOutbound)
	}

	for i := range results {
		g.Go(func() error {
			start := time.Now()
			n, err := s.send(ctx, results[i].Target, frame)

			results[i].Bytes = n
			results[i].Duration = time.Since(start)
			results[i].Err = err

			return nil
		})
	}

	_ = g.Wait()

	return results
}

func (s *Sender) buildFrame(fileBytes []byte, fileName, caption string) (*Frame, error) {
	frame := &Frame{
		FrameHeader: FrameHeader{Name: fileName, Caption: caption},
	}

	if err := s.proto.validateHeader(&frame.FrameHeader); err != nil {
		return nil, err
	}

	payload, err := s.box.Encrypt(fileBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt payload: %w", err)
	}

	if err := s.proto.validatePayload(len(payload)); err != nil {
		return nil, err
	}
	frame.Payload = payload

	return frame, nil
}

func (s *Sender) send(ctx context.Context, target PeerTarget, frame *Frame) (n int64, err error) {
	log := s.log.WithStr("target", target.String())

	defer func() {
		if err != nil {
			s.stats.Failed.Add(1)
			log.WithErr(err).Error("failed to send file")
			return
		}
		s.stats.Sent.Add(1)
		s.stats.BytesOut.Add(n)
		log.WithInt("bytes", int(n)).Info("file sent")
	}()

	conn, err := s.transport.Dial(ctx, target.String(), s.timeout)
	if err != nil {
		return 0, &ConnectError{Target: target, Err: err}
	}
	defer conn.Close()

	if s.ioTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(s.ioTimeout)); err != nil {
			return 0, err
		}
	}

	cw := &countingWriter{w: conn}
	var w io.Writer = cw

	if s.progress != nil {
		total := int64(2*LengthSize + len(frame.Name) + len(frame.Caption) + len(frame.Payload))
		bar := s.progress.NewBar(total, target.String())
		defer func() {
			if err != nil {
				bar.Abort()
			}
		}()
		w = bar.Writer(cw)
	}

	if err := s.proto.WriteFrame(w, frame); err != nil {
		return cw.n, err
	}

	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
