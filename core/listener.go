package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/Dyastin-0/livechat/cipherbox"
	"github.com/Dyastin-0/livechat/logger"
	"golang.org/x/net/netutil"
)

const DefaultPort uint16 = 8080

type ListenerOptions struct {
	// Addr to bind, ":8080" listens on every interface.
	Addr      string
	Transport Transport

	// IOTimeout is the deadline for reading a whole frame. Zero means a stalled peer
	// holds its connection open forever.
	IOTimeout time.Duration

	// MaxInbound caps concurrent connections. Zero means unbounded.
	MaxInbound int

	Sink    MediaSink
	Sweeper *Sweeper
	Logger  logger.Logger
}

type Listener struct {
	addr       string
	transport  Transport
	receiver   *Receiver
	sweeper    *Sweeper
	sink       MediaSink
	ioTimeout  time.Duration
	maxInbound int
	log        logger.Logger

	mu    sync.Mutex
	ln    net.Listener
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

func NewListener(receiver *Receiver, opts ListenerOptions) *Listener {
	if opts.Addr == "" {
		opts.Addr = fmt.Sprintf(":%d", DefaultPort)
	}
	if opts.Transport == nil {
		opts.Transport = TCP{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	return &Listener{
		addr:       opts.Addr,
		transport:  opts.Transport,
		receiver:   receiver,
		sweeper:    opts.Sweeper,
		sink:       opts.Sink,
		ioTimeout:  opts.IOTimeout,
		maxInbound: opts.MaxInbound,
		log:        opts.Logger,
		conns:      make(map[net.Conn]struct{}),
	}
}

// Start binds the listener and serves until ctx is cancelled.
func (l *Listener) Start(ctx context.Context) error {
	ln, err := l.Listen()
	if err != nil {
		return err
	}

	return l.Serve(ctx, ln)
}

// Listen binds the configured address and prepares the receive directory.
func (l *Listener) Listen() (net.Listener, error) {
	if err := l.receiver.EnsureDir(); err != nil {
		return nil, err
	}

	ln, err := l.transport.Listen(l.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", l.addr, err)
	}

	if l.maxInbound > 0 {
		ln = netutil.LimitListener(ln, l.maxInbound)
	}

	if l.ioTimeout <= 0 {
		l.log.Warn("no read deadline configured, a stalled peer can hold a connection open indefinitely")
	}

	return ln, nil
}

// Addr returns the bound address once Serve is running.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Serve accepts connections until ctx is cancelled, handling each one on its own goroutine.
// On cancellation open connections are closed and waited for.
func (l *Listener) Serve(ctx context.Context, ln net.Listener) error {
	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()

	l.log.WithStr("addr", ln.Addr().String()).WithStr("dir", l.receiver.Dir()).Info("listening")

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	defer l.wg.Wait()

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				l.closeConns()
				return nil
			default:
			}

			if errors.Is(err, net.ErrClosed) {
				return nil
			}

			delay = backoff(delay)
			l.log.WithErr(err).Warn("accept error")
			time.Sleep(delay)
			continue
		}
		delay = 0

		l.track(conn, true)
		l.wg.Add(1)
		go func(conn net.Conn) {
			defer l.wg.Done()
			defer l.track(conn, false)
			defer conn.Close()
			l.handleConn(conn)
		}(conn)
	}
}

func (l *Listener) track(conn net.Conn, add bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if add {
		l.conns[conn] = struct{}{}
	} else {
		delete(l.conns, conn)
	}
}

func (l *Listener) closeConns() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for conn := range l.conns {
		conn.Close()
	}
}

func (l *Listener) handleConn(conn net.Conn) {
	log := l.log.WithStr("remote", conn.RemoteAddr().String())
	log.Debug("client connected")

	if l.ioTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(l.ioTimeout)); err != nil {
			log.WithErr(err).Error("failed to set deadline")
			return
		}
	}

	received, err := l.receiver.Receive(conn)
	if err != nil {
		logReceiveError(log, err)
		return
	}

	log.WithStr("file", received.Path).
		WithStr("name", received.Name).
		WithInt("bytes", received.Size).
		WithBool("caption", received.CaptionPath != "").
		Info(fmt.Sprintf("%s file received and saved", strings.ToUpper(received.Kind.String())))

	if l.sink != nil {
		l.sink.EnqueueMedia(received.Path, received.Caption)
	}

	if l.sweeper != nil {
		l.sweeper.Sweep()
	}
}

func logReceiveError(log logger.Logger, err error) {
	if errors.Is(err, ErrEmptyStream) {
		log.Debug("connection closed without data")
		return
	}

	log = log.WithErr(err)

	switch {
	case errors.Is(err, ErrUnsupportedType):
		log.Warn("rejected file of unsupported type")
	case errors.Is(err, cipherbox.ErrDecryption):
		log.Warn("rejected frame that failed to decrypt")
	case errors.Is(err, ErrFrameTruncated):
		log.Warn("dropped truncated frame")
	case errors.Is(err, ErrFieldTooLong), errors.Is(err, ErrPayloadTooLarge):
		log.Warn("rejected oversized frame")
	case errors.Is(err, ErrFilesystem):
		log.Error("failed to persist received file")
	default:
		log.Error("connection handler error")
	}
}

func backoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		d = time.Second
	}
	return d
}
