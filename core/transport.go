package core

import (
	"context"
	"net"
	"time"
)

// Transport opens the byte streams frames travel over.
type Transport interface {
	Listen(addr string) (net.Listener, error)
	Dial(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error)
}

// TCP is the plain TCP transport.
type TCP struct{}

func (TCP) Listen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

func (TCP) Dial(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	d := &net.Dialer{Timeout: timeout}
	return d.DialContext(ctx, "tcp", addr)
}
