// Package tofu is a TLS transport that trusts a peer's certificate on first use.
//
// Each process holds a self-signed certificate named after its ID. The first time a peer
// presents a certificate its public key fingerprint is offered to OnNewPeer and, if accepted,
// stored under TrustPath. Later connections from that ID must present the same key.
package tofu

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/Dyastin-0/livechat/logger"
)

type Tofu struct {
	ID        string
	CertPath  string
	TrustPath string

	// OnNewPeer decides whether an unknown peer is trusted. The default trusts everyone.
	OnNewPeer func(id string, fingerprint []byte) bool

	Certificate  tls.Certificate
	ServerConfig *tls.Config
	ClientConfig *tls.Config

	log     logger.Logger
	trustMu sync.Mutex
}

func New(id, certPath, trustPath string, log logger.Logger) (*Tofu, error) {
	if certPath == "" || trustPath == "" {
		return nil, ErrMustSpecifyCertPaths
	}
	if err := validID(id); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	if err := os.MkdirAll(certPath, 0700); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(trustPath, 0700); err != nil {
		return nil, err
	}

	t := &Tofu{
		ID:        id,
		CertPath:  certPath,
		TrustPath: trustPath,
		OnNewPeer: func(string, []byte) bool { return true },
		log:       log.WithStr("id", id),
	}

	cert, err := t.loadOrGenerateCert()
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}
	t.Certificate = cert

	t.ServerConfig = t.newServerConfig()
	t.ClientConfig = t.newClientConfig()

	return t, nil
}

// Listen accepts TLS connections. The handshake, and with it peer verification,
// runs on the first read.
func (t *Tofu) Listen(addr string) (net.Listener, error) {
	return tls.Listen("tcp", addr, t.ServerConfig)
}

// Dial connects and completes the handshake within timeout.
func (t *Tofu) Dial(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	d := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config:    t.ClientConfig,
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return d.DialContext(ctx, "tcp", addr)
}

func (t *Tofu) logger() logger.Logger {
	if t.log == nil {
		return logger.Nop()
	}
	return t.log
}

// PeerID returns the ID a connected peer presented.
func PeerID(conn *tls.Conn) (string, error) {
	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return "", ErrNoCertificateProvided
	}
	return certs[0].Subject.CommonName, nil
}
