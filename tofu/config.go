package tofu

import "crypto/tls"

func (t *Tofu) newServerConfig() *tls.Config {
	return &tls.Config{
		Certificates:     []tls.Certificate{t.Certificate},
		ClientAuth:       tls.RequireAnyClientCert,
		VerifyConnection: t.verifyPeer,
		MinVersion:       tls.VersionTLS12,
	}
}

// Chain verification is replaced by the fingerprint check in verifyPeer.
func (t *Tofu) newClientConfig() *tls.Config {
	return &tls.Config{
		Certificates:       []tls.Certificate{t.Certificate},
		InsecureSkipVerify: true,
		VerifyConnection:   t.verifyPeer,
		MinVersion:         tls.VersionTLS12,
	}
}
