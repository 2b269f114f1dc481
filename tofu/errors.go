package tofu

import "errors"

var (
	ErrConnectionDenied      = errors.New("connection denied")
	ErrNoCertificateProvided = errors.New("no certificate provided")
	ErrFingerprintMismatch   = errors.New("peer fingerprint does not match the trusted one")
	ErrInvalidPeerID         = errors.New("invalid peer id")
	ErrMustSpecifyCertPaths  = errors.New("no or missing cert path")
)
