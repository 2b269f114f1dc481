package tofu

import (
	"crypto/tls"
	"fmt"
)

func (t *Tofu) verifyPeer(cs tls.ConnectionState) error {
	if len(cs.PeerCertificates) == 0 {
		return ErrNoCertificateProvided
	}

	cert := cs.PeerCertificates[0]
	id := cert.Subject.CommonName
	fingerprint := Fingerprint(cert.RawSubjectPublicKeyInfo)

	t.trustMu.Lock()
	defer t.trustMu.Unlock()

	stored, match, err := t.known(id, fingerprint)
	if err != nil {
		return err
	}

	log := t.logger().WithStr("peer", id).WithStr("fingerprint", FormatFingerprint(fingerprint))

	if stored {
		if !match {
			log.Warn("peer presented a different key than the trusted one")
			return fmt.Errorf("%w: %s", ErrFingerprintMismatch, id)
		}
		return nil
	}

	if t.OnNewPeer != nil && !t.OnNewPeer(id, fingerprint) {
		log.Warn("untrusted peer denied")
		return ErrConnectionDenied
	}

	if err := t.trust(id, fingerprint); err != nil {
		return err
	}
	log.Info("trusted new peer")

	return nil
}
