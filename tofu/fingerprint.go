package tofu

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const fingerprintAlg = "sha256"

// Fingerprint hashes a DER encoded public key.
func Fingerprint(publicKey []byte) []byte {
	sum := sha256.Sum256(publicKey)
	return sum[:]
}

// FormatFingerprint renders a fingerprint the way it is stored, e.g. "sha256:ab12...".
func FormatFingerprint(fingerprint []byte) string {
	return fmt.Sprintf("%s:%s", fingerprintAlg, hex.EncodeToString(fingerprint))
}

func (t *Tofu) trust(id string, fingerprint []byte) error {
	if err := validID(id); err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(t.TrustPath, id), []byte(FormatFingerprint(fingerprint)), 0600)
}

// known reports whether id has a stored fingerprint, and whether it matches.
func (t *Tofu) known(id string, fingerprint []byte) (stored bool, match bool, err error) {
	if err := validID(id); err != nil {
		return false, false, err
	}

	data, err := os.ReadFile(filepath.Join(t.TrustPath, id))
	if errors.Is(err, fs.ErrNotExist) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}

	return true, strings.TrimSpace(string(data)) == FormatFingerprint(fingerprint), nil
}

// IDs name files under TrustPath, so anything that could escape it is refused.
func validID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidPeerID, id)
	}
	return nil
}
