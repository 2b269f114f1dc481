package tofu

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestTofu(t *testing.T, id string) *Tofu {
	t.Helper()

	dir := t.TempDir()
	tofu, err := New(id, filepath.Join(dir, "certs"), filepath.Join(dir, "trust"), nil)
	if err != nil {
		t.Fatalf("failed to create tofu: %v", err)
	}
	return tofu
}

func TestGenerateSelfSignedCert(t *testing.T) {
	tmpDir := t.TempDir()

	tofu := Tofu{
		CertPath: tmpDir,
		ID:       "testnode",
	}

	cert, err := tofu.generateSelfSignedCert()
	if err != nil {
		t.Fatalf("failed to generate self-signed cert: %v", err)
	}

	x509Cert, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatalf("failed to parse generated certificate: %v", err)
	}

	if x509Cert.Subject.CommonName != "testnode" {
		t.Errorf("unexpected CN: got %s, want %s", x509Cert.Subject.CommonName, "testnode")
	}

	for _, name := range []string{"testnode.crt", "testnode.key"} {
		info, err := os.Stat(filepath.Join(tmpDir, name))
		if err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
			continue
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("%s has mode %v, want 0600", name, info.Mode().Perm())
		}
	}
}

func TestLoadOrGenerateCert(t *testing.T) {
	tofu := &Tofu{
		CertPath: t.TempDir(),
		ID:       "node123",
	}

	cert, err := tofu.loadOrGenerateCert()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loadedCert, err := tofu.loadOrGenerateCert()
	if err != nil {
		t.Fatalf("failed to load existing cert: %v", err)
	}

	if string(cert.Certificate[0]) != string(loadedCert.Certificate[0]) {
		t.Error("expected the loaded cert to match the originally generated one")
	}
}

func TestTrustAndKnown(t *testing.T) {
	tofu := &Tofu{TrustPath: t.TempDir()}

	fp := Fingerprint([]byte("key one"))
	other := Fingerprint([]byte("key two"))

	stored, _, err := tofu.known("peer123", fp)
	if err != nil || stored {
		t.Fatalf("expected unknown peer, got stored=%v err=%v", stored, err)
	}

	if err := tofu.trust("peer123", fp); err != nil {
		t.Fatalf("failed to save fingerprint: %v", err)
	}

	stored, match, err := tofu.known("peer123", fp)
	if err != nil || !stored || !match {
		t.Errorf("expected match, got stored=%v match=%v err=%v", stored, match, err)
	}

	stored, match, err = tofu.known("peer123", other)
	if err != nil || !stored || match {
		t.Errorf("expected mismatch, got stored=%v match=%v err=%v", stored, match, err)
	}

	data, err := os.ReadFile(filepath.Join(tofu.TrustPath, "peer123"))
	if err != nil {
		t.Fatalf("failed to read fingerprint file: %v", err)
	}
	if string(data) != FormatFingerprint(fp) {
		t.Errorf("stored %q, want %q", data, FormatFingerprint(fp))
	}
}

func TestInvalidPeerID(t *testing.T) {
	tofu := &Tofu{TrustPath: t.TempDir()}

	for _, id := range []string{"", ".", "..", "../etc", `a\b`} {
		if err := tofu.trust(id, []byte("x")); !errors.Is(err, ErrInvalidPeerID) {
			t.Errorf("trust(%q): expected ErrInvalidPeerID, got %v", id, err)
		}
	}
}

func createTestCert(t *testing.T, commonName string) *x509.Certificate {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("failed to create cert: %v", err)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		t.Fatalf("failed to parse cert: %v", err)
	}

	return cert
}

func TestVerifyPeer(t *testing.T) {
	peerID := "peerABC"
	tofu := &Tofu{
		TrustPath: t.TempDir(),
		OnNewPeer: func(id string, fingerprint []byte) bool {
			return id == peerID
		},
	}

	t.Run("no cert provided", func(t *testing.T) {
		err := tofu.verifyPeer(tls.ConnectionState{})
		if !errors.Is(err, ErrNoCertificateProvided) {
			t.Errorf("expected ErrNoCertificateProvided, got: %v", err)
		}
	})

	cert := createTestCert(t, peerID)

	t.Run("unknown cert, trusted by OnNewPeer", func(t *testing.T) {
		state := tls.ConnectionState{PeerCertificates: []*x509.Certificate{cert}}

		if err := tofu.verifyPeer(state); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if err := tofu.verifyPeer(state); err != nil {
			t.Fatalf("expected known cert to be accepted, got: %v", err)
		}
	})

	t.Run("known id, different key", func(t *testing.T) {
		impostor := createTestCert(t, peerID)
		state := tls.ConnectionState{PeerCertificates: []*x509.Certificate{impostor}}

		if err := tofu.verifyPeer(state); !errors.Is(err, ErrFingerprintMismatch) {
			t.Errorf("expected ErrFingerprintMismatch, got: %v", err)
		}
	})

	t.Run("unknown cert, rejected by OnNewPeer", func(t *testing.T) {
		state := tls.ConnectionState{PeerCertificates: []*x509.Certificate{createTestCert(t, "rejected-peer")}}

		if err := tofu.verifyPeer(state); !errors.Is(err, ErrConnectionDenied) {
			t.Errorf("expected ErrConnectionDenied, got: %v", err)
		}
	})
}

func TestDialAndListen(t *testing.T) {
	server := newTestTofu(t, "server")
	client := newTestTofu(t, "client")

	var prompted []string
	server.OnNewPeer = func(id string, fingerprint []byte) bool {
		prompted = append(prompted, id)
		return true
	}

	ln, err := server.Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	got := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			close(got)
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		got <- data
	}()

	conn, err := client.Dial(context.Background(), ln.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	id, err := PeerID(conn.(*tls.Conn))
	if err != nil || id != "server" {
		t.Errorf("PeerID = %q, %v; want server", id, err)
	}

	if _, err := conn.Write([]byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.Close()

	select {
	case data := <-got:
		if string(data) != "hello" {
			t.Errorf("server read %q", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never read the payload")
	}

	if len(prompted) != 1 || prompted[0] != "client" {
		t.Errorf("OnNewPeer calls = %v, want [client]", prompted)
	}

	if _, err := os.Stat(filepath.Join(client.TrustPath, "server")); err != nil {
		t.Errorf("client did not record server fingerprint: %v", err)
	}
}

func TestDialDeniedPeer(t *testing.T) {
	server := newTestTofu(t, "server")
	client := newTestTofu(t, "client")
	client.OnNewPeer = func(string, []byte) bool { return false }

	ln, err := server.Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			io.Copy(io.Discard, conn)
			conn.Close()
		}
	}()

	_, err = client.Dial(context.Background(), ln.Addr().String(), time.Second)
	if !errors.Is(err, ErrConnectionDenied) {
		t.Errorf("expected ErrConnectionDenied, got %v", err)
	}
}

func TestNewRequiresPaths(t *testing.T) {
	if _, err := New("x", "", "", nil); !errors.Is(err, ErrMustSpecifyCertPaths) {
		t.Errorf("expected ErrMustSpecifyCertPaths, got %v", err)
	}
}
