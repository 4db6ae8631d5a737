package cose

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"
)

func selfSignedIdentity(t *testing.T) *Identity {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "c2pa-go test signer"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	return &Identity{Key: key, Chain: []*x509.Certificate{cert}}
}

func TestSignVerifyDetachedRoundTrip(t *testing.T) {
	id := selfSignedIdentity(t)
	alg, err := AlgorithmForKey(id.Key.Public())
	if err != nil {
		t.Fatalf("AlgorithmForKey: %v", err)
	}

	payload := []byte("claim bytes go here")
	encoded, err := SignDetached(id, alg, payload)
	if err != nil {
		t.Fatalf("SignDetached: %v", err)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded.Chain) != 1 {
		t.Fatalf("expected 1 cert in chain, got %d", len(decoded.Chain))
	}
	if err := decoded.Verify(payload); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerifyDetachedRejectsTamperedPayload(t *testing.T) {
	id := selfSignedIdentity(t)
	alg, err := AlgorithmForKey(id.Key.Public())
	if err != nil {
		t.Fatalf("AlgorithmForKey: %v", err)
	}

	encoded, err := SignDetached(id, alg, []byte("original"))
	if err != nil {
		t.Fatalf("SignDetached: %v", err)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := decoded.Verify([]byte("tampered")); err == nil {
		t.Fatalf("expected verification failure on tampered payload")
	}
}
