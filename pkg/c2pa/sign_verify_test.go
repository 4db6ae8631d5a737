package c2pa

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/opencontent-labs/c2pa-go/pkg/cose"
)

// selfSignedIdentity builds a P-256 identity whose single certificate
// satisfies CheckCertificateProfile for PurposeSigning on its own (no
// issuing CA needed, since it is self-signed).
func selfSignedIdentity(t *testing.T) *cose.Identity {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "c2pa-go test signer"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageEmailProtection},
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	return &cose.Identity{Key: priv, Chain: []*x509.Certificate{cert}}
}

// newSignedManifest builds a single-manifest store with one hard binding,
// signs it over asset, and returns the store, manifest and Sign's statuses.
func newSignedManifest(t *testing.T, label string, asset []byte) (*Store, *Manifest, StatusList) {
	t.Helper()
	store, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	manifest, err := store.AddManifest(label)
	if err != nil {
		t.Fatalf("AddManifest: %v", err)
	}
	dh, err := NewDataHashAssertion(nil, "sha256")
	if err != nil {
		t.Fatalf("NewDataHashAssertion: %v", err)
	}
	content, err := EncodeCBORAssertion(dh)
	if err != nil {
		t.Fatalf("EncodeCBORAssertion: %v", err)
	}
	if _, err := manifest.AddAssertion(labelHashData, content); err != nil {
		t.Fatalf("AddAssertion: %v", err)
	}

	claim := manifest.Claim()
	data, err := claim.Data()
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	data.Format = "application/octet-stream"
	data.InstanceID = "xmp:iid:" + label
	if err := claim.SetData(data); err != nil {
		t.Fatalf("SetData: %v", err)
	}

	identity := selfSignedIdentity(t)
	statuses, err := Sign(store, manifest, identity, bytes.NewReader(asset), "c2pa-go/test", "sha256")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return store, manifest, statuses
}

func TestSignAndVerifyEndToEnd(t *testing.T) {
	asset := []byte("hello, provenance")
	store, manifest, signStatuses := newSignedManifest(t, "urn:uuid:sign-verify-test", asset)
	if signStatuses.HasErrors() {
		t.Fatalf("Sign reported errors: %+v", signStatuses)
	}

	statuses, err := Verify(store, manifest, bytes.NewReader(asset), nil)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if statuses.HasErrors() {
		t.Fatalf("Verify reported errors: %+v", statuses)
	}

	var sawSigValidated, sawDataHashMatch bool
	for _, s := range statuses {
		if s.Code == StatusClaimSignatureValidated {
			sawSigValidated = true
		}
		if s.Code == StatusAssertionDataHashMatch {
			sawDataHashMatch = true
		}
	}
	if !sawSigValidated {
		t.Fatalf("expected %s in statuses, got %+v", StatusClaimSignatureValidated, statuses)
	}
	if !sawDataHashMatch {
		t.Fatalf("expected %s in statuses, got %+v", StatusAssertionDataHashMatch, statuses)
	}
}

func TestVerifyDetectsTamperedAsset(t *testing.T) {
	asset := []byte("hello, provenance")
	store, manifest, signStatuses := newSignedManifest(t, "urn:uuid:tamper-test", asset)
	if signStatuses.HasErrors() {
		t.Fatalf("Sign reported errors: %+v", signStatuses)
	}

	tampered := append([]byte(nil), asset...)
	tampered[0] ^= 0xFF

	statuses, err := Verify(store, manifest, bytes.NewReader(tampered), nil)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !statuses.HasErrors() {
		t.Fatalf("expected a data-hash mismatch, got no errors: %+v", statuses)
	}
	var sawMismatch bool
	for _, s := range statuses {
		if s.Code == StatusAssertionDataHashMismatch {
			sawMismatch = true
		}
	}
	if !sawMismatch {
		t.Fatalf("expected %s in statuses, got %+v", StatusAssertionDataHashMismatch, statuses)
	}
}

func TestComputeHashedURIMismatch(t *testing.T) {
	store, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	manifest, err := store.AddManifest("urn:uuid:hasheduri-mismatch-test")
	if err != nil {
		t.Fatalf("AddManifest: %v", err)
	}
	dh, err := NewDataHashAssertion(nil, "sha256")
	if err != nil {
		t.Fatalf("NewDataHashAssertion: %v", err)
	}
	content, err := EncodeCBORAssertion(dh)
	if err != nil {
		t.Fatalf("EncodeCBORAssertion: %v", err)
	}
	box, err := manifest.AddAssertion(labelHashData, content)
	if err != nil {
		t.Fatalf("AddAssertion: %v", err)
	}

	path, err := store.FindPath(box, manifest.Box)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}

	updated, status := ComputeHashedURI(store, manifest, HashedURI{URL: path}, "sha256", referenceAssertion, false)
	if status.IsError {
		t.Fatalf("computing the reference hash failed: %+v", status)
	}

	tampered := updated
	tampered.Hash = append([]byte(nil), updated.Hash...)
	tampered.Hash[0] ^= 0xFF

	_, mismatch := ComputeHashedURI(store, manifest, tampered, "sha256", referenceAssertion, true)
	if !mismatch.IsError || mismatch.Code != StatusAssertionHashedURIMismatch {
		t.Fatalf("expected %s, got %+v", StatusAssertionHashedURIMismatch, mismatch)
	}
}

func TestComputeDataHashPadFixedRegion(t *testing.T) {
	cases := [][]Exclusion{
		nil,
		{{Start: 100, Length: 50}},
		{{Start: 100, Length: 50}, {Start: 200, Length: 10}, {Start: 300, Length: 999999}},
	}
	for i, exclusions := range cases {
		pad, err := computeDataHashPad(exclusions)
		if err != nil {
			t.Fatalf("case %d: computeDataHashPad: %v", i, err)
		}
		excBytes, err := canonicalCBOR(exclusions)
		if err != nil {
			t.Fatalf("case %d: canonicalCBOR: %v", i, err)
		}
		total := len(excBytes) + cborByteStringHeaderLen(len(pad)) + len(pad)
		if total != dataHashFixedRegion {
			t.Fatalf("case %d: exclusions+pad region = %d bytes, want %d", i, total, dataHashFixedRegion)
		}
	}
}

func TestHardBindingAssertionRejectsDuplicates(t *testing.T) {
	store, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	manifest, err := store.AddManifest("urn:uuid:dup-hard-binding-test")
	if err != nil {
		t.Fatalf("AddManifest: %v", err)
	}
	dh, err := NewDataHashAssertion(nil, "sha256")
	if err != nil {
		t.Fatalf("NewDataHashAssertion: %v", err)
	}
	for i := 0; i < 2; i++ {
		content, err := EncodeCBORAssertion(dh)
		if err != nil {
			t.Fatalf("EncodeCBORAssertion: %v", err)
		}
		if _, err := manifest.AddAssertion(labelHashData, content); err != nil {
			t.Fatalf("AddAssertion %d: %v", i, err)
		}
	}
	if _, err := manifest.HardBindingAssertion(); err == nil {
		t.Fatalf("expected an error for two c2pa.hash.data assertions in one manifest")
	}
}

func TestRepackageIngredientRoundTrip(t *testing.T) {
	priorAsset := []byte("original asset bytes")
	_, priorManifest, priorStatuses := newSignedManifest(t, "urn:uuid:repackage-prior", priorAsset)
	if priorStatuses.HasErrors() {
		t.Fatalf("prior Sign reported errors: %+v", priorStatuses)
	}

	newStore, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	newManifest, err := NewManifestWithHardBinding(newStore, "urn:uuid:repackage-new", "sha256")
	if err != nil {
		t.Fatalf("NewManifestWithHardBinding: %v", err)
	}

	ingredientURL, err := AdoptManifestAsIngredient(newStore, newManifest, priorManifest)
	if err != nil {
		t.Fatalf("AdoptManifestAsIngredient: %v", err)
	}
	if _, err := AddIngredientAssertion(newStore, newManifest, "parentOf", ingredientURL, "sha256"); err != nil {
		t.Fatalf("AddIngredientAssertion: %v", err)
	}
	if err := AddRepackagedActionAssertion(newManifest, ingredientURL); err != nil {
		t.Fatalf("AddRepackagedActionAssertion: %v", err)
	}

	if got := len(newManifest.IngredientParents()); got != 1 {
		t.Fatalf("IngredientParents() = %d, want 1", got)
	}

	claim := newManifest.Claim()
	data, err := claim.Data()
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	data.Format = "application/octet-stream"
	data.InstanceID = "xmp:iid:repackage-new"
	if err := claim.SetData(data); err != nil {
		t.Fatalf("SetData: %v", err)
	}

	identity := selfSignedIdentity(t)
	newAsset := []byte("repackaged asset bytes")
	signStatuses, err := Sign(newStore, newManifest, identity, bytes.NewReader(newAsset), "c2pa-go/test", "sha256")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if signStatuses.HasErrors() {
		t.Fatalf("Sign reported errors: %+v", signStatuses)
	}

	verifyStatuses, err := Verify(newStore, newManifest, bytes.NewReader(newAsset), nil)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if verifyStatuses.HasErrors() {
		t.Fatalf("Verify reported errors: %+v", verifyStatuses)
	}

	var sawIngredientMatch bool
	for _, s := range verifyStatuses {
		if s.Code == StatusIngredientHashedURIMatch {
			sawIngredientMatch = true
		}
	}
	if !sawIngredientMatch {
		t.Fatalf("expected %s in verify statuses, got %+v", StatusIngredientHashedURIMatch, verifyStatuses)
	}
}
