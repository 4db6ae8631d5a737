package c2pa

import (
	"bytes"
	"crypto/x509"
	"fmt"

	"github.com/opencontent-labs/c2pa-go/pkg/cose"
	"github.com/opencontent-labs/c2pa-go/pkg/jpeg"
	"github.com/opencontent-labs/c2pa-go/pkg/jumbf"
)

// c2paAPP11Instance is the fixed C2PA instance number used for every
// JUMBF-in-JPEG manifest this package embeds (§6's external interface
// doesn't mandate a specific value; reference tooling uses 1).
const c2paAPP11Instance = 1

// SignAndEmbedJPEG implements the two-pass sizing design from §4.H and
// §9: it dummy-signs over an empty asset to measure the encoded store's
// size, computes the APP11 segment count and the byte range that will be
// reserved for the manifest once embedded, installs that range as the
// hard-binding assertion's exclusion, then signs again over the
// unmodified original JPEG bytes (which, not yet carrying the manifest,
// already have that range "excluded" simply by not containing it yet).
//
// manifest's hard-binding assertion must already be present with no
// exclusions installed; AddAssertion a fresh NewDataHashAssertion(nil,
// alg) assertion before calling this.
func SignAndEmbedJPEG(store *Store, manifest *Manifest, identity *cose.Identity, jpegData []byte, defaultGenerator, defaultAlg string) ([]byte, StatusList, error) {
	hardBinding, err := manifest.HardBindingAssertion()
	if err != nil {
		return nil, nil, err
	}
	if hardBinding == nil {
		return nil, nil, fmt.Errorf("c2pa: embed: manifest has no hard-binding assertion")
	}

	if _, err := Sign(store, manifest, identity, bytes.NewReader(nil), defaultGenerator, defaultAlg); err != nil {
		return nil, nil, fmt.Errorf("c2pa: embed: dummy sign: %w", err)
	}
	measured, err := store.Box.EncodeToBytes()
	if err != nil {
		return nil, nil, fmt.Errorf("c2pa: embed: measure dummy store: %w", err)
	}
	dummySize := len(measured)

	insertOffset, err := jpeg.InsertionOffset(jpegData)
	if err != nil {
		return nil, nil, fmt.Errorf("c2pa: embed: %w", err)
	}
	_, embeddedSize := jpeg.EmbeddedSize(dummySize)
	exclusionLen := int64(embeddedSize - 8)

	dh, err := DecodeDataHash(hardBinding)
	if err != nil {
		return nil, nil, fmt.Errorf("c2pa: embed: %w", err)
	}
	exclusion := []Exclusion{{Start: int64(insertOffset), Length: exclusionLen}}
	if err := replaceDataHashExclusions(hardBinding, exclusion, dh.Alg); err != nil {
		return nil, nil, fmt.Errorf("c2pa: embed: %w", err)
	}

	statuses, err := Sign(store, manifest, identity, bytes.NewReader(jpegData), defaultGenerator, defaultAlg)
	if err != nil {
		return nil, nil, fmt.Errorf("c2pa: embed: second sign: %w", err)
	}
	final, err := store.Box.EncodeToBytes()
	if err != nil {
		return nil, nil, fmt.Errorf("c2pa: embed: measure final store: %w", err)
	}
	if len(final) != dummySize {
		return nil, nil, fmt.Errorf("c2pa: embed: expected %d bytes, second signing gave us %d", dummySize, len(final))
	}

	embedded, err := jpeg.Embed(jpegData, final, c2paAPP11Instance)
	if err != nil {
		return nil, nil, fmt.Errorf("c2pa: embed: %w", err)
	}
	return embedded, statuses, nil
}

// replaceDataHashExclusions rebuilds box's data-hash payload with a new
// exclusion list (recomputing its pad so the exclusions-plus-pad region
// stays exactly 80 bytes, per §4.G), discarding any previously stored
// hash so the next Sign call recomputes it.
func replaceDataHashExclusions(box *jumbf.Box, exclusions []Exclusion, alg string) error {
	dh, err := NewDataHashAssertion(exclusions, alg)
	if err != nil {
		return err
	}
	content, err := EncodeCBORAssertion(dh)
	if err != nil {
		return err
	}
	replaceAssertionContent(box, content)
	return nil
}

// ExtractAndVerifyJPEG implements the read side of §4.I/§4.H for a JPEG
// asset: it pulls the JUMBF store out of the APP11 segments, decodes the
// C2PA tree, and verifies the active manifest against the same file
// (with its manifest-carrying byte range excluded by the stored
// exclusions, exactly as VerifyDataHash expects).
func ExtractAndVerifyJPEG(jpegData []byte, trustRoots *x509.CertPool) (*Store, StatusList, error) {
	raw, err := jpeg.ExtractManifestStore(jpegData)
	if err != nil {
		return nil, nil, fmt.Errorf("c2pa: extract: %w", err)
	}
	box, err := jumbf.Read(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("c2pa: extract: %w", err)
	}
	store, err := OpenStore(box)
	if err != nil {
		return nil, nil, fmt.Errorf("c2pa: extract: %w", err)
	}
	manifest := store.ActiveManifest()
	if manifest == nil {
		return nil, nil, fmt.Errorf("c2pa: extract: store has no manifests")
	}
	statuses, err := Verify(store, manifest, bytes.NewReader(jpegData), trustRoots)
	return store, statuses, err
}
