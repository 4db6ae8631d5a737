package c2pa

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"github.com/opencontent-labs/c2pa-go/pkg/jumbf"
)

// referenceKind distinguishes assertion hashed-URIs (claim.assertions)
// from ingredient hashed-URIs (Ingredient.ActiveManifest), which use a
// different status vocabulary on miss/mismatch (§4.F).
type referenceKind int

const (
	referenceAssertion referenceKind = iota
	referenceIngredient
)

func newDigest(alg string) (hash.Hash, error) {
	switch alg {
	case "", "sha256":
		return sha256.New(), nil
	case "sha384":
		return sha512.New384(), nil
	case "sha512":
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("%s: %s", StatusAlgorithmUnsupported, alg)
	}
}

// hashTargetBytes digests the encoded bytes of every child of target
// (description plus content boxes), never the target's own superbox
// header, per §4.F step 3.
func hashTargetBytes(target *jumbf.Box, alg string) ([]byte, error) {
	d, err := newDigest(alg)
	if err != nil {
		return nil, err
	}
	if !target.IsContainer() {
		// A non-container requestable box (e.g. a bare content box with
		// its own label) hashes its own encoded bytes.
		raw, err := target.EncodeToBytes()
		if err != nil {
			return nil, err
		}
		d.Write(raw)
		return d.Sum(nil), nil
	}
	for _, child := range target.Children() {
		raw, err := child.EncodeToBytes()
		if err != nil {
			return nil, err
		}
		d.Write(raw)
	}
	return d.Sum(nil), nil
}

// ComputeHashedURI resolves ref against manifest, computes its digest
// (selecting the algorithm per §4.F step 2), and either verifies it
// against an existing ref.Hash or fills one in. inheritedAlg is the
// nearest enclosing alg (typically the claim's).
func ComputeHashedURI(store *Store, manifest *Manifest, ref HashedURI, inheritedAlg string, kind referenceKind, verifying bool) (HashedURI, Status) {
	target, err := store.Find(ref.URL, manifest.Box)
	if err != nil {
		code := StatusAssertionMissing
		if kind == referenceIngredient {
			code = StatusClaimMissing
		}
		return ref, errStatus(code, ref.URL, err.Error())
	}

	alg := ref.Alg
	if alg == "" {
		alg = inheritedAlg
	}
	if alg == "" {
		alg = "sha256"
	}

	digest, err := hashTargetBytes(target, alg)
	if err != nil {
		return ref, errStatus(StatusAlgorithmUnsupported, ref.URL, err.Error())
	}

	matchCode, mismatchCode := StatusAssertionHashedURIMatch, StatusAssertionHashedURIMismatch
	if kind == referenceIngredient {
		matchCode, mismatchCode = StatusIngredientHashedURIMatch, StatusIngredientHashedURIMismatch
	}

	if len(ref.Hash) > 0 {
		if !bytes.Equal(ref.Hash, digest) {
			return ref, errStatus(mismatchCode, ref.URL, "recomputed digest does not match stored hash")
		}
		return ref, ok(matchCode, ref.URL)
	}

	if verifying {
		// Verification never fills in a missing hash; an absent hash on a
		// claim-referenced assertion is itself a mismatch.
		return ref, errStatus(mismatchCode, ref.URL, "no hash recorded for this reference")
	}

	out := ref
	out.Alg = alg
	out.Hash = digest
	return out, ok(matchCode, ref.URL)
}
