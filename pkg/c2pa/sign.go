package c2pa

import (
	"fmt"
	"io"
	"time"

	"github.com/opencontent-labs/c2pa-go/pkg/cose"
	"github.com/opencontent-labs/c2pa-go/pkg/jumbf"
)

// signingClock returns the timestamp certificate-profile checks validate
// against. A production signer would accept an explicit timestamp-token
// time when one is present (§4.H); this implementation always uses the
// wall clock, since timestamp-token validation is out of scope (§1).
func signingClock() time.Time { return time.Now() }

// Sign implements §4.H's sign(): it fills in the manifest's claim,
// computes the hard-binding and hashed-URI digests, and installs a
// COSE_Sign1 signature over the claim bytes. asset is consumed exactly
// once (§5) and must already have the manifest's reserved byte range
// excluded if this is the second pass of a two-pass embed (§4.H, §9).
//
// Programming faults (missing identity, malformed claim fields) are
// returned as errors and abort immediately, per §7 kind 1; everything
// else is reported through the returned StatusList.
func Sign(store *Store, manifest *Manifest, identity *cose.Identity, asset io.Reader, defaultGenerator, defaultAlg string) (StatusList, error) {
	if identity == nil || identity.Key == nil || len(identity.Chain) == 0 {
		return nil, fmt.Errorf("c2pa: sign: no signer key or certificate chain installed")
	}

	claim := manifest.Claim()
	data, err := claim.Data()
	if err != nil {
		return nil, fmt.Errorf("c2pa: sign: %w", err)
	}
	if data.Format == "" || data.InstanceID == "" {
		return nil, fmt.Errorf("c2pa: sign: claim is missing dc:format or instanceID")
	}

	var statuses StatusList

	if len(data.Assertions) == 0 {
		for _, a := range manifest.Assertions() {
			path, err := store.FindPath(a, manifest.Box)
			if err != nil {
				return nil, fmt.Errorf("c2pa: sign: %w", err)
			}
			data.Assertions = append(data.Assertions, HashedURI{URL: path})
		}
	}

	var hardBinding *jumbf.Box
	for _, ref := range data.Assertions {
		box, err := store.Find(ref.URL, manifest.Box)
		if err != nil {
			statuses.add(errStatus(StatusAssertionMissing, ref.URL, err.Error()))
			continue
		}
		if boxLabel(box) == labelHashData {
			if hardBinding != nil {
				return nil, fmt.Errorf("c2pa: sign: %s", StatusAssertionMultipleHardBindings)
			}
			hardBinding = box
		}
	}
	if hardBinding == nil {
		return nil, fmt.Errorf("c2pa: sign: %s", StatusClaimHardBindingsMissing)
	}

	dh, err := DecodeDataHash(hardBinding)
	if err != nil {
		return nil, fmt.Errorf("c2pa: sign: decode hard binding: %w", err)
	}
	if s := SignDataHash(dh, asset); s.IsError {
		statuses.add(s)
	}
	reencoded, err := EncodeCBORAssertion(dh)
	if err != nil {
		return nil, fmt.Errorf("c2pa: sign: re-encode hard binding: %w", err)
	}
	replaceAssertionContent(hardBinding, reencoded)

	sigBox := manifest.Signature()
	sigURL, err := store.FindPath(sigBox.Box, manifest.Box)
	if err != nil {
		return nil, fmt.Errorf("c2pa: sign: %w", err)
	}
	data.Signature = sigURL
	if data.ClaimGenerator == "" {
		data.ClaimGenerator = defaultGenerator
	}
	if data.Alg == "" {
		data.Alg = defaultAlg
	}
	if data.Alg == "" {
		data.Alg = "sha256"
	}

	for i, ref := range data.Assertions {
		ref.Hash = nil // a re-sign recomputes every digest over the assertion's current content
		updated, s := ComputeHashedURI(store, manifest, ref, data.Alg, referenceAssertion, false)
		data.Assertions[i] = updated
		statuses.add(s)
	}

	if err := claim.SetData(data); err != nil {
		return nil, fmt.Errorf("c2pa: sign: %w", err)
	}
	claimContent := claim.contentBox()
	if claimContent == nil {
		return nil, fmt.Errorf("c2pa: sign: claim has no content after SetData")
	}
	payloadBytes, ok2 := claimContent.Typed().(*jumbf.CBORContent)
	if !ok2 {
		return nil, fmt.Errorf("c2pa: sign: claim content is not cbor")
	}

	alg, err := cose.AlgorithmForKey(identity.Key.Public())
	if err != nil {
		return nil, fmt.Errorf("c2pa: sign: %w", err)
	}

	statuses.addAll(CheckCertificateChainProfile(identity.Chain, signingClock()))

	encoded, err := cose.SignDetached(identity, alg, payloadBytes.Raw)
	if err != nil {
		return nil, fmt.Errorf("c2pa: sign: %w", err)
	}
	sigBox.SetCOSEBytes(encoded)

	final := StatusList{ok(StatusClaimSignatureValidated, sigURL)}
	final.addAll(statuses)
	return final, nil
}

func replaceAssertionContent(assertionBox, content *jumbf.Box) {
	for _, old := range contentChildren(assertionBox) {
		assertionBox.Remove(old)
	}
	assertionBox.Append(content)
}
