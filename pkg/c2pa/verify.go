package c2pa

import (
	"fmt"
	"io"

	"crypto/x509"

	"github.com/opencontent-labs/c2pa-go/pkg/cose"
	"github.com/opencontent-labs/c2pa-go/pkg/jumbf"
)

// Verify implements §4.H's verify(): it recomputes every hashed-URI and
// data-hash digest in manifest, checks the certificate chain's profile,
// and verifies the COSE_Sign1 signature over the regenerated claim
// payload. asset is consumed exactly once (§5) and must be seekable,
// since data-hash verification skips exclusion ranges out of order
// relative to a single forward read.
//
// trustRoots is optional; when nil, no signingCredential.trusted/
// untrusted status is emitted (§4.H's trust-anchor check is opt-in).
func Verify(store *Store, manifest *Manifest, asset io.ReadSeeker, trustRoots *x509.CertPool) (StatusList, error) {
	var statuses StatusList

	sigBox := manifest.Signature()
	raw := sigBox.COSEBytes()
	if raw == nil {
		return nil, fmt.Errorf("c2pa: verify: manifest %q has no signature", manifest.Label())
	}
	decoded, err := cose.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("c2pa: verify: %w", err)
	}
	if !decoded.Tagged() {
		statuses.add(errStatus(StatusGeneralError, "", "COSE_Sign1 structure is not tagged Signature1 (tag 18)"))
	}

	claimBoxes := claimBoxesOf(manifest)
	if len(claimBoxes) > 1 {
		statuses.add(errStatus(StatusClaimMultiple, "", "manifest has more than one claim box"))
	}
	claim := manifest.Claim()
	data, err := claim.Data()
	if err != nil {
		return nil, fmt.Errorf("c2pa: verify: %w", err)
	}

	sigURL, err := store.FindPath(sigBox.Box, manifest.Box)
	if err != nil {
		return nil, fmt.Errorf("c2pa: verify: %w", err)
	}
	if data.Signature != sigURL {
		statuses.add(errStatus(StatusClaimSignatureMissing, data.Signature, "claim.signature does not resolve to this manifest's signature box"))
	}

	if parents := manifest.IngredientParents(); len(parents) > 1 {
		statuses.add(errStatus(StatusManifestMultipleParents, "", "manifest has more than one parentOf ingredient"))
	}

	for _, ref := range data.Assertions {
		_, s := ComputeHashedURI(store, manifest, ref, data.Alg, referenceAssertion, true)
		statuses.add(s)

		box, err := store.Find(ref.URL, manifest.Box)
		if err != nil {
			continue
		}
		if boxLabel(box) == labelHashData {
			dh, err := DecodeDataHash(box)
			if err != nil {
				statuses.add(errStatusCause(StatusAssertionDataHashMismatch, ref.URL, err))
				continue
			}
			if asset != nil {
				statuses.add(VerifyDataHash(dh, asset, ref.URL))
			}
		}
		if boxLabel(box) == labelIngredient {
			statuses.addAll(verifyIngredientReferences(store, manifest, box))
		}
	}

	statuses.addAll(CheckCertificateChainProfile(decoded.Chain, signingClock()))
	if trustRoots != nil {
		statuses.add(CheckTrustAnchors(decoded.Chain, trustRoots, "Cose_Sign1.x5chain"))
	}

	claimContent := claim.contentBox()
	if claimContent == nil {
		return nil, fmt.Errorf("c2pa: verify: claim has no content")
	}
	payload, isCBOR := claimContent.Typed().(*jumbf.CBORContent)
	if !isCBOR {
		return nil, fmt.Errorf("c2pa: verify: claim content is not cbor")
	}

	var sigStatus Status
	if err := decoded.Verify(payload.Raw); err != nil {
		sigStatus = errStatus(StatusClaimSignatureMismatch, sigURL, err.Error())
	} else {
		sigStatus = ok(StatusClaimSignatureValidated, sigURL)
	}

	final := StatusList{sigStatus}
	final.addAll(statuses)
	return final, nil
}

func claimBoxesOf(m *Manifest) []*jumbf.Box {
	var out []*jumbf.Box
	for _, c := range contentChildren(m.Box) {
		if d := description(c); d != nil {
			if a, aok := d.Subtype.Alias(); aok && a == aliasClaim {
				out = append(out, c)
			}
		}
	}
	return out
}

// verifyIngredientReferences checks an ingredient assertion's embedded
// c2pa_manifest hashed-URI, recording validationStatus rather than
// recursively validating the referenced manifest (§1 non-goals, §4.E
// Ingredient.ValidationStatus).
func verifyIngredientReferences(store *Store, manifest *Manifest, box *jumbf.Box) StatusList {
	ing, ok := DecodeIngredient(box)
	if !ok || ing.ActiveManifest == nil {
		return nil
	}
	url, err := store.FindPath(box, manifest.Box)
	if err != nil {
		url = ing.ActiveManifest.URL
	}
	alg := ""
	if claimData, err := manifest.Claim().Data(); err == nil {
		alg = claimData.Alg
	}
	_, s := ComputeHashedURI(store, manifest, *ing.ActiveManifest, alg, referenceIngredient, true)
	s.URL = url
	return StatusList{s}
}
