package c2pa

import (
	"encoding/json"
	"fmt"

	"github.com/opencontent-labs/c2pa-go/pkg/jumbf"
)

// Well-known assertion labels, exported for callers outside this package
// (the CLI) that assemble manifests from scratch.
const (
	LabelHashData     = labelHashData
	LabelIngredient    = labelIngredient
	LabelActions       = labelActions
	LabelCreativeWork  = labelCreativeWork
)

// NewManifestWithHardBinding builds a fresh manifest in store labelled
// label, installs an empty c2pa.hash.data hard-binding assertion using
// alg, and returns the manifest so the caller can add further assertions
// before signing (Manifest.HardBindingAssertion returns the hard-binding
// box).
func NewManifestWithHardBinding(store *Store, label, alg string) (*Manifest, error) {
	manifest, err := store.AddManifest(label)
	if err != nil {
		return nil, err
	}
	dh, err := NewDataHashAssertion(nil, alg)
	if err != nil {
		return nil, err
	}
	content, err := EncodeCBORAssertion(dh)
	if err != nil {
		return nil, err
	}
	if _, err := manifest.AddAssertion(labelHashData, content); err != nil {
		return nil, err
	}
	return manifest, nil
}

// AddCreativeWorkAssertion wraps creativeWorkJSON (already-read file
// bytes, expected to be a schema.org CreativeWork document per spec.md
// §6's --creativework flag) as a json content box and adds it to
// manifest under the stds.schema-org.CreativeWork label.
func AddCreativeWorkAssertion(manifest *Manifest, creativeWorkJSON []byte) error {
	var probe interface{}
	if err := json.Unmarshal(creativeWorkJSON, &probe); err != nil {
		return fmt.Errorf("c2pa: --creativework document is not valid JSON: %w", err)
	}
	box := jumbf.NewJSONBox(creativeWorkJSON)
	_, err := manifest.AddAssertion(labelCreativeWork, box)
	return err
}

// AddIngredientAssertion adds a c2pa.ingredient assertion to manifest
// recording relationship and, when activeManifestURL is non-empty, a
// hashed reference (digested under alg) to another manifest box within
// the same store (the --repackage path: a prior manifest kept alongside
// the new one).
func AddIngredientAssertion(store *Store, manifest *Manifest, relationship, activeManifestURL, alg string) (*jumbf.Box, error) {
	ing := Ingredient{Relationship: relationship}
	if activeManifestURL != "" {
		updated, status := ComputeHashedURI(store, manifest, HashedURI{URL: activeManifestURL}, alg, referenceIngredient, false)
		if status.IsError {
			return nil, fmt.Errorf("c2pa: compute ingredient reference hash: %s", status.Message)
		}
		ing.ActiveManifest = &updated
	}
	content, err := EncodeCBORAssertion(ing)
	if err != nil {
		return nil, err
	}
	return manifest.AddAssertion(labelIngredient, content)
}

// AddRepackagedActionAssertion adds a c2pa.actions assertion recording
// that manifest repackages the ingredient referenced by ingredientURL
// (spec.md §8 scenario 4, --repackage).
func AddRepackagedActionAssertion(manifest *Manifest, ingredientURL string) error {
	content, err := EncodeCBORAssertion(NewRepackagedAction(ingredientURL))
	if err != nil {
		return err
	}
	_, err = manifest.AddAssertion(labelActions, content)
	return err
}

// AdoptManifestAsIngredient detaches an existing manifest box from its
// current store and inserts it into newStore ahead of newManifest, so a
// --repackage run can carry a prior manifest forward inside the freshly
// signed store while newManifest stays last in insertion order —
// ActiveManifest() picks the last manifest box, and the freshly signed
// one must stay active, not the adopted parent. It returns the path to
// reach the adopted manifest from newManifest, for use as an
// ingredient's ActiveManifest URL.
func AdoptManifestAsIngredient(newStore *Store, newManifest *Manifest, prior *Manifest) (string, error) {
	if prior.Box.Parent() != nil {
		prior.Box.Parent().Remove(prior.Box)
	}
	newStore.Box.Remove(newManifest.Box)
	newStore.Box.Append(prior.Box)
	newStore.Box.Append(newManifest.Box)
	return newStore.FindPath(prior.Box, newManifest.Box)
}
