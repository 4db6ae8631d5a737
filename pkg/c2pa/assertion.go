package c2pa

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/opencontent-labs/c2pa-go/pkg/jumbf"
)

// Well-known assertion labels (§3, §8).
const (
	labelHashData     = "c2pa.hash.data"
	labelIngredient   = "c2pa.ingredient"
	labelActions      = "c2pa.actions"
	labelCreativeWork = "stds.schema-org.CreativeWork"

	actionRepackaged = "c2pa.repackaged"
)

// Assertion is the tagged variant from §9's design note: a claim-referenced
// URL either resolves to a box in this manifest (KnownAssertion) or it
// doesn't, in which case callers still get the URL back (UnknownAssertion)
// so "not present" and "present but unrecognised" stay distinguishable.
type Assertion interface {
	AssertionURL() string
}

// KnownAssertion is an Assertion that resolved to a box.
type KnownAssertion struct {
	URL string
	Box *jumbf.Box
}

func (k *KnownAssertion) AssertionURL() string { return k.URL }

// UnknownAssertion is an Assertion whose URL did not resolve to a
// requestable descendant assertion box.
type UnknownAssertion struct {
	URL string
}

func (u *UnknownAssertion) AssertionURL() string { return u.URL }

// ResolveAssertion looks up ref.URL within manifest's store, relative to
// the manifest box, per §4.E's find().
func ResolveAssertion(store *Store, manifest *Manifest, ref HashedURI) Assertion {
	box, err := store.Find(ref.URL, manifest.Box)
	if err != nil {
		return &UnknownAssertion{URL: ref.URL}
	}
	return &KnownAssertion{URL: ref.URL, Box: box}
}

// assertionCBOR decodes an assertion box's cbor content into v.
func assertionCBOR(box *jumbf.Box, v interface{}) error {
	children := contentChildren(box)
	if len(children) == 0 {
		return fmt.Errorf("c2pa: assertion %q has no content box", boxLabel(box))
	}
	cb, ok := children[0].Typed().(*jumbf.CBORContent)
	if !ok {
		return fmt.Errorf("c2pa: assertion %q content box is not cbor", boxLabel(box))
	}
	return cbor.Unmarshal(cb.Raw, v)
}

// Ingredient is the decoded payload of a c2pa.ingredient assertion.
type Ingredient struct {
	Title         string      `cbor:"title,omitempty"`
	Format        string      `cbor:"format,omitempty"`
	InstanceID    string      `cbor:"instanceID,omitempty"`
	Relationship  string      `cbor:"relationship"`
	ActiveManifest *HashedURI `cbor:"c2pa_manifest,omitempty"`
	ValidationStatus []Status `cbor:"-"` // recorded, never recursively re-validated (§1 non-goals)
}

// DecodeIngredient decodes an assertion box as an Ingredient. ok is false
// if the box is not a c2pa.ingredient assertion or fails to decode.
func DecodeIngredient(box *jumbf.Box) (*Ingredient, bool) {
	if boxLabel(box) != labelIngredient {
		return nil, false
	}
	var ing Ingredient
	if err := assertionCBOR(box, &ing); err != nil {
		return nil, false
	}
	return &ing, true
}

// Action is one entry of a c2pa.actions assertion's action list.
type Action struct {
	Action     string `cbor:"action"`
	Parameters map[string]interface{} `cbor:"parameters,omitempty"`
}

// Actions is the decoded payload of a c2pa.actions assertion.
type Actions struct {
	Actions []Action `cbor:"actions"`
}

// NewRepackagedAction builds a c2pa.actions assertion recording that this
// manifest repackages the ingredient referenced by ingredientURL (§8
// scenario 4, --repackage).
func NewRepackagedAction(ingredientURL string) *Actions {
	return &Actions{Actions: []Action{{
		Action: actionRepackaged,
		Parameters: map[string]interface{}{
			"ingredient": ingredientURL,
		},
	}}}
}

// EncodeCBORAssertion canonically encodes v and wraps it as a cbor content
// box, ready for Manifest.AddAssertion.
func EncodeCBORAssertion(v interface{}) (*jumbf.Box, error) {
	raw, err := canonicalCBOR(v)
	if err != nil {
		return nil, err
	}
	return jumbf.NewCBORBox(raw), nil
}
