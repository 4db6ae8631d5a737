// Package c2pa implements the C2PA manifest tree (store, manifest, claim,
// signature, assertions) on top of pkg/jumbf's generic box codec, plus the
// signing and verification pipelines that operate on it (component E–H).
package c2pa

import (
	"fmt"
	"strings"

	"github.com/opencontent-labs/c2pa-go/pkg/jumbf"
)

// Box type and subtype alias constants from §3/§6.
const (
	aliasStore     = "c2pa"
	aliasManifest  = "c2ma"
	aliasAssertion = "c2as"
	aliasClaim     = "c2cl"
	aliasSignature = "c2cs"

	labelStore         = "c2pa"
	labelAssertionStore = "c2pa.assertions"
	labelClaim         = "c2pa.claim"
	labelSignature     = "c2pa.signature"
)

func newSuperbox(alias, label string, requestable bool) (*jumbf.Box, error) {
	desc, err := jumbf.NewDescription(alias, label, requestable)
	if err != nil {
		return nil, err
	}
	box := jumbf.NewContainer("jumb")
	box.Append(jumbf.NewDescriptionBox(desc))
	return box, nil
}

// description returns the jumd Description of a jumb superbox, the box
// itself if it is a jumd box, or nil.
func description(b *jumbf.Box) *jumbf.Description {
	switch b.BoxType.String() {
	case "jumd":
		if d, ok := b.Typed().(*jumbf.Description); ok {
			return d
		}
	case "jumb":
		if !b.IsContainer() {
			return nil
		}
		children := b.Children()
		if len(children) == 0 || children[0].BoxType.String() != "jumd" {
			return nil
		}
		if d, ok := children[0].Typed().(*jumbf.Description); ok {
			return d
		}
	}
	return nil
}

func boxLabel(b *jumbf.Box) string {
	if d := description(b); d != nil {
		return d.Label
	}
	return ""
}

func boxRequestable(b *jumbf.Box) bool {
	if d := description(b); d != nil {
		return d.Requestable && d.Label != ""
	}
	return false
}

// contentChildren returns a jumb box's children after the leading jumd
// description.
func contentChildren(b *jumbf.Box) []*jumbf.Box {
	if !b.IsContainer() {
		return nil
	}
	children := b.Children()
	if len(children) == 0 {
		return nil
	}
	return children[1:]
}

func firstChildWithLabel(b *jumbf.Box, label string) *jumbf.Box {
	if !b.IsContainer() {
		return nil
	}
	for _, c := range b.Children() {
		if boxLabel(c) == label {
			return c
		}
	}
	return nil
}

func firstChildWithAlias(b *jumbf.Box, alias string) *jumbf.Box {
	if !b.IsContainer() {
		return nil
	}
	for _, c := range b.Children() {
		if d := description(c); d != nil {
			if a, ok := d.Subtype.Alias(); ok && a == alias {
				return c
			}
		}
	}
	return nil
}

// Store is the top-level JUMBF box (jumb/c2pa): a container of Manifests.
type Store struct {
	Box *jumbf.Box
}

// NewStore builds an empty, requestable store box.
func NewStore() (*Store, error) {
	box, err := newSuperbox(aliasStore, labelStore, true)
	if err != nil {
		return nil, err
	}
	return &Store{Box: box}, nil
}

// OpenStore wraps an already-decoded jumb/c2pa box (e.g. from jumbf.Read).
func OpenStore(box *jumbf.Box) (*Store, error) {
	if box.BoxType.String() != "jumb" {
		return nil, fmt.Errorf("c2pa: store box must be type jumb, got %q", box.BoxType)
	}
	return &Store{Box: box}, nil
}

// Manifests returns every manifest box in insertion order.
func (s *Store) Manifests() []*Manifest {
	var out []*Manifest
	for _, c := range contentChildren(s.Box) {
		if c.BoxType.String() == "jumb" {
			out = append(out, &Manifest{Box: c, store: s})
		}
	}
	return out
}

// ActiveManifest returns the last manifest in the store (§3, §9).
func (s *Store) ActiveManifest() *Manifest {
	manifests := s.Manifests()
	if len(manifests) == 0 {
		return nil
	}
	return manifests[len(manifests)-1]
}

// AddManifest creates and appends a new manifest with the given unique
// label, with its assertion store already in place.
func (s *Store) AddManifest(label string) (*Manifest, error) {
	box, err := newSuperbox(aliasManifest, label, true)
	if err != nil {
		return nil, err
	}
	assertionStore, err := newSuperbox(aliasAssertion, labelAssertionStore, true)
	if err != nil {
		return nil, err
	}
	box.Append(assertionStore)
	s.Box.Append(box)
	return &Manifest{Box: box, store: s}, nil
}

// Find resolves a C2PA URL (§6: "self#jumbf=[/]label1/label2/...") relative
// to context, or absolute (from the store root, whose own "c2pa" label
// leads the path per §8 scenario 5's "self#jumbf=/c2pa/...") if the path
// starts with "/". The terminal box must be requestable.
func (s *Store) Find(path string, context *jumbf.Box) (*jumbf.Box, error) {
	rel := strings.TrimPrefix(path, "self#jumbf=")
	absolute := strings.HasPrefix(rel, "/")
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return nil, fmt.Errorf("c2pa: empty jumbf path")
	}
	segments := strings.Split(rel, "/")
	cur := context
	if absolute || cur == nil {
		if segments[0] != boxLabel(s.Box) {
			return nil, fmt.Errorf("c2pa: absolute jumbf path %q does not start with the store label %q", path, boxLabel(s.Box))
		}
		cur = s.Box
		segments = segments[1:]
	}
	for _, label := range segments {
		next := firstChildWithLabel(cur, label)
		if next == nil {
			return nil, fmt.Errorf("c2pa: no box labelled %q under %q", label, boxLabel(cur))
		}
		cur = next
	}
	if !boxRequestable(cur) {
		return nil, fmt.Errorf("c2pa: resolved box %q is not requestable", path)
	}
	return cur, nil
}

// FindPath computes the shortest path (relative to context if possible,
// absolute otherwise) from the store to target. An absolute path leads
// with the store's own label, matching §8 scenario 5.
func (s *Store) FindPath(target *jumbf.Box, context *jumbf.Box) (string, error) {
	full, err := ancestryLabels(s.Box, target)
	if err != nil {
		return "", err
	}
	if context != nil {
		if rel, err := ancestryLabels(context, target); err == nil {
			return "self#jumbf=" + strings.Join(rel, "/"), nil
		}
	}
	absolute := append([]string{boxLabel(s.Box)}, full...)
	return "self#jumbf=/" + strings.Join(absolute, "/"), nil
}

func ancestryLabels(root, target *jumbf.Box) ([]string, error) {
	var labels []string
	if !findPathRec(root, target, &labels) {
		return nil, fmt.Errorf("c2pa: target box is not a descendant of the given root")
	}
	return labels, nil
}

func findPathRec(cur, target *jumbf.Box, labels *[]string) bool {
	if cur == target {
		return true
	}
	if !cur.IsContainer() {
		return false
	}
	for _, c := range cur.Children() {
		if c.BoxType.String() == "jumd" {
			continue
		}
		label := boxLabel(c)
		*labels = append(*labels, label)
		if findPathRec(c, target, labels) {
			return true
		}
		*labels = (*labels)[:len(*labels)-1]
	}
	return false
}

// Manifest is a jumb/c2ma box: assertion store, claim, signature.
type Manifest struct {
	Box   *jumbf.Box
	store *Store
}

// Label returns the manifest's unique identifier within the store.
func (m *Manifest) Label() string { return boxLabel(m.Box) }

func (m *Manifest) assertionStoreBox() *jumbf.Box {
	return firstChildWithAlias(m.Box, aliasAssertion)
}

// Assertions returns the live list of assertion boxes in the manifest's
// assertion store, in insertion order.
func (m *Manifest) Assertions() []*jumbf.Box {
	as := m.assertionStoreBox()
	if as == nil {
		return nil
	}
	return contentChildren(as)
}

// AddAssertion wraps content in a requestable jumb superbox labelled label,
// with subtype alias matching content's box type ("cbor" or "json"), and
// appends it to the manifest's assertion store.
func (m *Manifest) AddAssertion(label string, content *jumbf.Box) (*jumbf.Box, error) {
	as := m.assertionStoreBox()
	if as == nil {
		return nil, fmt.Errorf("c2pa: manifest %q has no assertion store", m.Label())
	}
	alias := content.BoxType.String()
	box, err := newSuperbox(alias, label, true)
	if err != nil {
		return nil, err
	}
	box.Append(content)
	as.Append(box)
	return box, nil
}

// Claim returns the manifest's claim box, creating it (empty) on first
// access.
func (m *Manifest) Claim() *Claim {
	if box := firstChildWithAlias(m.Box, aliasClaim); box != nil {
		return &Claim{Box: box}
	}
	box, err := newSuperbox(aliasClaim, labelClaim, true)
	if err != nil {
		panic(err) // labelClaim is a constant known-good label
	}
	m.Box.Append(box)
	return &Claim{Box: box}
}

// Signature returns the manifest's signature box, creating it (empty) on
// first access.
func (m *Manifest) Signature() *Signature {
	if box := firstChildWithAlias(m.Box, aliasSignature); box != nil {
		return &Signature{Box: box}
	}
	box, err := newSuperbox(aliasSignature, labelSignature, true)
	if err != nil {
		panic(err)
	}
	m.Box.Append(box)
	return &Signature{Box: box}
}

// HardBindingAssertion returns the manifest's single hard-binding
// assertion (c2pa.hash.data, or nil if absent) and an error if more than
// one is present (invariant: at most one hard binding per manifest).
func (m *Manifest) HardBindingAssertion() (*jumbf.Box, error) {
	var found *jumbf.Box
	for _, a := range m.Assertions() {
		label := boxLabel(a)
		if label == labelHashData || strings.HasPrefix(label, "c2pa.hash.bmff") {
			if found != nil {
				return nil, fmt.Errorf("c2pa: %s", StatusAssertionMultipleHardBindings)
			}
			found = a
		}
	}
	return found, nil
}

// IngredientParents returns every ingredient assertion in the manifest
// whose relationship is "parentOf".
func (m *Manifest) IngredientParents() []*jumbf.Box {
	var out []*jumbf.Box
	for _, a := range m.Assertions() {
		if boxLabel(a) != labelIngredient {
			continue
		}
		data, ok := DecodeIngredient(a)
		if ok && data.Relationship == "parentOf" {
			out = append(out, a)
		}
	}
	return out
}
