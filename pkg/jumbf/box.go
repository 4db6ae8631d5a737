// Package jumbf implements a generic, byte-exact reader and writer for the
// nested box container format defined by ISO/IEC 19566-5 (JPEG Universal
// Metadata Box Format) and the ISO BMFF box layout it builds on.
//
// A Box owns its children exclusively. Parent is a non-owning back-pointer
// that only Append sets and Remove clears; Next is computed on demand from
// the parent's child list rather than stored, so insertion and removal
// never leave a stale sibling reference behind.
package jumbf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrSparseBox is returned when encoding a box whose trailing bytes were
// never fully parsed. A sparse box can be inspected but never re-emitted,
// because re-emitting it would not reproduce the bytes it was read from.
var ErrSparseBox = errors.New("jumbf: cannot encode a sparse box")

// FourCC is a four byte box type code, e.g. "jumb" or "jumd".
type FourCC [4]byte

// NewFourCC builds a FourCC from a (must be exactly 4 byte) string.
func NewFourCC(s string) FourCC {
	var f FourCC
	copy(f[:], s)
	return f
}

func (f FourCC) String() string { return string(f[:]) }

// payload is the internal representation of a box's contents. Every
// concrete payload knows how to encode itself back to wire bytes; the
// outer length+type header is written once, by Box.Encode.
type payload interface {
	encode() ([]byte, error)
}

// rawPayload is an opaque, uninterpreted byte string: either a box type
// the registry doesn't recognise, or the remainder of a box whose typed
// constructor didn't consume all of its bytes (see Box.Sparse).
type rawPayload struct{ data []byte }

func (p *rawPayload) encode() ([]byte, error) { return p.data, nil }

// containerPayload holds an ordered list of child boxes, e.g. the
// children of a jumb superbox.
type containerPayload struct{ children []*Box }

func (p *containerPayload) encode() ([]byte, error) {
	var buf bytes.Buffer
	for _, c := range p.children {
		if err := c.Encode(&buf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Box is one node of a box tree. It is constructed either by Read (from
// wire bytes) or by the typed constructors in this package and pkg/c2pa,
// and is always owned by exactly one parent (or none, at the tree root).
type Box struct {
	BoxType FourCC
	Sparse  bool

	content payload
	parent  *Box
}

// newBox wraps a payload with its box type. Unexported: callers go through
// the typed constructors (NewContainer, NewRaw, ...) so the payload kind
// always matches what BoxType implies.
func newBox(t FourCC, c payload) *Box {
	return &Box{BoxType: t, content: c}
}

// NewContainer creates an empty, non-sparse container box of type t.
func NewContainer(t string) *Box {
	return newBox(NewFourCC(t), &containerPayload{})
}

// NewRaw creates an opaque leaf box carrying data verbatim.
func NewRaw(t string, data []byte) *Box {
	return newBox(NewFourCC(t), &rawPayload{data: append([]byte(nil), data...)})
}

// NewSparse creates a box that was read but not fully parsed. It can be
// inspected (its remaining bytes are available via RawPayload) but never
// re-encoded.
func NewSparse(t FourCC, remaining []byte) *Box {
	b := newBox(t, &rawPayload{data: append([]byte(nil), remaining...)})
	b.Sparse = true
	return b
}

// Parent returns the box currently containing b, or nil at the tree root.
func (b *Box) Parent() *Box { return b.parent }

// Next returns b's next sibling in its parent's child list, or nil if b
// is the last child or unparented.
func (b *Box) Next() *Box {
	if b.parent == nil {
		return nil
	}
	cp, ok := b.parent.content.(*containerPayload)
	if !ok {
		return nil
	}
	for i, c := range cp.children {
		if c == b {
			if i+1 < len(cp.children) {
				return cp.children[i+1]
			}
			return nil
		}
	}
	return nil
}

// IsContainer reports whether b holds child boxes rather than opaque or
// typed leaf content.
func (b *Box) IsContainer() bool {
	_, ok := b.content.(*containerPayload)
	return ok
}

// Children returns a box's child list. It panics if b is not a container;
// callers should check IsContainer first when the box kind is unknown.
func (b *Box) Children() []*Box {
	cp, ok := b.content.(*containerPayload)
	if !ok {
		panic(fmt.Sprintf("jumbf: Children called on non-container box %q", b.BoxType))
	}
	return cp.children
}

// RawPayload returns the opaque bytes of a raw or sparse box. It panics
// for container or typed leaf boxes.
func (b *Box) RawPayload() []byte {
	rp, ok := b.content.(*rawPayload)
	if !ok {
		panic(fmt.Sprintf("jumbf: RawPayload called on non-raw box %q", b.BoxType))
	}
	return rp.data
}

// Typed returns the decoded representation installed by a typed
// constructor (e.g. *Description, *CBORContent), or nil for container and
// raw boxes.
func (b *Box) Typed() any {
	if tc, ok := b.content.(interface{ typedValue() any }); ok {
		return tc.typedValue()
	}
	return nil
}

// Append adds child to the end of b's child list. child must currently be
// unparented; Append panics otherwise, since a box tree never shares
// ownership of a node.
func (b *Box) Append(child *Box) {
	cp, ok := b.content.(*containerPayload)
	if !ok {
		panic(fmt.Sprintf("jumbf: Append called on non-container box %q", b.BoxType))
	}
	if child.parent != nil {
		panic("jumbf: child is already parented")
	}
	cp.children = append(cp.children, child)
	child.parent = b
}

// Remove detaches child from b's child list. It is a no-op if child is
// not currently a child of b.
func (b *Box) Remove(child *Box) {
	cp, ok := b.content.(*containerPayload)
	if !ok {
		return
	}
	for i, c := range cp.children {
		if c == child {
			cp.children = append(cp.children[:i], cp.children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

// Encode writes the box's full wire representation (length, type,
// payload) to w. The extended-length form (length == 1 followed by an 8
// byte length) is never written: a box larger than the 4-byte length
// field allows is an error, and a box that Read decoded from an
// extended-length header is re-encoded with the 4-byte form.
func (b *Box) Encode(w io.Writer) error {
	if b.Sparse {
		return fmt.Errorf("%w: type %q", ErrSparseBox, b.BoxType)
	}
	payloadBytes, err := b.content.encode()
	if err != nil {
		return err
	}
	length := uint64(8 + len(payloadBytes))
	if length > 0xFFFFFFFF {
		return fmt.Errorf("jumbf: box %q of %d bytes exceeds the 4-byte length field (extended length is unsupported)", b.BoxType, length)
	}
	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(length))
	copy(header[4:8], b.BoxType[:])
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err = w.Write(payloadBytes)
	return err
}

// EncodeToBytes is a convenience wrapper around Encode.
func (b *Box) EncodeToBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := b.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// firstChildOfType walks b's children (non-recursively) for one whose
// BoxType matches t. It returns nil if none match.
func (b *Box) firstChildOfType(t FourCC) *Box {
	if !b.IsContainer() {
		return nil
	}
	for _, c := range b.Children() {
		if c.BoxType == t {
			return c
		}
	}
	return nil
}
