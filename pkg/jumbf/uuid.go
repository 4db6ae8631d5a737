package jumbf

import "fmt"

// c2paManifestUUIDKey is the registry key for the "uuid" box subtype used
// to carry a C2PA store inside a BMFF (video) container (external
// interface §6): subtype d8fec3d61b0e483c92975828877ec481.
const c2paManifestUUIDSubtypeHex = "d8fec3d61b0e483c92975828877ec481"

var c2paManifestUUIDKey = c2paManifestUUIDSubtypeHex

// UUIDContent is the generic payload of a "uuid" box: a 16 byte subtype
// header followed by opaque data, with any trailing bytes beyond what
// the typed interpretation consumed preserved as Padding so the box can
// still be re-encoded exactly (component A: "readers tolerate extra
// bytes inside a uuid box after the payload").
type UUIDContent struct {
	Subtype ExtensionHeader
	Data    []byte
	Padding []byte
}

func (u *UUIDContent) typedValue() any { return u }

func (u *UUIDContent) encode() ([]byte, error) {
	out := make([]byte, 0, 16+len(u.Data)+len(u.Padding))
	out = append(out, u.Subtype[:]...)
	out = append(out, u.Data...)
	out = append(out, u.Padding...)
	return out, nil
}

func decodeUUID(data []byte) (*Box, error) {
	if len(data) < 16 {
		return nil, fmt.Errorf("jumbf: uuid payload shorter than 16 byte subtype header")
	}
	var subtype ExtensionHeader
	copy(subtype[:], data[:16])
	rest := data[16:]

	if ctor, ok := lookupConstructor("uuid", subtype.Key(), ""); ok {
		b, consumed, err := ctor(rest)
		if err != nil {
			return nil, fmt.Errorf("jumbf: decode uuid/%s: %w", subtype.Key(), err)
		}
		b.BoxType = NewFourCC("uuid")
		if consumed < len(rest) {
			if pc, ok := b.content.(*padAware); ok {
				pc.Padding = append([]byte(nil), rest[consumed:]...)
			} else {
				b.Sparse = true
			}
		}
		return b, nil
	}

	return newBox(NewFourCC("uuid"), &UUIDContent{
		Subtype: subtype,
		Data:    append([]byte(nil), rest...),
	}), nil
}

// padAware lets a uuid subtype constructor accept trailing padding bytes
// without being marked sparse (the C2PA BMFF manifest box is zero-padded
// per external interface §6).
type padAware struct {
	subtype ExtensionHeader
	inner   payload
	Padding []byte
}

func (p *padAware) typedValue() any {
	if tc, ok := p.inner.(interface{ typedValue() any }); ok {
		return tc.typedValue()
	}
	return nil
}

func (p *padAware) encode() ([]byte, error) {
	b, err := p.inner.encode()
	if err != nil {
		return nil, err
	}
	out := append(append([]byte(nil), p.subtype[:]...), b...)
	return append(out, p.Padding...), nil
}

// ManifestUUIDContent is the typed payload of a C2PA-manifest-in-BMFF
// "uuid" box (external interface §6): version, a purpose string, an
// optional offset (present when purpose is "manifest"), and the raw
// embedded store bytes, followed by zero padding.
type ManifestUUIDContent struct {
	Version uint32
	Purpose string
	Offset  *uint64
	Store   []byte
}

func (m *ManifestUUIDContent) typedValue() any { return m }

func constructC2PAManifestUUID(data []byte) (*Box, int, error) {
	if len(data) < 4 {
		return nil, 0, fmt.Errorf("jumbf: c2pa manifest uuid payload too short")
	}
	version := uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
	off := 4
	nul := indexByte(data[off:], 0)
	if nul < 0 {
		return nil, 0, fmt.Errorf("jumbf: c2pa manifest uuid purpose missing NUL terminator")
	}
	purpose := string(data[off : off+nul])
	off += nul + 1

	m := &ManifestUUIDContent{Version: version, Purpose: purpose}
	if purpose == "manifest" {
		if len(data) < off+8 {
			return nil, 0, fmt.Errorf("jumbf: c2pa manifest uuid truncated before offset field")
		}
		offset := uint64(0)
		for i := 0; i < 8; i++ {
			offset = offset<<8 | uint64(data[off+i])
		}
		m.Offset = &offset
		off += 8
	}

	store := append([]byte(nil), data[off:]...)
	m.Store = store
	consumed := off + len(store)

	inner := &manifestUUIDEncode{m}
	boxed := &padAware{subtype: c2paManifestSubtype(), inner: inner}
	box := newBox(NewFourCC("uuid"), boxed)
	return box, consumed, nil
}

type manifestUUIDEncode struct{ m *ManifestUUIDContent }

func (e *manifestUUIDEncode) typedValue() any { return e.m }

func (e *manifestUUIDEncode) encode() ([]byte, error) {
	out := make([]byte, 4)
	out[0] = byte(e.m.Version >> 24)
	out[1] = byte(e.m.Version >> 16)
	out[2] = byte(e.m.Version >> 8)
	out[3] = byte(e.m.Version)
	out = append(out, e.m.Purpose...)
	out = append(out, 0)
	if e.m.Offset != nil {
		var off [8]byte
		v := *e.m.Offset
		for i := 7; i >= 0; i-- {
			off[i] = byte(v)
			v >>= 8
		}
		out = append(out, off[:]...)
	}
	out = append(out, e.m.Store...)
	return out, nil
}

// NewManifestUUIDBox wraps a C2PA store embedded in a BMFF uuid box,
// zero-padded to padLen total content bytes.
func NewManifestUUIDBox(m *ManifestUUIDContent, padLen int) (*Box, error) {
	enc := &manifestUUIDEncode{m}
	raw, err := enc.encode()
	if err != nil {
		return nil, err
	}
	pad := padLen - len(raw)
	if pad < 0 {
		return nil, fmt.Errorf("jumbf: manifest uuid content (%d bytes) exceeds requested padded length %d", len(raw), padLen)
	}
	subtype := c2paManifestSubtype()
	content := &UUIDContent{Subtype: subtype, Data: raw, Padding: make([]byte, pad)}
	return newBox(NewFourCC("uuid"), content), nil
}

func c2paManifestSubtype() ExtensionHeader {
	var h ExtensionHeader
	for i := 0; i < 16; i++ {
		h[i] = hexNibble(c2paManifestUUIDSubtypeHex[2*i])<<4 | hexNibble(c2paManifestUUIDSubtypeHex[2*i+1])
	}
	return h
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
