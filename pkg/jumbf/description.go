package jumbf

import (
	"encoding/binary"
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Description toggle bits (component C).
const (
	ToggleRequestable = 1 << 0
	ToggleLabel       = 1 << 1
	ToggleID          = 1 << 2
	ToggleSignature   = 1 << 3
	ToggleSalt        = 1 << 4
)

var saltBoxTag = [4]byte{'c', '2', 's', 'h'}

// Description is the decoded jumd box carried as the first child of every
// JUMBF superbox.
type Description struct {
	Subtype     ExtensionHeader
	Requestable bool
	Label       string
	ID          *uint16
	Signature   []byte // exactly 32 bytes when present
	Salt        []byte // payload of the c2sh salt structure, excluding its own 8-byte header
}

func (d *Description) typedValue() any { return d }

// NewDescription builds a Description for the given subtype alias and
// label. Requestable boxes must carry a label (component C).
func NewDescription(subtypeAlias, label string, requestable bool) (*Description, error) {
	if requestable && label == "" {
		return nil, fmt.Errorf("jumbf: a requestable box must have a label")
	}
	if label != "" {
		if err := ValidateLabel(label); err != nil {
			return nil, err
		}
	}
	return &Description{
		Subtype:     AliasSubtype(subtypeAlias),
		Requestable: requestable,
		Label:       label,
	}, nil
}

// ValidateLabel enforces the character restrictions from component C:
// control characters, '/', ';', '?', '#', surrogates, noncharacters, and
// Unicode format-category runes are all rejected.
func ValidateLabel(label string) error {
	if !utf8.ValidString(label) {
		return fmt.Errorf("jumbf: label is not valid UTF-8")
	}
	for _, r := range label {
		switch {
		case r < 0x1F:
			return fmt.Errorf("jumbf: label contains control character U+%04X", r)
		case r >= 0x7F && r <= 0x9F:
			return fmt.Errorf("jumbf: label contains control character U+%04X", r)
		case r == '/' || r == ';' || r == '?' || r == '#':
			return fmt.Errorf("jumbf: label contains reserved character %q", r)
		case r >= 0xD800 && r <= 0xDFFF:
			return fmt.Errorf("jumbf: label contains surrogate U+%04X", r)
		case isNoncharacter(r):
			return fmt.Errorf("jumbf: label contains noncharacter U+%04X", r)
		case unicode.Is(unicode.Cf, r):
			return fmt.Errorf("jumbf: label contains format character U+%04X", r)
		}
	}
	return nil
}

func isNoncharacter(r rune) bool {
	if r >= 0xFDD0 && r <= 0xFDEF {
		return true
	}
	low := r & 0xFFFF
	return low == 0xFFFE || low == 0xFFFF
}

// parseDescriptionPayload decodes a jumd box payload, returning the
// number of bytes consumed so the caller can detect trailing, unparsed
// bytes and mark the box sparse.
func parseDescriptionPayload(data []byte) (*descriptionContent, int, error) {
	if len(data) < 17 {
		return nil, 0, fmt.Errorf("jumbf: jumd payload too short (%d bytes)", len(data))
	}
	d := &Description{}
	copy(d.Subtype[:], data[:16])
	toggles := data[16]
	d.Requestable = toggles&ToggleRequestable != 0
	off := 17

	if toggles&ToggleLabel != 0 {
		nul := indexByte(data[off:], 0)
		if nul < 0 {
			return nil, 0, fmt.Errorf("jumbf: jumd label missing NUL terminator")
		}
		d.Label = string(data[off : off+nul])
		off += nul + 1
	}
	if toggles&ToggleID != 0 {
		if len(data) < off+2 {
			return nil, 0, fmt.Errorf("jumbf: jumd truncated before id field")
		}
		id := binary.BigEndian.Uint16(data[off : off+2])
		d.ID = &id
		off += 2
	}
	if toggles&ToggleSignature != 0 {
		if len(data) < off+32 {
			return nil, 0, fmt.Errorf("jumbf: jumd truncated before signature field")
		}
		d.Signature = append([]byte(nil), data[off:off+32]...)
		off += 32
	}
	if toggles&ToggleSalt != 0 {
		if len(data) < off+8 {
			return nil, 0, fmt.Errorf("jumbf: jumd truncated before salt header")
		}
		saltLen := binary.BigEndian.Uint32(data[off : off+4])
		if saltLen < 8 {
			return nil, 0, fmt.Errorf("jumbf: jumd salt length %d shorter than its own header", saltLen)
		}
		var tag [4]byte
		copy(tag[:], data[off+4:off+8])
		if tag != saltBoxTag {
			return nil, 0, fmt.Errorf("jumbf: jumd salt box tag is %q, want \"c2sh\"", tag)
		}
		saltDataLen := int(saltLen) - 8
		if len(data) < off+8+saltDataLen {
			return nil, 0, fmt.Errorf("jumbf: jumd truncated before salt data")
		}
		d.Salt = append([]byte(nil), data[off+8:off+8+saltDataLen]...)
		off += 8 + saltDataLen
	}
	return &descriptionContent{desc: d}, off, nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// descriptionContent is the payload installed on jumd boxes.
type descriptionContent struct{ desc *Description }

func (c *descriptionContent) typedValue() any { return c.desc }

func (c *descriptionContent) encode() ([]byte, error) {
	d := c.desc
	if d.Requestable && d.Label == "" {
		return nil, fmt.Errorf("jumbf: a requestable box must have a label")
	}
	var toggles byte
	if d.Requestable {
		toggles |= ToggleRequestable
	}
	if d.Label != "" {
		toggles |= ToggleLabel
	}
	if d.ID != nil {
		toggles |= ToggleID
	}
	if len(d.Signature) > 0 {
		if len(d.Signature) != 32 {
			return nil, fmt.Errorf("jumbf: jumd signature must be 32 bytes, got %d", len(d.Signature))
		}
		toggles |= ToggleSignature
	}
	if d.Salt != nil {
		toggles |= ToggleSalt
	}

	out := make([]byte, 0, 64)
	out = append(out, d.Subtype[:]...)
	out = append(out, toggles)
	if d.Label != "" {
		out = append(out, d.Label...)
		out = append(out, 0)
	}
	if d.ID != nil {
		var idb [2]byte
		binary.BigEndian.PutUint16(idb[:], *d.ID)
		out = append(out, idb[:]...)
	}
	if len(d.Signature) > 0 {
		out = append(out, d.Signature...)
	}
	if d.Salt != nil {
		var hdr [8]byte
		binary.BigEndian.PutUint32(hdr[:4], uint32(8+len(d.Salt)))
		copy(hdr[4:], saltBoxTag[:])
		out = append(out, hdr[:]...)
		out = append(out, d.Salt...)
	}
	return out, nil
}

// NewDescriptionBox wraps a Description in its jumd box.
func NewDescriptionBox(d *Description) *Box {
	return newBox(NewFourCC("jumd"), &descriptionContent{desc: d})
}

// constructDescription is the registry.Constructor for "jumd" boxes.
func constructDescription(data []byte) (*Box, int, error) {
	content, consumed, err := parseDescriptionPayload(data)
	if err != nil {
		return nil, 0, err
	}
	return newBox(NewFourCC("jumd"), content), consumed, nil
}
