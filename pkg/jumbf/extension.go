package jumbf

import (
	"encoding/hex"
)

// extensionAliasSuffix is the fixed 12-byte suffix that marks a 16-byte
// extension subtype as alias-qualified: the first 4 bytes are then a
// printable ASCII tag standing in for the full subtype.
var extensionAliasSuffix = [12]byte{
	0x00, 0x11, 0x00, 0x10, 0x80, 0x00, 0x00, 0xaa, 0x00, 0x38, 0x9b, 0x71,
}

// ExtensionHeader is the 16-byte subtype prefix carried by every
// extension box (jumd, uuid).
type ExtensionHeader [16]byte

// AliasSubtype builds the 16-byte subtype for a 4-character ASCII alias
// tag, e.g. AliasSubtype("c2pa") for the C2PA store's jumd subtype.
func AliasSubtype(tag string) ExtensionHeader {
	var h ExtensionHeader
	copy(h[:4], tag)
	copy(h[4:], extensionAliasSuffix[:])
	return h
}

// Alias returns the 4-character alias tag for h and true, if h carries the
// alias suffix and its first 4 bytes are printable ASCII. Otherwise it
// returns "", false and callers should fall back to the full hex subtype.
func (h ExtensionHeader) Alias() (string, bool) {
	var suffix [12]byte
	copy(suffix[:], h[4:])
	if suffix != extensionAliasSuffix {
		return "", false
	}
	for _, b := range h[:4] {
		if b < 0x20 || b > 0x7e {
			return "", false
		}
	}
	return string(h[:4]), true
}

// Key returns the canonical string identity of a subtype: its alias if
// one applies, otherwise 32 lowercase hex digits.
func (h ExtensionHeader) Key() string {
	if alias, ok := h.Alias(); ok {
		return alias
	}
	return hex.EncodeToString(h[:])
}

// ExtensionInfo returns the (subtype, label) pair used to key registry
// lookups for b. For a jumb box this sniffs its first child, which must
// be a jumd description box, per the codec's "peek the description before
// picking a constructor" rule. For any box that is itself an extension
// box (its payload starts with a subtype, e.g. jumd or uuid) it returns
// that box's own subtype. Any other box type returns ("", "").
func ExtensionInfo(b *Box) (subtype, label string) {
	switch b.BoxType.String() {
	case "jumb":
		if !b.IsContainer() {
			return "", ""
		}
		children := b.Children()
		if len(children) == 0 || children[0].BoxType.String() != "jumd" {
			return "", ""
		}
		desc, ok := children[0].Typed().(*Description)
		if !ok {
			return "", ""
		}
		return desc.Subtype.Key(), desc.Label
	case "jumd":
		if desc, ok := b.Typed().(*Description); ok {
			return desc.Subtype.Key(), desc.Label
		}
		return "", ""
	case "uuid":
		if u, ok := b.content.(*UUIDContent); ok {
			return u.Subtype.Key(), ""
		}
		if _, ok := b.content.(*padAware); ok {
			return c2paManifestUUIDKey, ""
		}
		return "", ""
	default:
		return "", ""
	}
}
