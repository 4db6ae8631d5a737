package jumbf

import "strings"

// Constructor decodes a box's payload bytes (everything after the 8 byte
// length+type header) into a typed Box. It returns the number of bytes
// it consumed; bytes left over mark the box sparse (component A).
type Constructor func(data []byte) (*Box, int, error)

var registry = map[string]Constructor{}

func init() {
	RegisterConstructor("jumd", constructDescription)
	RegisterConstructor("cbor", constructCBOR)
	RegisterConstructor("json", constructJSON)
	RegisterConstructor("bfdb", constructBFDB)
	RegisterConstructor("bidb", constructBIDB)
	RegisterConstructor("uuid."+c2paManifestUUIDKey, constructC2PAManifestUUID)
}

// RegisterConstructor installs (or overrides) the constructor for key,
// which is "type", "type.subtype" or "type.subtype.label" (component B).
// Host applications can call this to teach the codec about additional
// BMFF/JUMBF box kinds without modifying this package.
func RegisterConstructor(key string, c Constructor) { registry[key] = c }

// containerTypes lists box types whose payload is always a child list,
// used when no specific constructor claims the type (component A:
// "generic container box if the type is marked container").
var containerTypes = map[string]bool{
	"jumb": true,
}

// lookupConstructor performs the longest-prefix match from component B:
// type.subtype.label, then the same with a trailing "__N" deduplication
// suffix stripped from the label, then type.subtype, then type.
func lookupConstructor(boxType, subtype, label string) (Constructor, bool) {
	var candidates []string
	if subtype != "" && label != "" {
		candidates = append(candidates, boxType+"."+subtype+"."+label)
		if stripped, ok := stripDedupeSuffix(label); ok {
			candidates = append(candidates, boxType+"."+subtype+"."+stripped)
		}
	}
	if subtype != "" {
		candidates = append(candidates, boxType+"."+subtype)
	}
	candidates = append(candidates, boxType)

	for _, k := range candidates {
		if c, ok := registry[k]; ok {
			return c, true
		}
	}
	return nil, false
}

// stripDedupeSuffix removes a trailing "__N" (N all-decimal-digit) label
// suffix used to disambiguate duplicate sibling labels, e.g. "ingredient__1".
func stripDedupeSuffix(label string) (string, bool) {
	idx := strings.LastIndex(label, "__")
	if idx < 0 || idx == len(label)-2 {
		return "", false
	}
	suffix := label[idx+2:]
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return label[:idx], true
}
