package jumbf

// CBORContent is the payload of a "cbor" content box (component D): a
// single canonical CBOR item, opaque at this layer. pkg/c2pa decodes the
// bytes according to the assertion or claim schema it expects.
type CBORContent struct{ Raw []byte }

func (c *CBORContent) typedValue() any      { return c }
func (c *CBORContent) encode() ([]byte, error) { return c.Raw, nil }

func constructCBOR(data []byte) (*Box, int, error) {
	content := &CBORContent{Raw: append([]byte(nil), data...)}
	return newBox(NewFourCC("cbor"), content), len(data), nil
}

// NewCBORBox wraps raw (already-encoded) CBOR bytes in a "cbor" box.
func NewCBORBox(raw []byte) *Box {
	return newBox(NewFourCC("cbor"), &CBORContent{Raw: append([]byte(nil), raw...)})
}

// JSONContent is the payload of a "json" content box: UTF-8 JSON text.
type JSONContent struct{ Raw []byte }

func (c *JSONContent) typedValue() any      { return c }
func (c *JSONContent) encode() ([]byte, error) { return c.Raw, nil }

func constructJSON(data []byte) (*Box, int, error) {
	content := &JSONContent{Raw: append([]byte(nil), data...)}
	return newBox(NewFourCC("json"), content), len(data), nil
}

// NewJSONBox wraps raw JSON text bytes in a "json" box.
func NewJSONBox(raw []byte) *Box {
	return newBox(NewFourCC("json"), &JSONContent{Raw: append([]byte(nil), raw...)})
}
