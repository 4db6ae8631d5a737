package c2pa

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/opencontent-labs/c2pa-go/pkg/jumbf"
)

// HashedURI is a reference to another JUMBF box paired with the digest of
// its contents (§3, §4.F).
type HashedURI struct {
	URL  string `cbor:"url"`
	Alg  string `cbor:"alg,omitempty"`
	Hash []byte `cbor:"hash"`
}

// ClaimData is the CBOR document carried by a claim box (§3).
type ClaimData struct {
	Format             string                 `cbor:"dc:format"`
	InstanceID         string                 `cbor:"instanceID"`
	Alg                string                 `cbor:"alg,omitempty"`
	ClaimGenerator     string                 `cbor:"claim_generator"`
	ClaimGeneratorInfo map[string]interface{} `cbor:"claim_generator_info,omitempty"`
	Assertions         []HashedURI            `cbor:"assertions"`
	Signature          string                 `cbor:"signature,omitempty"`
}

// Claim wraps a jumb/c2cl box; its single content child is a "cbor" box
// carrying the canonical-CBOR-encoded ClaimData.
type Claim struct {
	Box *jumbf.Box
}

func (c *Claim) contentBox() *jumbf.Box {
	children := contentChildren(c.Box)
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

// Data decodes the claim's current CBOR payload. It returns a zero-value
// ClaimData (not an error) if no payload has been set yet.
func (c *Claim) Data() (*ClaimData, error) {
	content := c.contentBox()
	if content == nil {
		return &ClaimData{}, nil
	}
	cb, ok := content.Typed().(*jumbf.CBORContent)
	if !ok {
		return nil, fmt.Errorf("c2pa: claim content box is not a cbor box")
	}
	var d ClaimData
	if err := cbor.Unmarshal(cb.Raw, &d); err != nil {
		return nil, fmt.Errorf("c2pa: decode claim CBOR: %w", err)
	}
	return &d, nil
}

// SetData canonically re-encodes d and installs it as the claim's sole
// content box, replacing any previous one.
func (c *Claim) SetData(d *ClaimData) error {
	raw, err := canonicalCBOR(d)
	if err != nil {
		return fmt.Errorf("c2pa: encode claim CBOR: %w", err)
	}
	if content := c.contentBox(); content != nil {
		c.Box.Remove(content)
	}
	c.Box.Append(jumbf.NewCBORBox(raw))
	return nil
}

// Signature wraps a jumb/c2cs box; its single content child is a "cbor"
// box carrying the COSE_Sign1 (tag 18) bytes.
type Signature struct {
	Box *jumbf.Box
}

func (s *Signature) contentBox() *jumbf.Box {
	children := contentChildren(s.Box)
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

// COSEBytes returns the raw encoded COSE_Sign1 message, or nil if unset.
func (s *Signature) COSEBytes() []byte {
	content := s.contentBox()
	if content == nil {
		return nil
	}
	cb, ok := content.Typed().(*jumbf.CBORContent)
	if !ok {
		return nil
	}
	return cb.Raw
}

// SetCOSEBytes installs (replacing any previous) the signature's content.
func (s *Signature) SetCOSEBytes(raw []byte) {
	if content := s.contentBox(); content != nil {
		s.Box.Remove(content)
	}
	s.Box.Append(jumbf.NewCBORBox(raw))
}

// canonicalCBOR encodes v using fxamacker/cbor's canonical (RFC 7049
// "Canonical CBOR", length-first map key order) encoding options,
// matching what signatures are computed over.
func canonicalCBOR(v interface{}) ([]byte, error) {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		return nil, err
	}
	return mode.Marshal(v)
}
