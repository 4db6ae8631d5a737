package c2pa

import (
	"fmt"
	"io"
	"sort"

	"github.com/opencontent-labs/c2pa-go/pkg/jumbf"
)

// dataHashFixedRegion is the fixed encoded size, in bytes, that a
// c2pa.hash.data assertion's exclusions-plus-pad region must occupy, so
// the post-signing manifest size is predictable from the pre-signing one
// regardless of how many exclusions end up installed (§4.G, §9).
const dataHashFixedRegion = 80

// Exclusion is one byte range a data-hash assertion excludes from its
// digest (typically the range reserved for the manifest itself).
type Exclusion struct {
	Start  int64 `cbor:"start"`
	Length int64 `cbor:"length"`
}

// DataHashAssertion is the CBOR payload of a c2pa.hash.data assertion.
type DataHashAssertion struct {
	Exclusions []Exclusion `cbor:"exclusions"`
	Alg        string      `cbor:"alg,omitempty"`
	Hash       []byte      `cbor:"hash,omitempty"`
	Pad        []byte      `cbor:"pad"`
}

// NewDataHashAssertion builds an unsigned data-hash assertion with its pad
// sized so the encoded exclusions-plus-pad region is exactly
// dataHashFixedRegion bytes.
func NewDataHashAssertion(exclusions []Exclusion, alg string) (*DataHashAssertion, error) {
	if err := validateExclusions(exclusions); err != nil {
		return nil, err
	}
	pad, err := computeDataHashPad(exclusions)
	if err != nil {
		return nil, err
	}
	return &DataHashAssertion{Exclusions: exclusions, Alg: alg, Pad: pad}, nil
}

func validateExclusions(exclusions []Exclusion) error {
	sorted := append([]Exclusion(nil), exclusions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for i, e := range sorted {
		if e.Length <= 0 {
			return fmt.Errorf("c2pa: exclusion %d has non-positive length %d", i, e.Length)
		}
		if i > 0 && e.Start < sorted[i-1].Start+sorted[i-1].Length {
			return fmt.Errorf("c2pa: exclusions must be strictly increasing and non-overlapping")
		}
	}
	return nil
}

func computeDataHashPad(exclusions []Exclusion) ([]byte, error) {
	excBytes, err := canonicalCBOR(exclusions)
	if err != nil {
		return nil, err
	}
	base := len(excBytes)
	for hdrLen := 1; hdrLen <= 3; hdrLen++ {
		padLen := dataHashFixedRegion - base - hdrLen
		if padLen < 0 {
			continue
		}
		if cborByteStringHeaderLen(padLen) == hdrLen {
			return make([]byte, padLen), nil
		}
	}
	return nil, fmt.Errorf("c2pa: data-hash exclusions too large to fit the %d byte pad region", dataHashFixedRegion)
}

func cborByteStringHeaderLen(n int) int {
	switch {
	case n < 24:
		return 1
	case n < 256:
		return 2
	case n < 65536:
		return 3
	default:
		return 5
	}
}

// SignDataHash implements §4.G's signing path: it reads asset fully
// (ignoring exclusions — the caller is expected to have already excluded
// the reserved manifest range from the stream it hands in) and stores the
// resulting digest.
func SignDataHash(d *DataHashAssertion, asset io.Reader) Status {
	d.Hash = nil
	digest, err := newDigest(d.Alg)
	if err != nil {
		return errStatus(StatusAlgorithmUnsupported, "", err.Error())
	}
	if _, err := io.Copy(digest, asset); err != nil {
		return errStatusCause(StatusAlgorithmUnsupported, "", fmt.Errorf("c2pa: read asset for data-hash signing: %w", err))
	}
	d.Hash = digest.Sum(nil)
	return ok("", "")
}

// VerifyDataHash implements §4.G's verification path: it hashes asset,
// skipping each exclusion range in order, and compares against d.Hash.
func VerifyDataHash(d *DataHashAssertion, asset io.ReadSeeker, url string) Status {
	digest, err := newDigest(d.Alg)
	if err != nil {
		return errStatus(StatusAlgorithmUnsupported, url, err.Error())
	}

	var pos int64
	for _, e := range d.Exclusions {
		if e.Start > pos {
			if err := copyRange(digest, asset, pos, e.Start-pos); err != nil {
				return errStatusCause(StatusAssertionDataHashMismatch, url, err)
			}
		}
		pos = e.Start + e.Length
	}
	if err := copyRemaining(digest, asset, pos); err != nil {
		return errStatusCause(StatusAssertionDataHashMismatch, url, err)
	}

	computed := digest.Sum(nil)
	if !bytesEqual(computed, d.Hash) {
		return errStatus(StatusAssertionDataHashMismatch, url, "recomputed asset digest does not match stored hash")
	}
	return ok(StatusAssertionDataHashMatch, url)
}

func copyRange(w io.Writer, r io.ReadSeeker, from, length int64) error {
	if _, err := r.Seek(from, io.SeekStart); err != nil {
		return err
	}
	_, err := io.CopyN(w, r, length)
	return err
}

func copyRemaining(w io.Writer, r io.ReadSeeker, from int64) error {
	if _, err := r.Seek(from, io.SeekStart); err != nil {
		return err
	}
	_, err := io.Copy(w, r)
	return err
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// DecodeDataHash decodes an assertion box as a DataHashAssertion.
func DecodeDataHash(box *jumbf.Box) (*DataHashAssertion, error) {
	var d DataHashAssertion
	if err := assertionCBOR(box, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
