// Package jpeg implements the JPEG segment walker, APP11 manifest-store
// embed/extract, and XMP-block detection described by spec.md §4.I and
// the external JPEG APP11 layout in §6. It is the supporting collaborator
// that lets a C2PA store be carried inside a JPEG file: the BMFF/JUMBF
// box bytes themselves never change shape, only how they are chunked
// across 64KB-capped APP11 markers.
package jpeg

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	markerSOI   = 0xD8
	markerEOI   = 0xD9
	markerAPP0  = 0xE0
	markerAPP1  = 0xE1
	markerAPP11 = 0xEB
	markerSOS   = 0xDA
	markerTEM   = 0x01
)

// app11InstanceID is the fixed 2-byte "CI" field C2PA uses to mark an
// APP11 segment as carrying a JUMBF box, per §6's external interface.
var app11InstanceID = [2]byte{0x4A, 0x50}

// xmpNamespaceHeader is the fixed NUL-terminated APP1 signature marking
// an XMP packet, per §4.I.
var xmpNamespaceHeader = []byte("http://ns.adobe.com/xap/1.0/\x00")

// maxSegmentPayload is the most box-content bytes a single segment can
// carry, given the 2-byte JPEG segment-length field's 65535 maximum: the
// length counts itself (2 bytes) plus the fixed 16-byte APP11 body prefix
// (ID, instance, sequence, boxlen, boxtype) before the content.
const maxSegmentPayload = 65535 - 18

// segheaderOverhead is the fixed per-segment header size from §6's
// layout: marker(2) + seglen(2) + ID(2) + instance(2) + sequence(4) +
// boxlen(4) + boxtype(4).
const segheaderOverhead = 20

// hasNoLengthField reports whether marker is one of the few JPEG markers
// that carries no length-prefixed payload (SOI, EOI, TEM, RSTn).
func hasNoLengthField(marker byte) bool {
	if marker == markerSOI || marker == markerEOI || marker == markerTEM {
		return true
	}
	return marker >= 0xD0 && marker <= 0xD7
}

// Segment is one marker segment read from the front of a JPEG file, up
// to (but not including) the scan data following SOS.
type Segment struct {
	Marker byte
	Offset int    // byte offset of the 0xFF marker byte within the source
	Data   []byte // payload, excluding the marker and its 2-byte length field
}

// readHeaderSegments walks data marker by marker from the start of a
// JPEG file and returns every segment up to and including SOS (whose
// Data is the scan header only, not the entropy-coded data that
// follows it with no length prefix). scanStart is the offset immediately
// after the SOS segment, where raw scan bytes begin.
func readHeaderSegments(data []byte) (segments []Segment, scanStart int, err error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, 0, fmt.Errorf("jpeg: missing SOI marker")
	}
	segments = append(segments, Segment{Marker: markerSOI, Offset: 0})
	off := 2
	for {
		if off+1 >= len(data) || data[off] != 0xFF {
			return nil, 0, fmt.Errorf("jpeg: expected marker at offset %d", off)
		}
		marker := data[off+1]
		markerOffset := off
		off += 2
		if hasNoLengthField(marker) {
			segments = append(segments, Segment{Marker: marker, Offset: markerOffset})
			if marker == markerEOI {
				return segments, off, nil
			}
			continue
		}
		if off+2 > len(data) {
			return nil, 0, fmt.Errorf("jpeg: truncated segment length at offset %d", off)
		}
		segLen := int(binary.BigEndian.Uint16(data[off : off+2]))
		if segLen < 2 || off+segLen > len(data) {
			return nil, 0, fmt.Errorf("jpeg: invalid segment length %d at offset %d", segLen, off)
		}
		payload := data[off+2 : off+segLen]
		segments = append(segments, Segment{Marker: marker, Offset: markerOffset, Data: payload})
		off += segLen
		if marker == markerSOS {
			return segments, off, nil
		}
	}
}

// InsertionOffset returns the byte offset, within data, right after the
// last contiguous APP0 (JFIF) segment near the start of the file — the
// conventional place to add new APP11 segments (§4.I: "typically after
// JFIF/APP0"). If there is no APP0 segment, it returns the offset right
// after SOI.
func InsertionOffset(data []byte) (int, error) {
	segments, _, err := readHeaderSegments(data)
	if err != nil {
		return 0, err
	}
	offset := segments[0].Offset + 2 // past SOI
	for _, s := range segments[1:] {
		if s.Marker != markerAPP0 {
			break
		}
		offset = s.Offset + 2 + 2 + len(s.Data)
	}
	return offset, nil
}

// ExtractManifestStore scans data's APP11 segments for the first JUMBF
// box group (matched by C2PA instance number) and returns its
// concatenated box bytes. Per §9's open question, this implementation
// follows reference tooling and stops at the first group if more than
// one instance number is present in the file.
func ExtractManifestStore(data []byte) ([]byte, error) {
	segments, _, err := readHeaderSegments(data)
	if err != nil {
		return nil, err
	}

	var instance *uint16
	var boxHeader []byte // the 8-byte boxlen+boxtype prefix, captured once
	chunks := map[uint32][]byte{}
	var order []uint32

	for _, s := range segments {
		if s.Marker != markerAPP11 {
			continue
		}
		if len(s.Data) < 16 || !bytes.Equal(s.Data[0:2], app11InstanceID[:]) {
			continue
		}
		inst := binary.BigEndian.Uint16(s.Data[2:4])
		if instance != nil && inst != *instance {
			continue // a later, different instance group; ignore (first-group rule)
		}
		seq := binary.BigEndian.Uint32(s.Data[4:8])
		if instance == nil {
			instance = &inst
			boxHeader = append([]byte(nil), s.Data[8:16]...)
		}
		chunks[seq] = append(chunks[seq], s.Data[16:]...)
		order = append(order, seq)
	}
	if instance == nil {
		return nil, fmt.Errorf("jpeg: no C2PA APP11 segments found")
	}

	maxSeq := uint32(0)
	for _, seq := range order {
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	out := append([]byte(nil), boxHeader...)
	for seq := uint32(1); seq <= maxSeq; seq++ {
		chunk, ok := chunks[seq]
		if !ok {
			return nil, fmt.Errorf("jpeg: missing APP11 sequence %d for instance", seq)
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// ExtractXMP returns the first APP1 segment's XMP packet text, if any.
func ExtractXMP(data []byte) (string, bool) {
	segments, _, err := readHeaderSegments(data)
	if err != nil {
		return "", false
	}
	for _, s := range segments {
		if s.Marker != markerAPP1 {
			continue
		}
		if len(s.Data) < len(xmpNamespaceHeader) || !bytes.Equal(s.Data[:len(xmpNamespaceHeader)], xmpNamespaceHeader) {
			continue
		}
		return string(s.Data[len(xmpNamespaceHeader):]), true
	}
	return "", false
}

// SegmentCount returns the number of APP11 segments needed to carry a
// JUMBF box of storeLen total encoded bytes (§4.H's two-pass sizing).
func SegmentCount(storeLen int) int {
	if storeLen <= 8 {
		return 1
	}
	payloadLen := storeLen - 8
	n := payloadLen / maxSegmentPayload
	if payloadLen%maxSegmentPayload != 0 {
		n++
	}
	if n == 0 {
		n = 1
	}
	return n
}

// EmbeddedSize returns the number of APP11 segments a storeLen-byte JUMBF
// box needs and totalBytes = storeLen + N·20, the store's own bytes plus
// the per-segment 20-byte header (§6) over every segment. Each segment
// header already carries the store's 8-byte boxlen+boxtype prefix, so the
// segments themselves occupy totalBytes − 8 = (S − 8) + N·segheader bytes,
// the exclusion length §4.H uses.
func EmbeddedSize(storeLen int) (segments, totalBytes int) {
	n := SegmentCount(storeLen)
	return n, storeLen + n*segheaderOverhead
}

// BuildAPP11Segments chunks store (the full encoded JUMBF box, boxlen
// and boxtype included) into one or more APP11 marker segments carrying
// the given C2PA instance number, ready to splice into a JPEG byte
// stream at InsertionOffset.
func BuildAPP11Segments(store []byte, instance uint16) ([]byte, error) {
	if len(store) < 8 {
		return nil, fmt.Errorf("jpeg: store is shorter than an 8 byte box header")
	}
	boxHeader := store[:8]
	payload := store[8:]

	n := SegmentCount(len(store))
	var out bytes.Buffer
	for seq := 1; seq <= n; seq++ {
		start := (seq - 1) * maxSegmentPayload
		end := start + maxSegmentPayload
		if end > len(payload) {
			end = len(payload)
		}
		chunk := payload[start:end]

		body := make([]byte, 0, 16+len(boxHeader)+len(chunk))
		body = append(body, app11InstanceID[:]...)
		var instBuf [2]byte
		binary.BigEndian.PutUint16(instBuf[:], instance)
		body = append(body, instBuf[:]...)
		var seqBuf [4]byte
		binary.BigEndian.PutUint32(seqBuf[:], uint32(seq))
		body = append(body, seqBuf[:]...)
		body = append(body, boxHeader...)
		body = append(body, chunk...)

		segLen := 2 + len(body)
		if segLen > 0xFFFF {
			return nil, fmt.Errorf("jpeg: segment %d of %d bytes exceeds the 65535 byte JPEG segment cap", seq, segLen)
		}
		out.WriteByte(0xFF)
		out.WriteByte(markerAPP11)
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(segLen))
		out.Write(lenBuf[:])
		out.Write(body)
	}
	return out.Bytes(), nil
}

// Embed splices store's APP11 segments into jpegData at InsertionOffset,
// returning the combined file bytes.
func Embed(jpegData []byte, store []byte, instance uint16) ([]byte, error) {
	offset, err := InsertionOffset(jpegData)
	if err != nil {
		return nil, err
	}
	app11, err := BuildAPP11Segments(store, instance)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(jpegData)+len(app11))
	out = append(out, jpegData[:offset]...)
	out = append(out, app11...)
	out = append(out, jpegData[offset:]...)
	return out, nil
}
