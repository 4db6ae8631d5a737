package jpeg

import (
	"bytes"
	"testing"
)

// minimalJPEG builds SOI, an APP0/JFIF segment, then SOS + two bytes of
// "scan data" + EOI — enough structure for the segment walker without a
// real decoder.
func minimalJPEG() []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8}) // SOI
	app0 := []byte{0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 1, 1, 0, 0, 1, 0, 1, 0, 0}
	buf.Write(app0)
	buf.Write([]byte{0xFF, 0xDA, 0x00, 0x02}) // SOS, zero-length header body
	buf.Write([]byte{0x12, 0x34})             // fake scan bytes
	buf.Write([]byte{0xFF, 0xD9})             // EOI
	return buf.Bytes()
}

func TestInsertionOffsetAfterAPP0(t *testing.T) {
	data := minimalJPEG()
	off, err := InsertionOffset(data)
	if err != nil {
		t.Fatalf("InsertionOffset: %v", err)
	}
	// SOI(2) + APP0 segment (2 marker + 2 len + 14 payload = 18) = 20
	if off != 20 {
		t.Fatalf("got offset %d, want 20", off)
	}
}

func TestBuildAndExtractSingleSegment(t *testing.T) {
	store := append([]byte{0, 0, 0, 20, 'j', 'u', 'm', 'b'}, []byte("0123456789abcdef")...)
	jpegData := minimalJPEG()

	embedded, err := Embed(jpegData, store, 1)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	extracted, err := ExtractManifestStore(embedded)
	if err != nil {
		t.Fatalf("ExtractManifestStore: %v", err)
	}
	if !bytes.Equal(extracted, store) {
		t.Fatalf("round trip mismatch: got %x, want %x", extracted, store)
	}
}

func TestBuildAndExtractMultiSegment(t *testing.T) {
	payload := make([]byte, maxSegmentPayload*2+100)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	store := append([]byte{0, 0, 0, 0, 'j', 'u', 'm', 'b'}, payload...)

	segCount, _ := EmbeddedSize(len(store))
	if segCount != 3 {
		t.Fatalf("expected 3 segments, got %d", segCount)
	}

	jpegData := minimalJPEG()
	embedded, err := Embed(jpegData, store, 7)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	extracted, err := ExtractManifestStore(embedded)
	if err != nil {
		t.Fatalf("ExtractManifestStore: %v", err)
	}
	if !bytes.Equal(extracted, store) {
		t.Fatalf("round trip mismatch across segments")
	}
}

func TestExtractManifestStoreNoSegments(t *testing.T) {
	if _, err := ExtractManifestStore(minimalJPEG()); err == nil {
		t.Fatalf("expected error when no APP11 segments present")
	}
}

func TestExtractXMP(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8})
	payload := append([]byte("http://ns.adobe.com/xap/1.0/\x00"), []byte("<x:xmpmeta/>")...)
	buf.WriteByte(0xFF)
	buf.WriteByte(markerAPP1)
	segLen := 2 + len(payload)
	buf.WriteByte(byte(segLen >> 8))
	buf.WriteByte(byte(segLen))
	buf.Write(payload)
	buf.Write([]byte{0xFF, 0xDA, 0x00, 0x02, 0, 0, 0xFF, 0xD9})

	xmp, ok := ExtractXMP(buf.Bytes())
	if !ok {
		t.Fatalf("expected to find XMP packet")
	}
	if xmp != "<x:xmpmeta/>" {
		t.Fatalf("got %q", xmp)
	}
}
