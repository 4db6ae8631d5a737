package jumbf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Read decodes one box (and its full subtree, if it is a container) from
// r per component A. Length 0 means "box extends to EOF of r"; length 1
// means an 8 byte extended length follows the 4 byte type.
func Read(r io.Reader) (*Box, error) {
	var lenType [8]byte
	if _, err := io.ReadFull(r, lenType[:]); err != nil {
		return nil, fmt.Errorf("jumbf: read box header: %w", err)
	}
	length := uint64(binary.BigEndian.Uint32(lenType[0:4]))
	var boxType FourCC
	copy(boxType[:], lenType[4:8])

	headerLen := uint64(8)
	if length == 1 {
		var ext [8]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return nil, fmt.Errorf("jumbf: read extended length: %w", err)
		}
		length = binary.BigEndian.Uint64(ext[:])
		headerLen = 16
	}

	var payload []byte
	var err error
	if length == 0 {
		payload, err = io.ReadAll(r)
	} else {
		if length < headerLen {
			return nil, fmt.Errorf("jumbf: box %q declares length %d shorter than its own header", boxType, length)
		}
		payload = make([]byte, length-headerLen)
		_, err = io.ReadFull(r, payload)
	}
	if err != nil {
		return nil, fmt.Errorf("jumbf: read box %q payload: %w", boxType, err)
	}

	return decodeBox(boxType, payload)
}

// ReadAll decodes every box in r until EOF, e.g. the top-level sequence
// of boxes composing a .c2pa side-dump file.
func ReadAll(r io.Reader) ([]*Box, error) {
	br := bufio.NewReader(r)
	var boxes []*Box
	for {
		if _, err := br.Peek(1); err == io.EOF {
			return boxes, nil
		} else if err != nil {
			return nil, err
		}
		b, err := Read(br)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, b)
	}
}

func decodeBox(boxType FourCC, data []byte) (*Box, error) {
	t := boxType.String()

	switch t {
	case "jumb":
		return decodeContainer(boxType, data)
	case "uuid":
		return decodeUUID(data)
	}

	if ctor, ok := lookupConstructor(t, "", ""); ok {
		b, consumed, err := ctor(data)
		if err != nil {
			return nil, fmt.Errorf("jumbf: decode box %q: %w", t, err)
		}
		if consumed < len(data) {
			b.Sparse = true
		}
		return b, nil
	}

	if containerTypes[t] {
		return decodeContainer(boxType, data)
	}
	return NewRaw(t, data), nil
}

// decodeContainer parses data as a sequence of child boxes. Per component
// A's subtype sniffing rule, a jumb box's own dispatch key (for any
// future registered "jumb.<subtype>[.<label>]" constructor) is derived by
// peeking its first child's jumd description before the children are
// built; today no such override is registered, so every jumb box decodes
// as a plain container, but the sniff still runs so host-registered
// overrides take effect.
func decodeContainer(boxType FourCC, data []byte) (*Box, error) {
	if boxType.String() == "jumb" {
		subtype, label := sniffJumbSubtypeLabel(data)
		if ctor, ok := lookupConstructor("jumb", subtype, label); ok {
			b, consumed, err := ctor(data)
			if err != nil {
				return nil, fmt.Errorf("jumbf: decode jumb/%s/%s: %w", subtype, label, err)
			}
			if consumed < len(data) {
				b.Sparse = true
			}
			return b, nil
		}
	}

	box := newBox(boxType, &containerPayload{})
	off := 0
	for off < len(data) {
		remaining := data[off:]
		child, consumed, err := decodeOneFromSlice(remaining)
		if err != nil {
			return nil, fmt.Errorf("jumbf: decode child of %q at offset %d: %w", boxType, off, err)
		}
		box.Append(child)
		off += consumed
	}
	return box, nil
}

// decodeOneFromSlice decodes a single box from the front of data and
// returns it along with the number of bytes it occupied.
func decodeOneFromSlice(data []byte) (*Box, int, error) {
	if len(data) < 8 {
		return nil, 0, fmt.Errorf("jumbf: truncated box header (%d bytes left)", len(data))
	}
	length := uint64(binary.BigEndian.Uint32(data[0:4]))
	var boxType FourCC
	copy(boxType[:], data[4:8])

	headerLen := 8
	if length == 1 {
		if len(data) < 16 {
			return nil, 0, fmt.Errorf("jumbf: truncated extended length header")
		}
		length = binary.BigEndian.Uint64(data[8:16])
		headerLen = 16
	}

	var payload []byte
	var total int
	if length == 0 {
		payload = data[headerLen:]
		total = len(data)
	} else {
		if int(length) < headerLen || int(length) > len(data) {
			return nil, 0, fmt.Errorf("jumbf: box %q declares length %d, %d bytes available", boxType, length, len(data))
		}
		payload = data[headerLen:length]
		total = int(length)
	}

	b, err := decodeBox(boxType, payload)
	if err != nil {
		return nil, 0, err
	}
	return b, total, nil
}

// sniffJumbSubtypeLabel peeks at a jumb box's not-yet-built first child
// (which must be a jumd description) to discover the subtype key and
// label the registry dispatches on, without constructing any boxes.
func sniffJumbSubtypeLabel(data []byte) (subtype, label string) {
	if len(data) < 8 {
		return "", ""
	}
	childLen := uint64(binary.BigEndian.Uint32(data[0:4]))
	childType := FourCC{}
	copy(childType[:], data[4:8])
	if childType.String() != "jumd" {
		return "", ""
	}
	headerLen := 8
	if childLen == 1 {
		if len(data) < 16 {
			return "", ""
		}
		childLen = binary.BigEndian.Uint64(data[8:16])
		headerLen = 16
	}
	if childLen == 0 || int(childLen) > len(data) || int(childLen) < headerLen {
		return "", ""
	}
	payload := data[headerLen:childLen]
	content, _, err := parseDescriptionPayload(payload)
	if err != nil {
		return "", ""
	}
	return content.desc.Subtype.Key(), content.desc.Label
}
