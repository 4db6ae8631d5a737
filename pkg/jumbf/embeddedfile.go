package jumbf

import "fmt"

// File description toggle bits (component D).
const (
	bfdbToggleFilename = 1 << 0
	bfdbToggleExternal = 1 << 1
)

// FileDescription is the decoded payload of a "bfdb" box: the media type
// and optional filename or external-URL marker for the sibling "bidb"
// content box.
type FileDescription struct {
	MediaType string
	Filename  string // empty if not present
	External  bool   // true if the sibling bidb holds a URL, not file bytes
}

func (d *FileDescription) typedValue() any { return d }

func (d *FileDescription) encode() ([]byte, error) {
	var toggle byte
	if d.Filename != "" {
		toggle |= bfdbToggleFilename
	}
	if d.External {
		toggle |= bfdbToggleExternal
	}
	out := []byte{toggle}
	out = append(out, d.MediaType...)
	out = append(out, 0)
	if d.Filename != "" {
		out = append(out, d.Filename...)
		out = append(out, 0)
	}
	return out, nil
}

func constructBFDB(data []byte) (*Box, int, error) {
	if len(data) < 2 {
		return nil, 0, fmt.Errorf("jumbf: bfdb payload too short")
	}
	toggle := data[0]
	off := 1
	nul := indexByte(data[off:], 0)
	if nul < 0 {
		return nil, 0, fmt.Errorf("jumbf: bfdb media type missing NUL terminator")
	}
	d := &FileDescription{
		MediaType: string(data[off : off+nul]),
		External:  toggle&bfdbToggleExternal != 0,
	}
	off += nul + 1
	if toggle&bfdbToggleFilename != 0 {
		nul2 := indexByte(data[off:], 0)
		if nul2 < 0 {
			return nil, 0, fmt.Errorf("jumbf: bfdb filename missing NUL terminator")
		}
		d.Filename = string(data[off : off+nul2])
		off += nul2 + 1
	}
	return newBox(NewFourCC("bfdb"), d), off, nil
}

// NewFileDescriptionBox builds a "bfdb" box.
func NewFileDescriptionBox(d *FileDescription) *Box {
	return newBox(NewFourCC("bfdb"), d)
}

// FileData is the decoded payload of a "bidb" box: either the embedded
// file's raw bytes, or (when the sibling bfdb marks External) a
// NUL-terminated URL.
type FileData struct {
	Data     []byte
	URL      string
	External bool
}

func (d *FileData) typedValue() any { return d }

func (d *FileData) encode() ([]byte, error) {
	if d.External {
		out := append([]byte(d.URL), 0)
		return out, nil
	}
	return d.Data, nil
}

// constructBIDB decodes a "bidb" box assuming internal (non-external)
// file data. The codec does not consult the sibling bfdb; a caller holding
// both boxes applies the bfdb's External flag with FileData.Resolve.
func constructBIDB(data []byte) (*Box, int, error) {
	return newBox(NewFourCC("bidb"), &FileData{Data: append([]byte(nil), data...)}), len(data), nil
}

// NewFileDataBox builds a "bidb" box carrying internal file bytes.
func NewFileDataBox(data []byte) *Box {
	return newBox(NewFourCC("bidb"), &FileData{Data: append([]byte(nil), data...)})
}

// NewExternalFileDataBox builds a "bidb" box carrying an external URL.
func NewExternalFileDataBox(url string) *Box {
	return newBox(NewFourCC("bidb"), &FileData{URL: url, External: true})
}

// Resolve reinterprets a "bidb" box's payload in light of its sibling
// "bfdb" description, since the wire bytes alone can't tell internal
// file data apart from an external NUL-terminated URL.
func (d *FileData) Resolve(desc *FileDescription) {
	if !desc.External || d.External {
		return
	}
	d.External = true
	nul := indexByte(d.Data, 0)
	if nul < 0 {
		d.URL = string(d.Data)
	} else {
		d.URL = string(d.Data[:nul])
	}
	d.Data = nil
}
