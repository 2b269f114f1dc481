// Package codec identifies media files by their leading bytes.
package codec

import "bytes"

// Kind is a sniffed file type.
type Kind string

const (
	JPG     Kind = "jpg"
	PNG     Kind = "png"
	GIF     Kind = "gif"
	MP4     Kind = "mp4"
	Unknown Kind = "unknown"
)

// SniffLen is the number of leading bytes Sniff needs.
const SniffLen = 8

var (
	jpgMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic = []byte{0x89, 0x50, 0x4E, 0x47}
	gifMagic = []byte{0x47, 0x49, 0x46}
	mp4Magic = []byte{0x66, 0x74, 0x79, 0x70} // "ftyp" at offset 4

	allowed = map[Kind]bool{
		JPG: true,
		PNG: true,
		GIF: true,
		MP4: true,
	}
)

// Sniff returns the kind of data by matching magic bytes.
// Anything shorter than SniffLen is Unknown.
func Sniff(data []byte) Kind {
	if len(data) < SniffLen {
		return Unknown
	}

	switch {
	case bytes.HasPrefix(data, jpgMagic):
		return JPG
	case bytes.HasPrefix(data, pngMagic):
		return PNG
	case bytes.HasPrefix(data, gifMagic):
		return GIF
	case bytes.Equal(data[4:8], mp4Magic):
		return MP4
	}

	return Unknown
}

// IsAllowed reports whether k may be written to disk.
func IsAllowed(k Kind) bool {
	return allowed[k]
}

// Ext returns the file extension for k, without the dot.
func (k Kind) Ext() string {
	return string(k)
}

func (k Kind) String() string {
	return string(k)
}
