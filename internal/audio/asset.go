package audio

import (
	"bytes"
	"fmt"
	"os"
)

// Asset is an immutable audio blob. Accessors hand out copies so callers
// cannot mutate the underlying bytes.
type Asset struct {
	data []byte
}

// NewAsset copies data into a new Asset.
func NewAsset(data []byte) Asset {
	return Asset{data: bytes.Clone(data)}
}

// ReadFile loads an Asset from disk.
func ReadFile(path string) (Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Asset{}, fmt.Errorf("read audio: %w", err)
	}
	return Asset{data: data}, nil
}

// Bytes returns a copy of the blob.
func (a Asset) Bytes() []byte {
	return bytes.Clone(a.data)
}

// Len returns the blob size in bytes.
func (a Asset) Len() int {
	return len(a.data)
}

// IsEmpty reports whether the blob has no bytes.
func (a Asset) IsEmpty() bool {
	return len(a.data) == 0
}

// Reader returns a read-only view over the blob.
func (a Asset) Reader() *bytes.Reader {
	return bytes.NewReader(a.data)
}

// Kind classifies a blob by its leading bytes.
type Kind string

const (
	KindUnknown Kind = "unknown"
	KindWAV     Kind = "wav"
	KindMP3     Kind = "mp3"
)

// Sniff classifies the blob's container format.
func (a Asset) Sniff() Kind {
	d := a.data
	switch {
	case len(d) >= 12 && string(d[0:4]) == "RIFF" && string(d[8:12]) == "WAVE":
		return KindWAV
	case len(d) >= 3 && string(d[0:3]) == "ID3":
		return KindMP3
	case len(d) >= 2 && d[0] == 0xFF && d[1]&0xE0 == 0xE0:
		return KindMP3
	default:
		return KindUnknown
	}
}
