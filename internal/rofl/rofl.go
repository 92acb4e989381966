// Package rofl reads League of Legends replay containers (.rofl) far enough
// to recover their metadata record. Replay payload chunks are never
// decrypted.
//
// Two container layouts are understood:
//
//	format 1  "RIOT\x00\x00" + signature + fixed header indexing the metadata
//	          JSON and the payload header.
//	format 2  "RIOT\x02\x00" ... metadata JSON + trailing u32 length.
//
// Both decode to the same [Metadata] schema.
package rofl

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
)

// Format identifies the container layout.
type Format int

const (
	FormatV1 Format = 1
	FormatV2 Format = 2
)

var magicPrefix = []byte("RIOT")

// Sentinel errors returned (wrapped) by [Decode].
var (
	ErrBadMagic          = errors.New("not a rofl container (bad magic)")
	ErrUnsupportedFormat = errors.New("unsupported rofl format")
	ErrTruncated         = errors.New("rofl container truncated")
	ErrBadMetadata       = errors.New("malformed rofl metadata")
)

// Container is a decoded replay container.
type Container struct {
	Format        Format
	Header        *HeaderV1      // Format 1 only.
	PayloadHeader *PayloadHeader // Format 1 only, nil when it cannot be decoded.
	Metadata      *Metadata

	// PayloadHeaderErr says why a format 1 container has no PayloadHeader.
	// The metadata is still usable.
	PayloadHeaderErr error
}

// GameID returns the game ID from the payload header, or 0.
func (c *Container) GameID() uint64 {
	if c.PayloadHeader == nil {
		return 0
	}
	return c.PayloadHeader.GameID
}

// Decode parses a whole container held in memory.
func Decode(data []byte) (*Container, error) {
	if len(data) < 6 {
		return nil, errors.Wrapf(ErrTruncated, "%d bytes", len(data))
	}
	if !bytes.Equal(data[:4], magicPrefix) {
		return nil, errors.Wrapf(ErrBadMagic, "got % x", data[:4])
	}

	switch data[4] {
	case 0x00:
		return decodeV1(data)
	case 0x02:
		return decodeV2(data)
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "format byte 0x%02x", data[4])
	}
}

// ReadFile reads and decodes the container at path.
func ReadFile(path string) (*Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read container")
	}
	c, err := Decode(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return c, nil
}

// Reader is the default container parser used by the conversion pipeline.
type Reader struct{}

// ParseFile decodes the container at path.
func (Reader) ParseFile(path string) (*Container, error) {
	return ReadFile(path)
}
