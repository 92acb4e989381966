package rofl

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// HeaderV1 is the fixed little-endian header of a format 1 container.
type HeaderV1 struct {
	Magic               [6]byte
	Signature           [256]byte
	HeaderLength        uint16
	FileLength          uint32
	MetadataOffset      uint32
	MetadataLength      uint32
	PayloadHeaderOffset uint32
	PayloadHeaderLength uint32
	PayloadOffset       uint32
}

// headerV1Size is binary.Size(HeaderV1{}).
const headerV1Size = 6 + 256 + 2 + 6*4

// PayloadHeader describes the (encrypted) replay payload of a format 1
// container.
type PayloadHeader struct {
	GameID            uint64
	GameLength        uint32
	KeyframeCount     uint32
	ChunkCount        uint32
	EndStartupChunkID uint32
	StartGameChunkID  uint32
	KeyframeInterval  uint32
	EncryptionKey     string // Base64 text as stored.
}

type payloadHeaderFixed struct {
	GameID              uint64
	GameLength          uint32
	KeyframeCount       uint32
	ChunkCount          uint32
	EndStartupChunkID   uint32
	StartGameChunkID    uint32
	KeyframeInterval    uint32
	EncryptionKeyLength uint16
}

const payloadHeaderFixedSize = 8 + 6*4 + 2

func decodeV1(data []byte) (*Container, error) {
	if len(data) < headerV1Size {
		return nil, errors.Wrapf(ErrTruncated, "header needs %d bytes, have %d", headerV1Size, len(data))
	}
	var h HeaderV1
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &h); err != nil {
		return nil, errors.Wrap(err, "parsing header")
	}

	raw, err := section(data, h.MetadataOffset, h.MetadataLength)
	if err != nil {
		return nil, errors.Wrap(err, "metadata section")
	}
	md, err := decodeMetadata(raw)
	if err != nil {
		return nil, err
	}

	c := &Container{Format: FormatV1, Header: &h, Metadata: md}
	raw, err = section(data, h.PayloadHeaderOffset, h.PayloadHeaderLength)
	if err == nil {
		c.PayloadHeader, err = decodePayloadHeader(raw)
	}
	if err != nil {
		c.PayloadHeaderErr = errors.Wrap(err, "payload header")
	}
	return c, nil
}

func decodeV2(data []byte) (*Container, error) {
	if len(data) < 10 {
		return nil, errors.Wrapf(ErrTruncated, "%d bytes", len(data))
	}
	end := len(data) - 4
	n := binary.LittleEndian.Uint32(data[end:])
	if uint64(n) > uint64(end-6) {
		return nil, errors.Wrapf(ErrTruncated, "metadata length %d exceeds container", n)
	}
	md, err := decodeMetadata(data[end-int(n) : end])
	if err != nil {
		return nil, err
	}
	return &Container{Format: FormatV2, Metadata: md}, nil
}

// section returns data[off:off+n] after bounds checking.
func section(data []byte, off, n uint32) ([]byte, error) {
	start, stop := uint64(off), uint64(off)+uint64(n)
	if stop > uint64(len(data)) {
		return nil, errors.Wrapf(ErrTruncated, "section %d+%d beyond %d bytes", off, n, len(data))
	}
	return data[start:stop], nil
}

func decodePayloadHeader(b []byte) (*PayloadHeader, error) {
	if len(b) < payloadHeaderFixedSize {
		return nil, errors.Wrapf(ErrTruncated, "%d of %d bytes", len(b), payloadHeaderFixedSize)
	}
	var f payloadHeaderFixed
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &f); err != nil {
		return nil, err
	}
	key := b[payloadHeaderFixedSize:]
	if int(f.EncryptionKeyLength) > len(key) {
		return nil, errors.Wrapf(ErrTruncated, "encryption key needs %d bytes, have %d", f.EncryptionKeyLength, len(key))
	}
	return &PayloadHeader{
		GameID:            f.GameID,
		GameLength:        f.GameLength,
		KeyframeCount:     f.KeyframeCount,
		ChunkCount:        f.ChunkCount,
		EndStartupChunkID: f.EndStartupChunkID,
		StartGameChunkID:  f.StartGameChunkID,
		KeyframeInterval:  f.KeyframeInterval,
		EncryptionKey:     string(key[:f.EncryptionKeyLength]),
	}, nil
}
