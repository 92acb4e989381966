package rofl

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// Encode builds a minimal container of the given format around a metadata
// JSON document. The payload is empty and the signature is zeroed; the
// result is only meant for fixtures and round-trip checks.
func Encode(format Format, metadataJSON []byte) ([]byte, error) {
	switch format {
	case FormatV1:
		return encodeV1(metadataJSON, PayloadHeader{})
	case FormatV2:
		return encodeV2(metadataJSON), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "format %d", format)
	}
}

func encodeV1(metadataJSON []byte, ph PayloadHeader) ([]byte, error) {
	var phBuf bytes.Buffer
	fixed := payloadHeaderFixed{
		GameID:              ph.GameID,
		GameLength:          ph.GameLength,
		KeyframeCount:       ph.KeyframeCount,
		ChunkCount:          ph.ChunkCount,
		EndStartupChunkID:   ph.EndStartupChunkID,
		StartGameChunkID:    ph.StartGameChunkID,
		KeyframeInterval:    ph.KeyframeInterval,
		EncryptionKeyLength: uint16(len(ph.EncryptionKey)),
	}
	if err := binary.Write(&phBuf, binary.LittleEndian, fixed); err != nil {
		return nil, err
	}
	phBuf.WriteString(ph.EncryptionKey)

	mdOff := uint32(headerV1Size)
	phOff := mdOff + uint32(len(metadataJSON))
	total := phOff + uint32(phBuf.Len())

	h := HeaderV1{
		HeaderLength:        headerV1Size,
		FileLength:          total,
		MetadataOffset:      mdOff,
		MetadataLength:      uint32(len(metadataJSON)),
		PayloadHeaderOffset: phOff,
		PayloadHeaderLength: uint32(phBuf.Len()),
		PayloadOffset:       total,
	}
	copy(h.Magic[:], "RIOT\x00\x00")

	var out bytes.Buffer
	if err := binary.Write(&out, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	out.Write(metadataJSON)
	out.Write(phBuf.Bytes())
	return out.Bytes(), nil
}

func encodeV2(metadataJSON []byte) []byte {
	out := make([]byte, 0, 6+len(metadataJSON)+4)
	out = append(out, "RIOT\x02\x00"...)
	out = append(out, metadataJSON...)
	return binary.LittleEndian.AppendUint32(out, uint32(len(metadataJSON)))
}
