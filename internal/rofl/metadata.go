package rofl

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// Metadata keys with dedicated fields.
const (
	keyGameLength      = "gameLength"
	keyGameVersion     = "gameVersion"
	keyLastGameChunkID = "lastGameChunkId"
	keyLastKeyFrameID  = "lastKeyFrameId"
	keyStatsJSON       = "statsJson"
)

// Metadata is the container's metadata record. Known keys are optional
// typed fields (nil when absent or of an unexpected type); every other key
// is kept verbatim in Extra. Numbers are json.Number so values survive a
// decode/encode round trip unchanged.
type Metadata struct {
	GameLength      *json.Number
	GameVersion     *string // Format 1 only.
	LastGameChunkID *json.Number
	LastKeyFrameID  *json.Number

	// Stats is the decoded statsJson participant list, nil for a null
	// one. HasStats distinguishes an absent key from a present one.
	Stats    []any
	HasStats bool

	Extra map[string]any
}

func decodeMetadata(raw []byte) (*Metadata, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return nil, errors.Wrap(ErrBadMetadata, err.Error())
	}

	md := &Metadata{Extra: map[string]any{}}
	for k, v := range fields {
		switch k {
		case keyGameLength:
			if md.GameLength = number(v); md.GameLength != nil {
				continue
			}
		case keyLastGameChunkID:
			if md.LastGameChunkID = number(v); md.LastGameChunkID != nil {
				continue
			}
		case keyLastKeyFrameID:
			if md.LastKeyFrameID = number(v); md.LastKeyFrameID != nil {
				continue
			}
		case keyGameVersion:
			if s, ok := v.(string); ok {
				md.GameVersion = &s
				continue
			}
		case keyStatsJSON:
			stats, err := decodeStats(v)
			if err != nil {
				return nil, err
			}
			md.Stats, md.HasStats = stats, true
			continue
		}
		md.Extra[k] = v
	}
	return md, nil
}

// decodeStats accepts statsJson either as a JSON-encoded string (as stored
// in the container) or as an already-decoded list. A null, bare or
// encoded, stays nil.
func decodeStats(v any) ([]any, error) {
	switch s := v.(type) {
	case []any:
		return s, nil
	case string:
		var list []any
		dec := json.NewDecoder(bytes.NewReader([]byte(s)))
		dec.UseNumber()
		if err := dec.Decode(&list); err != nil {
			return nil, errors.Wrapf(ErrBadMetadata, "statsJson: %v", err)
		}
		return list, nil
	case nil:
		return nil, nil
	default:
		return nil, errors.Wrapf(ErrBadMetadata, "statsJson has type %T", v)
	}
}

func decodeObject(raw []byte) (map[string]any, error) {
	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("metadata is not a JSON object")
	}
	return fields, nil
}

func number(v any) *json.Number {
	n, ok := v.(json.Number)
	if !ok {
		return nil
	}
	return &n
}

// Fields flattens md back into a key/value record using the container's
// key names. Absent optional fields are omitted.
func (md *Metadata) Fields() map[string]any {
	out := make(map[string]any, len(md.Extra)+5)
	for k, v := range md.Extra {
		out[k] = v
	}
	if md.GameLength != nil {
		out[keyGameLength] = *md.GameLength
	}
	if md.GameVersion != nil {
		out[keyGameVersion] = *md.GameVersion
	}
	if md.LastGameChunkID != nil {
		out[keyLastGameChunkID] = *md.LastGameChunkID
	}
	if md.LastKeyFrameID != nil {
		out[keyLastKeyFrameID] = *md.LastKeyFrameID
	}
	switch {
	case md.HasStats && md.Stats == nil:
		out[keyStatsJSON] = nil
	case md.HasStats:
		out[keyStatsJSON] = md.Stats
	}
	return out
}
