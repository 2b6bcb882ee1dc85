package vault

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// File metadata schemas. v1 predates version history: a single CID with one
// wrapped key. v2 keeps a version list where every entry retains its own
// wrapped key and IV, so old versions stay independently decryptable after
// the file key rotates.
//
// The two shapes are separate types on purpose. A writer can no longer tag
// data "v2" while populating v1 fields; the serializer only knows the fields
// its variant declares, and the reader rejects anything else.

const (
	SchemaV1 = "v1"
	SchemaV2 = "v2"
)

var ErrUnknownSchema = errors.New("vault: unknown file metadata schema")

// FileVersion is one entry of a file's version history.
type FileVersion struct {
	CID              string    `json:"cid"`
	EncryptedFileKey []byte    `json:"encryptedFileKey"`
	IV               []byte    `json:"iv"`
	Size             int64     `json:"size"`
	CreatedAt        time.Time `json:"createdAt"`
}

// FileMetadataV1 is the legacy single-version shape, accepted read-only.
type FileMetadataV1 struct {
	Schema           string    `json:"schema"`
	Name             string    `json:"name"`
	CID              string    `json:"cid"`
	EncryptedFileKey []byte    `json:"encryptedFileKey"`
	IV               []byte    `json:"iv"`
	Size             int64     `json:"size"`
	CreatedAt        time.Time `json:"createdAt"`
	ModifiedAt       time.Time `json:"modifiedAt"`
}

// FileMetadata is the current (v2) shape. Versions[len-1] is the live
// version.
type FileMetadata struct {
	Schema     string        `json:"schema"`
	Name       string        `json:"name"`
	Versions   []FileVersion `json:"versions"`
	CreatedAt  time.Time     `json:"createdAt"`
	ModifiedAt time.Time     `json:"modifiedAt"`
}

// Current returns the live version.
func (m *FileMetadata) Current() (FileVersion, error) {
	if len(m.Versions) == 0 {
		return FileVersion{}, errors.New("vault: file metadata has no versions")
	}
	return m.Versions[len(m.Versions)-1], nil
}

// AddVersion appends a new live version.
func (m *FileMetadata) AddVersion(v FileVersion) {
	m.Versions = append(m.Versions, v)
	m.ModifiedAt = time.Now().UTC()
}

// Marshal encodes the metadata, stamping the schema tag.
func (m *FileMetadata) Marshal() ([]byte, error) {
	m.Schema = SchemaV2
	return json.Marshal(m)
}

// DecodeFileMetadata parses raw metadata of either schema, upgrading v1 to
// v2 on the way in. Unknown fields are rejected, which is what catches a
// hybrid document claiming one schema while carrying the other's fields.
func DecodeFileMetadata(raw []byte) (*FileMetadata, error) {
	var probe struct {
		Schema string `json:"schema"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("vault: decode file metadata: %w", err)
	}
	switch probe.Schema {
	case SchemaV2:
		var m FileMetadata
		if err := strictDecode(raw, &m); err != nil {
			return nil, err
		}
		return &m, nil
	case SchemaV1:
		var legacy FileMetadataV1
		if err := strictDecode(raw, &legacy); err != nil {
			return nil, err
		}
		return upgradeV1(&legacy), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, probe.Schema)
	}
}

// upgradeV1 lifts a legacy document into the versioned shape. The single
// v1 payload becomes version zero of the history.
func upgradeV1(legacy *FileMetadataV1) *FileMetadata {
	return &FileMetadata{
		Schema: SchemaV2,
		Name:   legacy.Name,
		Versions: []FileVersion{{
			CID:              legacy.CID,
			EncryptedFileKey: legacy.EncryptedFileKey,
			IV:               legacy.IV,
			Size:             legacy.Size,
			CreatedAt:        legacy.CreatedAt,
		}},
		CreatedAt:  legacy.CreatedAt,
		ModifiedAt: legacy.ModifiedAt,
	}
}

func strictDecode(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("vault: decode file metadata: %w", err)
	}
	return nil
}
