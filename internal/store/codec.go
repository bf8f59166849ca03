// Package store persists validated frames: snappy-compressed JSON blobs on
// an object store, tracked by a SQLite catalog of schema templates and
// frame records. Data read back is raw; callers must run it through a
// container's Load/Validate before use.
package store

import (
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"

	gferrors "github.com/gridframe/gridframe/internal/errors"
	"github.com/gridframe/gridframe/internal/tableio"
	"github.com/gridframe/gridframe/pkg/types"
)

// blobVersion guards against decoding blobs written by a future layout.
const blobVersion = 1

// frameBlob is the on-disk JSON layout of one frame, before compression.
type frameBlob struct {
	Version     int              `json:"version"`
	Fingerprint string           `json:"fingerprint"`
	Table       *tableio.Payload `json:"table"`
}

// EncodeTable serializes a table to a snappy-compressed JSON blob.
func EncodeTable(table *types.Table) ([]byte, error) {
	payload, err := tableio.ToPayload(table)
	if err != nil {
		return nil, gferrors.NewStoreError(gferrors.CodeEncodeFailed, "encode table payload", err)
	}

	blob := frameBlob{
		Version:     blobVersion,
		Fingerprint: table.Schema.Fingerprint(),
		Table:       payload,
	}

	encoded, err := json.Marshal(blob)
	if err != nil {
		return nil, gferrors.NewStoreError(gferrors.CodeEncodeFailed, "marshal frame blob", err)
	}
	return snappy.Encode(nil, encoded), nil
}

// DecodeTable deserializes a blob into a raw table bound to schema. The
// result has not been validated; cell values carry best-effort type tags
// for the validator to check, exactly as if the table had been loaded from
// any other untrusted source.
func DecodeTable(schema *types.Schema, compressed []byte) (*types.Table, error) {
	encoded, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, gferrors.NewStoreError(gferrors.CodeDecodeFailed, "snappy decode", err)
	}

	var blob frameBlob
	if err := json.Unmarshal(encoded, &blob); err != nil {
		return nil, gferrors.NewStoreError(gferrors.CodeDecodeFailed, "unmarshal frame blob", err)
	}
	if blob.Version != blobVersion {
		return nil, gferrors.NewStoreError(gferrors.CodeDecodeFailed,
			fmt.Sprintf("unsupported blob version %d", blob.Version), nil)
	}
	if blob.Table == nil {
		return nil, gferrors.NewStoreError(gferrors.CodeDecodeFailed, "frame blob has no table", nil)
	}
	if blob.Fingerprint != schema.Fingerprint() {
		return nil, gferrors.NewStoreError(gferrors.CodeDecodeFailed,
			"frame blob was written under a different schema", nil)
	}

	table, err := tableio.FromPayload(schema, blob.Table)
	if err != nil {
		return nil, gferrors.NewStoreError(gferrors.CodeDecodeFailed, "decode table payload", err)
	}
	return table, nil
}
