// Package remote implements the client side of the paginated collection API:
// request construction, response decoding, and the error classification the
// replication engine's retry policy depends on.
package remote

import (
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/tideflow-io/tideflow/pkg/errors"
)

// Record is one resource returned by a collection endpoint. IDs are expected
// to be monotonically non-decreasing within a correctly ordered result page;
// UpdatedAt drives window placement.
type Record struct {
	ID        int64
	UpdatedAt time.Time
	Fields    map[string]interface{}
}

// recordFromObject extracts the id and updated_at fields from a decoded
// response object. A missing or malformed id is a decode error: without it
// the id-cursor contract cannot be verified.
func recordFromObject(obj map[string]interface{}) (Record, error) {
	rec := Record{Fields: obj}

	id, ok := obj["id"]
	if !ok {
		return rec, errors.New(errors.ErrorTypeDecode, "record has no id field")
	}
	switch v := id.(type) {
	case gojson.Number:
		n, err := v.Int64()
		if err != nil {
			return rec, errors.Wrap(err, errors.ErrorTypeDecode, "record id is not an integer")
		}
		rec.ID = n
	case float64:
		rec.ID = int64(v)
	case int64:
		rec.ID = v
	default:
		return rec, errors.Newf(errors.ErrorTypeDecode, "record id has unexpected type %T", id)
	}

	if raw, ok := obj["updated_at"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			rec.UpdatedAt = ts.UTC()
		}
	}

	return rec, nil
}
