// Package util converts loosely typed bus payloads into concrete types.
package util

import (
	"encoding/json"

	"mcuhal-go/errcode"
)

// DecodeJSON fills dst from raw JSON or, for any other value, from its JSON
// encoding.
func DecodeJSON[T any](src any, dst *T) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	case json.RawMessage:
		return json.Unmarshal(v, dst)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}

// As converts a control payload to T. A T (or *T) passes through, nil is
// the zero value and anything else goes through a JSON round trip, which
// covers maps decoded from external callers.
func As[T any](v any) (T, error) {
	var zero T
	switch p := v.(type) {
	case nil:
		return zero, nil
	case T:
		return p, nil
	case *T:
		if p == nil {
			return zero, nil
		}
		return *p, nil
	}
	var out T
	if err := DecodeJSON(v, &out); err != nil {
		return zero, &errcode.E{C: errcode.InvalidPayload, Err: err}
	}
	return out, nil
}
