package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ParseRecords decodes a shard body (or a posted payload) into raw records.
// The top-level value must be a JSON array.
func ParseRecords(body []byte) ([]RawRecord, error) {
	v, err := decodeLenient(body)
	if err != nil {
		return nil, err
	}

	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: top-level value is %s, want array", ErrShape, jsonKind(v))
	}
	return arr, nil
}

// IsEmptyPayload reports whether body carries no usable data: blank, null,
// an empty array or an empty object. Invalid JSON is not considered empty.
func IsEmptyPayload(body []byte) bool {
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	v, err := decodeLenient(body)
	if err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return true
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

func decodeLenient(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(sanitizeNonFinite(body)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty body", ErrDecode)
		}
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after top-level value", ErrDecode)
	}
	return v, nil
}

var nonFiniteLiterals = [][]byte{
	[]byte("-Infinity"),
	[]byte("Infinity"),
	[]byte("NaN"),
}

// sanitizeNonFinite rewrites the NaN/Infinity literals some producers emit
// outside of strings to null, so the body decodes as strict JSON.
func sanitizeNonFinite(body []byte) []byte {
	if !bytes.Contains(body, []byte("NaN")) && !bytes.Contains(body, []byte("Infinity")) {
		return body
	}

	out := make([]byte, 0, len(body))
	inString := false
	escaped := false

	for i := 0; i < len(body); {
		b := body[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			}
			out = append(out, b)
			i++
			continue
		}

		if b == '"' {
			inString = true
			out = append(out, b)
			i++
			continue
		}

		replaced := false
		for _, lit := range nonFiniteLiterals {
			if bytes.HasPrefix(body[i:], lit) {
				out = append(out, "null"...)
				i += len(lit)
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, b)
			i++
		}
	}
	return out
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number, float64, int:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
