// ABOUTME: Resilient JSON extraction from polluted response bodies
// ABOUTME: Recovers the JSON value when upstream wraps it in HTML or script noise
package woo

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const previewLimit = 500

// DecodeError reports a body that could not be decoded, carrying a bounded
// preview of the original payload for diagnosis.
type DecodeError struct {
	Preview string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response: %v (body: %q)", e.Err, e.Preview)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func newDecodeError(body []byte, err error) *DecodeError {
	preview := string(body)
	if len(preview) > previewLimit {
		preview = preview[:previewLimit]
	}
	return &DecodeError{Preview: preview, Err: err}
}

// DecodeArray unmarshals a response body expected to hold a JSON array,
// tolerating HTML or script noise around the value.
func DecodeArray(body []byte, v any) error {
	return decodeShape(body, v, '[', ']')
}

// DecodeObject unmarshals a response body expected to hold a JSON object,
// tolerating HTML or script noise around the value.
func DecodeObject(body []byte, v any) error {
	return decodeShape(body, v, '{', '}')
}

func decodeShape(body []byte, v any, open, close byte) error {
	trimmed := bytes.TrimSpace(body)

	// Clean bodies decode directly.
	if len(trimmed) > 0 && trimmed[0] == open && json.Valid(trimmed) {
		return json.Unmarshal(trimmed, v)
	}

	extracted, ok := extractJSON(trimmed, open, close)
	if !ok {
		return newDecodeError(body, fmt.Errorf("no %c...%c value found", open, close))
	}
	if err := json.Unmarshal(extracted, v); err != nil {
		return newDecodeError(body, err)
	}
	return nil
}

// extractJSON locates the first opening structural character and scans
// forward tracking bracket depth to find where the value closes. This is a
// heuristic, not a tokenizer: depth-zero positions inside string literals
// can fool it, so a candidate end is only accepted when the next character
// is whitespace, end of input, or the start of a markup tag. When the scan
// finds no acceptable end, the last occurrence of the closing character is
// used as a fallback.
func extractJSON(body []byte, open, close byte) ([]byte, bool) {
	start := bytes.IndexByte(body, open)
	if start < 0 {
		return nil, false
	}

	depth := 0
	for i := start; i < len(body); i++ {
		switch body[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 && acceptableTail(body, i+1) {
				return body[start : i+1], true
			}
		}
	}

	end := bytes.LastIndexByte(body, close)
	if end <= start {
		return nil, false
	}
	return body[start : end+1], true
}

// acceptableTail reports whether position i can legitimately follow the end
// of the JSON value.
func acceptableTail(body []byte, i int) bool {
	if i >= len(body) {
		return true
	}
	switch body[i] {
	case ' ', '\t', '\n', '\r', '<':
		return true
	}
	return false
}
