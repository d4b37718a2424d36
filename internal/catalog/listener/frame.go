package listener

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotProduct = errors.New("frame is not a product payload")
	ErrDeleted    = errors.New("delete frame")
)

// DecodeFrame turns one pushed message into a raw product payload. Both bare
// product objects and {"event_type": ..., "payload": {...}} envelopes are
// accepted. Numbers stay json.Number so the normalizer sees the producer's
// exact digits. Delete frames ("DELETED:<id>") have no engine semantics and
// report ErrDeleted.
func DecodeFrame(value []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 {
		return nil, ErrNotProduct
	}

	if trimmed[0] != '{' {
		s := strings.Trim(string(trimmed), `"`)
		if strings.HasPrefix(s, "DELETED:") {
			return nil, fmt.Errorf("%w: %s", ErrDeleted, strings.TrimPrefix(s, "DELETED:"))
		}
		return nil, ErrNotProduct
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	if _, hasID := raw["id"]; !hasID {
		if payload, ok := raw["payload"].(map[string]any); ok {
			return payload, nil
		}
	}
	return raw, nil
}
