package httpclient

import (
	"bytes"
	"encoding/json"
)

// Unwrap returns the payload of a response envelope. Upstreams put the real
// content at .data or at .data.data; anything else yields nil.
func Unwrap(raw []byte) json.RawMessage {
	var outer struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &outer); err != nil || isEmpty(outer.Data) {
		return nil
	}

	trimmed := bytes.TrimSpace(outer.Data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &inner); err == nil {
			if nested, ok := inner["data"]; ok {
				if isEmpty(nested) {
					return nil
				}
				return nested
			}
		}
	}

	return outer.Data
}

// DecodeData decodes the envelope payload into out. It reports false, leaving
// out untouched, when there is no recognizable content.
func DecodeData(raw []byte, out any) bool {
	payload := Unwrap(raw)
	if payload == nil {
		return false
	}
	return json.Unmarshal(payload, out) == nil
}

func isEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
