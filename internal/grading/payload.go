package grading

import (
	"encoding/json"
	"strings"
)

// Stored answer payloads are opaque blobs: clients send a bare identifier,
// a quoted identifier, or a structured object depending on question type.
// They are decoded only at grading time, and anything undecodable grades
// as incorrect rather than failing the pass.

// Payload is the decoded form of an answer blob.
type Payload interface{ isPayload() }

// OptionRef points at a selected option of an objective question.
type OptionRef struct{ ID string }

// TextValue is a free-text response (fill-blank).
type TextValue struct{ Value string }

// Unparseable marks a blob that matched no accepted shape.
type Unparseable struct{}

func (OptionRef) isPayload()   {}
func (TextValue) isPayload()   {}
func (Unparseable) isPayload() {}

// DecodeOption extracts a selected-option reference. Accepted shapes:
// a bare identifier, a JSON-quoted identifier, or {"optionId": "..."}.
func DecodeOption(raw json.RawMessage) Payload {
	s, ok := decodeScalar(raw, "optionId")
	if !ok {
		return Unparseable{}
	}
	return OptionRef{ID: s}
}

// DecodeText extracts a plain text value. Accepted shapes: a bare string,
// a JSON-quoted string, or {"value": "..."}.
func DecodeText(raw json.RawMessage) Payload {
	s, ok := decodeScalar(raw, "value")
	if !ok {
		return Unparseable{}
	}
	return TextValue{Value: s}
}

func decodeScalar(raw json.RawMessage, field string) (string, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "", false
	}
	var asString string
	if err := json.Unmarshal([]byte(trimmed), &asString); err == nil {
		if asString == "" {
			return "", false
		}
		return asString, true
	}
	var asObject map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &asObject); err == nil {
		inner, ok := asObject[field]
		if !ok {
			return "", false
		}
		if err := json.Unmarshal(inner, &asString); err != nil || asString == "" {
			return "", false
		}
		return asString, true
	}
	// Not valid JSON at all: clients sometimes send the raw identifier.
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return "", false
	}
	return trimmed, true
}
