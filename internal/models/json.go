package models

import "encoding/json"

// InvalidJSONMessage is the inline message shown for malformed JSON fields.
const InvalidJSONMessage = "Invalid JSON format"

// ValidJSON reports whether text parses as JSON. The parsed value is discarded.
func ValidJSON(text string) bool {
	var v any
	return json.Unmarshal([]byte(text), &v) == nil
}
