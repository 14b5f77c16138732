package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// defaultMessageType is used by the flattened form when no type is given.
const defaultMessageType = "text"

// ParseMessage decodes a message that must be a JSON object.
func ParseMessage(raw []byte) (map[string]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, ErrMissingMessage
	}
	var msg map[string]json.RawMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return msg, nil
}

// FlatMessage builds {type, content} from the flattened query form.
// An empty typ defaults to "text"; empty content is a missing message.
func FlatMessage(typ, content string) (map[string]json.RawMessage, error) {
	if content == "" {
		return nil, ErrMissingMessage
	}
	if typ == "" {
		typ = defaultMessageType
	}
	typJSON, err := json.Marshal(typ)
	if err != nil {
		return nil, fmt.Errorf("encoding type: %w", err)
	}
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("encoding content: %w", err)
	}
	return map[string]json.RawMessage{
		"type":    typJSON,
		"content": contentJSON,
	}, nil
}
