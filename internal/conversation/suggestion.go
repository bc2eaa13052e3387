package conversation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Suggestion is the extraction engine's reply after structural parsing but
// before validation. Empty Message or State mean the key was absent.
type Suggestion struct {
	Message string
	State   string
	Data    map[string]string
}

// ParseSuggestion reads an engine reply. Anything that is not a JSON object,
// or whose "data" is not an object, is reported as ErrEngineMalformed.
func ParseSuggestion(text string) (Suggestion, error) {
	text = stripCodeFence(strings.TrimSpace(text))
	if text == "" {
		return Suggestion{}, fmt.Errorf("%w: empty reply", ErrEngineMalformed)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Suggestion{}, fmt.Errorf("%w: %v", ErrEngineMalformed, err)
	}
	if raw == nil {
		return Suggestion{}, fmt.Errorf("%w: null reply", ErrEngineMalformed)
	}

	s := Suggestion{
		Message: rawString(raw["message"]),
		State:   rawString(raw["state"]),
	}

	data, ok := raw["data"]
	if !ok || isJSONNull(data) {
		return s, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return Suggestion{}, fmt.Errorf("%w: data is not an object: %v", ErrEngineMalformed, err)
	}
	s.Data = make(map[string]string, len(fields))
	for key, value := range fields {
		switch v := value.(type) {
		case string:
			s.Data[key] = v
		case json.Number:
			s.Data[key] = v.String()
		}
	}
	return s, nil
}

// Keys returns the data keys in sorted order so normalisation is deterministic.
func (s Suggestion) Keys() []string {
	keys := make([]string, 0, len(s.Data))
	for k := range s.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "json")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
