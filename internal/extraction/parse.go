package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSONReply extracts a JSON object from a free-text model reply.
// Models wrap output unpredictably, so three forms are accepted in order:
// a fenced ```json block, the whole reply as a bare object, and finally a
// brace scan for the first balanced object in the text.
func ParseJSONReply(reply string) (map[string]any, error) {
	reply = strings.TrimSpace(reply)

	if block, ok := fencedBlock(reply); ok {
		if obj, err := decodeObject(block); err == nil {
			return obj, nil
		}
	}

	if obj, err := decodeObject(reply); err == nil {
		return obj, nil
	}

	if candidate, ok := scanBraces(reply); ok {
		if obj, err := decodeObject(candidate); err == nil {
			return obj, nil
		}
	}

	return nil, fmt.Errorf("no JSON object found in reply")
}

func decodeObject(s string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// fencedBlock returns the contents of the first ``` fence, tolerating an
// optional language tag on the opening line.
func fencedBlock(s string) (string, bool) {
	start := strings.Index(s, "```")
	if start < 0 {
		return "", false
	}
	rest := s[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		firstLine := strings.TrimSpace(rest[:nl])
		if firstLine == "" || isLanguageTag(firstLine) {
			rest = rest[nl+1:]
		}
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

func isLanguageTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// scanBraces finds the first balanced top-level {...} span, skipping braces
// inside string literals.
func scanBraces(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
