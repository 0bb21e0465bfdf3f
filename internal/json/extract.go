// Package json extracts JSON from model responses.
//
// Models often wrap JSON in markdown fences or surrounding prose; this
// package recovers the object portion before unmarshaling.
package json

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSONFromResponse extracts and parses a JSON object from a
// model response. Handles pure JSON, fenced ```json blocks, and an
// object embedded in text (first '{' to last '}').
func ExtractJSONFromResponse[T any](response string) (T, error) {
	var result T
	jsonStr, err := extract(response)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, nil
}

func extract(response string) (string, error) {
	response = stripFences(response)

	var probe any
	if err := json.Unmarshal([]byte(response), &probe); err == nil {
		return response, nil
	}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start != -1 && end > start {
		candidate := response[start : end+1]
		if err := json.Unmarshal([]byte(candidate), &probe); err == nil {
			return candidate, nil
		}
	}

	preview := response
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return "", fmt.Errorf("no valid JSON object in response: %q", preview)
}

// stripFences removes ``` and ```json markers around a response.
func stripFences(response string) string {
	trimmed := strings.TrimSpace(response)
	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```json"))
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	}
	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))
	}
	return trimmed
}
