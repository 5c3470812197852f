package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSON parses model output into v in two stages: the content as-is,
// then the substring from the first '{' to the last '}'. Nothing more
// aggressive is attempted.
func DecodeJSON(content string, v interface{}) error {
	strictErr := json.Unmarshal([]byte(content), v)
	if strictErr == nil {
		return nil
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || start >= end {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, strictErr)
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return nil
}
