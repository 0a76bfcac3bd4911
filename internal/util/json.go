package util

import "encoding/json"

// MarshalPretty renders v as indented JSON followed by a newline.
func MarshalPretty(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
