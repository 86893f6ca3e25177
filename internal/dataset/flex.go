package dataset

import (
	"encoding/json"
	"strings"
)

// flexString decodes a JSON scalar as text. The API is not consistent about
// identifier types: the same field arrives as a number on one endpoint and
// a string on another, and optional fields arrive as null.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	switch {
	case s == "null":
		*f = ""
	case len(s) >= 2 && s[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = flexString(v)
	default:
		*f = flexString(s)
	}
	return nil
}

// value returns the text as a nullable column value.
func (f flexString) value() any {
	if f == "" {
		return nil
	}
	return string(f)
}
