package attributes

import (
	"encoding/base64"
	"encoding/json"
	"unicode/utf8"
)

// DecodeFields walks a decoded JSON document and replaces every string that
// is valid base64 with its decoded form. Decoded text that is itself JSON is
// parsed into a value; other decoded text is kept as a string. Strings that
// are not base64, or do not decode to UTF-8, are left untouched. Decoded
// values are not walked again.
func DecodeFields(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = DecodeFields(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = DecodeFields(val)
		}
		return out
	case string:
		return decodeField(t)
	default:
		return v
	}
}

func decodeField(s string) any {
	if s == "" {
		return s
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil || !utf8.Valid(raw) {
		return s
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err == nil {
		return parsed
	}
	return string(raw)
}
