package jsonx

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// ErrNoJSON means no fragment of the requested shape decoded successfully.
var ErrNoJSON = eris.New("jsonx: no JSON value found")

// Parse decodes one fragment, keeping numbers as json.Number.
func Parse(fragment string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(fragment)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, eris.Wrap(err, "jsonx: decode fragment")
	}
	return v, nil
}

// candidates yields every balanced fragment starting at each occurrence of
// open, outermost first, so a malformed wrapper does not hide a valid inner
// value.
func candidates(raw string, open byte) []string {
	close := byte('}')
	if open == '[' {
		close = ']'
	}
	var out []string
	for i := 0; i < len(raw); i++ {
		if raw[i] != open {
			continue
		}
		if end := matchBalanced(raw, i, open, close); end >= 0 {
			out = append(out, raw[i:end+1])
		}
	}
	return out
}

// FirstObject returns the first object fragment in raw that decodes.
func FirstObject(raw string) (map[string]any, error) {
	for _, frag := range candidates(raw, '{') {
		v, err := Parse(frag)
		if err != nil {
			continue
		}
		if m, ok := v.(map[string]any); ok {
			return m, nil
		}
	}
	return nil, ErrNoJSON
}

// FirstArray returns the first array fragment in raw that decodes.
func FirstArray(raw string) ([]any, error) {
	for _, frag := range candidates(raw, '[') {
		v, err := Parse(frag)
		if err != nil {
			continue
		}
		if a, ok := v.([]any); ok {
			return a, nil
		}
	}
	return nil, ErrNoJSON
}

// Decode finds the first object in raw that decodes into out.
func Decode(raw string, out any) error {
	for _, frag := range candidates(raw, '{') {
		if err := json.Unmarshal([]byte(frag), out); err == nil {
			return nil
		}
	}
	return ErrNoJSON
}

// Strings returns the non-empty string elements of the first array in raw.
func Strings(raw string) ([]string, error) {
	arr, err := FirstArray(raw)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		s, ok := v.(string)
		if ok && s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
