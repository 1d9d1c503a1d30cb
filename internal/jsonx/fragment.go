// Package jsonx extracts JSON values from free-form language model output.
//
// Parsing is split into four pure stages so each can be tested on its own:
//
//	Fragments  locate balanced {...} or [...] spans, honoring string escapes
//	Parse      decode a span with json.Number preserved
//	Unwrap     strip single-key envelopes like {"smartphone": {...}}
//	Flatten    keep scalar values only, lifting known wrapper objects
package jsonx

// Fragments returns every balanced fragment in raw that opens with open
// ('{' or '['), in order of their starting offset. Nested fragments are not
// reported separately. Unterminated fragments are skipped.
func Fragments(raw string, open byte) []string {
	close := byte('}')
	if open == '[' {
		close = ']'
	}

	var out []string
	for start := 0; start < len(raw); start++ {
		if raw[start] != open {
			continue
		}
		end := matchBalanced(raw, start, open, close)
		if end < 0 {
			continue
		}
		out = append(out, raw[start:end+1])
		start = end
	}
	return out
}

// matchBalanced returns the index of the bracket that closes raw[start], or
// -1. Brackets inside JSON strings are ignored.
func matchBalanced(raw string, start int, open, close byte) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
