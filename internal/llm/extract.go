package llm

import (
	"encoding/json"
	"strings"

	"github.com/chartquery/chartquery/internal/errors"
)

// JSONInstruction is appended to every prompt that expects structured output.
// LLM output is not guaranteed well-formed outside the matched span, so
// callers extract the first brace-delimited object instead of streaming a
// real JSON decoder over the whole response.
const JSONInstruction = "Respond with a single JSON object only. No markdown, no prose outside the object."

// ExtractJSONObject locates the first balanced {...} substring in text and
// returns it if it is valid JSON. The brace matcher is string-aware: braces
// inside quoted values do not affect nesting depth.
func ExtractJSONObject(text string) (json.RawMessage, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		ch := text[i]

		if escaped {
			escaped = false
			continue
		}

		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					candidate := text[start : i+1]
					if json.Valid([]byte(candidate)) {
						return json.RawMessage(candidate), true
					}

					return nil, false
				}
			}
		}
	}

	return nil, false
}

// DecodeFirstJSON extracts the first JSON object from text and unmarshals it
// into v. It returns a parse-typed error when no decodable object is found.
func DecodeFirstJSON(text string, v interface{}) error {
	raw, ok := ExtractJSONObject(text)
	if !ok {
		return errors.New(errors.ErrTypeParse, "no JSON object found in LLM response")
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(err, errors.ErrTypeParse, "failed to decode JSON object from LLM response")
	}

	return nil
}
