// Package llmjson extracts and coerces JSON arrays from free-form model output.
package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const (
	// SchemaArray accepts any JSON array.
	SchemaArray = `{"type":"array"}`
	// SchemaObjectArray accepts a JSON array of objects.
	SchemaObjectArray = `{"type":"array","items":{"type":"object"}}`
)

// ErrNotArray is returned when the output holds no JSON array of the expected shape.
var ErrNotArray = errors.New("response is not a json array")

// StripFences removes markdown code block wrappers the model adds around JSON.
func StripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}

	raw = strings.TrimPrefix(raw, "```")
	if idx := strings.Index(raw, "\n"); idx >= 0 {
		firstLine := strings.TrimSpace(raw[:idx])
		if len(firstLine) < 20 && !strings.ContainsAny(firstLine, " [{") {
			raw = raw[idx+1:]
		}
	}
	if idx := strings.LastIndex(raw, "```"); idx >= 0 {
		raw = raw[:idx]
	}

	return strings.TrimSpace(strings.Trim(raw, "`"))
}

// ExtractArray returns raw with code fences removed when what remains is a
// JSON array. Anything else, including arrays nested in objects or prose, is ErrNotArray.
func ExtractArray(raw string) (string, error) {
	text := StripFences(raw)
	if !strings.HasPrefix(text, "[") || !strings.HasSuffix(text, "]") {
		return "", ErrNotArray
	}

	return text, nil
}

// DecodeArray extracts a JSON array from raw, checks it against schema and decodes it.
func DecodeArray(raw, schema string) ([]any, error) {
	text, err := ExtractArray(raw)
	if err != nil {
		return nil, err
	}

	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(schema), gojsonschema.NewStringLoader(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotArray, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
		}
		return nil, fmt.Errorf("%w: %s", ErrNotArray, strings.Join(msgs, "; "))
	}

	var items []any
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotArray, err)
	}

	return items, nil
}

// Float coerces numbers and numeric strings.
func Float(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case int:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Int coerces v to the nearest integer.
func Int(v any) (int, bool) {
	f, ok := Float(v)
	if !ok {
		return 0, false
	}
	return int(math.Round(f)), true
}

// Score coerces v to an integer within [0,100]. Missing or malformed values score 0.
func Score(v any) int {
	n, _ := Int(v)
	return Clamp(n, 0, 100)
}

func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func String(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

// Strings returns the non-empty string entries of a JSON list. A single
// string is treated as a one-element list.
func Strings(v any) []string {
	out := []string{}
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, s := range val {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(val); s != "" {
			out = append(out, s)
		}
	}
	return out
}
