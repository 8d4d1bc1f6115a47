package llmjson

import (
	"errors"
	"reflect"
	"testing"
)

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		"```json\n[1,2]\n```":  "[1,2]",
		"```\n[\"a\"]\n```":    `["a"]`,
		"  [1]  ":              "[1]",
		"```[{\"a\":1}]```":    `[{"a":1}]`,
		"```JSON\n[]\n```\n":   "[]",
	}
	for in, want := range cases {
		if got := StripFences(in); got != want {
			t.Fatalf("StripFences(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractArray(t *testing.T) {
	got, err := ExtractArray("```json\n[\"go стажер\", \"junior python\"]\n```")
	if err != nil {
		t.Fatalf("ExtractArray() error = %v", err)
	}
	if got != `["go стажер", "junior python"]` {
		t.Fatalf("unexpected array %q", got)
	}

	rejected := []string{
		"no json here",
		`{"a": 1}`,
		`{"queries": ["junior go"]}`,
		`{"results": [{"index": 1}, {"index": 2}]}`,
		`Вот запросы: ["go стажер", "junior python"] удачи`,
	}
	for _, in := range rejected {
		if _, err := ExtractArray(in); !errors.Is(err, ErrNotArray) {
			t.Fatalf("ExtractArray(%q) expected ErrNotArray, got %v", in, err)
		}
	}
}

func TestDecodeArray(t *testing.T) {
	items, err := DecodeArray("```json\n[{\"index\": 1}, {\"index\": 2}]\n```", SchemaObjectArray)
	if err != nil {
		t.Fatalf("DecodeArray() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	if _, err := DecodeArray(`[1, 2]`, SchemaObjectArray); !errors.Is(err, ErrNotArray) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
	if _, err := DecodeArray(`[1, 2`, SchemaArray); !errors.Is(err, ErrNotArray) {
		t.Fatalf("expected ErrNotArray for truncated output, got %v", err)
	}
	if _, err := DecodeArray(`[1, oops]`, SchemaArray); !errors.Is(err, ErrNotArray) {
		t.Fatalf("expected ErrNotArray for malformed output, got %v", err)
	}
}

func TestScore(t *testing.T) {
	cases := []struct {
		in   any
		want int
	}{
		{in: float64(85), want: 85},
		{in: "72", want: 72},
		{in: 150.0, want: 100},
		{in: -5.0, want: 0},
		{in: 49.6, want: 50},
		{in: nil, want: 0},
		{in: "n/a", want: 0},
		{in: true, want: 0},
	}
	for _, tc := range cases {
		if got := Score(tc.in); got != tc.want {
			t.Fatalf("Score(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestIntAndFloat(t *testing.T) {
	if n, ok := Int("3"); !ok || n != 3 {
		t.Fatalf("Int(\"3\") = %d, %v", n, ok)
	}
	if _, ok := Int(""); ok {
		t.Fatal("expected empty string to fail")
	}
	if f, ok := Float(2); !ok || f != 2 {
		t.Fatalf("Float(2) = %v, %v", f, ok)
	}
}

func TestStringsAndString(t *testing.T) {
	got := Strings([]any{" первый ", 1, "", "второй"})
	if !reflect.DeepEqual(got, []string{"первый", "второй"}) {
		t.Fatalf("unexpected strings %v", got)
	}
	if got := Strings(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
	if got := Strings("один"); !reflect.DeepEqual(got, []string{"один"}) {
		t.Fatalf("unexpected strings %v", got)
	}

	if String(nil) != "" || String(" x ") != "x" || String(12.0) != "12" {
		t.Fatal("unexpected String coercion")
	}
}
