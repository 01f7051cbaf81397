package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/ia-bridge/bridge"
)

func TestParseArgs(t *testing.T) {
	got, err := parseArgs([]string{`"ws://lobby"`, `3`, `true`, `bare`, `{"a":1}`})
	if err != nil {
		t.Fatal(err)
	}
	want := []any{"ws://lobby", float64(3), true, "bare", map[string]any{"a": float64(1)}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{"a", `"a"`},
		{42, "42"},
		{[]any{"x", 1}, `["x", 1]`},
		{map[string]any{"b": 2, "a": "y"}, `{a: "y", b: 2}`},
	}
	for _, tt := range tests {
		if got := formatValue(tt.in); got != tt.want {
			t.Errorf("formatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPropertyMeta(t *testing.T) {
	typ, writable := propertyMeta(bridge.Member{Meta: map[string]any{"type": "String", "canWrite": false}})
	if typ != "String" || writable {
		t.Errorf("propertyMeta = %q, %v", typ, writable)
	}
	if _, writable := propertyMeta(bridge.Member{}); !writable {
		t.Error("missing canWrite should default to writable")
	}
}
