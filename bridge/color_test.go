package bridge

import (
	"context"
	"testing"
)

func TestColorToCSS(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "#000"},
		{"opaque red", map[string]any{"rByte": 255, "gByte": 0, "bByte": 0, "aByte": 255}, "rgba(255,0,0,1)"},
		{"json numbers", map[string]any{"rByte": 10.0, "gByte": 20.0, "bByte": 30.0, "aByte": 0.0}, "rgba(10,20,30,0)"},
		{"struct", Color{R: 1, G: 2, B: 3, A: 51}, "rgba(1,2,3,0.2)"},
		{"garbage", "blue", "#000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ColorToCSS(context.Background(), tt.in); got != tt.want {
				t.Errorf("ColorToCSS = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestColorToCSS_RemoteObject(t *testing.T) {
	h := newFakeHost()
	o := h.add(&fakeObject{
		id: "color",
		properties: map[string]map[string]any{
			"RByte": {}, "GByte": {}, "BByte": {}, "AByte": {},
		},
		values: map[string]any{"RByte": 0, "GByte": 128, "BByte": 255, "AByte": 255},
	})
	obj := wrap(t, New(h), o)

	if got := ColorToCSS(context.Background(), obj); got != "rgba(0,128,255,1)" {
		t.Errorf("ColorToCSS = %q", got)
	}
}
