package model_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldkv/fieldkv-go/model"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name   string
		a, b   any
		want   int
		wantOK bool
	}{
		{name: "ints across widths", a: int32(3), b: int64(5), want: -1, wantOK: true},
		{name: "int against float", a: int64(2), b: 1.5, want: 1, wantOK: true},
		{name: "equal numerics", a: uint8(7), b: int64(7), want: 0, wantOK: true},
		{name: "strings", a: "a", b: "b", want: -1, wantOK: true},
		{name: "bools order false first", a: false, b: true, want: -1, wantOK: true},
		{name: "mixed number and string", a: int64(1), b: "1", wantOK: false},
		{name: "nil is unordered", a: nil, b: int64(1), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := model.Compare(tt.a, tt.b)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				require.Equal(t, tt.want, got)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{name: "numeric across widths", a: int32(5), b: int64(5), want: true},
		{name: "strings", a: "x", b: "x", want: true},
		{name: "mismatched kinds", a: "1", b: int64(1), want: false},
		{name: "both nil", a: nil, b: nil, want: true},
		{name: "nil against value", a: nil, b: "x", want: false},
		{name: "byte slices by content", a: []byte{1, 2}, b: []byte{1, 2}, want: true},
		{name: "byte slices differ", a: []byte{1, 2}, b: []byte{1, 3}, want: false},
		{name: "byte slice against string", a: []byte("x"), b: "x", want: false},
		{name: "lists deep equal", a: []any{"a", int64(1)}, b: []any{"a", int64(1)}, want: true},
		{name: "lists differ", a: []any{"a"}, b: []any{"b"}, want: false},
		{
			name: "maps deep equal",
			a:    map[string]any{"zip": int64(10001)},
			b:    map[string]any{"zip": int64(10001)},
			want: true,
		},
		{name: "maps differ", a: map[string]any{"a": 1}, b: map[string]any{"a": 2}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got bool
			require.NotPanics(t, func() { got = model.Equal(tt.a, tt.b) })
			require.Equal(t, tt.want, got)
		})
	}
}
