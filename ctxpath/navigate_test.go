package ctxpath_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldkv/fieldkv-go/ctxpath"
)

func TestNavigate(t *testing.T) {
	bin := map[string]any{
		"home": map[string]any{"zip": int64(10001), "city": "NYC"},
		"work": []any{int64(30), int64(10), int64(20)},
	}

	tests := []struct {
		name string
		path string
		want any
	}{
		{name: "map key", path: "home.zip", want: int64(10001)},
		{name: "list index", path: "work.[1]", want: int64(10)},
		{name: "list rank picks sorted position", path: "work.[#0]", want: int64(10)},
		{name: "list value", path: "work.[=20]", want: int64(20)},
		{name: "map index by sorted key", path: "home.{0}", want: "NYC"},
		{name: "map value", path: "home.{=NYC}", want: "NYC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := ctxpath.Parse(tt.path)
			require.NoError(t, err)
			got, err := ctxpath.Navigate(bin, path)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNavigateErrors(t *testing.T) {
	bin := map[string]any{"list": []any{int64(1)}}

	tests := []struct {
		name string
		path string
	}{
		{name: "missing key", path: "nope"},
		{name: "index out of range", path: "list.[5]"},
		{name: "list step on map", path: "[0]"},
		{name: "no matching value", path: "list.[=9]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := ctxpath.Parse(tt.path)
			require.NoError(t, err)
			_, err = ctxpath.Navigate(bin, path)
			require.Error(t, err)
		})
	}
}
