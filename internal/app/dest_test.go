package app

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestSafeFolderName(t *testing.T) {
	base := "/music"
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain name",
			in:   "Road Trip",
			want: filepath.Join(base, "Road Trip"),
		},
		{
			name: "unsafe runes replaced",
			in:   "Mix: 80s/90s?",
			want: filepath.Join(base, "Mix_ 80s_90s"),
		},
		{
			name: "padding trimmed",
			in:   "  ..playlist name._ ",
			want: filepath.Join(base, "playlist name"),
		},
		{
			name: "empty falls back",
			in:   "",
			want: filepath.Join(base, "playlist"),
		},
		{
			name: "only unsafe runes falls back",
			in:   "???///",
			want: filepath.Join(base, "playlist"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeFolderName(tt.in, base); got != tt.want {
				t.Errorf("SafeFolderName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSafeFolderNameTruncates(t *testing.T) {
	long := strings.Repeat("a", 200)
	got := SafeFolderName(long, "/music")
	name := filepath.Base(got)
	if len(name) != 80 {
		t.Errorf("folder name is %d chars, want 80", len(name))
	}
}
