package gitsource

import (
	"path/filepath"
	"testing"
)

func TestLocalPath(t *testing.T) {
	testCases := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "https url",
			url:  "https://github.com/alice/japanese-notes.git",
			want: filepath.Join("/cache", "github.com", "alice", "japanese-notes"),
		},
		{
			name: "https url without suffix",
			url:  "https://github.com/alice/japanese-notes",
			want: filepath.Join("/cache", "github.com", "alice", "japanese-notes"),
		},
		{
			name: "scp style url",
			url:  "git@github.com:alice/japanese-notes.git",
			want: filepath.Join("/cache", "github.com", "alice", "japanese-notes"),
		},
		{
			name:    "garbage",
			url:     "not a url at all",
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LocalPath("/cache", tc.url)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIsRemote(t *testing.T) {
	testCases := []struct {
		path string
		want bool
	}{
		{"https://github.com/alice/notes.git", true},
		{"git@github.com:alice/notes.git", true},
		{"/home/alice/notes", false},
		{"./notes", false},
	}

	for _, tc := range testCases {
		if got := IsRemote(tc.path); got != tc.want {
			t.Errorf("IsRemote(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
