package catalog

import "testing"

func TestSlugID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "alouette", "alouette"},
		{"uppercase folded", "Alouette", "alouette"},
		{"spaces to dashes", "ne me quitte pas", "ne-me-quitte-pas"},
		{"accents folded", "Mylène Farmer", "mylene-farmer"},
		{"apostrophes", "Ça c'est Paris", "ca-c-est-paris"},
		{"underscores", "la_vie_en_rose", "la-vie-en-rose"},
		{"punctuation run collapses", "hello!!!world", "hello-world"},
		{"edges trimmed", "--hello world--", "hello-world"},
		{"digits kept", "99 Luftballons", "99-luftballons"},
		{"nothing usable", "!!!", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SlugID(tt.in); got != tt.want {
				t.Errorf("SlugID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
