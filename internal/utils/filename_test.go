package utils

import "testing"

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		maxLen   int
		expected string
	}{
		{
			name:     "Punctuation stripped",
			title:    "My Video: Part 1/2",
			maxLen:   100,
			expected: "My Video Part 12",
		},
		{
			name:     "Allowed symbols kept",
			title:    "clip_v2-final.cut",
			maxLen:   100,
			expected: "clip_v2-final.cut",
		},
		{
			name:     "Truncated",
			title:    "abcdefghij",
			maxLen:   4,
			expected: "abcd",
		},
		{
			name:     "Unicode letters kept",
			title:    "Привет мир!",
			maxLen:   100,
			expected: "Привет мир",
		},
		{
			name:     "Empty result falls back",
			title:    "???",
			maxLen:   100,
			expected: "video",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeTitle(tt.title, tt.maxLen)
			if got != tt.expected {
				t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.title, got, tt.expected)
			}
		})
	}
}
