package postgres

import "testing"

func TestLikePattern(t *testing.T) {
	testCases := []struct {
		term string
		want string
	}{
		{"Toyota", `%Toyota%`},
		{"_", `%\_%`},
		{"100%", `%100\%%`},
		{`a\b`, `%a\\b%`},
	}

	for _, tc := range testCases {
		if got := likePattern(tc.term); got != tc.want {
			t.Errorf("likePattern(%q) = %q, want %q", tc.term, got, tc.want)
		}
	}
}
