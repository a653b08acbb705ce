package game

import "testing"

func TestIsCorrect(t *testing.T) {
	cases := []struct {
		candidate, expected string
		want                bool
	}{
		{"바나나킥", "바나나킥", true},
		{"바나나 킥", "바나나킥", true},
		{"바나나킥", "바나나 킥", true},
		{"바나나", "바나나킥", false},
		{"바나나킥킥", "바나나킥", false},
		{"abc", "ABC", false},
		{"", "", true},
		{"", "가", false},
		{" 가\t나\n", "가나", true},
	}
	for _, tc := range cases {
		if got := IsCorrect(tc.candidate, tc.expected); got != tc.want {
			t.Fatalf("IsCorrect(%q, %q) = %v, want %v", tc.candidate, tc.expected, got, tc.want)
		}
	}
}
