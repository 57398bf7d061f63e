package words

import "testing"

func TestRandomWords_CountAndMembership(t *testing.T) {
	picked := RandomWords(3)
	if len(picked) != 3 {
		t.Fatalf("Expected 3 words, got %d", len(picked))
	}

	inList := func(w string) bool {
		for _, c := range List {
			if c == w {
				return true
			}
		}
		return false
	}

	seen := make(map[string]bool)
	for _, w := range picked {
		if !inList(w) {
			t.Errorf("Word %q not in list", w)
		}
		if seen[w] {
			t.Errorf("Word %q picked twice", w)
		}
		seen[w] = true
	}
}

func TestRandomWords_ClampsToListSize(t *testing.T) {
	picked := RandomWords(len(List) + 10)
	if len(picked) != len(List) {
		t.Errorf("Expected %d words, got %d", len(List), len(picked))
	}
}

func TestMask(t *testing.T) {
	cases := []struct {
		word string
		want string
	}{
		{"apple", "_____"},
		{"ice cream", "___ _____"},
		{"", ""},
		{"a", "_"},
	}

	for _, c := range cases {
		if got := Mask(c.word); got != c.want {
			t.Errorf("Mask(%q) = %q, want %q", c.word, got, c.want)
		}
	}
}
