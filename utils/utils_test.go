package utils

import "testing"

func TestSplitTags(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"Paris", []string{"paris"}},
		{"Paris, Rome ,paris", []string{"paris", "rome"}},
		{" , ,", []string{}},
	}

	for _, c := range cases {
		got := SplitTags(c.in)
		if len(got) != len(c.want) {
			t.Errorf("SplitTags(%q) = %v, want %v", c.in, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("SplitTags(%q) = %v, want %v", c.in, got, c.want)
				break
			}
		}
	}
}

func TestGenerateRandomStringLength(t *testing.T) {
	if got := GenerateRandomString(13); len(got) != 13 {
		t.Errorf("GenerateRandomString(13) has length %d", len(got))
	}
}
