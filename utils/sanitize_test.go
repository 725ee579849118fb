package utils

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	if got := SanitizeTitle("  <b>Hello</b> <script>x()</script> "); got != "Hello" {
		t.Fatalf("title not stripped: %q", got)
	}
	got := SanitizeContent(`<p>ok</p><script>alert(1)</script><a href="javascript:x()">l</a>`)
	if strings.Contains(got, "script") || strings.Contains(got, "javascript:") {
		t.Fatalf("content not sanitized: %q", got)
	}
	if !strings.Contains(got, "<p>ok</p>") {
		t.Fatalf("basic formatting dropped: %q", got)
	}
}

func TestUniqueInt64(t *testing.T) {
	got := UniqueInt64([]int64{3, 1, 3, 2, 1})
	want := []int64{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"abc", 0, ""},
	}
	for _, c := range cases {
		if got := TruncateRunes(c.in, c.n); got != c.want {
			t.Fatalf("TruncateRunes(%q,%d)=%q want %q", c.in, c.n, got, c.want)
		}
	}
}
