package regex_test

import (
	"testing"

	"github.com/twbaty/go-winix/pkg/regex"
)

// search compiles pattern and searches subject from offset 0.
func search(t *testing.T, pattern string, flags regex.Flags, subject string) []int {
	t.Helper()
	re, err := regex.Compile(pattern, flags)
	if err != nil {
		t.Fatalf("Compile(%q) failed: %v", pattern, err)
	}
	return re.Search(subject, 0, false)
}

// assertSpan checks the whole-match span of a search result.
func assertSpan(t *testing.T, m []int, start, end int) {
	t.Helper()
	if m == nil {
		t.Fatalf("expected match [%d,%d), got no match", start, end)
	}
	if m[0] != start || m[1] != end {
		t.Errorf("match span = [%d,%d), want [%d,%d)", m[0], m[1], start, end)
	}
}

func TestSearchBRE(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		subject string
		start   int
		end     int
		noMatch bool
	}{
		{name: "literal", pattern: "ell", subject: "hello", start: 1, end: 4},
		{name: "literal miss", pattern: "xyz", subject: "hello", noMatch: true},
		{name: "dot", pattern: "h.l", subject: "hello", start: 0, end: 3},
		{name: "dot no newline needed", pattern: "a.c", subject: "abc", start: 0, end: 3},
		{name: "star greedy", pattern: "ho*", subject: "hoooot", start: 0, end: 5},
		{name: "star zero", pattern: "bo*", subject: "bat", start: 0, end: 1},
		{name: "star backtrack", pattern: "a*a", subject: "aaa", start: 0, end: 3},
		{name: "plus", pattern: `ab\+`, subject: "abbb", start: 0, end: 4},
		{name: "plus needs one", pattern: `ab\+`, subject: "ac", noMatch: true},
		{name: "question present", pattern: `colou\?r`, subject: "colour", start: 0, end: 6},
		{name: "question absent", pattern: `colou\?r`, subject: "color", start: 0, end: 5},
		{name: "caret", pattern: "^he", subject: "hello", start: 0, end: 2},
		{name: "caret miss", pattern: "^ello", subject: "hello", noMatch: true},
		{name: "dollar", pattern: "lo$", subject: "hello", start: 3, end: 5},
		{name: "dollar miss", pattern: "lo$", subject: "lower", noMatch: true},
		{name: "both anchors", pattern: "^hello$", subject: "hello", start: 0, end: 5},
		{name: "dollar mid is literal", pattern: "a$b", subject: "xa$by", start: 1, end: 4},
		{name: "empty pattern", pattern: "", subject: "abc", start: 0, end: 0},
		{name: "trailing spaces", pattern: " *$", subject: "hi   ", start: 2, end: 5},
		{name: "escaped dot", pattern: `a\.b`, subject: "axb a.b", start: 4, end: 7},
		{name: "escape n", pattern: `a\nb`, subject: "a\nb", start: 0, end: 3},
		{name: "escape t", pattern: `\t`, subject: "a\tb", start: 1, end: 2},
		{name: "unknown escape literal", pattern: `\q`, subject: "aqb", start: 1, end: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := search(t, tt.pattern, 0, tt.subject)
			if tt.noMatch {
				if m != nil {
					t.Errorf("expected no match, got [%d,%d)", m[0], m[1])
				}
				return
			}
			assertSpan(t, m, tt.start, tt.end)
		})
	}
}

func TestSearchERE(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		subject string
		start   int
		end     int
		noMatch bool
	}{
		{name: "plus", pattern: "ab+", subject: "xabbbc", start: 1, end: 5},
		{name: "question", pattern: "colou?r", subject: "color", start: 0, end: 5},
		{name: "alternation first", pattern: "cat|dog", subject: "a cat", start: 2, end: 5},
		{name: "alternation second", pattern: "cat|dog", subject: "hotdog", start: 3, end: 6},
		{name: "alternation miss", pattern: "cat|dog", subject: "bird", noMatch: true},
		{name: "group alternation", pattern: "(red|blue)berry", subject: "blueberry", start: 0, end: 9},
		{name: "group plus", pattern: "(ab)+", subject: "xababy", start: 1, end: 5},
		{name: "dollar before bar", pattern: "a$|b", subject: "ba", start: 0, end: 1},
		{name: "dollar in group", pattern: "x(y$)", subject: "xy", start: 0, end: 2},
		{name: "nested groups", pattern: "((a)b)c", subject: "abc", start: 0, end: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := search(t, tt.pattern, regex.Extended, tt.subject)
			if tt.noMatch {
				if m != nil {
					t.Errorf("expected no match, got [%d,%d)", m[0], m[1])
				}
				return
			}
			assertSpan(t, m, tt.start, tt.end)
		})
	}
}

func TestBracketExpressions(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		subject string
		start   int
		end     int
		noMatch bool
	}{
		{name: "set", pattern: "[aeiou]", subject: "grey", start: 2, end: 3},
		{name: "set miss", pattern: "[aeiou]", subject: "xyz", noMatch: true},
		{name: "range", pattern: "[a-c]", subject: "zzb", start: 2, end: 3},
		{name: "negated", pattern: "[^0-9]", subject: "12a", start: 2, end: 3},
		{name: "leading bracket literal", pattern: "[]a]", subject: "x]y", start: 1, end: 2},
		{name: "digit class", pattern: `[[:digit:]]\+`, subject: "ab123c", start: 2, end: 5},
		{name: "space class", pattern: "[[:space:]]", subject: "a b", start: 1, end: 2},
		{name: "alpha class", pattern: "[[:alpha:]]", subject: "1x", start: 1, end: 2},
		{name: "upper class", pattern: "[[:upper:]]", subject: "aB", start: 1, end: 2},
		{name: "xdigit class", pattern: "[[:xdigit:]]", subject: "zF", start: 1, end: 2},
		{name: "punct class", pattern: "[[:punct:]]", subject: "ab!", start: 2, end: 3},
		{name: "class plus literals", pattern: "[[:digit:]x]", subject: "abx", start: 2, end: 3},
		{name: "negated class", pattern: "[^[:digit:]]", subject: "12z", start: 2, end: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := search(t, tt.pattern, 0, tt.subject)
			if tt.noMatch {
				if m != nil {
					t.Errorf("expected no match, got [%d,%d)", m[0], m[1])
				}
				return
			}
			assertSpan(t, m, tt.start, tt.end)
		})
	}
}

func TestIgnoreCase(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		subject string
		start   int
		end     int
	}{
		{name: "literal", pattern: "HELLO", subject: "say hello", start: 4, end: 9},
		{name: "bracket set", pattern: "[AEIOU]", subject: "xyz e", start: 4, end: 5},
		{name: "bracket range", pattern: "[A-Z]", subject: "42q", start: 2, end: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := search(t, tt.pattern, regex.IgnoreCase, tt.subject)
			assertSpan(t, m, tt.start, tt.end)
		})
	}
}

func TestCaptureGroups(t *testing.T) {
	m := search(t, "(a+)(b+)", regex.Extended, "xaabbb")
	assertSpan(t, m, 1, 6)
	if m[2] != 1 || m[3] != 3 {
		t.Errorf("group 1 = [%d,%d), want [1,3)", m[2], m[3])
	}
	if m[4] != 3 || m[5] != 6 {
		t.Errorf("group 2 = [%d,%d), want [3,6)", m[4], m[5])
	}

	m = search(t, "((a)b)", regex.Extended, "ab")
	assertSpan(t, m, 0, 2)
	if m[2] != 0 || m[3] != 2 {
		t.Errorf("outer group = [%d,%d), want [0,2)", m[2], m[3])
	}
	if m[4] != 0 || m[5] != 1 {
		t.Errorf("inner group = [%d,%d), want [0,1)", m[4], m[5])
	}

	m = search(t, `\(el\)`, 0, "hello")
	assertSpan(t, m, 1, 3)
	if m[2] != 1 || m[3] != 3 {
		t.Errorf("BRE group = [%d,%d), want [1,3)", m[2], m[3])
	}
}

func TestUnusedGroupIsUnset(t *testing.T) {
	m := search(t, "(a)|(b)", regex.Extended, "b")
	assertSpan(t, m, 0, 1)
	if m[2] != -1 || m[3] != -1 {
		t.Errorf("group 1 = [%d,%d), want unset", m[2], m[3])
	}
}

// A quantified group whose final repetition attempt fails keeps the
// start of that failed attempt with an unset end. Replacement code
// treats such a capture as empty.
func TestQuantifiedGroupCapture(t *testing.T) {
	m := search(t, "(ab)+x", regex.Extended, "ababx")
	assertSpan(t, m, 0, 5)
	if m[2] != 4 || m[3] != -1 {
		t.Errorf("group 1 = [%d,%d), want [4,-1)", m[2], m[3])
	}
}

func TestBackreferences(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		flags   regex.Flags
		subject string
		start   int
		end     int
		noMatch bool
	}{
		{name: "bre doubled word", pattern: `\(ab\)\1`, subject: "xabab", start: 1, end: 5},
		{name: "bre miss", pattern: `\(ab\)\1`, subject: "abac", noMatch: true},
		{name: "ere", pattern: `(a.)\1`, flags: regex.Extended, subject: "axax", start: 0, end: 4},
		{name: "icase", pattern: `\(abc\)x\1`, flags: regex.IgnoreCase, subject: "ABCxabc", start: 0, end: 7},
		{name: "unset group fails", pattern: `\2ab`, subject: "ab", noMatch: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := search(t, tt.pattern, tt.flags, tt.subject)
			if tt.noMatch {
				if m != nil {
					t.Errorf("expected no match, got [%d,%d)", m[0], m[1])
				}
				return
			}
			assertSpan(t, m, tt.start, tt.end)
		})
	}
}

func TestSearchFromOffset(t *testing.T) {
	re, err := regex.Compile("o", 0)
	if err != nil {
		t.Fatal(err)
	}
	m := re.Search("hello world", 5, true)
	assertSpan(t, m, 7, 8)
}

func TestAnchorWithNotBOL(t *testing.T) {
	re, err := regex.Compile("^h", 0)
	if err != nil {
		t.Fatal(err)
	}
	if m := re.Search("hello", 0, true); m != nil {
		t.Errorf("anchored pattern matched with notBOL set: [%d,%d)", m[0], m[1])
	}
	if m := re.Search("hello", 0, false); m == nil {
		t.Error("anchored pattern did not match at beginning of line")
	}

	// the anchor binds to the starting offset, not offset zero
	re, err = regex.Compile("^l", 0)
	if err != nil {
		t.Fatal(err)
	}
	m := re.Search("hello", 2, false)
	assertSpan(t, m, 2, 3)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		flags   regex.Flags
	}{
		{name: "unterminated bracket", pattern: "a[bc"},
		{name: "bare open bracket", pattern: "["},
		{name: "trailing backslash", pattern: `abc\`},
		{name: "bre unterminated group", pattern: `\(ab`},
		{name: "bre unmatched close", pattern: `ab\)`},
		{name: "ere unterminated group", pattern: "(ab", flags: regex.Extended},
		{name: "ere unmatched close", pattern: "ab)", flags: regex.Extended},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := regex.Compile(tt.pattern, tt.flags); err == nil {
				t.Errorf("Compile(%q) succeeded, want error", tt.pattern)
			}
		})
	}
}

func TestPattern(t *testing.T) {
	re, err := regex.Compile("a.*b", 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := re.Pattern(); got != "a.*b" {
		t.Errorf("Pattern() = %q, want %q", got, "a.*b")
	}
}
