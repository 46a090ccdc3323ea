// Package regex implements the small POSIX-style regular expression
// engine used by the sed applet. A compiled pattern keeps the pattern
// text verbatim: the matcher reinterprets it on every attempt, walking
// the subject position by position and backtracking through greedy
// quantifiers. Supported syntax: literal bytes, '.', bracket
// expressions with ranges and [:name:] classes, '^'/'$' anchors, BRE
// \(...\) and ERE (...) groups, ERE alternation, '*' in both dialects
// plus '+'/'?' in ERE and \+/\? in BRE, and backreferences \1-\9.
//
// Worst-case matching is exponential for pathological patterns. That
// is a known property of the enumeration strategy, kept on purpose:
// changing it would change which alternative wins.
package regex

import "fmt"

// Flags select the pattern dialect and matching behavior.
type Flags uint8

const (
	// Extended selects ERE syntax: (...) groups, alternation, + and ?.
	Extended Flags = 1 << iota
	// IgnoreCase folds both sides of every byte comparison.
	IgnoreCase
)

// ngroups is the number of reportable capture groups (\1-\9).
const ngroups = 9

// maxRepeat bounds the repetition end-positions enumerated for one
// quantified atom or group.
const maxRepeat = 8192

// Regexp is a compiled pattern. Compilation only validates the
// syntax; all interpretation happens at match time.
type Regexp struct {
	pattern string
	flags   Flags
}

// Compile validates pattern under the dialect selected by flags and
// returns it in compiled form. Unterminated bracket expressions and
// unbalanced groups are compile errors; everything else is legal and
// gets its meaning at match time.
func Compile(pattern string, flags Flags) (*Regexp, error) {
	if err := checkSyntax(pattern, flags&Extended != 0); err != nil {
		return nil, err
	}
	return &Regexp{pattern: pattern, flags: flags}, nil
}

// Pattern returns the original pattern text.
func (re *Regexp) Pattern() string { return re.pattern }

func checkSyntax(p string, ere bool) error {
	depth := 0
	i := 0
	for i < len(p) {
		switch {
		case p[i] == '\\':
			if i+1 >= len(p) {
				return fmt.Errorf("trailing backslash")
			}
			if !ere {
				switch p[i+1] {
				case '(':
					depth++
				case ')':
					depth--
					if depth < 0 {
						return fmt.Errorf("unmatched \\)")
					}
				}
			}
			i += 2
		case ere && p[i] == '(':
			depth++
			i++
		case ere && p[i] == ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("unmatched )")
			}
			i++
		case p[i] == '[':
			end := skipAtom(p, i, ere)
			if end > len(p) || p[end-1] != ']' || end == i+1 {
				return fmt.Errorf("unterminated bracket expression")
			}
			i = end
		default:
			i++
		}
	}
	if depth != 0 {
		return fmt.Errorf("unterminated group")
	}
	return nil
}

// Search scans subject for the pattern starting at byte offset from.
// notBOL marks the starting offset as not being the beginning of the
// line, which keeps a leading '^' from matching there (a global
// substitution resumes searches mid-string with notBOL set).
//
// On success the result holds 20 offsets: the whole match followed by
// capture groups 1-9, each a (start,end) pair with -1,-1 for groups
// that did not participate. Returns nil when nothing matches; that is
// a normal negative result, not an error.
func (re *Regexp) Search(subject string, from int, notBOL bool) []int {
	m := &mctx{
		subject: subject,
		icase:   re.flags&IgnoreCase != 0,
		ere:     re.flags&Extended != 0,
	}
	pat := re.pattern
	anchored := len(pat) > 0 && pat[0] == '^'
	pi0 := 0
	if anchored {
		pi0 = 1 // positioning below does the anchoring
	}

	for i := from; i <= len(subject); i++ {
		if anchored && (i > from || notBOL) {
			break
		}
		for g := range m.gs {
			m.gs[g], m.ge[g] = -1, -1
		}
		m.ncap = 0

		var r int
		if m.ere {
			r = m.matchAlt(pat, pi0, i)
		} else {
			r = m.matchHere(pat, pi0, i)
		}
		if r >= 0 {
			spans := make([]int, 2*(ngroups+1))
			for k := range spans {
				spans[k] = -1
			}
			spans[0], spans[1] = i, r
			n := m.ncap
			if n > ngroups {
				n = ngroups
			}
			for g := 0; g < n; g++ {
				spans[2*(g+1)] = m.gs[g]
				spans[2*(g+1)+1] = m.ge[g]
			}
			return spans
		}
	}
	return nil
}

// mctx is the per-search match context. Capture state lives here and
// is saved and restored symmetrically around every backtracking
// attempt; nothing survives across Search calls.
type mctx struct {
	subject string
	icase   bool
	ere     bool
	// capture group bounds, -1 = unset; the extra slot absorbs
	// groups past \9 so their openings stay harmless
	gs, ge [ngroups + 1]int
	ncap   int
}

func foldByte(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + 'a' - 'A'
	}
	return b
}

func (m *mctx) eq(a, b byte) bool {
	if m.icase {
		return foldByte(a) == foldByte(b)
	}
	return a == b
}

func isAlpha(b byte) bool { return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' }
func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isAlnum(b byte) bool { return isAlpha(b) || isDigit(b) }
func isUpper(b byte) bool { return b >= 'A' && b <= 'Z' }
func isLower(b byte) bool { return b >= 'a' && b <= 'z' }
func isPrint(b byte) bool { return b >= 0x20 && b < 0x7f }
func isPunct(b byte) bool { return isPrint(b) && b != ' ' && !isAlnum(b) }
func isCntrl(b byte) bool { return b < 0x20 || b == 0x7f }
func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
func isXdigit(b byte) bool {
	return isDigit(b) || b >= 'a' && b <= 'f' || b >= 'A' && b <= 'F'
}

// matchClass evaluates a bracket expression starting just past '['
// against byte c. The first ']' is literal; [:name:] classes, a-z
// ranges and leading '^' negation are honored. Returns the verdict
// and the pattern index just past the closing ']'.
func (m *mctx) matchClass(p string, pi int, c byte) (bool, int) {
	negate := false
	if pi < len(p) && p[pi] == '^' {
		negate = true
		pi++
	}
	lc := c
	if m.icase {
		lc = foldByte(c)
	}
	matched := false
	if pi < len(p) && p[pi] == ']' {
		if c == ']' {
			matched = true
		}
		pi++
	}
	for pi < len(p) && p[pi] != ']' {
		switch {
		case p[pi] == '[' && pi+1 < len(p) && p[pi+1] == ':':
			q := pi + 2
			for q < len(p) && !(p[q] == ':' && q+1 < len(p) && p[q+1] == ']') {
				q++
			}
			switch p[pi+2 : q] {
			case "alpha":
				matched = matched || isAlpha(lc)
			case "digit":
				matched = matched || isDigit(lc)
			case "alnum":
				matched = matched || isAlnum(lc)
			case "space":
				matched = matched || isSpace(lc)
			case "upper":
				if m.icase {
					matched = matched || isAlpha(lc)
				} else {
					matched = matched || isUpper(c)
				}
			case "lower":
				if m.icase {
					matched = matched || isAlpha(lc)
				} else {
					matched = matched || isLower(c)
				}
			case "print":
				matched = matched || isPrint(lc)
			case "punct":
				matched = matched || isPunct(lc)
			case "blank":
				matched = matched || c == ' ' || c == '\t'
			case "cntrl":
				matched = matched || isCntrl(c)
			case "xdigit":
				matched = matched || isXdigit(c)
			}
			if q < len(p) && p[q] == ':' {
				pi = q + 2
			} else {
				pi = q
			}
		case pi+2 < len(p) && p[pi+1] == '-' && p[pi+2] != ']':
			lo, hi := p[pi], p[pi+2]
			if m.icase {
				lo, hi = foldByte(lo), foldByte(hi)
			}
			if lc >= lo && lc <= hi {
				matched = true
			}
			pi += 3
		default:
			cc := p[pi]
			if m.icase {
				cc = foldByte(cc)
			}
			if cc == lc {
				matched = true
			}
			pi++
		}
	}
	if pi < len(p) && p[pi] == ']' {
		pi++
	}
	if negate {
		return !matched, pi
	}
	return matched, pi
}

// skipAtom returns the index just past one atom, not including any
// trailing quantifier.
func skipAtom(p string, pi int, ere bool) int {
	if pi >= len(p) {
		return pi
	}
	if p[pi] == '\\' {
		if pi+1 >= len(p) {
			return pi + 1
		}
		return pi + 2
	}
	if ere && (p[pi] == '(' || p[pi] == ')') {
		return pi + 1
	}
	if p[pi] == '[' {
		q := pi + 1
		if q < len(p) && p[q] == '^' {
			q++
		}
		if q < len(p) && p[q] == ']' {
			q++
		}
		for q < len(p) && p[q] != ']' {
			if p[q] == '[' && q+1 < len(p) && p[q+1] == ':' {
				q += 2
				for q < len(p) && !(p[q] == ':' && q+1 < len(p) && p[q+1] == ']') {
					q++
				}
				if q < len(p) {
					q += 2
				}
			} else {
				q++
			}
		}
		if q < len(p) {
			return q + 1
		}
		return q
	}
	return pi + 1
}

// getQuant reads a quantifier at pi. Returns min, max (-1 means
// unbounded) and the number of pattern bytes consumed, 0 when no
// quantifier is present.
func getQuant(p string, pi int, ere bool) (int, int, int) {
	if pi >= len(p) {
		return 0, 0, 0
	}
	if ere {
		switch p[pi] {
		case '*':
			return 0, -1, 1
		case '+':
			return 1, -1, 1
		case '?':
			return 0, 1, 1
		}
		return 0, 0, 0
	}
	if p[pi] == '*' {
		return 0, -1, 1
	}
	if p[pi] == '\\' && pi+1 < len(p) {
		switch p[pi+1] {
		case '+':
			return 1, -1, 2
		case '?':
			return 0, 1, 2
		}
	}
	return 0, 0, 0
}

// findGroupEnd scans from just inside an open group to the index past
// its closing delimiter.
func findGroupEnd(p string, pi int, ere bool) int {
	depth := 1
	for pi < len(p) {
		if p[pi] == '\\' && pi+1 < len(p) {
			if !ere {
				switch p[pi+1] {
				case '(':
					depth++
				case ')':
					depth--
					if depth == 0 {
						return pi + 2
					}
				}
			}
			pi += 2
			continue
		}
		if p[pi] == '[' {
			pi = skipAtom(p, pi, ere)
			continue
		}
		if ere {
			switch p[pi] {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					return pi + 1
				}
			}
		}
		pi++
	}
	return pi
}

// tryAtom attempts to match the single atom at pi against the subject
// at si. Returns the new subject offset, the index past the atom, and
// whether it matched.
func (m *mctx) tryAtom(p string, pi, si int) (int, int, bool) {
	var c byte
	if si < len(m.subject) {
		c = m.subject[si]
	}

	switch {
	case p[pi] == '.':
		if si < len(m.subject) {
			return si + 1, pi + 1, true
		}
		return 0, pi + 1, false

	case p[pi] == '[':
		ok, end := m.matchClass(p, pi+1, c)
		if ok && si < len(m.subject) {
			return si + 1, end, true
		}
		return 0, end, false

	case p[pi] == '\\' && pi+1 < len(p) && p[pi+1] >= '1' && p[pi+1] <= '9':
		end := pi + 2
		gn := int(p[pi+1] - '1')
		if gn >= m.ncap || m.gs[gn] < 0 {
			return 0, end, false
		}
		glen := m.ge[gn] - m.gs[gn]
		if glen < 0 || si+glen > len(m.subject) {
			return 0, end, false
		}
		ref := m.subject[m.gs[gn] : m.gs[gn]+glen]
		seg := m.subject[si : si+glen]
		if m.icase {
			for k := 0; k < glen; k++ {
				if foldByte(seg[k]) != foldByte(ref[k]) {
					return 0, end, false
				}
			}
		} else if seg != ref {
			return 0, end, false
		}
		return si + glen, end, true

	case p[pi] == '\\' && pi+1 < len(p):
		ec := p[pi+1]
		switch ec {
		case 'n':
			ec = '\n'
		case 't':
			ec = '\t'
		}
		// unknown escapes match the escaped byte literally
		if si < len(m.subject) && m.eq(c, ec) {
			return si + 1, pi + 2, true
		}
		return 0, pi + 2, false

	default:
		if si < len(m.subject) && m.eq(c, p[pi]) {
			return si + 1, pi + 1, true
		}
		return 0, pi + 1, false
	}
}

// matchQuant matches a greedy quantified atom: enumerate every
// reachable repetition end-position, then try the rest of the pattern
// from the longest down to the required minimum.
func (m *mctx) matchQuant(p string, atomPi, restPi, si, mn, mx int) int {
	pos := make([]int, 1, 16)
	pos[0] = si
	cur := si
	for mx < 0 || len(pos)-1 < mx {
		ns, _, ok := m.tryAtom(p, atomPi, cur)
		if !ok || ns == cur {
			break
		}
		pos = append(pos, ns)
		cur = ns
		if len(pos) >= maxRepeat {
			break
		}
	}
	for i := len(pos) - 1; i >= mn; i-- {
		if r := m.matchHere(p, restPi, pos[i]); r >= 0 {
			return r
		}
	}
	return -1
}

// matchAlt tries each '|' branch starting at pi in left-to-right
// order with fresh capture state, keeping the first branch for which
// the rest of the match succeeds.
func (m *mctx) matchAlt(p string, pi, si int) int {
	for {
		saveGs, saveGe, saveN := m.gs, m.ge, m.ncap
		if r := m.matchHere(p, pi, si); r >= 0 {
			return r
		}
		m.gs, m.ge, m.ncap = saveGs, saveGe, saveN

		// skip to the start of the next alternative
		depth := 0
	skip:
		for pi < len(p) {
			switch {
			case p[pi] == '\\' && pi+1 < len(p):
				if !m.ere {
					switch p[pi+1] {
					case '(':
						depth++
					case ')':
						depth--
					}
				}
				pi += 2
			case m.ere && p[pi] == '(':
				depth++
				pi++
			case m.ere && p[pi] == ')':
				depth--
				if depth < 0 {
					break skip
				}
				pi++
			case m.ere && p[pi] == '|' && depth == 0:
				pi++
				break skip
			case p[pi] == '[':
				pi = skipAtom(p, pi, m.ere)
			default:
				pi++
			}
		}
		if pi >= len(p) || (m.ere && p[pi] == ')' && depth < 0) {
			return -1
		}
	}
}

// matchHere matches the pattern from pi against the subject from si.
// Returns the subject offset one past the matched text, or -1.
func (m *mctx) matchHere(p string, pi, si int) int {
	for {
		if pi >= len(p) {
			return si
		}
		// end of this alternative or enclosing group
		if m.ere && (p[pi] == '|' || p[pi] == ')') {
			return si
		}
		if p[pi] == '$' {
			npi := pi + 1
			if npi >= len(p) || (m.ere && (p[npi] == '|' || p[npi] == ')')) {
				if si == len(m.subject) {
					return si
				}
				return -1
			}
		}

		isOpen := (m.ere && p[pi] == '(') ||
			(!m.ere && p[pi] == '\\' && pi+1 < len(p) && p[pi+1] == '(')
		if isOpen {
			gn := m.ncap
			m.ncap++
			if gn >= len(m.gs) {
				gn = len(m.gs) - 1
			}
			inner := pi + 1
			if !m.ere {
				inner = pi + 2
			}
			gend := findGroupEnd(p, inner, m.ere)
			mn, mx, ql := getQuant(p, gend, m.ere)
			afterQuant := gend + ql
			oldGs, oldGe := m.gs[gn], m.ge[gn]

			if ql == 0 {
				// capture start recorded before the remainder runs so
				// backreferences inside the group can see it
				m.gs[gn] = si
				r := m.matchAlt(p, inner, si)
				if r < 0 {
					m.ncap--
					return -1
				}
				m.ge[gn] = r
				pi, si = gend, r
				continue
			}

			// quantified group: enumerate completed iterations, then
			// backtrack from the longest. The capture keeps whatever
			// the last completed iteration set.
			pos := make([]int, 1, 16)
			pos[0] = si
			cur := si
			for mx < 0 || len(pos)-1 < mx {
				m.gs[gn], m.ge[gn] = cur, -1
				r := m.matchAlt(p, inner, cur)
				if r < 0 || r == cur {
					break
				}
				m.ge[gn] = r
				pos = append(pos, r)
				cur = r
				if len(pos) >= maxRepeat {
					break
				}
			}
			for i := len(pos) - 1; i >= mn; i-- {
				if r := m.matchHere(p, afterQuant, pos[i]); r >= 0 {
					return r
				}
			}
			m.gs[gn], m.ge[gn] = oldGs, oldGe
			m.ncap--
			return -1
		}

		// BRE group close: the inner match ends here
		if !m.ere && p[pi] == '\\' && pi+1 < len(p) && p[pi+1] == ')' {
			return si
		}

		atomPi := pi
		atomEnd := skipAtom(p, pi, m.ere)
		mn, mx, ql := getQuant(p, atomEnd, m.ere)
		rest := atomEnd + ql
		if ql == 0 {
			ns, _, ok := m.tryAtom(p, atomPi, si)
			if !ok {
				return -1
			}
			pi, si = rest, ns
			continue
		}
		return m.matchQuant(p, atomPi, rest, si, mn, mx)
	}
}
