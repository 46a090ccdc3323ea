package sed

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// maxPatternSpace caps the pattern space and any substitution result.
// A line that would grow past this stops being processed (the run
// continues with the next line).
const maxPatternSpace = 64 * 1024

var (
	errPatternSpace = errors.New("pattern space overflow")
	errLineTooLong  = errors.New("input line too long")
)

// engine drives one pass of a compiled script over a line stream. It
// is single threaded: one line in, zero or more lines out, repeat.
type engine struct {
	cmds     []*command
	suppress bool
	diag     io.Writer

	lineno   int
	rawLine  int
	lastLine bool
	pending  []string
}

// resetRanges clears every command's range activation state. The
// caller must invoke it before each independent input stream so a
// half-open range never leaks across files.
func (e *engine) resetRanges() {
	for _, c := range e.cmds {
		c.inRange = false
		c.rangeEnd = 0
	}
}

func addrMatch(a *address, line string, lineno int, last bool) bool {
	switch a.typ {
	case addrNone:
		return true
	case addrLast:
		return last
	case addrLine:
		return lineno == a.line
	case addrRegex:
		return a.re.Search(line, 0, false) != nil
	}
	return false
}

// active decides whether cmd applies to the current pattern space.
// A lone address is a single-line test. An address pair is a range:
// it opens when a1 matches while the range is closed, and closes when
// a2's condition holds on the current line (that line is still
// inside; ranges are inclusive of both endpoints). A +N end is
// resolved once, against the first line that opens the range; a
// reopening keeps that end and collapses when already past it.
// Negation inverts the final verdict.
func (e *engine) active(c *command, line string) bool {
	var on bool
	switch {
	case c.a1.typ == addrNone:
		on = true
	case c.a2.typ == addrNone:
		on = addrMatch(&c.a1, line, e.lineno, e.lastLine)
	case !c.inRange:
		if addrMatch(&c.a1, line, e.lineno, e.lastLine) {
			c.inRange = true
			on = true
			switch {
			case c.a2.typ == addrLine && c.a2.rel:
				if c.rangeEnd == 0 {
					c.rangeEnd = e.lineno + c.a2.line
				}
				if e.lineno >= c.rangeEnd {
					c.inRange = false
				}
			case c.a2.typ == addrLine:
				if e.lineno >= c.a2.line {
					c.inRange = false
				}
			case c.a2.typ == addrLast && e.lastLine:
				c.inRange = false
			}
		}
	default:
		on = true
		switch c.a2.typ {
		case addrLine:
			end := c.a2.line
			if c.a2.rel {
				end = c.rangeEnd
			}
			if e.lineno >= end {
				c.inRange = false
			}
		case addrLast:
			if e.lastLine {
				c.inRange = false
			}
		case addrRegex:
			if c.a2.re.Search(line, 0, false) != nil {
				c.inRange = false
			}
		}
	}
	if c.negate {
		on = !on
	}
	return on
}

// execSub applies one s command to the pattern space. Returns the new
// pattern space and whether any replacement was made.
func (c *command) execSub(line string) (string, bool, error) {
	var out strings.Builder
	changed := false
	occur := 0
	pos := 0

	for pos <= len(line) {
		// a search resumed mid-string is not at beginning of line
		m := c.subRE.Search(line[pos:], 0, pos > 0)
		if m == nil {
			out.WriteString(line[pos:])
			break
		}
		occur++
		mstart, mend := m[0], m[1]
		out.WriteString(line[pos : pos+mstart])

		if occur == c.nth || (c.global && occur >= c.nth) {
			abs := make([]int, len(m))
			for k, v := range m {
				if v >= 0 {
					abs[k] = v + pos
				} else {
					abs[k] = -1
				}
			}
			out.WriteString(buildReplacement(c.repl, line, abs))
			changed = true
		} else {
			out.WriteString(line[pos+mstart : pos+mend])
		}

		pos += mend
		if mend == mstart {
			// empty match: move one byte so the scan always advances
			if pos >= len(line) {
				break
			}
			out.WriteByte(line[pos])
			pos++
		}
		if !c.global && occur >= c.nth {
			out.WriteString(line[pos:])
			break
		}
		if out.Len() > maxPatternSpace {
			return line, false, errPatternSpace
		}
	}

	if out.Len() > maxPatternSpace {
		return line, false, errPatternSpace
	}
	if !changed {
		return line, false, nil
	}
	return out.String(), true, nil
}

// buildReplacement expands an s command's replacement template for
// one match. m holds absolute (start,end) offsets into src: the whole
// match first, then capture groups 1-9. '&' copies the whole match,
// \1-\9 copy a group (nothing if the group did not participate), \n
// and \\ are literal newline and backslash, \u uppercases the next
// literal byte, and any other escaped byte stands for itself.
func buildReplacement(repl, src string, m []int) string {
	var out strings.Builder
	for i := 0; i < len(repl); i++ {
		c := repl[i]
		if c == '&' {
			out.WriteString(src[m[0]:m[1]])
			continue
		}
		if c != '\\' {
			out.WriteByte(c)
			continue
		}
		i++
		if i >= len(repl) {
			break
		}
		switch e := repl[i]; {
		case e >= '1' && e <= '9':
			g := int(e - '0')
			so, eo := m[2*g], m[2*g+1]
			if so >= 0 && eo >= so {
				out.WriteString(src[so:eo])
			}
		case e == '\\':
			out.WriteByte('\\')
		case e == 'n':
			out.WriteByte('\n')
		case e == 'u':
			i++
			if i < len(repl) {
				out.WriteByte(upperByte(repl[i]))
			}
		default:
			out.WriteByte(e)
		}
	}
	return out.String()
}

func upperByte(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

// execTrans applies a y translation table byte for byte over the
// whole pattern space.
func (c *command) execTrans(line string) string {
	buf := []byte(line)
	for i, b := range buf {
		for j, f := range c.transFrom {
			if f == b {
				buf[i] = c.transTo[j]
				break
			}
		}
	}
	return string(buf)
}

// processLine runs every active command, in script order, against one
// pattern-space line. Reports whether a q command fired.
func (e *engine) processLine(w io.Writer, line string) bool {
	deleted := false
	quit := false
	e.pending = e.pending[:0]

	for _, c := range e.cmds {
		if deleted || quit {
			break
		}
		if !e.active(c, line) {
			continue
		}
		switch c.cmd {
		case 'd':
			deleted = true
		case 'p':
			fmt.Fprintln(w, line)
		case 'q':
			quit = true
		case '=':
			fmt.Fprintln(w, e.lineno)
		case 'a':
			e.pending = append(e.pending, c.text)
		case 'i':
			fmt.Fprintln(w, c.text)
		case 's':
			res, ok, err := c.execSub(line)
			if err != nil {
				fmt.Fprintf(e.diag, "sed: line %d: %v\n", e.lineno, err)
				goto done
			}
			line = res
			if ok && c.printSub {
				fmt.Fprintln(w, line)
			}
		case 'y':
			line = c.execTrans(line)
		}
	}
done:

	if !deleted && !e.suppress {
		fmt.Fprintln(w, line)
	}
	for _, text := range e.pending {
		fmt.Fprintln(w, text)
	}
	return quit
}

// readLine returns the next input line without its trailing newline.
// A line that would overflow the pattern space is consumed and
// reported as errLineTooLong so the caller can move on.
func readLine(r *bufio.Reader) (string, error) {
	var buf []byte
	for {
		frag, err := r.ReadSlice('\n')
		n := len(buf) + len(frag)
		if err == nil {
			n-- // the newline is not part of the line
		}
		if n > maxPatternSpace {
			for err == bufio.ErrBufferFull {
				_, err = r.ReadSlice('\n')
			}
			return "", errLineTooLong
		}
		buf = append(buf, frag...)
		switch err {
		case nil:
			return string(buf[:len(buf)-1]), nil
		case bufio.ErrBufferFull:
			continue
		case io.EOF:
			if len(buf) == 0 {
				return "", io.EOF
			}
			return string(buf), nil
		default:
			return "", err
		}
	}
}

// nextLine fetches the next line that fits the pattern space,
// diagnosing and skipping the ones that do not.
func (e *engine) nextLine(in *bufio.Reader) (string, error) {
	for {
		e.rawLine++
		line, err := readLine(in)
		if err == errLineTooLong {
			fmt.Fprintf(e.diag, "sed: line %d: %v\n", e.rawLine, err)
			continue
		}
		return line, err
	}
}

// run streams lines from r through the script into w. A one-line
// lookahead tells the engine whether the current pattern space is the
// last line, which $ addressing and range closing need. Oversized
// input lines are skipped with a diagnostic; the stream keeps going.
func (e *engine) run(r io.Reader, w io.Writer) error {
	in := bufio.NewReaderSize(r, 64*1024)
	out := bufio.NewWriter(w)
	e.rawLine = 0

	cur, err := e.nextLine(in)
	if err != nil {
		if ferr := out.Flush(); ferr != nil {
			return ferr
		}
		if err == io.EOF {
			return nil
		}
		return err
	}
	e.lineno = 1

	for {
		next, nerr := e.nextLine(in)
		e.lastLine = nerr != nil
		quit := e.processLine(out, cur)
		if quit || nerr != nil {
			if nerr != nil && nerr != io.EOF {
				_ = out.Flush()
				return nerr
			}
			break
		}
		cur = next
		e.lineno++
	}
	return out.Flush()
}
