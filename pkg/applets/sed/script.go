package sed

import (
	"fmt"

	"github.com/twbaty/go-winix/pkg/regex"
)

type addrType int

const (
	addrNone addrType = iota
	addrLine
	addrLast
	addrRegex
)

// address is one half of a command address: absent, a line number,
// the last-line marker '$', or a /pattern/.
type address struct {
	typ  addrType
	line int
	rel  bool // line counts from where the range opened (the +N form)
	re   *regex.Regexp
}

// command is one compiled script command: up to two addresses, a
// negation flag, the command byte, and that command's payload. The
// range activation state lives here too; it is mutated once per line
// by the engine and must be reset between independent input files.
type command struct {
	a1, a2 address
	negate bool
	cmd    byte

	// s
	subRE    *regex.Regexp
	repl     string
	global   bool
	printSub bool
	nth      int

	// y
	transFrom []byte
	transTo   []byte

	// a and i
	text string

	// range state
	inRange  bool
	rangeEnd int // end line resolved when a +N range opened
}

type parser struct {
	src string
	pos int
	ere bool
}

// parseScript compiles script text into an ordered command list.
// Commands are separated by newlines or semicolons; blank commands
// and #-comments are skipped. The script compiles as a unit: the
// first bad command aborts the whole parse.
func parseScript(text string, ere bool) ([]*command, error) {
	p := &parser{src: text, ere: ere}
	var cmds []*command
	for {
		p.skipSeparators()
		if p.eof() {
			return cmds, nil
		}
		if p.peek() == '#' {
			for !p.eof() && p.peek() != '\n' {
				p.pos++
			}
			continue
		}
		cmd, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) peekAt(off int) byte {
	if p.pos+off >= len(p.src) {
		return 0
	}
	return p.src[p.pos+off]
}

func (p *parser) next() byte {
	c := p.src[p.pos]
	p.pos++
	return c
}

func (p *parser) skipBlanks() {
	for !p.eof() && (p.peek() == ' ' || p.peek() == '\t') {
		p.pos++
	}
}

func (p *parser) skipSeparators() {
	for !p.eof() {
		switch p.peek() {
		case ' ', '\t', '\n', '\r', ';':
			p.pos++
		default:
			return
		}
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (p *parser) parseNumber() int {
	n := 0
	for !p.eof() && isDigit(p.peek()) {
		n = n*10 + int(p.peek()-'0')
		p.pos++
	}
	return n
}

// readDelimited reads up to the next unescaped delim, leaving escape
// sequences intact for the regex engine and replacement builder to
// interpret. Reports whether the delimiter was actually found.
func (p *parser) readDelimited(delim byte) (string, bool) {
	start := p.pos
	for !p.eof() && p.peek() != delim {
		if p.peek() == '\\' && p.pos+1 < len(p.src) {
			p.pos += 2
		} else {
			p.pos++
		}
	}
	s := p.src[start:p.pos]
	if p.eof() {
		return s, false
	}
	p.pos++
	return s, true
}

func (p *parser) parseCommand() (*command, error) {
	cmd := &command{nth: 1}

	hasA1, err := p.parseAddr(&cmd.a1)
	if err != nil {
		return nil, err
	}
	p.skipBlanks()

	if hasA1 && p.peek() == ',' {
		p.pos++
		p.skipBlanks()
		if p.peek() == '+' && isDigit(p.peekAt(1)) {
			p.pos++
			cmd.a2 = address{typ: addrLine, line: p.parseNumber(), rel: true}
		} else if _, err := p.parseAddr(&cmd.a2); err != nil {
			return nil, err
		}
	}

	p.skipBlanks()
	if p.peek() == '!' {
		cmd.negate = true
		p.pos++
		p.skipBlanks()
	}

	// an address with no command is silently dropped
	if p.eof() || p.peek() == '\n' {
		return nil, nil
	}

	cmd.cmd = p.next()
	switch cmd.cmd {
	case 's':
		if err := p.parseSub(cmd); err != nil {
			return nil, err
		}
	case 'y':
		if err := p.parseTrans(cmd); err != nil {
			return nil, err
		}
	case 'a', 'i':
		cmd.text = p.parseText()
	case 'd', 'p', 'q', '=':
	case '{', '}':
		// block braces are accepted and ignored
	default:
		return nil, fmt.Errorf("unknown command '%c'", cmd.cmd)
	}
	return cmd, nil
}

func (p *parser) parseAddr(a *address) (bool, error) {
	p.skipBlanks()
	switch {
	case p.peek() == '$':
		p.pos++
		a.typ = addrLast
		return true, nil
	case isDigit(p.peek()):
		a.typ = addrLine
		a.line = p.parseNumber()
		return true, nil
	case p.peek() == '/':
		p.pos++
		pat, ok := p.readDelimited('/')
		if !ok {
			return false, fmt.Errorf("unterminated address regex /%s", pat)
		}
		flags := regex.Flags(0)
		if p.ere {
			flags |= regex.Extended
		}
		re, err := regex.Compile(pat, flags)
		if err != nil {
			return false, fmt.Errorf("bad regex /%s/: %v", pat, err)
		}
		a.typ = addrRegex
		a.re = re
		return true, nil
	}
	return false, nil
}

func (p *parser) parseSub(cmd *command) error {
	if p.eof() || p.peek() == '\n' {
		return fmt.Errorf("unterminated 's' command")
	}
	delim := p.next()
	pat, ok := p.readDelimited(delim)
	if !ok {
		return fmt.Errorf("unterminated 's' command")
	}
	repl, ok := p.readDelimited(delim)
	if !ok {
		return fmt.Errorf("unterminated 's' command")
	}
	cmd.repl = repl

	icase := false
flags:
	for !p.eof() {
		switch c := p.peek(); {
		case c == '\n' || c == ';' || c == '}':
			break flags
		case c == 'g':
			cmd.global = true
		case c == 'i':
			icase = true
		case c == 'p':
			cmd.printSub = true
		case c >= '1' && c <= '9':
			cmd.nth = int(c - '0')
		default:
			// not a flag; leave it for the script loop to reject
			break flags
		}
		p.pos++
	}

	rflags := regex.Flags(0)
	if p.ere {
		rflags |= regex.Extended
	}
	if icase {
		rflags |= regex.IgnoreCase
	}
	re, err := regex.Compile(pat, rflags)
	if err != nil {
		return fmt.Errorf("bad regex s%c%s%c: %v", delim, pat, delim, err)
	}
	cmd.subRE = re
	return nil
}

func (p *parser) parseTrans(cmd *command) error {
	if p.eof() || p.peek() == '\n' {
		return fmt.Errorf("'y' missing delimiter")
	}
	delim := p.next()
	from, ok := p.readTransSet(delim)
	if !ok {
		return fmt.Errorf("unterminated 'y' command")
	}
	to, ok := p.readTransSet(delim)
	if !ok {
		return fmt.Errorf("unterminated 'y' command")
	}
	if len(from) != len(to) {
		return fmt.Errorf("'y' command strings have different lengths")
	}
	cmd.transFrom = from
	cmd.transTo = to
	return nil
}

// readTransSet decodes one y set up to delim, resolving \n and \\
// escapes (any other escaped byte stands for itself).
func (p *parser) readTransSet(delim byte) ([]byte, bool) {
	out := []byte{}
	for !p.eof() && p.peek() != delim {
		c := p.next()
		if c == '\\' && !p.eof() {
			switch e := p.next(); e {
			case 'n':
				out = append(out, '\n')
			case '\\':
				out = append(out, '\\')
			default:
				out = append(out, e)
			}
			continue
		}
		out = append(out, c)
	}
	if p.eof() {
		return out, false
	}
	p.pos++
	return out, true
}

// parseText reads the literal argument of an 'a' or 'i' command: the
// rest of the line, minus one optional leading continuation
// backslash.
func (p *parser) parseText() string {
	p.skipBlanks()
	if p.peek() == '\\' {
		p.pos++
		if p.peek() == '\n' {
			p.pos++
		}
	}
	start := p.pos
	for !p.eof() && p.peek() != '\n' && p.peek() != ';' {
		p.pos++
	}
	return p.src[start:p.pos]
}
