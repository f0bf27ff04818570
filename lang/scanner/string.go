package scanner

import (
	"strconv"
)

// shortString scans a '...' or "..." literal; quote is the opening
// delimiter, already consumed by the caller (s.cur is the char right after
// it).
func (s *Scanner) shortString(quote rune) string {
	s.sb = s.sb[:0]
	for {
		if s.cur == quote {
			s.advance()
			break
		}
		if s.cur == -1 || s.cur == '\n' {
			s.error(s.pos(), "unterminated string literal")
			break
		}
		if s.cur == '\\' {
			s.advance()
			s.escape()
			continue
		}
		s.sb = append(s.sb, string(s.cur)...)
		s.advance()
	}
	return string(s.sb)
}

func (s *Scanner) escape() {
	switch s.cur {
	case 'a':
		s.sb = append(s.sb, '\a')
		s.advance()
	case 'b':
		s.sb = append(s.sb, '\b')
		s.advance()
	case 'f':
		s.sb = append(s.sb, '\f')
		s.advance()
	case 'n':
		s.sb = append(s.sb, '\n')
		s.advance()
	case 'r':
		s.sb = append(s.sb, '\r')
		s.advance()
	case 't':
		s.sb = append(s.sb, '\t')
		s.advance()
	case 'v':
		s.sb = append(s.sb, '\v')
		s.advance()
	case '\\', '"', '\'':
		s.sb = append(s.sb, byte(s.cur))
		s.advance()
	case '\n':
		s.sb = append(s.sb, '\n')
		s.advance()
	case 'x':
		s.advance()
		start := s.off
		for i := 0; i < 2 && isHexDigit(s.cur); i++ {
			s.advance()
		}
		v, err := strconv.ParseUint(string(s.src[start:s.off]), 16, 8)
		if err != nil {
			s.error(s.pos(), "malformed \\x escape sequence")
			return
		}
		s.sb = append(s.sb, byte(v))
	default:
		if isDigit(s.cur) {
			start := s.off
			for i := 0; i < 3 && isDigit(s.cur); i++ {
				s.advance()
			}
			v, err := strconv.ParseUint(string(s.src[start:s.off]), 10, 16)
			if err != nil || v > 255 {
				s.error(s.pos(), "decimal escape too large")
				return
			}
			s.sb = append(s.sb, byte(v))
			return
		}
		s.errorf(s.pos(), "invalid escape sequence '\\%c'", s.cur)
		s.advance()
	}
}

// tryLongBracket attempts to scan a Lua long-bracket literal ([[...]],
// [=[...]=], etc.) starting at the opening '['. It returns ok=false without
// consuming anything beyond the lookahead needed to determine this isn't a
// long bracket (e.g. plain "[").
func (s *Scanner) tryLongBracket() (lit, val string, ok bool) {
	save := *s
	level := 0
	// the first '[' has already been consumed by the caller; s.cur is
	// whatever follows it.
	for s.cur == '=' {
		level++
		s.advance()
	}
	if s.cur != '[' {
		*s = save
		return "", "", false
	}
	s.advance()

	// a newline immediately after the opening bracket is skipped
	if s.cur == '\r' {
		s.advance()
	}
	if s.cur == '\n' {
		s.advance()
	}

	s.sb = s.sb[:0]
	start := s.pos()
	for {
		if s.cur == -1 {
			s.error(start, "unterminated long bracket")
			break
		}
		if s.cur == ']' {
			if closed, n := s.tryCloseLongBracket(level); closed {
				_ = n
				break
			}
		}
		s.sb = append(s.sb, string(s.cur)...)
		s.advance()
	}
	return string(s.sb), string(s.sb), true
}

func (s *Scanner) tryCloseLongBracket(level int) (bool, int) {
	save := *s
	s.advance() // consume ']'
	n := 0
	for s.cur == '=' {
		n++
		s.advance()
	}
	if n == level && s.cur == ']' {
		s.advance()
		return true, n
	}
	*s = save
	return false, 0
}

// comment consumes the rest of a short "-- ..." comment, for implementations
// that want to retain comment text (unused by the compiler core itself,
// which discards comments in skipWhitespaceAndComments).
func (s *Scanner) comment() string {
	start := s.off
	for s.cur != '\n' && s.cur != -1 {
		s.advance()
	}
	return string(s.src[start:s.off])
}
