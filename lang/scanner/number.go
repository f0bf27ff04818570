package scanner

import "strconv"

// number scans a Lua numeral: decimal integer/float, or a hexadecimal
// integer (0x...). Lua 5.1 has a single numeric type (float/double), so even
// integer literals are converted to float64, but isInt records whether the
// literal looked like an integer (no '.' and no exponent), for callers that
// care about the lexical shape; the compiler does not read it.
func (s *Scanner) number() (lit string, num float64, isInt bool) {
	start := s.off
	isInt = true

	if s.cur == '0' && (lower(rune(s.peek())) == 'x') {
		s.advance()
		s.advance()
		hexStart := s.off
		for isHexDigit(s.cur) {
			s.advance()
		}
		if s.off == hexStart {
			s.error(s.pos(), "malformed number near hexadecimal prefix")
		}
		lit = string(s.src[start:s.off])
		v, err := strconv.ParseUint(lit[2:], 16, 64)
		if err != nil {
			s.error(s.pos(), "malformed number: "+lit)
		}
		return lit, float64(v), true
	}

	for isDigit(s.cur) {
		s.advance()
	}
	if s.cur == '.' {
		isInt = false
		s.advance()
		for isDigit(s.cur) {
			s.advance()
		}
	}
	if lower(s.cur) == 'e' {
		isInt = false
		s.advance()
		if s.cur == '+' || s.cur == '-' {
			s.advance()
		}
		expStart := s.off
		for isDigit(s.cur) {
			s.advance()
		}
		if s.off == expStart {
			s.error(s.pos(), "malformed number: missing exponent digits")
		}
	}

	lit = string(s.src[start:s.off])
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		s.error(s.pos(), "malformed number: "+lit)
	}
	return lit, v, isInt
}

func lower(rn rune) rune { return rn | 0x20 }

func isHexDigit(rn rune) bool {
	return isDigit(rn) || 'a' <= lower(rn) && lower(rn) <= 'f'
}
