// Some of the scanner package is adapted from the Go source code:
// https://cs.opensource.google/go/go/+/refs/tags/go1.22.1:src/go/scanner/scanner.go
//
// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scanner implements the lexical scanner for the Lua 5.1 surface
// syntax. It is an external collaborator of the compiler core: the core
// consumes it purely through the pull interface exposed by Scanner.Scan, and
// never mutates scanner state.
package scanner

import (
	"bytes"
	"fmt"
	"go/scanner"
	"unicode"
	"unicode/utf8"

	"github.com/mna/nenuphar/lang/token"
)

type (
	Error     = scanner.Error
	ErrorList = scanner.ErrorList
)

var PrintError = scanner.PrintError

// Scanner tokenizes Lua 5.1 source for the parser to consume.
type Scanner struct {
	// immutable state after Init
	file *token.File
	src  []byte
	err  func(pos token.Position, msg string)

	// mutable scanning state
	sb          []byte // scratch buffer for string/long-bracket literals
	invalidByte byte
	cur         rune
	off         int // byte offset of cur
	roff        int // byte offset just after cur
	line, col   int // 1-based line/column of cur
}

// Init initializes the scanner to tokenize a new file.
func (s *Scanner) Init(file *token.File, src []byte, errHandler func(token.Position, string)) {
	s.file = file
	s.src = src
	s.err = errHandler

	s.sb = s.sb[:0]
	s.invalidByte = 0
	s.cur = ' '
	s.off = 0
	s.roff = 0
	s.line = 1
	s.col = 0 // first advance() brings it to column 1

	// skip initial BOM and hashbang line, as Lua does
	const bom0, bom1 = 0xEF, 0xBB
	if len(src) >= 3 && src[0] == bom0 && src[1] == bom1 {
		s.roff += 3
	}
	if len(src)-s.roff >= 2 && src[s.roff] == '#' && src[s.roff+1] == '!' {
		for s.roff < len(src) && src[s.roff] != '\n' {
			s.roff++
		}
	}
	s.advance()
}

func (s *Scanner) peek() byte {
	if s.roff < len(s.src) {
		return s.src[s.roff]
	}
	return 0
}

// advance reads the next rune into s.cur; s.cur < 0 means end of source.
func (s *Scanner) advance() {
	if s.cur == '\n' {
		s.line++
		s.col = 0
	}
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		s.cur = -1
		return
	}

	s.off = s.roff
	s.invalidByte = 0
	r, w := rune(s.src[s.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(s.src[s.roff:])
		if r == utf8.RuneError && w == 1 {
			s.error(s.pos(), "illegal UTF-8 encoding")
			s.invalidByte = s.src[s.roff]
		}
	}
	s.roff += w
	s.cur = r
	s.col++
}

func (s *Scanner) pos() token.Pos { return token.MakePos(s.line, s.col) }

func (s *Scanner) error(pos token.Pos, msg string) {
	if s.err != nil {
		s.err(s.file.Position(pos), msg)
	}
}

func (s *Scanner) errorf(pos token.Pos, format string, args ...any) {
	s.error(pos, fmt.Sprintf(format, args...))
}

func (s *Scanner) advanceIf(matches ...byte) bool {
	if bytes.ContainsRune(matches, s.cur) {
		s.advance()
		return true
	}
	return false
}

// Scan returns the next token and stores its value in tokVal.
func (s *Scanner) Scan(tokVal *token.Value) (tok token.Token) {
	s.skipWhitespaceAndComments()

	pos := s.pos()

	switch cur := s.cur; {
	case isLetter(cur):
		lit := s.ident()
		tok = token.LookupKw(lit)
		*tokVal = token.Value{Pos: pos, String: lit}

	case isDigit(cur) || (cur == '.' && isDigit(rune(s.peek()))):
		lit, num, isInt := s.number()
		tok = token.NUMBER
		*tokVal = token.Value{Pos: pos, String: lit, Number: num, IsInt: isInt}

	default:
		s.advance()
		switch cur {
		case '+':
			tok = token.PLUS
		case '-':
			tok = token.MINUS
		case '*':
			tok = token.STAR
		case '/':
			tok = token.SLASH
		case '%':
			tok = token.PERCENT
		case '^':
			tok = token.CARET
		case '#':
			tok = token.HASH
		case '(':
			tok = token.LPAREN
		case ')':
			tok = token.RPAREN
		case '{':
			tok = token.LBRACE
		case '}':
			tok = token.RBRACE
		case ']':
			tok = token.RBRACK
		case ';':
			tok = token.SEMI
		case ',':
			tok = token.COMMA

		case '[':
			if s.cur == '[' || s.cur == '=' {
				if _, val, ok := s.tryLongBracket(); ok {
					tok = token.STRING
					*tokVal = token.Value{Pos: pos, String: val}
					return tok
				}
			}
			tok = token.LBRACK

		case '=':
			tok = token.ASSIGN
			if s.advanceIf('=') {
				tok = token.EQ
			}
		case '~':
			tok = token.ILLEGAL
			if s.advanceIf('=') {
				tok = token.NE
			} else {
				s.error(pos, "illegal character '~' (expected '~=')")
			}
		case '<':
			tok = token.LT
			if s.advanceIf('=') {
				tok = token.LE
			}
		case '>':
			tok = token.GT
			if s.advanceIf('=') {
				tok = token.GE
			}
		case ':':
			tok = token.COLON
		case '.':
			tok = token.DOT
			if s.advanceIf('.') {
				tok = token.CONCAT
				if s.advanceIf('.') {
					tok = token.ELLIPSIS
				}
			}

		case '"', '\'':
			lit := s.shortString(cur)
			tok = token.STRING
			*tokVal = token.Value{Pos: pos, String: lit}
			return tok

		case -1:
			tok = token.EOS

		default:
			if cur == utf8.RuneError && s.invalidByte > 0 {
				cur = rune(s.invalidByte)
				s.invalidByte = 0
			}
			s.errorf(pos, "illegal character %#U", cur)
			tok = token.ILLEGAL
		}
		*tokVal = token.Value{Pos: pos, String: tok.String()}
	}
	return tok
}

func (s *Scanner) ident() string {
	start := s.off
	for isLetter(s.cur) || isDigit(s.cur) {
		s.advance()
	}
	return string(s.src[start:s.off])
}

func (s *Scanner) skipWhitespaceAndComments() {
	for {
		for isWhitespace(s.cur) {
			s.advance()
		}
		if s.cur != '-' || s.peek() != '-' {
			return
		}
		s.advance()
		s.advance()
		if s.cur == '[' {
			save := *s
			s.advance() // consume the opening '['
			if _, _, ok := s.tryLongBracket(); ok {
				continue
			}
			*s = save
		}
		for s.cur != '\n' && s.cur != -1 {
			s.advance()
		}
	}
}

func isWhitespace(rn rune) bool {
	return rn == ' ' || rn == '\t' || rn == '\n' || rn == '\r' || rn == '\v' || rn == '\f'
}

func isLetter(rn rune) bool {
	return 'a' <= rn && rn <= 'z' ||
		'A' <= rn && rn <= 'Z' ||
		rn == '_' ||
		rn >= utf8.RuneSelf && unicode.IsLetter(rn)
}

func isDigit(rn rune) bool {
	return '0' <= rn && rn <= '9'
}
