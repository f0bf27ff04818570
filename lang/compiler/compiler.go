package compiler

import (
	"fmt"

	"github.com/mna/nenuphar/lang/scanner"
	"github.com/mna/nenuphar/lang/token"
)

// maxParseDepth bounds how deeply subexpr/block/statement may recurse into
// each other before the parser gives up with a clean error instead of
// overflowing the Go call stack on deliberately or accidentally pathological
// input (e.g. "((((((...))))))" or a deeply nested if/else chain).
const maxParseDepth = 200

// compilerState is the state shared across every FuncState nested inside
// one call to Compile: the single source of truth for "what line are we
// on" (every emitted instruction is tagged with it) and the single place an
// error is raised from, via panic/recover, since Lua's recursive-descent
// parser has no error-recovery mode: the first syntax error aborts the
// entire compilation.
type compilerState struct {
	fset    *token.FileSet
	file    *token.File
	curLine int
}

// compileError is the panic payload raised by compilerState.errorf and
// recovered in Compile, turning it into a normal returned error.
type compileError struct {
	pos token.Pos
	msg string
}

func (e *compileError) Error() string { return e.msg }

func (cs *compilerState) errorf(pos token.Pos, format string, args ...any) {
	panic(&compileError{pos: pos, msg: fmt.Sprintf(format, args...)})
}

// parser drives the scanner one token at a time (with a single token of
// lookahead) and, in lockstep, emits code into the current FuncState. There
// is deliberately no separate AST: every parsing function both recognizes
// its piece of grammar and calls straight into FuncState/jumpState to
// generate code for it.
type parser struct {
	comp *compilerState
	sc   *scanner.Scanner
	fs   *FuncState

	tok token.Token
	val token.Value

	hasAhead bool
	aheadTok token.Token
	aheadVal token.Value

	depth int
}

// Compile parses and compiles a single Lua chunk, named source, into its
// top-level Proto. The chunk is treated as a vararg function with no
// parameters, matching Lua 5.1's reference implementation (lua_load wraps
// every chunk this way so that top-level code can use "...").
func Compile(source string, src []byte) (proto *Proto, err error) {
	fset := token.NewFileSet()
	file := fset.AddFile(source, -1, len(src))

	var el scanner.ErrorList
	var sc scanner.Scanner
	sc.Init(file, src, el.Add)

	comp := &compilerState{fset: fset, file: file}
	p := &parser{comp: comp, sc: &sc}

	defer func() {
		if r := recover(); r != nil {
			ce, ok := r.(*compileError)
			if !ok {
				panic(r)
			}
			line, col := ce.pos.LineCol()
			if line == 0 {
				line, col = p.comp.curLine, 1
			}
			el.Add(token.Position{Filename: source, Line: line, Column: col}, ce.msg)
			err = el.Err()
			proto = nil
		}
	}()

	p.next() // prime p.tok with the first token
	if err := el.Err(); err != nil {
		return nil, err
	}

	result := p.mainFunc(source)
	if err := el.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// mainFunc compiles the implicit top-level function every chunk is wrapped
// in: no parameters, always vararg, its own FuncState with no parent (so
// any name not found as a local resolves straight to a global, never an
// upvalue).
func (p *parser) mainFunc(source string) *Proto {
	fs := newFuncState(p.comp, nil, source, 0)
	fs.proto.IsVararg = true
	p.fs = fs

	fs.enterBlock(false)
	p.block()
	fs.leaveBlock()

	j.emitABC(fs, OpReturn, 0, 1, 0)
	fs.proto.LastLineDefined = p.comp.curLine
	return fs.proto
}

// next advances the token stream by one, pulling from the one-token
// lookahead buffer if peek() already filled it.
func (p *parser) next() {
	if p.hasAhead {
		p.tok, p.val = p.aheadTok, p.aheadVal
		p.hasAhead = false
	} else {
		p.tok = p.sc.Scan(&p.val)
	}
	p.comp.curLine, _ = p.val.Pos.LineCol()
}

// peek returns the token after the current one without consuming it,
// needed for a handful of grammar ambiguities (distinguishing a function
// statement's block-follow from an expression statement, and local
// function vs local variable list).
func (p *parser) peek() token.Token {
	if !p.hasAhead {
		p.aheadTok = p.sc.Scan(&p.aheadVal)
		p.hasAhead = true
	}
	return p.aheadTok
}

func (p *parser) line() int { return p.comp.curLine }

func (p *parser) errorf(format string, args ...any) {
	p.comp.errorf(p.val.Pos, format, args...)
}

// expect consumes the current token if it matches tok, else raises a
// syntax error naming what was expected.
func (p *parser) expect(tok token.Token) token.Value {
	if p.tok != tok {
		p.errorf("'%s' expected near '%s'", tok, p.tok)
	}
	v := p.val
	p.next()
	return v
}

// expectName expects and consumes a NAME token, returning its text.
func (p *parser) expectName() string {
	v := p.expect(token.NAME)
	return v.String
}

// enterLevel/leaveLevel guard recursive-descent depth; every recursive
// entry point that can be nested arbitrarily deeply by crafted input
// (subexpr, which every parenthesized expression re-enters, and block)
// calls enterLevel first.
func (p *parser) enterLevel() {
	p.depth++
	if p.depth > maxParseDepth {
		p.errorf("chunk has too many syntax levels")
	}
}

func (p *parser) leaveLevel() { p.depth-- }
