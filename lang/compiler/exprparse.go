package compiler

import "github.com/mna/nenuphar/lang/token"

// binPriority holds the {left, right} binding power of each binary
// operator, copied from Lua 5.1's priority table in lparser.c. Concat and
// the exponent are right-associative (right priority lower than left);
// everything else is left-associative.
type priority struct{ left, right int }

var binPriority = map[token.Token]priority{
	token.OR:    {1, 1},
	token.AND:   {2, 2},
	token.LT:    {3, 3}, token.GT: {3, 3}, token.LE: {3, 3}, token.GE: {3, 3}, token.NE: {3, 3}, token.EQ: {3, 3},
	token.CONCAT: {5, 4}, // right-assoc
	token.PLUS:  {6, 6}, token.MINUS: {6, 6},
	token.STAR: {7, 7}, token.SLASH: {7, 7}, token.PERCENT: {7, 7},
	token.CARET: {10, 9}, // right-assoc
}

const unaryPriority = 8

func binOpFor(tok token.Token) (binOp, bool) {
	switch tok {
	case token.PLUS:
		return opAdd, true
	case token.MINUS:
		return opSub, true
	case token.STAR:
		return opMul, true
	case token.SLASH:
		return opDiv, true
	case token.PERCENT:
		return opMod, true
	case token.CARET:
		return opPow, true
	case token.CONCAT:
		return opConcat, true
	case token.EQ:
		return opEq, true
	case token.NE:
		return opNe, true
	case token.LT:
		return opLt, true
	case token.LE:
		return opLe, true
	case token.GT:
		return opGt, true
	case token.GE:
		return opGe, true
	case token.AND:
		return opAnd, true
	case token.OR:
		return opOr, true
	}
	return 0, false
}

// expr parses a full expression via precedence climbing starting at
// priority 0 (accepts anything).
func (p *parser) expr() expDesc {
	return p.subexpr(0)
}

// subexpr implements the precedence-climbing core: it first parses a
// unary prefix (or a simple expression if none applies), then repeatedly
// consumes binary operators whose left binding power exceeds limit,
// recursing into the right operand with that operator's right binding
// power as the new limit.
func (p *parser) subexpr(limit int) expDesc {
	p.enterLevel()
	defer p.leaveLevel()
	var e expDesc
	if uop, ok := unOpFor(p.tok); ok {
		p.next()
		operand := p.subexpr(unaryPriority)
		p.fs.dischargeVars(&operand)
		j.codeUnExp(p.fs, uop, &operand)
		e = operand
	} else {
		e = p.simpleExp()
	}

	for {
		op, ok := binOpFor(p.tok)
		if !ok {
			break
		}
		pri, ok := binPriority[p.tok]
		if !ok || pri.left <= limit {
			break
		}
		p.next()

		switch op {
		case opAnd:
			p.fs.infixAnd(&e)
		case opOr:
			p.fs.infixOr(&e)
		case opConcat:
			p.fs.expToNextReg(&e) // concat operands must sit in consecutive registers
		default:
			p.fs.expToVal(&e)
		}

		rhs := p.subexpr(pri.right)

		switch op {
		case opAnd:
			p.fs.postfixAnd(&e, &rhs)
		case opOr:
			p.fs.postfixOr(&e, &rhs)
		case opConcat:
			p.codeConcat(&e, &rhs)
		case opEq, opNe, opLt, opLe, opGt, opGe:
			j.codeComp(p.fs, op, &e, &rhs)
		default:
			j.codeArith(p.fs, op, &e, &rhs)
		}
	}
	return e
}

func unOpFor(tok token.Token) (unOp, bool) {
	switch tok {
	case token.NOT:
		return opNot, true
	case token.MINUS:
		return opUnm, true
	case token.HASH:
		return opLen, true
	}
	return 0, false
}

// codeConcat implements Lua's right-associative CONCAT folding: a chain
// `a .. b .. c` parses as `a .. (b .. c)`, but because CONCAT takes a
// register range R(B)..R(C), the compiler flattens a run of concats whose
// right operand is itself a fresh concat of adjacent registers into a
// single instruction rather than nesting. That flattening only fires when
// the right-hand side is itself a not-yet-discharged CONCAT sitting in the
// very next register, so it is checked here right when the outer concat is
// formed.
func (p *parser) codeConcat(e1, e2 *expDesc) {
	fs := p.fs
	if e2.kind == expReloc {
		if i := fs.proto.Code[e2.info]; i.opcode() == OpConcat {
			r1 := fs.expToAnyReg(e1)
			if r1 == i.argB()-1 {
				fs.freeExp(e1)
				fs.proto.Code[e2.info] = createABC(OpConcat, 0, r1, i.argC())
				*e1 = *e2
				return
			}
		}
	}
	r2 := fs.expToNextRegDesc(e2)
	j.codeArithOpcode2(fs, OpConcat, e1, r2)
}

// expToNextRegDesc discharges e into the next free register and returns
// that register, used by codeConcat which needs the register number, not
// just the mutated expDesc.
func (fs *FuncState) expToNextRegDesc(e *expDesc) int {
	fs.expToNextReg(e)
	return e.info
}

// codeArithOpcode2 is codeArithOpcode's twin for operators whose operands
// are known to already be in adjacent registers (only CONCAT uses this
// path): it skips expToRK since CONCAT never takes constants directly.
func (j *jumpState) codeArithOpcode2(fs *FuncState, op Opcode, e1 *expDesc, r2 int) {
	r1 := fs.expToAnyReg(e1)
	fs.freeReg1(r2)
	fs.freeReg1(r1)
	pc := j.emitABC(fs, op, 0, r1, r2)
	e1.init(expReloc, pc)
}

// simpleExp parses a simple (non-binary, non-unary-prefixed) expression:
// literals, table constructors, anonymous functions, and the
// suffixedExp chain (names, parenthesized expressions, indexing, calls).
func (p *parser) simpleExp() expDesc {
	var e expDesc
	switch p.tok {
	case token.NUMBER:
		e.init(expKNum, 0)
		e.num = p.val.Number
		p.next()
	case token.STRING:
		e.init(expK, p.fs.stringK(p.val.String))
		p.next()
	case token.NIL:
		e.init(expNil, 0)
		p.next()
	case token.TRUE:
		e.init(expTrue, 0)
		p.next()
	case token.FALSE:
		e.init(expFalse, 0)
		p.next()
	case token.ELLIPSIS:
		if !p.fs.proto.IsVararg {
			p.errorf("cannot use '...' outside a vararg function")
		}
		pc := j.emitABC(p.fs, OpVararg, 0, 1, 0)
		e.init(expVararg, pc)
		p.next()
	case token.LBRACE:
		e = p.tableConstructor()
	case token.FUNCTION:
		p.next()
		e = p.funcBody(false, p.line())
	default:
		e = p.suffixedExp()
	}
	return e
}

// primaryExp parses the leftmost atom of a suffixed expression: a
// parenthesized expression (whose multi-result potential is suppressed,
// matching Lua's `(f())` truncating to one value) or a bare name resolved
// through scope.go's singleVar.
func (p *parser) primaryExp() expDesc {
	switch p.tok {
	case token.LPAREN:
		p.next()
		e := p.expr()
		p.expect(token.RPAREN)
		p.fs.dischargeVars(&e)
		if e.kind == expCall || e.kind == expVararg {
			r := p.fs.expToAnyReg(&e)
			e.init(expNonReloc, r)
		}
		return e
	case token.NAME:
		name := p.val.String
		p.next()
		return p.singleVar(name)
	default:
		p.errorf("unexpected symbol")
		return expDesc{}
	}
}

// suffixedExp parses a primaryExp followed by any run of '.', '[', ':' or
// call suffixes, threading the receiver through selfExpr/indexField/call as
// each suffix is consumed.
func (p *parser) suffixedExp() expDesc {
	e := p.primaryExp()
	for {
		switch p.tok {
		case token.DOT:
			p.next()
			name := p.expectName()
			var key expDesc
			key.init(expK, p.fs.stringK(name))
			e = p.fs.indexField(&e, &key)
		case token.LBRACK:
			p.next()
			key := p.expr()
			p.expect(token.RBRACK)
			e = p.fs.indexField(&e, &key)
		case token.COLON:
			p.next()
			name := p.expectName()
			var key expDesc
			key.init(expK, p.fs.stringK(name))
			p.fs.selfExpr(&e, &key)
			e = p.callArgs(e, true)
		case token.LPAREN, token.STRING, token.LBRACE:
			p.fs.expToNextReg(&e)
			e = p.callArgs(e, false)
		default:
			return e
		}
	}
}
