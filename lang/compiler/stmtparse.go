package compiler

import "github.com/mna/nenuphar/lang/token"

// maxAssignTargets bounds the number of targets on the left of a
// multi-assignment (local declarations are bounded by maxLocals), matching Lua's LUAI_MAXCCALLS-
// derived check_conflict limit; it exists to keep pathological input
// ("a,a,a,a,...= ...") from growing the LHS slice without bound.
const maxAssignTargets = 200

// statement parses and compiles one statement. Unlike expr/subexpr this
// never returns a value: a statement's only product is the code it emits.
func (p *parser) statement() {
	line := p.line()
	switch p.tok {
	case token.SEMI:
		p.next()
	case token.IF:
		p.ifStat(line)
	case token.WHILE:
		p.whileStat(line)
	case token.DO:
		p.next()
		p.fs.enterBlock(false)
		p.block()
		p.fs.leaveBlock()
		p.expect(token.END)
	case token.FOR:
		p.forStat(line)
	case token.REPEAT:
		p.repeatStat(line)
	case token.FUNCTION:
		p.funcStat(line)
	case token.LOCAL:
		p.next()
		if p.tok == token.FUNCTION {
			p.localFuncStat()
		} else {
			p.localStat()
		}
	case token.RETURN:
		p.returnStat()
	case token.BREAK:
		p.next()
		p.breakStat(line)
	default:
		p.exprStatement()
	}
}

// ifStat parses the full if/elseif*/else?/end chain. Each condition's
// false-exit jump list is threaded to the next elseif/else clause; each
// true body, once compiled, jumps unconditionally past the remaining
// clauses to a single shared end label (escapeList).
func (p *parser) ifStat(line int) {
	escapeList := noJump
	escapeList = p.testThenBlock(escapeList)
	for p.tok == token.ELSEIF {
		escapeList = p.testThenBlock(escapeList)
	}
	if p.tok == token.ELSE {
		p.next()
		p.fs.enterBlock(false)
		p.block()
		p.fs.leaveBlock()
	}
	p.expectMatch(token.END, token.IF, line)
	j.patchToHere(p.fs, escapeList)
}

// testThenBlock parses one `if/elseif cond then block`, returning the
// escape-list (jumps past the rest of the chain) with this clause's own
// exit jump concatenated on.
func (p *parser) testThenBlock(escapeList int) int {
	p.next() // 'if' or 'elseif'
	cond := p.expr()
	p.expect(token.THEN)

	p.fs.goIfTrue(&cond) // fall through on true, jump past the block on false

	p.fs.enterBlock(false)
	p.block()
	p.fs.leaveBlock()

	if p.tok == token.ELSE || p.tok == token.ELSEIF {
		escapeList = j.concat(p.fs, escapeList, j.emitJump(p.fs))
	}
	j.patchToHere(p.fs, cond.f)
	return escapeList
}

// whileStat compiles `while cond do block end` as: test at the top,
// conditional jump past the body, body, unconditional jump back to the
// test, so the condition is evaluated exactly once per iteration including
// the first.
func (p *parser) whileStat(line int) {
	p.next()
	whileInit := p.fs.pc
	cond := p.expr()
	p.expect(token.DO)

	p.fs.goIfTrue(&cond)

	p.fs.enterBlock(true)
	p.block()
	j.patchList(p.fs, j.emitJump(p.fs), whileInit)
	p.expectMatch(token.END, token.WHILE, line)
	p.fs.leaveBlock()

	j.patchToHere(p.fs, cond.f)
}

// repeatStat compiles `repeat block until cond`. Lua's special rule
// applies: locals declared in the block remain visible in the until
// condition, so the condition is parsed before the block's own scope is
// left (only the outer loop-breakable block is left afterward).
func (p *parser) repeatStat(line int) {
	p.next()
	repeatInit := p.fs.pc
	p.fs.enterBlock(true)  // outer: breakable
	p.fs.enterBlock(false) // inner: scope for the block's locals, visible in until
	p.block()
	p.expectMatch(token.UNTIL, token.REPEAT, line)
	cond := p.expr()

	p.fs.goIfTrue(&cond) // loop again (jump back) when false; see below
	// goIfTrue leaves the "true" exit falling through and the "false" exit
	// in cond.f; repeat loops back on false, so patch cond.f to repeatInit
	// and let the fallthrough (true) continue past the loop.
	j.patchList(p.fs, cond.f, repeatInit)

	p.fs.leaveBlock() // inner
	p.fs.leaveBlock() // outer
}

// forStat dispatches on whether the first name is followed by '=' (numeric
// for) or ',' / 'in' (generic for).
func (p *parser) forStat(line int) {
	p.fs.enterBlock(true) // loop block: holds the control variables, target of break
	p.next()
	name := p.expectName()
	switch p.tok {
	case token.ASSIGN:
		p.forNum(name, line)
	case token.COMMA, token.IN:
		names := []string{name}
		for p.tok == token.COMMA {
			p.next()
			names = append(names, p.expectName())
		}
		p.expect(token.IN)
		p.forIn(names, line)
	default:
		p.errorf("'=' or 'in' expected")
	}
	p.expectMatch(token.END, token.FOR, line)
	p.fs.leaveBlock()
}

// exp1 parses one expression and discharges it to the next register,
// used for the for-loop control expressions which must always occupy a
// fixed, known register regardless of their kind.
func (p *parser) exp1() {
	e := p.expr()
	p.fs.expToNextReg(&e)
}

// forNum compiles the three hidden control registers (index, limit, step)
// plus the user loop variable, then FORPREP/FORLOOP around the body. The
// control variables are given Lua's own internal debug names so that a
// "local" with the same name the user chose never collides with them.
func (p *parser) forNum(name string, line int) {
	fs := p.fs
	base := fs.freeReg
	fs.newLocal("(for index)")
	fs.newLocal("(for limit)")
	fs.newLocal("(for step)")
	fs.newLocal(name)

	p.next() // '='
	p.exp1()
	p.expect(token.COMMA)
	p.exp1()
	if p.tok == token.COMMA {
		p.next()
		p.exp1()
	} else {
		j.emitABx(fs, OpLoadK, fs.freeReg, fs.numberK(1))
		fs.reserveRegs(1)
	}
	fs.adjustLocalVars(3)

	p.expect(token.DO)
	prep := j.emitAsBx(fs, OpForPrep, base, noJump)

	fs.enterBlock(false)
	fs.adjustLocalVars(1)
	fs.reserveRegs(1)
	p.block()
	fs.leaveBlock()

	j.patchToHere(fs, prep)
	endPC := j.emitAsBx(fs, OpForLoop, base, noJump)
	j.patchList(fs, endPC, prep+1)
}

// forIn compiles the generic for: three hidden control registers hold the
// iterator function, invariant state and control variable, refreshed by a
// TFORLOOP each pass, which calls the iterator and either stops (first
// result nil) or assigns the user variables and loops back.
func (p *parser) forIn(names []string, line int) {
	fs := p.fs
	base := fs.freeReg
	fs.newLocal("(for generator)")
	fs.newLocal("(for state)")
	fs.newLocal("(for control)")
	for _, n := range names {
		fs.newLocal(n)
	}

	p.next() // 'in'
	n, multi := p.expList()
	fs.adjustAssign(3, n, multi)
	fs.adjustLocalVars(3) // registers already reserved by adjustAssign above

	p.expect(token.DO)
	prep := j.emitJump(fs)

	fs.enterBlock(false)
	fs.adjustLocalVars(len(names))
	fs.reserveRegs(len(names))
	p.block()
	fs.leaveBlock()

	j.patchToHere(fs, prep)
	j.emitABC(fs, OpTForLoop, base, 0, len(names))
	condExit := j.emitJump(fs)
	j.fixJump(fs, condExit, prep+1)
}

// funcStat compiles `function Name{.Name}[:Name] (params) block end`,
// desugaring it into an assignment of a funcBody closure to the resolved
// (possibly nested-indexed) target name.
func (p *parser) funcStat(line int) {
	p.next()
	name := p.expectName()
	target := p.singleVar(name)
	isMethod := false
	for p.tok == token.DOT || p.tok == token.COLON {
		isMethod = p.tok == token.COLON
		p.next()
		field := p.expectName()
		var key expDesc
		key.init(expK, p.fs.stringK(field))
		target = p.fs.indexField(&target, &key)
		if isMethod {
			break
		}
	}
	body := p.funcBody(isMethod, line)
	p.fs.storeVar(&target, &body)
}

// localFuncStat compiles `local function Name (params) block end`: unlike
// a plain local, the name is made active (and thus visible to the
// function's own body) before the body is parsed, so the function can
// call itself recursively.
func (p *parser) localFuncStat() {
	p.next()
	name := p.expectName()
	p.fs.newLocal(name)
	p.fs.adjustLocalVars(1)
	p.fs.reserveRegs(1)
	line := p.line()
	body := p.funcBody(false, line)
	reg, _ := p.fs.searchLocal(name)
	p.fs.exp2reg(&body, reg)
}

// localStat compiles `local Name {',' Name} ['=' explist]`, leaving the
// new locals' initializers evaluated before the names themselves become
// active (so `local x = x` reads the outer x).
func (p *parser) localStat() {
	var names []string
	names = append(names, p.expectName())
	for p.tok == token.COMMA {
		p.next()
		names = append(names, p.expectName())
	}
	nexps := 0
	multi := false
	if p.tok == token.ASSIGN {
		p.next()
		nexps, multi = p.expList()
	}
	p.fs.adjustAssign(len(names), nexps, multi)
	for _, n := range names {
		p.fs.newLocal(n)
	}
	p.adjustLocals(len(names))
}

// returnStat compiles `return [explist] [';']`. A return with no
// expressions, or whose last expression is a tail call, gets special
// treatment: the latter marks the CALL as a tail call (OpTailCall) so the
// VM can reuse the current stack frame rather than growing it.
func (p *parser) returnStat() {
	fs := p.fs
	first := fs.freeReg
	nret := 0
	isTailCall := false

	if !blockFollow(p.tok) && p.tok != token.SEMI {
		n, multi := p.explistReturn()
		nret = n
		if multi {
			nret = multiRetSentinel
			if n == 1 {
				isTailCall = p.tryTailCall(first)
			}
		}
	}
	if p.tok == token.SEMI {
		p.next()
	}

	if isTailCall {
		i := fs.proto.Code[len(fs.proto.Code)-1]
		fs.proto.Code[len(fs.proto.Code)-1] = createABC(OpTailCall, i.argA(), i.argB(), i.argC())
	}
	b := nret + 1
	if nret == multiRetSentinel {
		b = 0
	}
	j.emitABC(fs, OpReturn, first, b, 0)
}

// multiRetSentinel flags that returnStat's trailing expression yields a
// variable number of results (LUA_MULTRET), encoded as RETURN's B == 0.
const multiRetSentinel = -1

// explistReturn is expList but it also reports how many values were
// actually placed in registers starting at the statement's first free
// register, used by returnStat to compute RETURN's A operand range.
func (p *parser) explistReturn() (n int, multi bool) {
	return p.expList()
}

// tryTailCall checks whether the just-compiled, sole return expression was
// a function call occupying registers starting at first, and if so
// rewrites nothing yet (the actual opcode swap happens in returnStat) but
// reports that it qualifies.
func (p *parser) tryTailCall(first int) bool {
	fs := p.fs
	if len(fs.proto.Code) == 0 {
		return false
	}
	last := fs.proto.Code[len(fs.proto.Code)-1]
	return last.opcode() == OpCall && last.argA() == first
}

// breakStat compiles `break`: it must be lexically inside a loop, and is
// implemented as an unconditional jump threaded onto that loop's
// breakList, patched once the loop's leaveBlock runs.
func (p *parser) breakStat(line int) {
	b := p.fs.currentBreakable()
	if b == nil {
		p.comp.errorf(NoPos, "break outside a loop")
		return
	}
	b.breakList = j.concat(p.fs, b.breakList, j.emitJump(p.fs))
}

// exprStatement parses a statement that starts with a suffixed expression:
// either a bare function call used for its side effects, or the first
// target of a (possibly multiple) assignment.
func (p *parser) exprStatement() {
	e := p.suffixedExp()
	if p.tok == token.ASSIGN || p.tok == token.COMMA {
		lhs := []expDesc{e}
		for p.tok == token.COMMA {
			p.next()
			if len(lhs) >= maxAssignTargets {
				p.errorf("too many assignment targets")
			}
			lhs = append(lhs, p.suffixedExp())
		}
		for _, t := range lhs {
			if t.kind != expLocal && t.kind != expUpval && t.kind != expGlobal && t.kind != expIndexed {
				p.errorf("syntax error (cannot assign to this expression)")
			}
		}
		p.expect(token.ASSIGN)
		p.assignList(lhs)
		return
	}
	if e.kind != expCall {
		p.errorf("syntax error")
	}
	fs := p.fs
	i := fs.proto.Code[e.info]
	fs.proto.Code[e.info] = createABC(i.opcode(), i.argA(), i.argB(), 1)
}

// assignList evaluates the right-hand side adjusted to exactly len(lhs)
// values placed in consecutive registers, then stores them into the
// targets in reverse order (rightmost target first), which is how Lua's
// recursive assignment ends up behaving and is required for
// `a, b = b, a`-style swaps to read every right-hand value before any
// left-hand side is overwritten.
func (p *parser) assignList(lhs []expDesc) {
	fs := p.fs
	nvars := len(lhs)
	base := fs.freeReg

	n, multi := p.expList()
	fs.adjustAssign(nvars, n, multi)
	p.checkAssignConflicts(lhs)

	for i := nvars - 1; i >= 0; i-- {
		var src expDesc
		src.init(expNonReloc, base+i)
		fs.storeVar(&lhs[i], &src)
	}
	fs.freeReg = base
}

// checkAssignConflicts guards against a later target's store clobbering a
// register an earlier, still-pending indexed target reads its table or key
// from, mirroring Lua's own check_conflict. Without this, `t[i], i = 99, 2`
// would store i's new value first (stores run right to left), then read
// the already-overwritten register back out as the table-index key for
// `t[i]`'s SETTABLE, corrupting which slot gets written.
//
// For every target that is itself a bare local, any earlier expIndexed
// target whose table register or key register equals that local's register
// is redirected to read from a safe-copy register instead, populated here
// (before any store runs) with the local's current value. Upvalue and
// global targets are skipped: storing to them writes no register.
func (p *parser) checkAssignConflicts(lhs []expDesc) {
	fs := p.fs
	for i := range lhs {
		v := &lhs[i]
		if v.kind != expLocal {
			continue
		}
		conflict := false
		for k := 0; k < i; k++ {
			lh := &lhs[k]
			if lh.kind != expIndexed {
				continue
			}
			if lh.info == v.info {
				conflict = true
				lh.info = fs.freeReg
			}
			if !isK(lh.aux) && lh.aux == v.info {
				conflict = true
				lh.aux = fs.freeReg
			}
		}
		if conflict {
			j.emitABC(fs, OpMove, fs.freeReg, v.info, 0)
			fs.reserveRegs(1)
		}
	}
}

// adjustAssign normalizes an already-evaluated right-hand side (nexps
// values, the last one possibly multi-result if multi is true) down to
// exactly nvars values sitting in consecutive registers starting at the
// caller's base, padding with nil or discarding extras as needed. It
// backs local declarations, generic-for's control triple, and
// multi-target assignment alike.
func (fs *FuncState) adjustAssign(nvars, nexps int, multi bool) {
	extra := nvars - nexps
	if multi {
		extra++
		if extra < 0 {
			extra = 0
		}
		fs.setLastReturns(extra)
		if extra > 1 {
			fs.reserveRegs(extra - 1)
		}
		return
	}
	if extra > 0 {
		reg := fs.freeReg
		fs.reserveRegs(extra)
		j.emitABC(fs, OpLoadNil, reg, reg+extra-1, 0)
	} else if extra < 0 {
		fs.freeReg += extra // drop extra values, already evaluated for side effects
	}
}

// setLastReturns rewrites the most recently emitted CALL/VARARG (the
// multi-result expression expList just finished on) to yield exactly
// nresults values instead of "as many as possible".
func (fs *FuncState) setLastReturns(nresults int) {
	pc := len(fs.proto.Code) - 1
	i := fs.proto.Code[pc]
	switch i.opcode() {
	case OpCall, OpTailCall:
		fs.proto.Code[pc] = createABC(i.opcode(), i.argA(), i.argB(), nresults+1)
	case OpVararg:
		fs.proto.Code[pc] = createABC(i.opcode(), i.argA(), nresults+1, 0)
	}
}
