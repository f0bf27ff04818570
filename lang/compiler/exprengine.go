package compiler

// This file is the discharge ladder: the set of functions that take an
// expDesc in any kind and progressively normalize it until it occupies a
// concrete register (or, for expIndexed/expCall/expGlobal, until it has at
// least been turned into something dischargeToReg can finish). Every
// expression the parser builds eventually flows through expToNextReg,
// expToAnyReg or expToRK exactly once it is actually used, which is what
// gives the compiler its single-pass, emit-on-demand character: code for a
// sub-expression is only ever generated when some enclosing construct
// forces it to be.

var j = &jumpState{}

// dischargeVars turns expLocal/expUpval/expGlobal/expIndexed into an
// expNonReloc or expReloc that no longer refers to named storage, emitting
// a GETUPVAL/GETGLOBAL/GETTABLE as needed. It must run before any
// operation that needs the expression's up-to-date runtime value (as
// opposed to just its location), because e.g. GETTABLE has side effects
// (metamethods) that must happen exactly once and at the right point in
// evaluation order.
func (fs *FuncState) dischargeVars(e *expDesc) {
	switch e.kind {
	case expLocal:
		e.kind = expNonReloc
	case expUpval:
		pc := j.emitABC(fs, OpGetUpval, 0, e.info, 0)
		e.init(expReloc, pc)
	case expGlobal:
		pc := j.emitABx(fs, OpGetGlobal, 0, fs.stringK(e.str))
		e.init(expReloc, pc)
	case expIndexed:
		fs.freeReg1(e.aux)
		fs.freeReg1(e.info)
		pc := j.emitABC(fs, OpGetTable, 0, e.info, e.aux)
		e.init(expReloc, pc)
	case expCall:
		fs.setOneRet(e)
	case expVararg:
		// left as-is; expToNextReg handles VARARG's A,B directly.
	}
}

// setOneRet adjusts a just-emitted CALL/VARARG-producing expDesc so that it
// is understood to yield exactly one value (the default once it's used as
// a plain expression rather than in multi-result position), mirroring
// Lua's luaK_setoneret.
func (fs *FuncState) setOneRet(e *expDesc) {
	if e.kind == expCall {
		i := fs.proto.Code[e.info]
		e.init(expNonReloc, i.argA())
	} else {
		e.kind = expNonReloc
	}
}

// dischargeToReg forces e, already past dischargeVars, into register reg
// exactly, emitting whatever MOVE/LOADK/LOADNIL/LOADBOOL is needed for its
// kind. Called only through expToReg/expToNextReg/exp2reg so the jump-list
// patching in exp2reg always runs afterward.
func (fs *FuncState) dischargeToReg(e *expDesc, reg int) {
	fs.dischargeVars(e)
	switch e.kind {
	case expNil:
		j.emitABC(fs, OpLoadNil, reg, reg, 0)
	case expTrue:
		j.emitABC(fs, OpLoadBool, reg, 1, 0)
	case expFalse:
		j.emitABC(fs, OpLoadBool, reg, 0, 0)
	case expKNum:
		j.emitABx(fs, OpLoadK, reg, fs.numberK(e.num))
	case expK:
		j.emitABx(fs, OpLoadK, reg, e.info)
	case expReloc:
		fs.proto.Code[e.info] = fs.proto.Code[e.info].setArgA(reg)
	case expNonReloc:
		if reg != e.info {
			j.emitABC(fs, OpMove, reg, e.info, 0)
		}
	default:
		// expVoid: nothing to discharge, used only for statements whose
		// result is entirely discarded.
		return
	}
	e.init(expNonReloc, reg)
}

// exp2reg is dischargeToReg plus jump-list resolution: any pending
// true/false exits on e are patched so that, regardless of which branch was
// taken, reg ends up holding the right boolean/value. This is the one
// place LOADBOOL pairs (with the "skip next" C operand) get emitted, for
// expressions that are the result of and/or/relational operators used in
// value position rather than purely as a branch condition.
func (fs *FuncState) exp2reg(e *expDesc, reg int) {
	fs.dischargeToReg(e, reg)

	if e.kind == expJmp {
		e.t = j.concat(fs, e.t, e.info)
	}

	if e.hasJumps() {
		var final int
		p_f, p_t := noJump, noJump
		if fs.needValue(e.t) || fs.needValue(e.f) {
			fj := noJump
			if e.kind != expJmp {
				fj = j.emitJump(fs)
			}
			p_f = j.emitABC(fs, OpLoadBool, reg, 0, 1)
			p_t = j.emitABC(fs, OpLoadBool, reg, 1, 0)
			j.patchToHere(fs, fj)
		}
		final = fs.pc
		fs.lastTarget = final
		j.patchListAux(fs, e.f, final, reg, p_f)
		j.patchListAux(fs, e.t, final, reg, p_t)
	}
	e.init(expNonReloc, reg)
}

// needValue reports whether any jump in list l is one whose boolean result
// must be materialized into a register with LOADBOOL (as opposed to a pure
// control-flow jump whose target never reads back a value), mirroring
// Lua's need_value.
func (fs *FuncState) needValue(l int) bool {
	for ; l != noJump; l = j.getJump(fs, l) {
		pc := l - 1
		if pc < 0 || fs.proto.Code[pc].opcode() != OpTestSet {
			return true
		}
	}
	return false
}

// expToNextReg discharges e into the next free register, reserving it
// first; used whenever an expression must be materialized at a fresh,
// specific location (function arguments, table constructor elements,
// assignment targets already resolved to a new register).
func (fs *FuncState) expToNextReg(e *expDesc) {
	fs.dischargeVars(e)
	fs.freeExp(e)
	fs.reserveRegs(1)
	fs.exp2reg(e, fs.freeReg-1)
}

// expToAnyReg discharges e into any register: if it is already pinned to
// one (expNonReloc) that register is reused as-is (unless it is a local,
// in which case we still must copy out to a temporary when the expression
// might be about to be invalidated, which callers indicate by already
// having frozen locals before calling this), otherwise a fresh register is
// allocated via expToNextReg.
func (fs *FuncState) expToAnyReg(e *expDesc) int {
	fs.dischargeVars(e)
	if e.kind == expNonReloc {
		if !e.hasJumps() {
			return e.info
		}
		if e.info >= fs.nactvar {
			fs.exp2reg(e, e.info)
			return e.info
		}
	}
	fs.expToNextReg(e)
	return e.info
}

// expToVal turns e into a value: an expression with pending jumps is
// materialized in a register via expToAnyReg, anything else only has its
// variable reads discharged (dischargeVars), so constants stay constants.
func (fs *FuncState) expToVal(e *expDesc) {
	if e.hasJumps() {
		fs.expToAnyReg(e)
	} else {
		fs.dischargeVars(e)
	}
}

// expToRK discharges e into an RK operand: a true constant (expK,
// expKNum/expNil/expTrue/expFalse collapse into K entries here) is encoded
// directly as a constant index with the RK flag set, everything else falls
// through to a register via expToAnyReg.
func (fs *FuncState) expToRK(e *expDesc) int {
	fs.expToVal(e)
	switch e.kind {
	case expNil:
		return rkAsK(fs.addK(Value{Kind: ValNil}))
	case expTrue:
		return rkAsK(fs.addK(Value{Kind: ValTrue}))
	case expFalse:
		return rkAsK(fs.addK(Value{Kind: ValFalse}))
	case expKNum:
		return rkAsK(fs.numberK(e.num))
	case expK:
		if e.info <= maxIndexRK {
			return rkAsK(e.info)
		}
	}
	return fs.expToAnyReg(e)
}

// storeVar emits the code that assigns the value already discharged in ex
// to the variable described by vr (expLocal/expUpval/expGlobal/expIndexed),
// then frees the temporary ex occupied, if any; registers held by vr's
// table or key are not freed here. This is called
// for plain `x = e`, multi-assignment (in reverse target order, by the
// caller in stmtparse.go) and for-loop control variable setup.
func (fs *FuncState) storeVar(vr *expDesc, ex *expDesc) {
	switch vr.kind {
	case expLocal:
		fs.freeExp(ex)
		fs.exp2reg(ex, vr.info)
		return
	case expUpval:
		r := fs.expToAnyReg(ex)
		j.emitABC(fs, OpSetUpval, r, vr.info, 0)
	case expGlobal:
		r := fs.expToAnyReg(ex)
		j.emitABx(fs, OpSetGlobal, r, fs.stringK(vr.str))
	case expIndexed:
		r := fs.expToAnyReg(ex)
		j.emitABC(fs, OpSetTable, vr.info, vr.aux, r)
	default:
		return
	}
	fs.freeExp(ex)
}

// indexField builds an expIndexed descriptor for table[key], discharging
// table to a register first (table[key] always needs table as a value,
// never as a pending jump).
func (fs *FuncState) indexField(t *expDesc, key *expDesc) expDesc {
	var e expDesc
	e.init(expIndexed, fs.expToAnyReg(t))
	e.aux = fs.expToRK(key)
	return e
}

// selfExpr builds the R(A+1)/R(A) pair for obj:method(...) call syntax: a
// SELF instruction copies the receiver into a new pair of registers and
// looks the method up in the same step, matching Lua's exact
// method-call-without-double-evaluation trick.
func (fs *FuncState) selfExpr(e *expDesc, key *expDesc) {
	fs.expToAnyReg(e)
	fs.freeExp(e)
	base := fs.freeReg
	fs.reserveRegs(2)
	keyRK := fs.expToRK(key)
	j.emitABC(fs, OpSelf, base, e.info, keyRK)
	fs.freeExp(key)
	e.init(expNonReloc, base)
}

// --- short-circuit boolean control flow ---

// goIfTrue arranges for e's "true" exit to fall through to the next
// instruction and its "false" exit (if any) to jump past it, patching any
// TEST/TESTSET needed along the way. This is the primitive infix `and`
// uses: by the time the right operand starts, every way e could be false
// has already jumped around it.
func (fs *FuncState) goIfTrue(e *expDesc) {
	fs.dischargeVars(e)
	var pc int
	switch e.kind {
	case expJmp:
		negateJump(fs, e)
		pc = e.info
	case expK, expKNum, expTrue:
		pc = noJump // always true: no jump needed at all
	default:
		pc = fs.jumpOnCond(e, false)
	}
	e.f = j.concat(fs, e.f, pc)
	j.patchToHere(fs, e.t)
	e.t = noJump
}

// goIfFalse is goIfTrue's mirror image, used by infix `or`.
func (fs *FuncState) goIfFalse(e *expDesc) {
	fs.dischargeVars(e)
	var pc int
	switch e.kind {
	case expJmp:
		pc = e.info
	case expNil, expFalse:
		pc = noJump
	default:
		pc = fs.jumpOnCond(e, true)
	}
	e.t = j.concat(fs, e.t, pc)
	j.patchToHere(fs, e.f)
	e.f = noJump
}

// negateJump flips the condition of the EQ/LT/LE immediately preceding the
// JMP at e.info in place, used when a jump list built for "go if false" is
// reinterpreted as "go if true" (and vice versa) without re-emitting the
// comparison.
func negateJump(fs *FuncState, e *expDesc) {
	pc := e.info - 1
	i := fs.proto.Code[pc]
	fs.proto.Code[pc] = createABC(i.opcode(), 1-i.argA(), i.argB(), i.argC())
}

// jumpOnCond discharges e to any register, emits a TEST/TESTSET against
// the given sense, and returns the pc of the JMP that follows it, ready to
// be threaded into a jump list.
func (fs *FuncState) jumpOnCond(e *expDesc, cond bool) int {
	if e.kind == expReloc {
		i := fs.proto.Code[e.info]
		if i.opcode() == OpNot {
			fs.proto.Code = fs.proto.Code[:len(fs.proto.Code)-1]
			fs.proto.LineInfo = fs.proto.LineInfo[:len(fs.proto.LineInfo)-1]
			fs.pc--
			c := 0
			if !cond {
				c = 1
			}
			j.emitABC(fs, OpTest, i.argB(), 0, c)
			return j.emitJump(fs)
		}
	}
	r := fs.expToAnyReg(e)
	fs.freeExp(e)
	c := 0
	if cond {
		c = 1
	}
	j.emitABC(fs, OpTestSet, noRegA, r, c)
	return j.emitJump(fs)
}

// infixAnd/infixOr are called right after the operator token is consumed
// (before the right operand is parsed), arranging short-circuit so the
// right operand's code is only reached when it can affect the result.
func (fs *FuncState) infixAnd(e *expDesc) { fs.goIfTrue(e) }
func (fs *FuncState) infixOr(e *expDesc)  { fs.goIfFalse(e) }

// postfixAnd/postfixOr combine the left operand's jump state (already
// pointing past the right operand's code for the short-circuited case)
// with the right operand e2, which becomes the combined result.
func (fs *FuncState) postfixAnd(e1, e2 *expDesc) {
	fs.dischargeVars(e2)
	e2.f = j.concat(fs, e2.f, e1.f)
	*e1 = *e2
}

func (fs *FuncState) postfixOr(e1, e2 *expDesc) {
	fs.dischargeVars(e2)
	e2.t = j.concat(fs, e2.t, e1.t)
	*e1 = *e2
}
