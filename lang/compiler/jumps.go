package compiler

// jumpState is the code emitter: every instruction the compiler produces
// goes through one of its emit* methods, which also drives constant-folding
// peepholes (see emit.go) and keeps fs.lastTarget in sync with jump
// patching. Splitting it out from FuncState lets the arithmetic/comparison
// lowering in emit.go and exprengine.go depend only on this narrower
// surface.
type jumpState struct{}

// emitInstr appends one already-built instruction at the current source
// line and returns its pc. It is the single point where code actually
// enters proto.Code; every other emit helper funnels through it.
func (j *jumpState) emitInstr(fs *FuncState, i Instruction, line int) int {
	fs.dischargeJpc()
	fs.proto.Code = append(fs.proto.Code, i)
	fs.proto.LineInfo = append(fs.proto.LineInfo, line)
	pc := fs.pc
	fs.pc++
	return pc
}

func (j *jumpState) emitABC(fs *FuncState, op Opcode, a, b, c int) int {
	return j.emitInstr(fs, createABC(op, a, b, c), fs.comp.curLine)
}

func (j *jumpState) emitABx(fs *FuncState, op Opcode, a, bx int) int {
	return j.emitInstr(fs, createABx(op, a, bx), fs.comp.curLine)
}

func (j *jumpState) emitAsBx(fs *FuncState, op Opcode, a, sbx int) int {
	return j.emitInstr(fs, createAsBx(op, a, sbx), fs.comp.curLine)
}

// emitJump emits an unpatched JMP and returns its pc, to be threaded into a
// jump list and patched later by patchList/patchToHere.
func (j *jumpState) emitJump(fs *FuncState) int {
	return j.emitAsBx(fs, OpJmp, 0, noJump)
}

// getJump returns the pc a jump instruction at pc currently targets
// (following the still-unpatched thread), or noJump if it is the last in
// its list.
func (j *jumpState) getJump(fs *FuncState, pc int) int {
	offset := fs.proto.Code[pc].argSBx()
	if offset == noJump {
		return noJump
	}
	return pc + 1 + offset
}

// fixJump patches the JMP at pc to target dest.
func (j *jumpState) fixJump(fs *FuncState, pc, dest int) {
	offset := dest - (pc + 1)
	fs.proto.Code[pc] = fs.proto.Code[pc].setArgSBx(offset)
}

// concat appends jump list l2 onto the end of jump list l1, returning the
// combined list's head; either may be noJump.
func (j *jumpState) concat(fs *FuncState, l1, l2 int) int {
	if l2 == noJump {
		return l1
	}
	if l1 == noJump {
		return l2
	}
	list := l1
	for {
		next := j.getJump(fs, list)
		if next == noJump {
			break
		}
		list = next
	}
	j.fixJump(fs, list, l2)
	return l1
}

// patchListAux patches every jump in list l. A jump controlled by a TESTSET
// has that TESTSET's A operand set to regToSet (a negative regToSet means no
// register is wanted, and the TESTSET becomes a plain TEST) and targets dest,
// where the value is already in place; every other jump targets
// defaultDest, matching Lua's patchlistaux.
func (j *jumpState) patchListAux(fs *FuncState, l, dest, regToSet, defaultDest int) {
	if regToSet < 0 {
		regToSet = noRegA
	}
	for l != noJump {
		next := j.getJump(fs, l)
		if fs.patchTestReg(l, regToSet) {
			j.fixJump(fs, l, dest)
		} else {
			j.fixJump(fs, l, defaultDest)
		}
		l = next
	}
}

// patchList patches every jump in list l to target the given dest pc.
func (j *jumpState) patchList(fs *FuncState, l, dest int) {
	if dest == fs.pc {
		j.patchToHere(fs, l)
		return
	}
	j.patchListAux(fs, l, dest, -1, dest)
}

// patchToHere patches every jump in list l to target the next instruction
// to be emitted (i.e. "here"), and folds l into fs.jpc so that the next
// emitted instruction becomes that target without an extra JMP.
func (j *jumpState) patchToHere(fs *FuncState, l int) {
	fs.lastTarget = fs.pc
	fs.jpc = j.concat(fs, fs.jpc, l)
}

// dischargeJpc patches every pending jump in fs.jpc to target the
// instruction about to be emitted (fs.pc), then clears it. Called at the
// top of every emitInstr.
func (fs *FuncState) dischargeJpc() {
	jmps := &jumpState{}
	jmps.patchListAux(fs, fs.jpc, fs.pc, -1, fs.pc)
	fs.jpc = noJump
}

// patchTestReg tries to patch the TEST/TESTSET instruction immediately
// preceding the JMP at pc so that it writes its value into register reg
// instead of just testing, implementing Lua's "need_value" upgrade of a
// TESTSET's A operand when the boolean result of and/or must be kept
// rather than merely branched on. Returns false if the preceding
// instruction is not a TEST/TESTSET that can be rewritten (e.g. it was
// already a TEST with no place to write a value, such as a relational
// operator) in which case the caller must fall back to fixing the jump to
// defaultDest.
func (fs *FuncState) patchTestReg(pc, reg int) bool {
	if pc == 0 {
		return false
	}
	ipc := pc - 1
	i := fs.proto.Code[ipc]
	if i.opcode() != OpTestSet {
		return false
	}
	if reg != noRegA && reg != i.argB() {
		fs.proto.Code[ipc] = createABC(OpTestSet, reg, i.argB(), i.argC())
	} else {
		fs.proto.Code[ipc] = createABC(OpTest, i.argB(), 0, i.argC())
	}
	return true
}

// noRegA is a sentinel for patchTestReg meaning "no result register
// requested, only the test itself matters" (used when an expression's
// value is discarded but its boolean effect on control flow is not, e.g.
// the condition of an if statement).
const noRegA = maxArgA
