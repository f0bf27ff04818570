package compiler

import "math"

// binOp and unOp identify the arithmetic/relational operators the parser
// hands to codeArith/codeComp/codeUnExp; they mirror the surface operator
// set rather than Opcode directly; a single binOp like opAdd always lowers
// to OpAdd, but keeping a separate enum here makes the precedence table in
// exprparse.go self-contained.
type binOp int

const (
	opAdd binOp = iota
	opSub
	opMul
	opDiv
	opMod
	opPow
	opConcat
	opEq
	opNe
	opLt
	opLe
	opGt
	opGe
	opAnd
	opOr
)

type unOp int

const (
	opUnm unOp = iota
	opNot
	opLen
)

// codeArith emits (or folds) a binary arithmetic operator over e1 and e2,
// leaving the result in e1. Constant folding applies only when both
// operands are plain numeral constants with no pending jumps and the fold
// wouldn't need to mimic runtime float semantics Go doesn't share (div and
// mod by zero are left to the VM, matching Lua's luaK_codearith which also
// refuses to fold those).
func (j *jumpState) codeArith(fs *FuncState, op binOp, e1, e2 *expDesc) {
	if e1.isNumeral() && e2.isNumeral() {
		if v, ok := foldArith(op, e1.num, e2.num); ok {
			e1.num = v
			return
		}
	}
	var code Opcode
	switch op {
	case opAdd:
		code = OpAdd
	case opSub:
		code = OpSub
	case opMul:
		code = OpMul
	case opDiv:
		code = OpDiv
	case opMod:
		code = OpMod
	case opPow:
		code = OpPow
	}
	j.codeArithOpcode(fs, code, e1, e2)
}

func foldArith(op binOp, a, b float64) (float64, bool) {
	var r float64
	switch op {
	case opAdd:
		r = a + b
	case opSub:
		r = a - b
	case opMul:
		r = a * b
	case opDiv:
		if b == 0 {
			return 0, false
		}
		r = a / b
	case opMod:
		if b == 0 {
			return 0, false
		}
		r = math.Mod(a, b)
		if r != 0 && (r < 0) != (b < 0) {
			r += b
		}
	case opPow:
		r = math.Pow(a, b)
	default:
		return 0, false
	}
	// A fold that produces NaN (e.g. a fractional power of a negative base)
	// must not be baked into a LOADK constant: the runtime opcode is left to
	// produce the same NaN instead, keeping folded and unfolded code paths
	// observably identical.
	if math.IsNaN(r) {
		return 0, false
	}
	return r, true
}

// codeArithOpcode is the non-folded path: both operands are discharged to
// RK form, their registers freed (constants need none), and a single
// instruction is emitted whose result is left unplaced (expReloc) so the
// caller can decide where it lands.
func (j *jumpState) codeArithOpcode(fs *FuncState, op Opcode, e1, e2 *expDesc) {
	o2 := fs.expToRK(e2)
	o1 := fs.expToRK(e1)
	if o1 > o2 {
		fs.freeExp2(e1, e2)
	} else {
		fs.freeExp2(e2, e1)
	}
	pc := j.emitABC(fs, op, 0, o1, o2)
	e1.init(expReloc, pc)
}

// codeComp emits a relational comparison, leaving a boolean-valued jump
// descriptor in e1 (kind expJmp over the pc of the underlying EQ/LT/LE).
// Lua only has EQ/LT/LE instructions; >/>= are implemented by swapping
// operands and using LT/LE, since a < b is equivalent to b > a.
func (j *jumpState) codeComp(fs *FuncState, op binOp, e1, e2 *expDesc) {
	swap := false
	var code Opcode
	switch op {
	case opEq, opNe:
		code = OpEq
	case opLt:
		code = OpLt
	case opLe:
		code = OpLe
	case opGt:
		code = OpLt
		swap = true
	case opGe:
		code = OpLe
		swap = true
	}
	o2 := fs.expToRK(e2)
	o1 := fs.expToRK(e1)
	fs.freeExp2(e1, e2)
	if swap {
		o1, o2 = o2, o1
	}
	cond := 1
	if op == opNe {
		cond = 0
	}
	pc := j.emitABC(fs, code, cond, o1, o2)
	e1.init(expJmp, j.emitCondJump(fs, pc))
}

// emitCondJump emits the JMP that must immediately follow a
// EQ/LT/LE/TEST/TESTSET instruction (the comparison only sets a skip flag;
// the jump is what actually transfers control), and returns its pc so it
// can be threaded into a jump list.
func (j *jumpState) emitCondJump(fs *FuncState, testPC int) int {
	return j.emitJump(fs)
}

// codeUnExp emits a unary operator, folding UNM over a numeral constant.
func (j *jumpState) codeUnExp(fs *FuncState, op unOp, e *expDesc) {
	if op == opUnm && e.isNumeral() {
		e.num = -e.num
		return
	}
	var code Opcode
	switch op {
	case opUnm:
		code = OpUnm
	case opNot:
		code = OpNot
	case opLen:
		code = OpLen
	}
	r := fs.expToAnyReg(e)
	fs.freeExp(e)
	pc := j.emitABC(fs, code, 0, r, 0)
	e.init(expReloc, pc)
}
