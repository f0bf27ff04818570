package compiler

// Package compiler implements the single-pass parser and code generator
// that lowers Lua 5.1 surface syntax directly into register-based bytecode,
// without ever materializing an intermediate AST. The design follows Lua's
// own lparser.c/lcode.c: expressions are reduced to an ExpDesc as they are
// parsed, and ExpDesc is discharged into instructions on demand, so code for
// an expression is emitted as the parser walks past it rather than in a
// separate pass.

// Opcode identifies the operation performed by one Instruction. The set and
// numbering follow Lua 5.1's lopcodes.h; numeric values are not meaningful
// on their own but must stay stable because Instructions are encoded with
// them.
type Opcode uint8

const (
	OpMove     Opcode = iota // A B    R(A) := R(B)
	OpLoadK                  // A Bx   R(A) := K(Bx)
	OpLoadBool               // A B C  R(A) := (bool)B; if C then pc++
	OpLoadNil                // A B    R(A), ..., R(B) := nil
	OpGetUpval               // A B    R(A) := Upvalue[B]
	OpGetGlobal              // A Bx   R(A) := Gbl[K(Bx)]
	OpGetTable               // A B C  R(A) := R(B)[RK(C)]
	OpSetGlobal              // A Bx   Gbl[K(Bx)] := R(A)
	OpSetUpval               // A B    Upvalue[B] := R(A)
	OpSetTable               // A B C  R(A)[RK(B)] := RK(C)
	OpNewTable               // A B C  R(A) := {} (array size hint B, hash size hint C)
	OpSelf                   // A B C  R(A+1) := R(B); R(A) := R(B)[RK(C)]
	OpAdd                    // A B C  R(A) := RK(B) + RK(C)
	OpSub                    // A B C  R(A) := RK(B) - RK(C)
	OpMul                    // A B C  R(A) := RK(B) * RK(C)
	OpDiv                    // A B C  R(A) := RK(B) / RK(C)
	OpMod                    // A B C  R(A) := RK(B) % RK(C)
	OpPow                    // A B C  R(A) := RK(B) ^ RK(C)
	OpUnm                    // A B    R(A) := -R(B)
	OpNot                    // A B    R(A) := not R(B)
	OpLen                    // A B    R(A) := #R(B)
	OpConcat                 // A B C  R(A) := R(B) .. ... .. R(C)
	OpJmp                    // sBx    pc += sBx
	OpEq                     // A B C  if (RK(B) == RK(C)) ~= A then pc++
	OpLt                     // A B C  if (RK(B) <  RK(C)) ~= A then pc++
	OpLe                     // A B C  if (RK(B) <= RK(C)) ~= A then pc++
	OpTest                   // A C    if bool(R(A)) ~= C then pc++
	OpTestSet                // A B C  if bool(R(B)) == C then R(A) := R(B) else pc++
	OpCall                   // A B C  R(A), ... := R(A)(R(A+1), ..., R(A+B-1))
	OpTailCall               // A B C  return R(A)(R(A+1), ..., R(A+B-1))
	OpReturn                 // A B    return R(A), ..., R(A+B-2)
	OpForLoop                // A sBx  loop var update and branch back
	OpForPrep                // A sBx  prepares a numeric for loop
	OpTForLoop               // A C    generic for loop iterator call
	OpSetList                // A B C  R(A)[(C-1)*FPF+i] := R(A+i), 1<=i<=B
	OpClose                  // A      close all locals >= R(A)
	OpClosure                // A Bx   R(A) := closure(KPROTO[Bx], upvalues...)
	OpVararg                 // A B    R(A), ..., R(A+B-2) := vararg
	numOpcodes
)

var opcodeNames = [numOpcodes]string{
	OpMove:     "MOVE",
	OpLoadK:    "LOADK",
	OpLoadBool: "LOADBOOL",
	OpLoadNil:  "LOADNIL",
	OpGetUpval: "GETUPVAL",
	OpGetGlobal: "GETGLOBAL",
	OpGetTable: "GETTABLE",
	OpSetGlobal: "SETGLOBAL",
	OpSetUpval: "SETUPVAL",
	OpSetTable: "SETTABLE",
	OpNewTable: "NEWTABLE",
	OpSelf:     "SELF",
	OpAdd:      "ADD",
	OpSub:      "SUB",
	OpMul:      "MUL",
	OpDiv:      "DIV",
	OpMod:      "MOD",
	OpPow:      "POW",
	OpUnm:      "UNM",
	OpNot:      "NOT",
	OpLen:      "LEN",
	OpConcat:   "CONCAT",
	OpJmp:      "JMP",
	OpEq:       "EQ",
	OpLt:       "LT",
	OpLe:       "LE",
	OpTest:     "TEST",
	OpTestSet:  "TESTSET",
	OpCall:     "CALL",
	OpTailCall: "TAILCALL",
	OpReturn:   "RETURN",
	OpForLoop:  "FORLOOP",
	OpForPrep:  "FORPREP",
	OpTForLoop: "TFORLOOP",
	OpSetList:  "SETLIST",
	OpClose:    "CLOSE",
	OpClosure:  "CLOSURE",
	OpVararg:   "VARARG",
}

func (op Opcode) String() string {
	if op >= numOpcodes {
		return "OP?"
	}
	return opcodeNames[op]
}

// opMode classifies which of the three instruction encodings an opcode
// uses, mirroring Lua's OpArgMask/OpMode tables (condensed: we only need
// enough to assert correct emission, not to drive a generic decoder).
type opMode uint8

const (
	modeABC opMode = iota
	modeABx
	modeAsBx
)

var opcodeModes = [numOpcodes]opMode{
	OpLoadK:     modeABx,
	OpGetGlobal: modeABx,
	OpSetGlobal: modeABx,
	OpClosure:   modeABx,
	OpJmp:       modeAsBx,
	OpForLoop:   modeAsBx,
	OpForPrep:   modeAsBx,
}

func (op Opcode) mode() opMode { return opcodeModes[op] }

// isTest reports whether the opcode's A field is a boolean test result
// that must be checked against a following JMP rather than a value (TEST,
// TESTSET, EQ, LT, LE): these opcodes never "produce" a usable R(A) the way
// MOVE or ADD do, and the jump-list engine treats them specially.
func (op Opcode) isTest() bool {
	switch op {
	case OpEq, OpLt, OpLe, OpTest, OpTestSet:
		return true
	default:
		return false
	}
}

// Instruction bit layout, following Lua 5.1 exactly:
//
//	iABC:  op(6) | A(8) | C(9) | B(9)   (from LSB to MSB)
//	iABx:  op(6) | A(8) | Bx(18)
//	iAsBx: op(6) | A(8) | sBx(18), sBx stored as sBx+maxArgSBx
//
// Field widths and positions are fixed by the format, not configurable.
const (
	sizeOp = 6
	sizeA  = 8
	sizeB  = 9
	sizeC  = 9
	sizeBx = sizeB + sizeC // 18

	posOp = 0
	posA  = posOp + sizeOp
	posC  = posA + sizeA
	posB  = posC + sizeC
	posBx = posC

	maxArgA  = 1<<sizeA - 1
	maxArgB  = 1<<sizeB - 1
	maxArgC  = 1<<sizeC - 1
	maxArgBx = 1<<sizeBx - 1
	maxArgSBx = maxArgBx >> 1

	// bitRK, set on a 9-bit B or C field, flags that the remaining 8 bits
	// index the constant pool (K) rather than a register (R). This is
	// Lua's RK encoding: RK(x) = x < bitRK ? R(x) : K(x - bitRK).
	bitRK    = 1 << (sizeB - 1)
	maxIndexRK = bitRK - 1
)

// Instruction is one encoded 32-bit Lua bytecode word.
type Instruction uint32

func createABC(op Opcode, a, b, c int) Instruction {
	return Instruction(uint32(op)<<posOp | uint32(a)<<posA | uint32(b)<<posB | uint32(c)<<posC)
}

func createABx(op Opcode, a, bx int) Instruction {
	return Instruction(uint32(op)<<posOp | uint32(a)<<posA | uint32(bx)<<posBx)
}

func createAsBx(op Opcode, a, sbx int) Instruction {
	return createABx(op, a, sbx+maxArgSBx)
}

func (i Instruction) opcode() Opcode { return Opcode(i >> posOp & (1<<sizeOp - 1)) }
func (i Instruction) argA() int      { return int(i >> posA & (1<<sizeA - 1)) }
func (i Instruction) argB() int      { return int(i >> posB & (1<<sizeB - 1)) }
func (i Instruction) argC() int      { return int(i >> posC & (1<<sizeC - 1)) }
func (i Instruction) argBx() int     { return int(i >> posBx & (1<<sizeBx - 1)) }
func (i Instruction) argSBx() int    { return i.argBx() - maxArgSBx }

func (i Instruction) setArgA(a int) Instruction {
	return i&^(Instruction(1<<sizeA-1) << posA) | Instruction(a)<<posA
}

func (i Instruction) setArgBx(bx int) Instruction {
	return i&^(Instruction(1<<sizeBx-1) << posBx) | Instruction(bx)<<posBx
}

func (i Instruction) setArgSBx(sbx int) Instruction { return i.setArgBx(sbx + maxArgSBx) }

// isK reports whether a 9-bit RK field denotes a constant index, and index
// returns the plain register or constant index it carries.
func isK(rk int) bool  { return rk&bitRK != 0 }
func rkIndex(rk int) int { return rk &^ bitRK }

// rkAsK encodes constant index k as an RK operand.
func rkAsK(k int) int { return k | bitRK }

// Exported decode surface for external consumers of a compiled Proto (the
// reference interpreter in package vm, disassemblers, serializers): the
// compiler itself only ever uses the unexported accessors above, but
// nothing outside this package can reach a Proto's Code without these.

func (i Instruction) Opcode() Opcode { return i.opcode() }
func (i Instruction) A() int         { return i.argA() }
func (i Instruction) B() int         { return i.argB() }
func (i Instruction) C() int         { return i.argC() }
func (i Instruction) Bx() int        { return i.argBx() }
func (i Instruction) SBx() int       { return i.argSBx() }

// IsK reports whether a 9-bit RK operand (as found in an instruction's B or
// C field) denotes a constant pool index rather than a register.
func IsK(rk int) bool { return isK(rk) }

// RKIndex strips the RK flag from an RK operand, leaving the plain register
// or constant index depending on IsK.
func RKIndex(rk int) int { return rkIndex(rk) }
