package compiler

// expKind classifies an expression descriptor. The names follow lparser.c's
// expkind enum; the ladder of discharge functions in exprengine.go switches
// on exactly these.
type expKind uint8

const (
	expVoid    expKind = iota // no value
	expNil                    // constant nil
	expTrue                   // constant true
	expFalse                  // constant false
	expKNum                   // constant number, value in expDesc.num
	expK                      // constant in Constants[info]
	expLocal                  // local variable, register info
	expUpval                  // upvalue, index info
	expGlobal                 // global variable, name in expDesc.str
	expIndexed                // table[key]: table register in info, key RK in aux
	expJmp                    // test/comparison result: pc of the jump in info
	expReloc                  // result of instruction at pc info, not yet placed in a register
	expNonReloc               // value is already in a fixed register, info
	expCall                   // function call result, pc of the CALL in info
	expVararg                 // vararg expression, pc of the VARARG in info
)

// noJump is the sentinel meaning "no pending jump", i.e. the end of a jump
// list built by threading unpatched sBx fields together.
const noJump = -1

// expDesc describes an expression as the parser sees it, before it has
// necessarily been placed anywhere: code for most expression kinds is only
// emitted when the expression is discharged into a register (see
// exprengine.go). This mirrors Lua's expdesc exactly, including reusing the
// jump-list threading for short-circuit and relational operators.
type expDesc struct {
	kind expKind

	info int     // meaning depends on kind (register, pc, constant index...)
	aux  int     // second slot: RK key for expIndexed, unused otherwise
	num  float64 // value for expKNum
	str  string  // name for expGlobal

	// t and f thread together the "jump if true" and "jump if false" exit
	// points still pending patching, via the jump list encoded in the sBx
	// field of each JMP/TEST instruction (see jumps.go). Every expDesc
	// starts with both empty (noJump).
	t, f int
}

func (e *expDesc) init(k expKind, info int) {
	e.kind = k
	e.info = info
	e.t = noJump
	e.f = noJump
}

// hasJumps reports whether e has any pending true/false exits still to
// patch, meaning it cannot be treated as a plain value without first
// resolving those jumps.
func (e *expDesc) hasJumps() bool { return e.t != e.f }

// hasMultRet reports whether e can produce a variable number of results if
// placed in "as many results as needed" position (the tail position of a
// call's argument list, a return statement, or a table constructor's last
// field).
func (e *expDesc) hasMultRet() bool { return e.kind == expCall || e.kind == expVararg }

// isNumeral reports whether e is a constant numeral not entangled in any
// pending jump, the precondition for constant folding arithmetic on it.
func (e *expDesc) isNumeral() bool { return e.kind == expKNum && e.t == noJump && e.f == noJump }
