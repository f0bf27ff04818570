package compiler

import "github.com/mna/nenuphar/lang/token"

// Proto is a compiled function prototype: the self-contained output of
// compiling one Lua function (the chunk itself counts as a function, with
// implicit vararg parameters). It carries exactly the fields the reference
// Lua 5.1 VM needs to execute the function and nothing else; the compiler
// never retains its parse-time state past Proto construction.
type Proto struct {
	Source          string // chunk name, for error messages and debug info
	LineDefined     int
	LastLineDefined int

	NumParams    int
	IsVararg     bool
	MaxStackSize int // number of registers this function needs

	Code     []Instruction
	LineInfo []int // Code[i] was generated from source line LineInfo[i]

	Constants []Value   // the constant pool, indexed by K(n)
	Protos    []*Proto  // child function prototypes, indexed by Bx in CLOSURE
	Upvalues  []Upvaldesc
	LocVars   []LocVar // debug info: names and live ranges of locals
}

// Value is a compile-time constant. Only the kinds Lua's constant pool can
// hold are represented: nil, booleans, numbers and strings; table and
// function constants do not exist in Lua 5.1.
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
}

type ValueKind uint8

const (
	ValNil ValueKind = iota
	ValTrue
	ValFalse
	ValNumber
	ValString
)

// LocVar records the lexical lifetime of one local variable slot, purely
// for debug info (error messages, a future debug library); the compiler
// itself tracks live locals separately in FuncState.
type LocVar struct {
	Name    string
	StartPC int // first instruction where the variable is active
	EndPC   int // first instruction where it is no longer active
}

// Upvaldesc records where an upvalue is captured from in the enclosing
// function: either one of its registers (InStack true) or one of its own
// upvalues.
type Upvaldesc struct {
	Name    string
	InStack bool
	Index   int
}

// Pos returns the source position a Proto's definition line corresponds to,
// for diagnostics that want a full Position rather than a bare line number.
func (p *Proto) Pos() token.Pos {
	return token.MakePos(p.LineDefined, 1)
}
