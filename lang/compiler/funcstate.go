package compiler

import (
	"github.com/dolthub/swiss"
	"github.com/mna/nenuphar/lang/token"
)

// maxLocals bounds the number of active local variables a function may
// have at once; Lua 5.1 fixes this at 200 so that a local's slot index
// always fits comfortably in the 8-bit A field alongside bookkeeping
// headroom.
const maxLocals = 200

// maxUpvalues mirrors Lua 5.1's LUAI_MAXUPVALUES.
const maxUpvalues = 60

// localVar is one statically-known local variable, tracked on the
// FuncState's active-locals stack (nactvar entries are live at any point in
// parsing). Its register is never stored explicitly: active locals always
// occupy registers 0..nactvar-1 in declaration order (temporaries only
// ever live at or above freeReg >= nactvar), so a local's register is
// simply its index in actVar.
type localVar struct {
	name string

	// locVarIdx indexes this local's debug-info entry in
	// fs.proto.LocVars, set by adjustLocals when it activates the local (-1
	// for a local activated without a debug record), so that removeVars can
	// close its EndPC when the local's scope ends.
	locVarIdx int
}

// upvalDesc mirrors Proto's Upvaldesc but also remembers the name for
// duplicate-upvalue lookup while compiling.
type upvalDesc struct {
	name    string
	inStack bool // captured from the parent's register (true) or its upvalue (false)
	index   int
}

// blockCnt is one entry of the lexical block stack (BlockCnt in lparser.c):
// pushed for every lexical block (do, while, for, repeat, and each
// if/elseif/else branch, of which only the loops are breakable) and popped
// when the block closes.
type blockCnt struct {
	prev        *blockCnt
	breakList   int  // pending jumps to patch to the end of this loop
	nactvar     int  // number of active locals when this block was entered
	isLoop      bool // true if this block is a loop (break is valid inside it)
	hasUpval    bool // true if some local inside this block has been captured
}

// FuncState holds all of the mutable state the compiler accumulates while
// generating code for a single function body; it is the Lua-5.1-idiomatic
// analogue of a per-function code generator context. One FuncState exists
// per nested function, linked to its lexically enclosing FuncState via
// prev so that upvalue resolution can walk outward.
type FuncState struct {
	proto *Proto
	prev  *FuncState
	comp  *compilerState

	block *blockCnt

	pc         int // next instruction to be emitted == len(proto.Code)
	lastTarget int // pc of last jump target, constant folding is disabled across it
	jpc        int // list of jumps still to patch to the next emitted instruction

	freeReg int // first free register
	nactvar int // number of active local variables

	actVar []localVar // nactvar of these are the currently active locals

	upvalues []upvalDesc

	// kCache deduplicates constants already added to proto.Constants so
	// that re-adding an identical literal reuses the same pool slot. Backed
	// by the same open-addressing swiss map the reference interpreter uses
	// for its runtime table type, rather than a builtin map, since a single
	// function body can intern thousands of string/number literals.
	kCache *swiss.Map[Value, int]
}

func newFuncState(comp *compilerState, prev *FuncState, source string, line int) *FuncState {
	fs := &FuncState{
		comp:       comp,
		prev:       prev,
		lastTarget: -1,
		jpc:        noJump,
		kCache:     swiss.NewMap[Value, int](8),
		proto: &Proto{
			Source:      source,
			LineDefined: line,
		},
	}
	return fs
}

// enterBlock pushes a new lexical block, recording whether it is a loop
// (valid target for break) so enclosing loops remain visible through
// non-loop blocks (e.g. an if inside a while).
func (fs *FuncState) enterBlock(isLoop bool) {
	fs.block = &blockCnt{
		prev:    fs.block,
		breakList: noJump,
		nactvar: fs.nactvar,
		isLoop:  isLoop,
	}
}

// leaveBlock closes the innermost block: locals declared inside it go out
// of scope, a pending CLOSE is emitted if any of them was captured by a
// nested closure, and any break jumps targeting this block are patched to
// fall through right after it.
func (fs *FuncState) leaveBlock() {
	b := fs.block
	fs.block = b.prev

	fs.removeVars(b.nactvar)
	if b.hasUpval {
		j.emitABC(fs, OpClose, b.nactvar, 0, 0)
	}
	// Registers above the surviving locals are free again.
	fs.freeReg = fs.nactvar
	j.patchToHere(fs, b.breakList)
}

// currentBreakable finds the innermost enclosing breakable (loop) block, or
// nil if break is used outside of any loop.
func (fs *FuncState) currentBreakable() *blockCnt {
	for b := fs.block; b != nil; b = b.prev {
		if b.isLoop {
			return b
		}
	}
	return nil
}

// newLocal registers a new local variable name; its register will be its
// position in actVar once activated. It does not yet become active (see
// adjustLocalVars) to model the Lua rule that a local's own initializer
// cannot see itself, and its value is expected to land in that register
// precisely because the RHS expression evaluated for it is discharged via
// expToNextReg while freeReg still equals that position.
func (fs *FuncState) newLocal(name string) int {
	if len(fs.actVar) >= maxLocals {
		fs.comp.errorf(NoPos, "too many local variables")
	}
	fs.actVar = append(fs.actVar, localVar{name: name, locVarIdx: -1})
	return len(fs.actVar) - 1
}

// adjustLocalVars activates the last n locals registered with newLocal,
// assigning them their reserved registers.
func (fs *FuncState) adjustLocalVars(n int) {
	fs.nactvar += n
}

// removeVars pops active locals down to level toLevel, freeing the
// registers they held and closing each popped local's debug-info EndPC at
// the current instruction, the point where it goes out of scope.
func (fs *FuncState) removeVars(toLevel int) {
	fs.nactvar = toLevel
	for i := len(fs.actVar) - 1; i >= toLevel; i-- {
		if idx := fs.actVar[i].locVarIdx; idx >= 0 {
			fs.proto.LocVars[idx].EndPC = fs.pc
		}
	}
	if len(fs.actVar) > toLevel {
		fs.actVar = fs.actVar[:toLevel]
	}
}

// searchLocal looks up name among the currently active locals, innermost
// scope first, returning its register and ok=true if found.
func (fs *FuncState) searchLocal(name string) (reg int, ok bool) {
	for i := fs.nactvar - 1; i >= 0; i-- {
		if fs.actVar[i].name == name {
			return i, true
		}
	}
	return 0, false
}

// markUpval records that the local at the given register (in this
// FuncState) has been captured by some nested function, so leaveBlock knows
// to emit a CLOSE when its scope ends.
func (fs *FuncState) markUpval(reg int) {
	for b := fs.block; b != nil; b = b.prev {
		if b.nactvar <= reg {
			b.hasUpval = true
			return
		}
	}
}

func (fs *FuncState) lineFor(pos token.Pos) int {
	line, _ := pos.LineCol()
	return line
}
