package vm

import "github.com/mna/nenuphar/lang/compiler"

// frame is one activation record: a register window sized to its Proto's
// MaxStackSize, plus the closure it is running (for upvalue access) and the
// program counter, mirroring the teacher's lang/machine/frame.go.
type frame struct {
	closure *Closure
	regs    []Value
	pc      int

	// openCells holds, for every register that has been captured by a
	// nested closure and thus promoted to a Cell, the cell sharing that
	// register's storage; OpClose severs this sharing for registers at or
	// above a given index when their scope ends.
	openCells map[int]*Cell

	// lastMultRetEnd is one past the last register written by the most
	// recent multret-producing CALL/VARARG (B==0 or C==0 form); a following
	// instruction whose own B or C is 0 (a chained multret CALL/RETURN/
	// SETLIST) reads up to this index, mirroring how the real VM tracks
	// "top" on its operand stack instead of a fixed register count.
	lastMultRetEnd int
}

func newFrame(cl *Closure) *frame {
	return &frame{
		closure: cl,
		regs:    make([]Value, cl.Proto.MaxStackSize),
		openCells: make(map[int]*Cell),
	}
}

// get reads register i, going through its Cell if the register has been
// captured as an upvalue by a nested closure.
func (f *frame) get(i int) Value {
	if c, ok := f.openCells[i]; ok {
		return c.V
	}
	return f.regs[i]
}

func (f *frame) set(i int, v Value) {
	if c, ok := f.openCells[i]; ok {
		c.V = v
		return
	}
	f.regs[i] = v
}

// cellFor returns (creating if necessary) the Cell backing register i, used
// when a CLOSURE instruction captures this frame's register i by reference.
func (f *frame) cellFor(i int) *Cell {
	if c, ok := f.openCells[i]; ok {
		return c
	}
	c := &Cell{V: f.regs[i]}
	f.openCells[i] = c
	return c
}

// close severs every open cell at or above reg, copying its last value back
// into the plain register slot: subsequent iterations of the loop that
// declared it get a fresh cell on next capture, matching OpClose's "locals
// going out of scope stop being shared" semantics.
func (f *frame) close(reg int) {
	for i, c := range f.openCells {
		if i >= reg {
			f.regs[i] = c.V
			delete(f.openCells, i)
		}
	}
}

// rk resolves an RK operand (register or constant index) against this
// frame's registers and its Proto's constant pool.
func (f *frame) rk(operand int) Value {
	if compiler.IsK(operand) {
		return constantValue(f.closure.Proto.Constants[compiler.RKIndex(operand)])
	}
	return f.get(operand)
}

func constantValue(k compiler.Value) Value {
	switch k.Kind {
	case compiler.ValNil:
		return Nil{}
	case compiler.ValTrue:
		return Bool(true)
	case compiler.ValFalse:
		return Bool(false)
	case compiler.ValNumber:
		return Number(k.Num)
	case compiler.ValString:
		return String(k.Str)
	default:
		return Nil{}
	}
}
