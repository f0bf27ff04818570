package vm

import (
	"fmt"
	"math"

	"github.com/mna/nenuphar/lang/compiler"
)

// Thread runs one call stack of Lua-style activation records, mirroring
// the teacher's lang/machine.Thread: a single-goroutine execution context
// with its own globals table and call stack, safe to run concurrently with
// other Threads that don't share a Table or Cell.
type Thread struct {
	Globals map[string]Value
	frames  []*frame
}

func NewThread() *Thread {
	return &Thread{Globals: Universe()}
}

// runtimeError is returned for conditions the compiler cannot rule out
// statically (calling a non-function, indexing a nil value, comparing
// incompatible types): exactly the class of failure Lua defers to runtime.
type runtimeError struct{ msg string }

func (e *runtimeError) Error() string { return e.msg }

func errf(format string, args ...any) error { return &runtimeError{fmt.Sprintf(format, args...)} }

// Run executes proto as a fresh top-level chunk (a vararg function with no
// upvalues) and returns whatever it returns.
func (th *Thread) Run(proto *compiler.Proto, args []Value) ([]Value, error) {
	cl := &Closure{Proto: proto}
	return th.call(cl, args)
}

// maxCallDepth bounds recursive interpreted calls, the reference
// interpreter's analogue of the compiler's own maxParseDepth guard: without
// it a runaway recursive Lua function would overflow the Go goroutine stack
// instead of failing with a catchable error.
const maxCallDepth = 200

func (th *Thread) call(cl *Closure, args []Value) ([]Value, error) {
	if len(th.frames) >= maxCallDepth {
		return nil, errf("stack overflow")
	}
	f := newFrame(cl)
	n := cl.Proto.NumParams
	for i := 0; i < n && i < len(args); i++ {
		f.regs[i] = args[i]
	}
	var varargs []Value
	if cl.Proto.IsVararg && len(args) > n {
		varargs = args[n:]
	}
	th.frames = append(th.frames, f)
	defer func() { th.frames = th.frames[:len(th.frames)-1] }()
	return th.exec(f, varargs)
}

// exec runs f's bytecode to completion (a RETURN instruction), dispatching
// one instruction at a time in the same switch-on-opcode style as the
// teacher's lang/machine run() loop, just over this package's simpler
// register-window Value model instead of the teacher's cell-spilling Frame.
func (th *Thread) exec(f *frame, varargs []Value) ([]Value, error) {
	code := f.closure.Proto.Code
	for {
		instr := code[f.pc]
		f.pc++

		op := instr.Opcode()
		a, b, c := instr.A(), instr.B(), instr.C()

		switch op {
		case compiler.OpMove:
			f.set(a, f.get(b))

		case compiler.OpLoadK:
			f.set(a, constantValue(f.closure.Proto.Constants[instr.Bx()]))

		case compiler.OpLoadBool:
			f.set(a, Bool(b != 0))
			if c != 0 {
				f.pc++
			}

		case compiler.OpLoadNil:
			for r := a; r <= b; r++ {
				f.set(r, Nil{})
			}

		case compiler.OpGetUpval:
			f.set(a, f.closure.Upvalues[b].V)

		case compiler.OpSetUpval:
			f.closure.Upvalues[b].V = f.get(a)

		case compiler.OpGetGlobal:
			name := f.closure.Proto.Constants[instr.Bx()].Str
			v, ok := th.Globals[name]
			if !ok {
				v = Nil{}
			}
			f.set(a, v)

		case compiler.OpSetGlobal:
			name := f.closure.Proto.Constants[instr.Bx()].Str
			th.Globals[name] = f.get(a)

		case compiler.OpGetTable:
			t, ok := f.get(b).(*Table)
			if !ok {
				return nil, errf("attempt to index a %s value", f.get(b).Type())
			}
			f.set(a, t.Get(f.rk(c)))

		case compiler.OpSetTable:
			t, ok := f.get(a).(*Table)
			if !ok {
				return nil, errf("attempt to index a %s value", f.get(a).Type())
			}
			t.Set(f.rk(b), f.rk(c))

		case compiler.OpNewTable:
			f.set(a, NewTable())

		case compiler.OpSelf:
			obj := f.get(b)
			t, ok := obj.(*Table)
			if !ok {
				return nil, errf("attempt to index a %s value", obj.Type())
			}
			f.set(a+1, obj)
			f.set(a, t.Get(f.rk(c)))

		case compiler.OpAdd, compiler.OpSub, compiler.OpMul, compiler.OpDiv, compiler.OpMod, compiler.OpPow:
			x, ok1 := f.rk(b).(Number)
			y, ok2 := f.rk(c).(Number)
			if !ok1 || !ok2 {
				return nil, errf("attempt to perform arithmetic on a non-number value")
			}
			f.set(a, arith(op, x, y))

		case compiler.OpUnm:
			x, ok := f.get(b).(Number)
			if !ok {
				return nil, errf("attempt to perform arithmetic on a non-number value")
			}
			f.set(a, -x)

		case compiler.OpNot:
			f.set(a, Bool(!f.get(b).Truth()))

		case compiler.OpLen:
			switch v := f.get(b).(type) {
			case *Table:
				f.set(a, Number(v.Len()))
			case String:
				f.set(a, Number(len(v)))
			default:
				return nil, errf("attempt to get length of a %s value", v.Type())
			}

		case compiler.OpConcat:
			var s string
			for r := b; r <= c; r++ {
				s += valueToString(f.get(r))
			}
			f.set(a, String(s))

		case compiler.OpJmp:
			f.pc += instr.SBx()

		case compiler.OpEq:
			eq := valuesEqual(f.rk(b), f.rk(c))
			if eq != (a != 0) {
				f.pc++
			}

		case compiler.OpLt, compiler.OpLe:
			lt, le, err := compareNumbers(f.rk(b), f.rk(c))
			if err != nil {
				return nil, err
			}
			cond := lt
			if op == compiler.OpLe {
				cond = le
			}
			if cond != (a != 0) {
				f.pc++
			}

		case compiler.OpTest:
			if f.get(a).Truth() != (c != 0) {
				f.pc++
			}

		case compiler.OpTestSet:
			if f.get(b).Truth() == (c != 0) {
				f.set(a, f.get(b))
			} else {
				f.pc++
			}

		case compiler.OpCall, compiler.OpTailCall:
			nargs := b - 1
			var args []Value
			if b == 0 {
				args = collectToTop(f, a+1)
			} else {
				args = make([]Value, nargs)
				for i := 0; i < nargs; i++ {
					args[i] = f.get(a + 1 + i)
				}
			}
			results, err := th.callValue(f.get(a), args)
			if err != nil {
				return nil, err
			}
			if op == compiler.OpTailCall {
				return results, nil
			}
			storeResults(f, a, c, results)

		case compiler.OpReturn:
			if b == 0 {
				return collectToTop(f, a), nil
			}
			return copyRange(f, a, b-1), nil

		case compiler.OpForPrep:
			idx, _ := f.get(a).(Number)
			step, _ := f.get(a + 2).(Number)
			f.set(a, idx-step)
			f.pc += instr.SBx()

		case compiler.OpForLoop:
			idx, _ := f.get(a).(Number)
			limit, _ := f.get(a + 1).(Number)
			step, _ := f.get(a + 2).(Number)
			idx += step
			f.set(a, idx)
			if (step >= 0 && idx <= limit) || (step < 0 && idx >= limit) {
				f.set(a+3, idx)
				f.pc += instr.SBx()
			}

		case compiler.OpTForLoop:
			gen, _ := f.get(a).(*Closure)
			state := f.get(a + 1)
			control := f.get(a + 2)
			var results []Value
			var err error
			if gen != nil {
				results, err = th.call(gen, []Value{state, control})
			} else if gf, ok := f.get(a).(*GoFunc); ok {
				results, err = gf.Fn(th, []Value{state, control})
			} else {
				return nil, errf("attempt to call a %s value", f.get(a).Type())
			}
			if err != nil {
				return nil, err
			}
			storeResults(f, a+3, c+1, results)
			if len(results) == 0 || isNilValue(results[0]) {
				f.pc++ // skip the JMP back to the loop top: iteration is done
			} else {
				f.set(a+2, results[0])
			}

		case compiler.OpSetList:
			t, ok := f.get(a).(*Table)
			if !ok {
				return nil, errf("attempt to index a %s value", f.get(a).Type())
			}
			n := b
			var vals []Value
			if n == 0 {
				vals = collectToTop(f, a+1)
			} else {
				vals = make([]Value, n)
				for i := 0; i < n; i++ {
					vals[i] = f.get(a + 1 + i)
				}
			}
			base := (c - 1) * 50 // fieldsPerFlush, mirrored from lang/compiler/tableclosure.go
			for i, v := range vals {
				t.Set(Number(base+i+1), v)
			}

		case compiler.OpClose:
			f.close(a)

		case compiler.OpClosure:
			child := f.closure.Proto.Protos[instr.Bx()]
			cl := &Closure{Proto: child, Upvalues: make([]*Cell, len(child.Upvalues))}
			for i, ud := range child.Upvalues {
				upInstr := code[f.pc]
				f.pc++
				if ud.InStack {
					cl.Upvalues[i] = f.cellFor(upInstr.B())
				} else {
					cl.Upvalues[i] = f.closure.Upvalues[upInstr.B()]
				}
			}
			f.set(a, cl)

		case compiler.OpVararg:
			if b == 0 {
				for i, v := range varargs {
					f.set(a+i, v)
				}
				f.lastMultRetEnd = a + len(varargs)
			} else {
				for i := 0; i < b-1; i++ {
					if i < len(varargs) {
						f.set(a+i, varargs[i])
					} else {
						f.set(a+i, Nil{})
					}
				}
			}

		default:
			return nil, errf("unimplemented opcode %s", op)
		}
	}
}

func (th *Thread) callValue(v Value, args []Value) ([]Value, error) {
	switch fn := v.(type) {
	case *Closure:
		return th.call(fn, args)
	case *GoFunc:
		return fn.Fn(th, args)
	default:
		return nil, errf("attempt to call a %s value", v.Type())
	}
}

func storeResults(f *frame, base, c int, results []Value) {
	if c == 0 {
		// multret destination: caller relies on collectToTop seeing these via
		// the frame's logical top, approximated here by writing every result
		// starting at base (sufficient for the immediately-following
		// instruction to read them back with collectToTop).
		for i, v := range results {
			f.set(base+i, v)
		}
		f.lastMultRetEnd = base + len(results)
		return
	}
	nresults := c - 1
	for i := 0; i < nresults; i++ {
		if i < len(results) {
			f.set(base+i, results[i])
		} else {
			f.set(base+i, Nil{})
		}
	}
}

func collectToTop(f *frame, from int) []Value {
	end := f.lastMultRetEnd
	if end < from {
		end = from
	}
	out := make([]Value, 0, end-from)
	for i := from; i < end; i++ {
		out = append(out, f.get(i))
	}
	return out
}

func copyRange(f *frame, from, n int) []Value {
	out := make([]Value, n)
	for i := 0; i < n; i++ {
		out[i] = f.get(from + i)
	}
	return out
}

func isNilValue(v Value) bool { _, ok := v.(Nil); return ok }

func arith(op compiler.Opcode, x, y Number) Number {
	switch op {
	case compiler.OpAdd:
		return x + y
	case compiler.OpSub:
		return x - y
	case compiler.OpMul:
		return x * y
	case compiler.OpDiv:
		return x / y
	case compiler.OpMod:
		m := float64(x) - math.Floor(float64(x)/float64(y))*float64(y)
		return Number(m)
	case compiler.OpPow:
		return Number(math.Pow(float64(x), float64(y)))
	default:
		return 0
	}
}

func valuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Nil:
		_, ok := b.(Nil)
		return ok
	default:
		return a == b
	}
}

func compareNumbers(a, b Value) (lt, le bool, err error) {
	av, ok1 := a.(Number)
	bv, ok2 := b.(Number)
	if ok1 && ok2 {
		return av < bv, av <= bv, nil
	}
	as, ok3 := a.(String)
	bs, ok4 := b.(String)
	if ok3 && ok4 {
		return as < bs, as <= bs, nil
	}
	return false, false, errf("attempt to compare %s with %s", a.Type(), b.Type())
}

func valueToString(v Value) string { return v.String() }
