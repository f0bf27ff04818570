// Package vm is a small reference interpreter for the bytecode produced by
// lang/compiler, grounded in the teacher's lang/machine dispatch loop and
// runtime value hierarchy (lang/types, lang/machine/value.go). It exists so
// that the compiler's behavioral properties (short-circuit evaluation,
// the worked scenarios of table construction, closures and multi-value
// assignment) can be exercised end to end in tests. lang/compiler never
// imports this package: the bytecode format is the only contract between
// them.
package vm

import (
	"fmt"
	"strconv"

	"github.com/dolthub/swiss"
	"github.com/mna/nenuphar/lang/compiler"
)

// Value is any runtime value a running chunk may hold in a register, an
// upvalue cell, a table slot or a global. The minimal three-method surface
// (String/Type/Truth) mirrors lang/machine/value.go's Value interface,
// trimmed to what a Lua 5.1 semantics reference run actually needs: no
// metatables, no custom equality hooks, no freeze/thaw lifecycle.
type Value interface {
	String() string
	Type() string
	// Truth reports whether the value counts as true in a boolean context:
	// everything except nil and false is truthy, exactly Lua 5.1's rule.
	Truth() bool
}

// Nil is Lua's nil, the zero value of no declared local or global.
type Nil struct{}

func (Nil) String() string { return "nil" }
func (Nil) Type() string   { return "nil" }
func (Nil) Truth() bool    { return false }

// Bool is a Lua boolean.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) Type() string { return "boolean" }
func (b Bool) Truth() bool { return bool(b) }

// Number is Lua 5.1's single numeric type: every number, integer or
// floating point alike, is a float64.
type Number float64

func (n Number) String() string { return strconv.FormatFloat(float64(n), 'g', -1, 64) }
func (Number) Type() string     { return "number" }
func (Number) Truth() bool      { return true }

// String is a Lua string value.
type String string

func (s String) String() string { return string(s) }
func (String) Type() string     { return "string" }
func (String) Truth() bool      { return true }

// Table is Lua's only structured data type: a hybrid array/hash. Small
// positive-integer keys starting at 1 live in the dense array part; every
// other key goes through the hash part, backed by the same open-addressing
// swiss.Map the teacher's lang/machine.Map uses, since a table is exercised
// here exactly the way the teacher's Map is (hash lookups keyed by an
// arbitrary comparable Value).
type Table struct {
	array []Value
	hash  *swiss.Map[Value, Value]
}

func NewTable() *Table {
	return &Table{hash: swiss.NewMap[Value, Value](0)}
}

func (t *Table) String() string { return fmt.Sprintf("table: %p", t) }
func (*Table) Type() string     { return "table" }
func (*Table) Truth() bool      { return true }

// Get implements table[key] read access, checking the array part first for
// integer keys within its current bounds.
func (t *Table) Get(key Value) Value {
	if n, ok := key.(Number); ok {
		if idx := int(n); float64(idx) == float64(n) && idx >= 1 && idx <= len(t.array) {
			return t.array[idx-1]
		}
	}
	if v, ok := t.hash.Get(key); ok {
		return v
	}
	return Nil{}
}

// Set implements table[key] = value, growing the array part by one past its
// current length when key is exactly len(array)+1, matching Lua's common
// case of sequential array construction (SETLIST relies on this).
func (t *Table) Set(key, val Value) {
	if n, ok := key.(Number); ok {
		idx := int(n)
		if float64(idx) == float64(n) && idx >= 1 {
			switch {
			case idx <= len(t.array):
				t.array[idx-1] = val
				return
			case idx == len(t.array)+1:
				t.array = append(t.array, val)
				return
			}
		}
	}
	if _, isNil := val.(Nil); isNil {
		t.hash.Delete(key)
		return
	}
	t.hash.Put(key, val)
}

// Len mirrors Lua's '#' operator on a table restricted to its array part
// (Lua's border semantics are famously underspecified for tables with
// holes; this reference interpreter only needs the common, hole-free case).
func (t *Table) Len() int { return len(t.array) }

// Closure is a compiled function paired with the upvalue cells it captured
// at the point its enclosing CLOSURE instruction ran.
type Closure struct {
	Proto    *compiler.Proto
	Upvalues []*Cell
}

func (c *Closure) String() string { return fmt.Sprintf("function: %p", c) }
func (*Closure) Type() string     { return "function" }
func (*Closure) Truth() bool      { return true }

// GoFunc is a builtin implemented in Go, callable from interpreted code the
// same way a Closure is (print, the base library, etc.).
type GoFunc struct {
	Name string
	Fn   func(th *Thread, args []Value) ([]Value, error)
}

func (f *GoFunc) String() string { return fmt.Sprintf("builtin: %s", f.Name) }
func (*GoFunc) Type() string     { return "function" }
func (*GoFunc) Truth() bool      { return true }

// Cell is a shared, heap-allocated box for a register that has been
// captured as an upvalue by a nested closure, the same indirection the
// teacher's lang/machine/cell.go spills locals to.
type Cell struct{ V Value }
