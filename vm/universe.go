package vm

import "fmt"

// Universe mirrors the teacher's lang/machine.Universe: the fixed set of
// global builtins every Thread starts with, populated into Thread.Globals
// by NewThread. Unlike the teacher's name-resolution-time Universe (used by
// its resolver to tell a global builtin apart from an undeclared name),
// this is purely a runtime convenience: the single-pass compiler has no
// resolver pass, so an unrecognized global is simply Nil until Run defines
// it.
func Universe() map[string]Value {
	return map[string]Value{
		"print": &GoFunc{Name: "print", Fn: builtinPrint},
		"type":  &GoFunc{Name: "type", Fn: builtinType},
	}
}

func builtinPrint(th *Thread, args []Value) ([]Value, error) {
	for i, a := range args {
		if i > 0 {
			fmt.Print("\t")
		}
		fmt.Print(a.String())
	}
	fmt.Println()
	return nil, nil
}

func builtinType(th *Thread, args []Value) ([]Value, error) {
	if len(args) == 0 {
		return []Value{Nil{}}, nil
	}
	return []Value{String(args[0].Type())}, nil
}
