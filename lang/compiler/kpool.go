package compiler

// addK interns a constant Value into the function's constant pool,
// returning its index. Identical constants (by kind and value) share a
// single slot, mirroring Lua's anchor_token/luaK_stringK/luaK_numberK
// dedup via the function's hash table of constants.
func (fs *FuncState) addK(v Value) int {
	if i, ok := fs.kCache.Get(v); ok {
		return i
	}
	i := len(fs.proto.Constants)
	fs.proto.Constants = append(fs.proto.Constants, v)
	fs.kCache.Put(v, i)
	return i
}

func (fs *FuncState) stringK(s string) int  { return fs.addK(Value{Kind: ValString, Str: s}) }
func (fs *FuncState) numberK(n float64) int { return fs.addK(Value{Kind: ValNumber, Num: n}) }

// checkStack grows MaxStackSize if register use reaches n, and panics via
// the compiler's error path if the function would need more registers than
// the instruction format's 8-bit A field can address.
func (fs *FuncState) checkStack(n int) {
	newStack := fs.freeReg + n
	if newStack > fs.proto.MaxStackSize {
		if newStack >= maxArgA {
			fs.comp.errorf(NoPos, "function or expression needs too many registers")
		}
		fs.proto.MaxStackSize = newStack
	}
}

// reserveRegs reserves n registers above the current free register,
// growing MaxStackSize through checkStack as needed; the caller places
// values starting at the old freeReg.
func (fs *FuncState) reserveRegs(n int) {
	fs.checkStack(n)
	fs.freeReg += n
}

// freeReg1 frees register reg if it is a temporary (at or above the first
// non-local register) and is exactly the top of the free-register stack;
// Lua's register allocator is a strict LIFO stack, so freeing anything else
// would be a bookkeeping bug in the caller.
func (fs *FuncState) freeReg1(reg int) {
	if reg >= fs.nactvar && reg == fs.freeReg-1 {
		fs.freeReg--
	}
}

// freeExp frees the register(s) an expDesc occupies, if it is a temporary
// (expNonReloc only; other kinds don't hold a register yet).
func (fs *FuncState) freeExp(e *expDesc) {
	if e.kind == expNonReloc {
		fs.freeReg1(e.info)
	}
}

// freeExp2 frees two expressions' registers, higher register first: the
// allocator is a strict LIFO stack, so freeing the lower of two adjacent
// temporaries before the higher one would silently no-op (freeReg1 only
// ever pops the current top), leaking the higher register.
func (fs *FuncState) freeExp2(e1, e2 *expDesc) {
	if e1.kind == expNonReloc && e2.kind == expNonReloc && e1.info < e2.info {
		fs.freeExp(e2)
		fs.freeExp(e1)
		return
	}
	fs.freeExp(e1)
	fs.freeExp(e2)
}
