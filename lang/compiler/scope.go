package compiler

import "github.com/mna/nenuphar/lang/token"

// singleVar resolves a bare name to a local, an upvalue, or (failing both)
// a global, building the appropriate expDesc. This is the only place name
// resolution happens; every other reference to a variable goes through the
// expDesc it returns.
func (p *parser) singleVar(name string) expDesc {
	var e expDesc
	switch kind, idx := p.fs.resolveName(name); kind {
	case expLocal:
		e.init(expLocal, idx)
	case expUpval:
		e.init(expUpval, idx)
	default:
		e.init(expGlobal, 0)
		e.str = name
	}
	return e
}

// resolveName walks from fs outward through enclosing FuncStates looking
// for name as a local, turning it into an upvalue chain if found in an
// ancestor (marking every intermediate FuncState's corresponding local as
// captured so leaveBlock knows to CLOSE it), and reports expGlobal if it is
// not found anywhere.
func (fs *FuncState) resolveName(name string) (expKind, int) {
	if reg, ok := fs.searchLocal(name); ok {
		return expLocal, reg
	}
	if idx, ok := fs.searchUpvalue(name); ok {
		return expUpval, idx
	}
	if fs.prev == nil {
		return expGlobal, 0
	}
	kind, idx := fs.prev.resolveName(name)
	switch kind {
	case expLocal:
		fs.prev.markUpval(idx)
		return expUpval, fs.addUpvalue(name, true, idx)
	case expUpval:
		return expUpval, fs.addUpvalue(name, false, idx)
	default:
		return expGlobal, 0
	}
}

// searchUpvalue looks for name among upvalues already captured by fs,
// returning its index if found, so that capturing the same outer variable
// twice reuses a single upvalue slot.
func (fs *FuncState) searchUpvalue(name string) (int, bool) {
	for i, u := range fs.upvalues {
		if u.name == name {
			return i, true
		}
	}
	return 0, false
}

// addUpvalue appends a new upvalue descriptor, capturing either the
// parent's register (inStack true) or one of the parent's own upvalues.
func (fs *FuncState) addUpvalue(name string, inStack bool, index int) int {
	if len(fs.upvalues) >= maxUpvalues {
		fs.comp.errorf(NoPos, "too many upvalues in function")
	}
	fs.upvalues = append(fs.upvalues, upvalDesc{name: name, inStack: inStack, index: index})
	fs.proto.Upvalues = append(fs.proto.Upvalues, Upvaldesc{Name: name, InStack: inStack, Index: index})
	return len(fs.upvalues) - 1
}

// newLocalVar registers a new, not yet active local via newLocal and returns
// nothing; its debug info (LocVar) is recorded later by adjustLocals, which
// callers run once all of a declaration's locals have been registered.
func (p *parser) newLocalVar(name string) {
	p.fs.newLocal(name)
}

// adjustLocals activates the n most recently declared locals and records
// their StartPC for debug info. It does not reserve registers: callers
// that haven't already arranged for the locals' values to occupy
// registers freeReg..freeReg+n-1 (e.g. via adjustAssign) must reserve them
// separately.
func (p *parser) adjustLocals(n int) {
	fs := p.fs
	base := fs.nactvar
	fs.adjustLocalVars(n)
	for i := 0; i < n; i++ {
		lv := &fs.actVar[base+i]
		lv.locVarIdx = len(fs.proto.LocVars)
		fs.proto.LocVars = append(fs.proto.LocVars, LocVar{Name: lv.name, StartPC: fs.pc})
	}
}

// NoPos stands in for "no specific token position" in error calls that
// fire from register/upvalue bookkeeping rather than directly off a
// token, deferring to the parser's current line.
const NoPos = token.NoPos

// blockFollow reports whether tok can only appear right after a block,
// i.e. it is not itself the start of a statement: this is how the
// statement-list parser knows when to stop without a dedicated "end of
// block" token.
func blockFollow(tok token.Token) bool {
	switch tok {
	case token.ELSE, token.ELSEIF, token.END, token.UNTIL, token.EOS:
		return true
	default:
		return false
	}
}

// block parses a sequence of statements up to (but not including) a
// block-follow token, in the current lexical block (the caller is
// responsible for having called fs.enterBlock/leaveBlock around it).
func (p *parser) block() {
	p.enterLevel()
	defer p.leaveLevel()
	for !blockFollow(p.tok) {
		if p.tok == token.RETURN {
			p.returnStat()
			break
		}
		p.statement()
		p.fs.freeReg = p.fs.nactvar // a statement's temporaries die with it
	}
}
