package compiler

import "github.com/mna/nenuphar/lang/token"

// fieldsPerFlush mirrors Lua's LFIELDS_PER_FLUSH: array-style table
// constructor fields are buffered in consecutive registers and flushed to
// the table with SETLIST in batches of this size, rather than one
// SETTABLE per element, so {1,2,3,...} stays O(1) instructions per flush
// instead of O(n).
const fieldsPerFlush = 50

// consState accumulates a table constructor's array/hash field counts and
// the still-unflushed trailing array expression, mirroring lparser.c's
// ConsControl.
type consState struct {
	t       *expDesc
	pending expDesc // last parsed array-style field, not yet placed in a register
	na      int     // total array fields seen
	nh      int     // total hash (key=value) fields seen
	toStore int      // array fields pending a SETLIST flush
}

// tableConstructor parses '{' [fieldlist] '}'. The table itself is placed
// in a fresh register immediately (before any field is parsed) because
// nested constructors and function calls inside field values need a stable
// base to address into.
func (p *parser) tableConstructor() expDesc {
	line := p.line()
	pc := j.emitABC(p.fs, OpNewTable, 0, 0, 0)

	var t expDesc
	t.init(expReloc, pc)
	p.fs.expToNextReg(&t)

	cc := consState{t: &t}
	cc.pending.init(expVoid, 0)

	p.expect(token.LBRACE)
	for p.tok != token.RBRACE {
		p.closeListField(&cc)
		switch p.tok {
		case token.LBRACK:
			p.recField(&cc)
		case token.NAME:
			if p.peek() == token.ASSIGN {
				p.recNameField(&cc)
			} else {
				p.listField(&cc)
			}
		default:
			p.listField(&cc)
		}
		if p.tok != token.COMMA && p.tok != token.SEMI {
			break
		}
		p.next()
	}
	p.expectMatch(token.RBRACE, token.LBRACE, line)
	p.lastListField(&cc)

	// Record final array/hash size hints now that every field was counted.
	fs := p.fs
	na, nh := cc.na, cc.nh
	if na > 255 {
		na = 255
	}
	if nh > 255 {
		nh = 255
	}
	fs.proto.Code[pc] = createABC(OpNewTable, fs.proto.Code[pc].argA(), na, nh)
	return t
}

// closeListField flushes a previously parsed array-style field (stored in
// cc.pending) into the next register, batching SETLIST emission once
// fieldsPerFlush pending values accumulate.
func (p *parser) closeListField(cc *consState) {
	if cc.pending.kind == expVoid {
		return
	}
	p.fs.expToNextReg(&cc.pending)
	cc.pending.init(expVoid, 0)
	if cc.toStore == fieldsPerFlush {
		j.emitSetList(p.fs, cc.t.info, cc.na, cc.toStore)
		cc.toStore = 0
	}
}

// listField parses one positional (array-style) field.
func (p *parser) listField(cc *consState) {
	cc.pending = p.expr()
	cc.na++
	cc.toStore++
}

// recField parses a `[key] = value` field.
func (p *parser) recField(cc *consState) {
	p.next() // '['
	key := p.expr()
	p.expect(token.RBRACK)
	p.expect(token.ASSIGN)
	val := p.expr()
	idx := p.fs.indexField(cc.t, &key)
	p.fs.storeVar(&idx, &val)
	cc.nh++
}

// recNameField parses a `name = value` field, the sugared form of
// `["name"] = value`.
func (p *parser) recNameField(cc *consState) {
	name := p.expectName()
	var key expDesc
	key.init(expK, p.fs.stringK(name))
	p.expect(token.ASSIGN)
	val := p.expr()
	idx := p.fs.indexField(cc.t, &key)
	p.fs.storeVar(&idx, &val)
	cc.nh++
}

// lastListField flushes whatever array fields remain pending once the
// constructor closes. If the very last field can yield multiple results
// (a call or "..." in tail position), all of its results become array
// elements via a MULTRET-style SETLIST, matching `{f()}` expanding f's
// entire result list.
func (p *parser) lastListField(cc *consState) {
	if cc.toStore == 0 {
		return
	}
	if cc.pending.hasMultRet() {
		setMultRet(p.fs, &cc.pending)
		j.emitSetList(p.fs, cc.t.info, cc.na, multRet)
		return
	}
	if cc.pending.kind != expVoid {
		p.fs.expToNextReg(&cc.pending)
	}
	j.emitSetList(p.fs, cc.t.info, cc.na, cc.toStore)
}

// multRet is SETLIST's sentinel B/C value meaning "as many as are on the
// stack", i.e. Lua's LUA_MULTRET, here encoded as 0.
const multRet = 0

// setMultRet adjusts the last CALL/VARARG in e to yield every result it
// has rather than being truncated to one, used whenever an expression sits
// in a tail position that can consume a variable number of values (the
// last table-constructor field, the last argument to a call, or a return
// statement's last expression).
func setMultRet(fs *FuncState, e *expDesc) {
	if e.kind == expCall {
		i := fs.proto.Code[e.info]
		fs.proto.Code[e.info] = createABC(i.opcode(), i.argA(), i.argB(), 0)
	} else if e.kind == expVararg {
		i := fs.proto.Code[e.info]
		fs.proto.Code[e.info] = createABC(i.opcode(), i.argA(), 0, i.argC())
	}
}

// emitSetList emits SETLIST for na total array elements, the last
// toStore of which are sitting in the toStore registers just above the
// table's own register (or, when toStore == multRet, "every value above
// the table register").
func (j *jumpState) emitSetList(fs *FuncState, tableReg, na, toStore int) {
	j.emitABC(fs, OpSetList, tableReg, toStore, (na-1)/fieldsPerFlush+1)
	fs.freeReg = tableReg + 1
}

// expectMatch is expect but reports the opening token's line when the
// closer is missing, matching Lua's nicer "'}' expected (to close '{' at
// line N)" diagnostics.
func (p *parser) expectMatch(want, opener token.Token, openLine int) {
	if p.tok != want {
		if openLine == p.line() {
			p.errorf("'%s' expected near '%s'", want, p.tok)
		} else {
			p.errorf("'%s' expected (to close '%s' at line %d) near '%s'", want, opener, openLine, p.tok)
		}
	}
	p.next()
}

// funcBody parses a function's parameter list and body, compiling it into
// a nested Proto and leaving a CLOSURE expression (capturing whatever
// upvalues the nested function resolved) in the enclosing function.
// isMethod prepends an implicit "self" parameter, for `function t:m(...)`.
func (p *parser) funcBody(isMethod bool, line int) expDesc {
	parent := p.fs
	fs := newFuncState(p.comp, parent, parent.proto.Source, line)
	p.fs = fs
	fs.enterBlock(false)

	p.expect(token.LPAREN)
	if isMethod {
		fs.newLocal("self")
		fs.adjustLocalVars(1)
		fs.reserveRegs(1)
	}
	if p.tok != token.RPAREN {
		for {
			if p.tok == token.ELLIPSIS {
				fs.proto.IsVararg = true
				p.next()
				break
			}
			name := p.expectName()
			fs.newLocal(name)
			fs.adjustLocalVars(1)
			fs.reserveRegs(1)
			fs.proto.NumParams++
			if p.tok != token.COMMA {
				break
			}
			p.next()
		}
	}
	p.expect(token.RPAREN)

	p.block()
	fs.proto.LastLineDefined = p.line()
	p.expect(token.END)

	fs.leaveBlock()
	j.emitABC(fs, OpReturn, 0, 1, 0)

	child := fs.proto
	parent.proto.Protos = append(parent.proto.Protos, child)
	bx := len(parent.proto.Protos) - 1

	p.fs = parent
	pc := j.emitABx(parent, OpClosure, 0, bx)

	// One pseudo-instruction per upvalue the child captured follows the
	// CLOSURE, telling the VM where to find each at closure-creation time:
	// MOVE from a parent register, or GETUPVAL from one of the parent's
	// own upvalues. These never execute as normal code; the VM's CLOSURE
	// handler consumes exactly len(child.Upvalues) of them itself.
	for _, u := range child.Upvalues {
		if u.InStack {
			j.emitABC(parent, OpMove, 0, u.Index, 0)
		} else {
			j.emitABC(parent, OpGetUpval, 0, u.Index, 0)
		}
	}

	var e expDesc
	e.init(expReloc, pc)
	return e
}

// callArgs parses a call's argument list in any of its three surface forms
// (parenthesized expression list, a single string literal, or a single
// table constructor) and emits the CALL instruction, leaving an expCall
// descriptor the caller can discharge (directly, for a statement-level
// call) or adjust via dischargeVars/setMultRet.
func (p *parser) callArgs(f expDesc, isMethod bool) expDesc {
	fs := p.fs
	// f is already placed at a fixed register by the time callArgs runs:
	// selfExpr reserved R(A),R(A+1) for a method call, and suffixedExp's
	// plain-call case discharged f to the next register beforehand,
	// mirroring Lua's luaK_exp2nextreg(fs, &f) at the top of funcargs.
	funcReg := f.info
	line := p.line()
	nargs := 0
	var argsMultRet bool

	switch p.tok {
	case token.LPAREN:
		p.next()
		if p.tok != token.RPAREN {
			nargs, argsMultRet = p.expList()
		}
		p.expect(token.RPAREN)
	case token.STRING:
		var e expDesc
		e.init(expK, fs.stringK(p.val.String))
		p.next()
		fs.expToNextReg(&e)
		nargs = 1
	case token.LBRACE:
		e := p.tableConstructor()
		fs.expToNextReg(&e)
		nargs = 1
	default:
		p.errorf("function arguments expected")
	}

	if isMethod {
		nargs++ // implicit self, already placed by selfExpr
	}

	b := nargs + 1
	if argsMultRet {
		b = 0
	}
	pc := j.emitABC(fs, OpCall, funcReg, b, 2)
	fs.proto.LineInfo[pc] = line
	fs.freeReg = funcReg + 1

	var e expDesc
	e.init(expCall, pc)
	return e
}

// expList parses a comma-separated expression list, returning how many
// expressions were placed in registers and whether the last one can expand
// to multiple results (a call or "...", in which case it is left
// un-truncated via setMultRet for the caller, typically callArgs, to use
// as the tail of a register range).
func (p *parser) expList() (n int, multi bool) {
	fs := p.fs
	e := p.expr()
	n = 1
	for p.tok == token.COMMA {
		fs.expToNextReg(&e)
		p.next()
		e = p.expr()
		n++
	}
	if e.hasMultRet() {
		setMultRet(fs, &e)
		multi = true
		return n, multi
	}
	fs.expToNextReg(&e)
	return n, false
}
