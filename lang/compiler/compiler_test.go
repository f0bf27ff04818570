package compiler_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/nenuphar/lang/compiler"
)

func TestCompileReturnsMainProto(t *testing.T) {
	proto, err := compiler.Compile("chunk", []byte(`return 1 + 2`))
	require.NoError(t, err)
	require.NotNil(t, proto)
	require.True(t, proto.IsVararg, "the top-level chunk is always an implicit vararg function")
	require.Equal(t, 0, proto.NumParams)
	require.NotEmpty(t, proto.Code)
}

func TestCompileConstantDedup(t *testing.T) {
	// addK dedup: the same numeric literal used twice must share one pool slot.
	proto, err := compiler.Compile("chunk", []byte(`
		local a = 10
		local b = 10
		return a, b
	`))
	require.NoError(t, err)

	count := 0
	for _, k := range proto.Constants {
		if k.Kind == compiler.ValNumber && k.Num == 10 {
			count++
		}
	}
	require.Equal(t, 1, count, "identical literal constants must be deduplicated in the constant pool")
}

func TestCompileNestedFunctionProducesChildProto(t *testing.T) {
	proto, err := compiler.Compile("chunk", []byte(`
		local function f(x)
			return x + 1
		end
		return f
	`))
	require.NoError(t, err)
	require.Len(t, proto.Protos, 1)
	require.Equal(t, 1, proto.Protos[0].NumParams)
}

func TestCompileSyntaxErrorReportsPosition(t *testing.T) {
	_, err := compiler.Compile("chunk", []byte(`local x = `))
	require.Error(t, err)
	require.Contains(t, err.Error(), "chunk:1:")
}

func TestCompileUnclosedBlockIsError(t *testing.T) {
	_, err := compiler.Compile("chunk", []byte(`if true then return 1`))
	require.Error(t, err)
}

func TestCompileTooDeeplyNestedExpressionIsError(t *testing.T) {
	// maxParseDepth guards against a pathological run of nested parens
	// blowing the Go call stack; 500 opens comfortably exceeds the limit.
	src := "local x = "
	for i := 0; i < 500; i++ {
		src += "("
	}
	src += "1"
	for i := 0; i < 500; i++ {
		src += ")"
	}
	_, err := compiler.Compile("chunk", []byte(src))
	require.Error(t, err)
}

func TestCompileGenericForLoop(t *testing.T) {
	proto, err := compiler.Compile("chunk", []byte(`
		for k, v in pairs(t) do
			print(k, v)
		end
	`))
	require.NoError(t, err)

	found := false
	for _, instr := range proto.Code {
		if instr.Opcode() == compiler.OpTForLoop {
			found = true
			break
		}
	}
	require.True(t, found, "a generic for loop must emit a TFORLOOP instruction")
}

func TestCompileNumericForLoopEmitsForPrepAndForLoop(t *testing.T) {
	proto, err := compiler.Compile("chunk", []byte(`
		for i = 1, 10 do
		end
	`))
	require.NoError(t, err)

	var sawPrep, sawLoop bool
	for _, instr := range proto.Code {
		switch instr.Opcode() {
		case compiler.OpForPrep:
			sawPrep = true
		case compiler.OpForLoop:
			sawLoop = true
		}
	}
	require.True(t, sawPrep)
	require.True(t, sawLoop)
}

func TestCompileMultipleAssignmentOrder(t *testing.T) {
	// Lua evaluates the RHS list then stores right-to-left; just assert it
	// compiles cleanly and produces at least one SETGLOBAL per target.
	proto, err := compiler.Compile("chunk", []byte(`a, b = b, a`))
	require.NoError(t, err)

	setGlobals := 0
	for _, instr := range proto.Code {
		if instr.Opcode() == compiler.OpSetGlobal {
			setGlobals++
		}
	}
	require.Equal(t, 2, setGlobals)
}

func TestCompileBreakOutsideLoopIsError(t *testing.T) {
	_, err := compiler.Compile("chunk", []byte(`break`))
	require.Error(t, err)
}

func TestCompileSetListBlockIndexAtFlushBoundary(t *testing.T) {
	// A table literal with exactly fieldsPerFlush (50) array elements must
	// flush into SETLIST block 1 (C == 1), not block 2: (na-1)/50+1 for
	// na == 50 is 1, whereas the buggy na/50+1 formula gives 2 and would
	// have the VM write these elements into slots 51-100 instead of 1-50.
	var src strings.Builder
	src.WriteString("local t = {")
	for i := 0; i < 50; i++ {
		if i > 0 {
			src.WriteString(", ")
		}
		src.WriteString("1")
	}
	src.WriteString("}\nreturn t")

	proto, err := compiler.Compile("chunk", []byte(src.String()))
	require.NoError(t, err)

	found := false
	for _, instr := range proto.Code {
		if instr.Opcode() == compiler.OpSetList {
			require.Equal(t, 1, instr.C(), "50 array elements must flush as SETLIST block 1")
			found = true
		}
	}
	require.True(t, found, "a 50-element table literal must emit a SETLIST instruction")
}

func TestDisassembleProducesListing(t *testing.T) {
	proto, err := compiler.Compile("chunk", []byte(`return 1`))
	require.NoError(t, err)

	out := compiler.Disassemble(proto)
	require.Contains(t, out, "function <chunk:")
	require.Contains(t, out, "RETURN")
}
