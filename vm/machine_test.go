package vm_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/nenuphar/lang/compiler"
	"github.com/mna/nenuphar/vm"
)

func run(t *testing.T, src string) []vm.Value {
	t.Helper()
	proto, err := compiler.Compile("test", []byte(src))
	require.NoError(t, err)
	th := vm.NewThread()
	results, err := th.Run(proto, nil)
	require.NoError(t, err)
	return results
}

func TestArithmetic(t *testing.T) {
	results := run(t, "return 1 + 2 * 3")
	require.Len(t, results, 1)
	require.Equal(t, vm.Number(7), results[0])
}

func TestConcatAndLocals(t *testing.T) {
	results := run(t, `
		local a = "hello"
		local b = "world"
		return a .. " " .. b
	`)
	require.Len(t, results, 1)
	require.Equal(t, vm.String("hello world"), results[0])
}

func TestIfElse(t *testing.T) {
	results := run(t, `
		local x = 10
		if x > 5 then
			return "big"
		else
			return "small"
		end
	`)
	require.Equal(t, vm.String("big"), results[0])
}

func TestNumericForAccumulates(t *testing.T) {
	results := run(t, `
		local sum = 0
		for i = 1, 5 do
			sum = sum + i
		end
		return sum
	`)
	require.Equal(t, vm.Number(15), results[0])
}

func TestTableConstructorAndIndex(t *testing.T) {
	results := run(t, `
		local t = {10, 20, 30, x = "y"}
		return t[2], t.x
	`)
	require.Equal(t, vm.Number(20), results[0])
	require.Equal(t, vm.String("y"), results[1])
}

func TestClosureCapturesUpvalue(t *testing.T) {
	results := run(t, `
		local function counter()
			local n = 0
			return function()
				n = n + 1
				return n
			end
		end
		local c = counter()
		c()
		c()
		return c()
	`)
	require.Equal(t, vm.Number(3), results[0])
}

func TestTableConstructorFiftyElementFlushBoundary(t *testing.T) {
	var src strings.Builder
	src.WriteString("local t = {")
	for i := 1; i <= 50; i++ {
		if i > 1 {
			src.WriteString(", ")
		}
		src.WriteString(strconv.Itoa(i))
	}
	src.WriteString("}\nreturn t[1], t[50]")

	results := run(t, src.String())
	require.Equal(t, vm.Number(1), results[0])
	require.Equal(t, vm.Number(50), results[1])
}

func TestAssignListIndexedTargetConflict(t *testing.T) {
	results := run(t, `
		local t = {}
		local i = 1
		t[i], i = 99, 2
		return t[1], t[2], i
	`)
	require.Equal(t, vm.Number(99), results[0])
	require.Equal(t, vm.Nil{}, results[1])
	require.Equal(t, vm.Number(2), results[2])
}

func TestAndOrShortCircuit(t *testing.T) {
	results := run(t, `
		local a = nil
		local b = a and a.field or "fallback"
		return b
	`)
	require.Equal(t, vm.String("fallback"), results[0])
}
