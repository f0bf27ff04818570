package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMakePosLineCol(t *testing.T) {
	p := MakePos(12, 34)
	line, col := p.LineCol()
	require.Equal(t, 12, line)
	require.Equal(t, 34, col)
	require.False(t, p.Unknown())
	require.True(t, NoPos.Unknown())
}

func TestFormatPos(t *testing.T) {
	fset := NewFileSet()
	f := fset.AddFile("test", -1, 10)

	require.Equal(t, "test:-:-", FormatPos(PosLong, f, NoPos, true))
	require.Equal(t, "-", FormatPos(PosOffsets, f, NoPos, true))
	require.Equal(t, "0", FormatPos(PosRaw, f, NoPos, true))
	require.Equal(t, "", FormatPos(PosNone, f, NoPos, true))

	p := MakePos(1, 1)
	require.Equal(t, "test:1:1", FormatPos(PosLong, f, p, true))
	require.Equal(t, "0:0", FormatPos(PosOffsets, f, p, true))

	p2 := MakePos(3, 4)
	require.Equal(t, ":3:4", FormatPos(PosLong, f, p2, false))
}
