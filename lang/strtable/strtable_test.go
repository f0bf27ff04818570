package strtable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInternDedup(t *testing.T) {
	var t1 Table
	a := t1.Intern("hello")
	b := t1.Intern("hello")
	c := t1.Intern("world")

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Equal(t, "hello", a.String())
	require.Equal(t, "world", c.String())
}

func TestZeroHandle(t *testing.T) {
	var h Handle
	require.Equal(t, "", h.String())
}
