package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenString(t *testing.T) {
	for tok := Token(0); tok < maxToken; tok++ {
		require.NotEmpty(t, tok.String(), "token %d missing String()", tok)
	}
}

func TestLookupKw(t *testing.T) {
	for tok := Token(0); tok < maxToken; tok++ {
		want := tok.IsKeyword()
		got := LookupKw(tok.String()) == tok && want
		if want {
			require.Equal(t, tok, LookupKw(tok.String()))
		} else {
			require.NotEqual(t, tok, got)
		}
	}
	require.Equal(t, NAME, LookupKw("notakeyword"))
	require.Equal(t, WHILE, LookupKw("while"))
}

func TestGoString(t *testing.T) {
	require.Equal(t, "'+'", PLUS.GoString())
	require.Equal(t, "name", NAME.GoString())
	require.Equal(t, "while", WHILE.GoString())
}
