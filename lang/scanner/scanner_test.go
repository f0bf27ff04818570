package scanner

import (
	"testing"

	"github.com/mna/nenuphar/lang/token"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []TokenAndValue {
	t.Helper()
	var s Scanner
	var tokVal token.Value
	var errs []string
	fs := token.NewFileSet()
	f := fs.AddFile("test.lua", -1, len(src))
	s.Init(f, []byte(src), func(pos token.Position, msg string) {
		errs = append(errs, msg)
	})
	var out []TokenAndValue
	for {
		tok := s.Scan(&tokVal)
		out = append(out, TokenAndValue{Token: tok, Value: tokVal})
		if tok == token.EOS {
			break
		}
	}
	require.Empty(t, errs)
	return out
}

func toks(items []TokenAndValue) []token.Token {
	out := make([]token.Token, len(items))
	for i, it := range items {
		out[i] = it.Token
	}
	return out
}

func TestScanKeywordsAndIdents(t *testing.T) {
	items := scanAll(t, "local x = foo and not bar")
	require.Equal(t, []token.Token{
		token.LOCAL, token.NAME, token.ASSIGN, token.NAME,
		token.AND, token.NOT, token.NAME, token.EOS,
	}, toks(items))
	require.Equal(t, "x", items[1].Value.String)
}

func TestScanNumbers(t *testing.T) {
	items := scanAll(t, "1 1.5 1e10 0x1A .5")
	for i := 0; i < 5; i++ {
		require.Equal(t, token.NUMBER, items[i].Token)
	}
	require.Equal(t, float64(1), items[0].Value.Number)
	require.True(t, items[0].Value.IsInt)
	require.Equal(t, 1.5, items[1].Value.Number)
	require.False(t, items[1].Value.IsInt)
	require.Equal(t, float64(26), items[3].Value.Number)
}

func TestScanShortString(t *testing.T) {
	items := scanAll(t, `"hello\nworld" 'single'`)
	require.Equal(t, token.STRING, items[0].Token)
	require.Equal(t, "hello\nworld", items[0].Value.String)
	require.Equal(t, token.STRING, items[1].Token)
	require.Equal(t, "single", items[1].Value.String)
}

func TestScanLongString(t *testing.T) {
	items := scanAll(t, "[[hello\nworld]] [==[a]]b]==]")
	require.Equal(t, token.STRING, items[0].Token)
	require.Equal(t, "hello\nworld", items[0].Value.String)
	require.Equal(t, token.STRING, items[1].Token)
	require.Equal(t, "a]]b", items[1].Value.String)
}

func TestScanComments(t *testing.T) {
	items := scanAll(t, "-- line comment\nlocal --[[ long\ncomment ]] x")
	require.Equal(t, []token.Token{token.LOCAL, token.NAME, token.EOS}, toks(items))
}

func TestScanOperators(t *testing.T) {
	items := scanAll(t, "== ~= <= >= < > = .. ... . : ; , # ^")
	require.Equal(t, []token.Token{
		token.EQ, token.NE, token.LE, token.GE, token.LT, token.GT, token.ASSIGN,
		token.CONCAT, token.ELLIPSIS, token.DOT, token.COLON, token.SEMI,
		token.COMMA, token.HASH, token.CARET, token.EOS,
	}, toks(items))
}

func TestScanLineTracking(t *testing.T) {
	items := scanAll(t, "local\nx")
	line1, _ := items[0].Value.Pos.LineCol()
	line2, _ := items[1].Value.Pos.LineCol()
	require.Equal(t, 1, line1)
	require.Equal(t, 2, line2)
}
