package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/weave/pkg/token"
)

func allTokens(t *testing.T, source string) []token.Token {
	t.Helper()
	s := New(source)
	var toks []token.Token
	for {
		tok, err := s.Next()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Kind == token.Eof {
			return toks
		}
	}
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestScanner_SimpleLine(t *testing.T) {
	toks := allTokens(t, "Hello, world!\n")
	assert.Equal(t, []token.Kind{token.TextSegment, token.NewLine, token.Eof}, kinds(toks))
	assert.Equal(t, "Hello, world!", toks[0].Lexeme)
}

func TestScanner_Interpolation(t *testing.T) {
	toks := allTokens(t, "Hello, {name}!\n")
	assert.Equal(t, []token.Kind{
		token.TextSegment, token.OpenBrace, token.Identifier, token.CloseBrace, token.TextSegment, token.NewLine, token.Eof,
	}, kinds(toks))
	assert.Equal(t, "name", toks[2].Lexeme)
}

func TestScanner_EscapedBraces(t *testing.T) {
	toks := allTokens(t, "{{literal}}\n")
	assert.Equal(t, []token.Kind{token.TextSegment, token.TextSegment, token.TextSegment, token.NewLine, token.Eof}, kinds(toks))
}

func TestScanner_TempDeclaration(t *testing.T) {
	toks := allTokens(t, "temp x = 5\n")
	assert.Equal(t, []token.Kind{
		token.Temp, token.Identifier, token.Equals, token.Number, token.NewLine, token.Eof,
	}, kinds(toks))
	assert.Equal(t, "5", toks[3].Lexeme)
}

func TestScanner_SaveAndExtern(t *testing.T) {
	toks := allTokens(t, "save reputation = 0\nextern gold\n")
	assert.Equal(t, []token.Kind{
		token.Save, token.Identifier, token.Equals, token.Number, token.NewLine,
		token.Extern, token.Identifier, token.NewLine, token.Eof,
	}, kinds(toks))
}

func TestScanner_StringLiteralWithEscapes(t *testing.T) {
	toks := allTokens(t, `temp greeting = "hi\n\"there\""` + "\n")
	require.Len(t, toks, 6)
	assert.Equal(t, token.String, toks[3].Kind)
	assert.Equal(t, `"hi\n\"there\""`, toks[3].Lexeme)
}

func TestScanner_BooleanLiterals(t *testing.T) {
	toks := allTokens(t, "temp a = true\ntemp b = false\n")
	assert.Equal(t, token.True, toks[3].Kind)
	assert.Equal(t, token.False, toks[8].Kind)
}

func TestScanner_ChoiceMarkerAndIndentation(t *testing.T) {
	toks := allTokens(t, "- Pick me\n    You picked it.\n")
	assert.Equal(t, []token.Kind{
		token.Choice, token.TextSegment, token.NewLine,
		token.Indent, token.TextSegment, token.NewLine,
		token.Dedent, token.Eof,
	}, kinds(toks))
}

func TestScanner_DedentAtEOF(t *testing.T) {
	toks := allTokens(t, "- Choice\n    nested\n")
	last := toks[len(toks)-1]
	assert.Equal(t, token.Eof, last.Kind)
	assert.Equal(t, token.Dedent, toks[len(toks)-2].Kind)
}

func TestScanner_MultipleDedentLevels(t *testing.T) {
	toks := allTokens(t, "- A\n    - B\n        nested\n")
	count := 0
	for _, k := range kinds(toks) {
		if k == token.Dedent {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestScanner_TabsRejected(t *testing.T) {
	s := New("\ttext\n")
	_, err := s.Next()
	require.Error(t, err)
	var lerr *LexicalError
	require.ErrorAs(t, err, &lerr)
	assert.Contains(t, lerr.Message, "tabs")
}

func TestScanner_InconsistentIndentation(t *testing.T) {
	s := New("- A\n    nested\n  bad\n")
	var err error
	for i := 0; i < 10; i++ {
		var tok token.Token
		tok, err = s.Next()
		if err != nil || tok.Kind == token.Eof {
			break
		}
	}
	require.Error(t, err)
}

func TestScanner_UnterminatedString(t *testing.T) {
	s := New(`temp x = "oops` + "\n")
	var err error
	for i := 0; i < 10; i++ {
		var tok token.Token
		tok, err = s.Next()
		if err != nil || tok.Kind == token.Eof {
			break
		}
	}
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unterminated string")
}

func TestScanner_UnicodeIdentifier(t *testing.T) {
	toks := allTokens(t, "temp café = 1\n")
	assert.Equal(t, "café", toks[1].Lexeme)
}

func TestLexicalError_FormatWithSource(t *testing.T) {
	source := "\ttext\n"
	s := New(source)
	_, err := s.Next()
	require.Error(t, err)
	var lerr *LexicalError
	require.ErrorAs(t, err, &lerr)
	formatted := lerr.FormatWithSource(source)
	assert.Contains(t, formatted, "1:1")
}
