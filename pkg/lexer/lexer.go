// Package lexer implements the mode-switched, indentation-aware scanner
// for the dialogue scripting language.
//
// Architecture:
//
// Source text is tokenized by a small state machine that toggles between
// five modes:
//
//	Indentation   at physical line start; measures leading spaces and
//	              emits Indent/Dedent
//	LineStart     dispatches on keyword, choice marker "- ", or text
//	Declaration   after temp/save/set/extern; scans identifier, '=', literal
//	Text          dialogue prose, honoring { } {{ }}
//	Interpolation inside { ... }, expects a single identifier then '}'
//
// Like kristofer/smog's lexer, positions are tracked as byte offsets into
// the original source and lexemes are views into that source — nothing is
// copied until a token is consumed by the parser.
package lexer

import (
	"fmt"
	"unicode/utf8"

	"github.com/kristofer/weave/pkg/token"
	"github.com/smasher164/xid"
)

// mode is the scanner's current sub-state.
type mode int

const (
	modeIndentation mode = iota
	modeLineStart
	modeDeclaration
	modeText
	modeInterpolation
)

// LexicalError is a structured scanning failure with a source span.
type LexicalError struct {
	Message string
	Span    token.Span
}

func (e *LexicalError) Error() string {
	return e.Message
}

// FormatWithSource renders the error as "[line:col] lexical error: message".
func (e *LexicalError) FormatWithSource(source string) string {
	pos := token.OffsetToPosition(source, e.Span.Start)
	return fmt.Sprintf("[%d:%d] lexical error: %s", pos.Line, pos.Column, e.Message)
}

// Scanner turns source text into a stream of tokens, one at a time.
type Scanner struct {
	source string
	start  int
	pos    int

	indentStack    []int
	pendingDedents int
	mode           mode
}

// New creates a Scanner over source.
func New(source string) *Scanner {
	return &Scanner{
		source:      source,
		indentStack: []int{0},
		mode:        modeIndentation,
	}
}

// Next returns the next token, or a LexicalError if the source is
// malformed at the current position. The scanner never panics; callers
// that want "all tokens" should loop until Eof or an error.
func (s *Scanner) Next() (token.Token, error) {
	if s.mode == modeIndentation {
		tok, emitted, err := s.handleIndentation()
		if err != nil {
			return token.Token{}, err
		}
		if emitted {
			return tok, nil
		}
	}

	s.start = s.pos

	if s.atEnd() {
		return s.make(token.Eof), nil
	}

	if s.consumeNewline() {
		s.mode = modeIndentation
		return s.make(token.NewLine), nil
	}

	switch s.mode {
	case modeLineStart:
		return s.scanLineStart()
	case modeDeclaration:
		return s.scanDeclaration()
	case modeText:
		return s.scanText()
	case modeInterpolation:
		return s.scanInterpolation()
	default:
		panic("lexer: unreachable scanner mode")
	}
}

// scanLineStart checks for a keyword, the choice marker, or falls through
// to text.
func (s *Scanner) scanLineStart() (token.Token, error) {
	if s.checkKeyword("temp ") {
		s.advanceN(5)
		s.mode = modeDeclaration
		return s.make(token.Temp), nil
	}
	if s.checkKeyword("save ") {
		s.advanceN(5)
		s.mode = modeDeclaration
		return s.make(token.Save), nil
	}
	if s.checkKeyword("extern ") {
		s.advanceN(7)
		s.mode = modeDeclaration
		return s.make(token.Extern), nil
	}
	if s.checkKeyword("set ") {
		s.advanceN(4)
		s.mode = modeDeclaration
		return s.make(token.Set), nil
	}
	if s.checkKeyword("- ") {
		s.advanceN(2)
		s.mode = modeText
		return s.make(token.Choice), nil
	}

	s.mode = modeText
	return s.scanText()
}

// scanDeclaration scans an identifier, '=', or a literal inside a
// temp/save/set/extern declaration.
func (s *Scanner) scanDeclaration() (token.Token, error) {
	s.skipSpaces()
	s.start = s.pos

	if s.atEnd() || s.atNewline() {
		return token.Token{}, s.errorf("unexpected end of declaration")
	}

	c := s.peek()

	if s.checkKeyword("true") && !identChar(s.peekAt(4)) {
		s.advanceN(4)
		return s.make(token.True), nil
	}
	if s.checkKeyword("false") && !identChar(s.peekAt(5)) {
		s.advanceN(5)
		return s.make(token.False), nil
	}
	if c == '_' || xid.Start(c) {
		return s.scanIdentifier()
	}
	if c == '=' {
		s.advance()
		return s.make(token.Equals), nil
	}
	if c == '"' {
		return s.scanString()
	}
	if isDigit(c) || (c == '-' && isDigit(s.peekAt(1))) {
		return s.scanNumber()
	}

	return token.Token{}, s.errorf("unexpected character in declaration")
}

// scanText scans dialogue prose, handling "{", "}", "{{" and "}}".
func (s *Scanner) scanText() (token.Token, error) {
	s.start = s.pos

	if s.atEnd() || s.atNewline() {
		s.mode = modeLineStart
		return s.Next()
	}

	c := s.peek()

	if c == '{' {
		s.advance()
		if s.peek() == '{' {
			s.advance()
			return token.Token{Kind: token.TextSegment, Lexeme: "{", Span: token.Span{Start: s.start, End: s.pos}}, nil
		}
		s.mode = modeInterpolation
		return s.make(token.OpenBrace), nil
	}

	if c == '}' {
		s.advance()
		if s.peek() == '}' {
			s.advance()
			return token.Token{Kind: token.TextSegment, Lexeme: "}", Span: token.Span{Start: s.start, End: s.pos}}, nil
		}
		return token.Token{}, s.errorf("unexpected '}' - use '}}' for literal brace")
	}

	for !s.atEnd() && !s.atNewline() {
		c := s.peek()
		if c == '{' || c == '}' {
			break
		}
		s.advance()
	}
	return s.make(token.TextSegment), nil
}

// scanInterpolation scans the contents of "{ ... }": exactly one
// identifier, surrounding spaces ignored.
func (s *Scanner) scanInterpolation() (token.Token, error) {
	s.skipSpaces()
	s.start = s.pos

	if s.atEnd() || s.atNewline() {
		return token.Token{}, s.errorf("unclosed interpolation - expected '}'")
	}

	c := s.peek()

	if c == '}' {
		s.advance()
		s.mode = modeText
		return s.make(token.CloseBrace), nil
	}
	if c == '_' || xid.Start(c) {
		return s.scanIdentifier()
	}

	return token.Token{}, s.errorf("expected identifier in interpolation")
}

func (s *Scanner) scanIdentifier() (token.Token, error) {
	for {
		c := s.peek()
		if c == 0 {
			break
		}
		if c == '_' || xid.Continue(c) {
			s.advance()
			continue
		}
		break
	}
	return s.make(token.Identifier), nil
}

func (s *Scanner) scanString() (token.Token, error) {
	s.advance() // opening quote

	for {
		c := s.peek()
		if c == 0 && s.atEnd() {
			return token.Token{}, s.errorf("unterminated string - reached end of file")
		}
		if c == '"' {
			s.advance()
			return s.make(token.String), nil
		}
		if c == '\\' {
			s.advance()
			if !s.atEnd() {
				s.advance()
			}
			continue
		}
		if c == '\n' || c == '\r' {
			return token.Token{}, s.errorf("unterminated string - newline in string literal")
		}
		s.advance()
	}
}

func (s *Scanner) scanNumber() (token.Token, error) {
	if s.peek() == '-' {
		s.advance()
	}
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekAt(1)) {
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	return s.make(token.Number), nil
}

// handleIndentation processes indentation at the start of a physical
// line. It returns (tok, true, nil) if a structural token was produced,
// or (zero, false, nil) to fall through to normal scanning in LineStart
// mode.
func (s *Scanner) handleIndentation() (token.Token, bool, error) {
	if s.pendingDedents > 0 {
		s.pendingDedents--
		if s.pendingDedents == 0 {
			s.mode = modeLineStart
		}
		s.start = s.pos
		return s.make(token.Dedent), true, nil
	}

	spaces, ok, err := s.processLineStart()
	if err != nil {
		return token.Token{}, false, err
	}
	if !ok {
		// EOF: flush remaining indent levels as Dedents.
		if len(s.indentStack) > 1 {
			s.pendingDedents = len(s.indentStack) - 2
			s.indentStack = s.indentStack[:1]
			s.start = s.pos
			return s.make(token.Dedent), true, nil
		}
		s.mode = modeLineStart
		return token.Token{}, false, nil
	}

	current := s.indentStack[len(s.indentStack)-1]
	s.mode = modeLineStart
	s.start = s.pos

	switch {
	case spaces > current:
		s.indentStack = append(s.indentStack, spaces)
		return s.make(token.Indent), true, nil
	case spaces < current:
		for len(s.indentStack) > 0 && s.indentStack[len(s.indentStack)-1] > spaces {
			s.indentStack = s.indentStack[:len(s.indentStack)-1]
			s.pendingDedents++
		}
		if len(s.indentStack) == 0 || s.indentStack[len(s.indentStack)-1] != spaces {
			return token.Token{}, false, s.errorf("inconsistent indentation")
		}
		s.pendingDedents--
		if s.pendingDedents > 0 {
			s.mode = modeIndentation
		}
		return s.make(token.Dedent), true, nil
	default:
		return token.Token{}, false, nil
	}
}

// processLineStart skips blank lines and returns the leading space count
// of the next content line, or ok=false at EOF.
func (s *Scanner) processLineStart() (spaces int, ok bool, err error) {
	for {
		s.start = s.pos
		spaces = 0
		for s.peek() == ' ' {
			s.advance()
			spaces++
		}
		if s.consumeNewline() {
			continue
		}
		if s.peek() == '\t' {
			for !s.atEnd() && !s.atNewline() {
				s.advance()
			}
			return 0, false, s.errorf("tabs not allowed in indentation, use spaces")
		}
		if s.atEnd() {
			return 0, false, nil
		}
		return spaces, true, nil
	}
}

// --- low-level helpers -----------------------------------------------

func (s *Scanner) atEnd() bool { return s.pos >= len(s.source) }

func (s *Scanner) atNewline() bool {
	c := s.peek()
	return c == '\n' || c == '\r'
}

// consumeNewline consumes a trailing "\n" or "\r\n" if present.
func (s *Scanner) consumeNewline() bool {
	switch s.peek() {
	case '\n':
		s.advance()
		return true
	case '\r':
		s.advance()
		if s.peek() == '\n' {
			s.advance()
		}
		return true
	default:
		return false
	}
}

func (s *Scanner) advance() rune {
	if s.atEnd() {
		return 0
	}
	r, size := decodeRune(s.source[s.pos:])
	s.pos += size
	return r
}

func (s *Scanner) advanceN(n int) {
	for i := 0; i < n; i++ {
		s.advance()
	}
}

func (s *Scanner) peek() rune {
	if s.atEnd() {
		return 0
	}
	r, _ := decodeRune(s.source[s.pos:])
	return r
}

// peekAt returns the rune `offset` runes ahead of the current position,
// without advancing. offset=0 is the same as peek's next position (i.e.
// peekAt(1) is "peek_next" in the original scanner).
func (s *Scanner) peekAt(offset int) rune {
	rest := s.source[s.pos:]
	for i := 0; i < offset; i++ {
		if rest == "" {
			return 0
		}
		_, size := decodeRune(rest)
		rest = rest[size:]
	}
	if rest == "" {
		return 0
	}
	r, _ := decodeRune(rest)
	return r
}

func (s *Scanner) checkKeyword(kw string) bool {
	rest := s.source[s.pos:]
	return len(rest) >= len(kw) && rest[:len(kw)] == kw
}

func (s *Scanner) skipSpaces() {
	for s.peek() == ' ' {
		s.advance()
	}
}

func (s *Scanner) make(kind token.Kind) token.Token {
	return token.Token{
		Kind:   kind,
		Lexeme: s.source[s.start:s.pos],
		Span:   token.Span{Start: s.start, End: s.pos},
	}
}

func (s *Scanner) errorf(format string, args ...interface{}) error {
	return &LexicalError{
		Message: fmt.Sprintf(format, args...),
		Span:    token.Span{Start: s.start, End: s.pos},
	}
}

func isDigit(c rune) bool { return c >= '0' && c <= '9' }

func identChar(c rune) bool { return c == '_' || xid.Continue(c) }

func decodeRune(s string) (rune, int) {
	if s == "" {
		return 0, 0
	}
	return utf8.DecodeRuneInString(s)
}
