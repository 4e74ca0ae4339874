// Package parser implements a recursive-descent parser that turns a token
// stream into an ast.Script, stamping a fresh ast.NodeId on every
// construct the resolver will later need to bind.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kristofer/weave/pkg/ast"
	"github.com/kristofer/weave/pkg/lexer"
	"github.com/kristofer/weave/pkg/token"
)

// ParseError is either a lexical error that surfaced while pulling the
// next token, or a syntax error raised by the parser itself.
type ParseError struct {
	// Lexical is set when the error originated in the scanner.
	Lexical *lexer.LexicalError
	// Message/Span are set for parser-raised syntax errors (Lexical nil).
	Message string
	Span    token.Span
}

func (e *ParseError) Error() string {
	if e.Lexical != nil {
		return e.Lexical.Error()
	}
	return e.Message
}

// FormatWithSource renders "[line:col] lexical error: ..." or
// "[line:col] syntax error: ...".
func (e *ParseError) FormatWithSource(source string) string {
	if e.Lexical != nil {
		return e.Lexical.FormatWithSource(source)
	}
	pos := token.OffsetToPosition(source, e.Span.Start)
	return fmt.Sprintf("[%d:%d] syntax error: %s", pos.Line, pos.Column, e.Message)
}

func (e *ParseError) span() token.Span {
	if e.Lexical != nil {
		return e.Lexical.Span
	}
	return e.Span
}

// Parser consumes tokens from a Scanner and produces an ast.Script.
type Parser struct {
	scanner *lexer.Scanner

	cur    token.Token
	curErr error
	have   bool

	errors []*ParseError
	nextID ast.NodeId
}

// New creates a Parser over source.
func New(source string) *Parser {
	return &Parser{scanner: lexer.New(source)}
}

// Parse runs the parser to completion. It collects every lexical, syntax
// error before returning: on failure it returns the full error list, on
// success the Script and a nil error list.
func (p *Parser) Parse() (*ast.Script, []*ParseError) {
	script := &ast.Script{}

	for {
		tok, err := p.peek()
		if err != nil {
			p.consumeErrorAndSync()
			continue
		}
		switch tok.Kind {
		case token.Eof:
			if len(p.errors) > 0 {
				return nil, p.errors
			}
			return script, nil
		case token.NewLine, token.Indent, token.Dedent:
			p.advance()
		default:
			stmt := p.parseStatement()
			if stmt != nil {
				script.Statements = append(script.Statements, stmt)
			}
		}
	}
}

func (p *Parser) stamp() ast.NodeId {
	id := p.nextID
	p.nextID++
	return id
}

// --- token stream plumbing ---------------------------------------------

// peek returns the current lookahead token without consuming it. The
// first call to peek or advance fetches the token from the scanner; a
// lexical error surfaces here rather than panicking, matching the
// original Peekable<Result<Token, LexicalError>> design.
func (p *Parser) peek() (token.Token, error) {
	if !p.have {
		p.cur, p.curErr = p.scanner.Next()
		p.have = true
	}
	return p.cur, p.curErr
}

// advance consumes and returns the current lookahead token, fetching a
// fresh one to replace it.
func (p *Parser) advance() (token.Token, error) {
	tok, err := p.peek()
	p.have = false
	return tok, err
}

func (p *Parser) recordSyntax(message string, span token.Span) {
	p.errors = append(p.errors, &ParseError{Message: message, Span: span})
}

// consumeErrorAndSync pulls the errored token off the stream, records it,
// and synchronizes.
func (p *Parser) consumeErrorAndSync() {
	_, err := p.advance()
	if lerr, ok := err.(*lexer.LexicalError); ok {
		p.errors = append(p.errors, &ParseError{Lexical: lerr})
	}
	p.synchronize()
}

// synchronize discards tokens up to and including the next NewLine (or
// Eof), so that one malformed statement doesn't cascade into spurious
// errors for the rest of the script.
func (p *Parser) synchronize() {
	for {
		tok, err := p.peek()
		if err != nil {
			p.consumeErrorAndSync()
			return
		}
		switch tok.Kind {
		case token.NewLine:
			p.advance()
			return
		case token.Eof:
			return
		default:
			p.advance()
		}
	}
}

// --- statement grammar ---------------------------------------------------

func (p *Parser) parseStatement() ast.Stmt {
	tok, err := p.peek()
	if err != nil {
		p.consumeErrorAndSync()
		return nil
	}

	switch tok.Kind {
	case token.Temp:
		return p.parseVarBinding(token.Temp)
	case token.Save:
		return p.parseVarBinding(token.Save)
	case token.Set:
		return p.parseVarBinding(token.Set)
	case token.Extern:
		return p.parseExternDecl()
	case token.Choice:
		return p.parseChoiceSet()
	case token.TextSegment, token.OpenBrace:
		return p.parseLine()
	default:
		p.recordSyntax(fmt.Sprintf("unexpected token %s at top level", tok.Kind), tok.Span)
		p.synchronize()
		return nil
	}
}

// parseVarBinding parses "temp NAME = literal", "save NAME = literal", or
// "set NAME = literal" — the three forms sharing VarBindingData's shape.
func (p *Parser) parseVarBinding(kw token.Kind) ast.Stmt {
	kwTok, _ := p.advance() // the temp/save/set keyword token

	nameTok, err := p.peek()
	if err != nil || nameTok.Kind != token.Identifier {
		p.recordSyntax("expected identifier after declaration keyword", kwTok.Span)
		p.synchronize()
		return nil
	}
	p.advance()

	eqTok, err := p.peek()
	if err != nil || eqTok.Kind != token.Equals {
		p.recordSyntax("expected '=' in declaration", nameTok.Span)
		p.synchronize()
		return nil
	}
	p.advance()

	lit, ok := p.parseLiteral()
	if !ok {
		return nil
	}

	endTok, err := p.peek()
	if err != nil || (endTok.Kind != token.NewLine && endTok.Kind != token.Eof) {
		p.recordSyntax("expected newline after declaration", nameTok.Span)
		p.synchronize()
		return nil
	}
	if endTok.Kind == token.NewLine {
		p.advance()
	}

	data := ast.VarBindingData{
		Id:    p.stamp(),
		Name:  nameTok.Lexeme,
		Value: lit,
		Span:  token.Span{Start: kwTok.Span.Start, End: endTok.Span.Start},
	}

	switch kw {
	case token.Temp:
		return &ast.TempDecl{VarBindingData: data}
	case token.Save:
		return &ast.SaveDecl{VarBindingData: data}
	default:
		return &ast.Assignment{VarBindingData: data}
	}
}

func (p *Parser) parseExternDecl() ast.Stmt {
	kwTok, _ := p.advance()

	nameTok, err := p.peek()
	if err != nil || nameTok.Kind != token.Identifier {
		p.recordSyntax("expected identifier after 'extern'", kwTok.Span)
		p.synchronize()
		return nil
	}
	p.advance()

	endTok, err := p.peek()
	if err != nil || (endTok.Kind != token.NewLine && endTok.Kind != token.Eof) {
		p.recordSyntax("expected newline after extern declaration", nameTok.Span)
		p.synchronize()
		return nil
	}
	if endTok.Kind == token.NewLine {
		p.advance()
	}

	return &ast.ExternDecl{
		Id:   p.stamp(),
		Name: nameTok.Lexeme,
		Span: token.Span{Start: kwTok.Span.Start, End: endTok.Span.Start},
	}
}

// parseLiteral parses STRING | NUMBER | "true" | "false", unescaping
// string contents.
func (p *Parser) parseLiteral() (ast.Literal, bool) {
	tok, err := p.peek()
	if err != nil {
		p.consumeErrorAndSync()
		return ast.Literal{}, false
	}

	switch tok.Kind {
	case token.String:
		p.advance()
		return ast.Literal{Kind: ast.LiteralString, Str: unescapeString(tok.Lexeme)}, true
	case token.Number:
		p.advance()
		n, convErr := parseNumber(tok.Lexeme)
		if convErr != nil {
			p.recordSyntax("invalid number literal", tok.Span)
			return ast.Literal{}, false
		}
		return ast.Literal{Kind: ast.LiteralNumber, Num: n}, true
	case token.True:
		p.advance()
		return ast.Literal{Kind: ast.LiteralBool, Bool: true}, true
	case token.False:
		p.advance()
		return ast.Literal{Kind: ast.LiteralBool, Bool: false}, true
	default:
		p.recordSyntax("expected a literal value", tok.Span)
		p.synchronize()
		return ast.Literal{}, false
	}
}

// parseLine parses a bare dialogue line: text-parts followed by a
// newline.
func (p *Parser) parseLine() ast.Stmt {
	startTok, _ := p.peek()
	parts := p.parseTextParts()
	endTok, err := p.peek()
	if err == nil && endTok.Kind == token.NewLine {
		p.advance()
	}
	span := startTok.Span
	if len(parts) > 0 {
		span = token.Span{Start: startTok.Span.Start, End: endTok.Span.Start}
	}
	return &ast.Line{Parts: parts, Span: span}
}

// parseTextParts alternates literal text segments and "{identifier}"
// interpolations, terminating on NewLine, Eof, or Dedent.
func (p *Parser) parseTextParts() []ast.TextPart {
	var parts []ast.TextPart

	for {
		tok, err := p.peek()
		if err != nil {
			p.consumeErrorAndSync()
			return parts
		}
		switch tok.Kind {
		case token.TextSegment:
			p.advance()
			parts = append(parts, &ast.TextLiteral{Text: tok.Lexeme, Span: tok.Span})
		case token.OpenBrace:
			p.advance()
			idTok, idErr := p.peek()
			if idErr != nil || idTok.Kind != token.Identifier {
				p.recordSyntax("expected identifier in interpolation", tok.Span)
				p.synchronize()
				return parts
			}
			p.advance()
			closeTok, closeErr := p.peek()
			if closeErr != nil || closeTok.Kind != token.CloseBrace {
				p.recordSyntax("expected '}' after interpolation", idTok.Span)
				p.synchronize()
				return parts
			}
			p.advance()
			parts = append(parts, &ast.VarRef{
				Id:   p.stamp(),
				Name: idTok.Lexeme,
				Span: token.Span{Start: tok.Span.Start, End: closeTok.Span.End},
			})
		case token.NewLine, token.Eof, token.Dedent:
			return parts
		default:
			p.recordSyntax(fmt.Sprintf("unexpected token %s in text", tok.Kind), tok.Span)
			p.synchronize()
			return parts
		}
	}
}

// parseChoiceSet parses one or more consecutive "- text" choices, each
// optionally followed by an indented nested block.
func (p *Parser) parseChoiceSet() ast.Stmt {
	var choices []*ast.Choice

	for {
		tok, err := p.peek()
		if err != nil || tok.Kind != token.Choice {
			break
		}
		markerTok, _ := p.advance()
		parts := p.parseTextParts()

		endTok, endErr := p.peek()
		if endErr != nil || endTok.Kind != token.NewLine {
			p.recordSyntax("expected newline after choice", markerTok.Span)
			p.synchronize()
		} else {
			p.advance()
		}

		nested := p.parseNestedBlock()

		span := markerTok.Span
		if len(parts) > 0 {
			span = token.Span{Start: markerTok.Span.Start, End: endTok.Span.Start}
		}
		choices = append(choices, &ast.Choice{Parts: parts, Span: span, Nested: nested})
	}

	return &ast.ChoiceSet{Choices: choices}
}

// parseNestedBlock parses an indented block of statements, if one
// follows (an Indent token); otherwise returns no statements.
func (p *Parser) parseNestedBlock() []ast.Stmt {
	tok, err := p.peek()
	if err != nil || tok.Kind != token.Indent {
		return nil
	}
	p.advance()

	var stmts []ast.Stmt
	for {
		tok, err := p.peek()
		if err != nil {
			p.consumeErrorAndSync()
			continue
		}
		switch tok.Kind {
		case token.Dedent:
			p.advance()
			return stmts
		case token.Eof:
			return stmts
		case token.NewLine:
			p.advance()
		case token.Indent:
			// A stray nested indent (shouldn't normally occur outside a
			// choice body); recurse so we still make forward progress.
			stmts = append(stmts, p.parseNestedBlock()...)
		default:
			stmt := p.parseStatement()
			if stmt != nil {
				stmts = append(stmts, stmt)
			}
		}
	}
}

// --- literal helpers ------------------------------------------------------

// unescapeString processes \n \t \r \" \\ inside a "..." lexeme,
// stripping the surrounding quotes.
func unescapeString(lexeme string) string {
	inner := lexeme
	if len(inner) >= 2 {
		inner = inner[1 : len(inner)-1]
	}

	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c == '\\' && i+1 < len(inner) {
			i++
			switch inner[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			default:
				b.WriteByte('\\')
				b.WriteByte(inner[i])
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func parseNumber(lexeme string) (float64, error) {
	return strconv.ParseFloat(lexeme, 64)
}
