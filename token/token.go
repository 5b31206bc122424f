// Package token defines the boundary between the assembler core and
// whatever tokenizer, preprocessor, or macro engine feeds it: this
// package carries only the Source contract that the core consumes a
// pre-tokenized line stream through, generalized from db47h/ngaro/asm's
// io.Reader-based Parse boundary into "pull pre-tokenized lines" rather
// than "read runes and scan them yourself".
package token

import (
	"context"

	"github.com/shicks/js65/srcpos"
)

// Kind identifies a token's lexical category.
type Kind int

const (
	KindIdent Kind = iota
	KindString
	KindNum
	KindOp
	KindControl // a directive/control-symbol token, e.g. ".org"
	KindGroup   // a parenthesized/bracketed sub-token list
)

// Token is one lexical unit of a line. Kind-specific fields: Text holds
// the literal spelling for Ident/Op/Control, Str holds the decoded value
// for String, Num holds the parsed value for Num, and Group holds the
// nested tokens for Group.
type Token struct {
	Kind  Kind
	Text  string
	Str   string
	Num   int
	Group []Token
	// Bracket marks a Group token that was spelled with "[...]" rather
	// than "(...)"; only the indirect-addressing parser distinguishes
	// the two, via the allowBrackets option.
	Bracket bool
	Pos     srcpos.Pos
}

// Line is a non-empty ordered sequence of tokens.
type Line []Token

// Source yields lines one at a time. Implementations are free to suspend
// in Next to accommodate asynchronous sources such as file-included
// streams; the assembler core performs no work between a call to Next
// and the next token it observes, so no state needs to survive across
// that suspension point beyond what Source itself owns.
type Source interface {
	// Next returns the next line, or ok == false at end of input.
	Next(ctx context.Context) (line Line, ok bool, err error)
}
