package token

// The functions below build individual tokens for tests that drive the
// assembler core directly from hand-built token.Line values rather than
// through a tokenizer. They carry no position information; callers that
// need diagnostics with real locations (the cmd/asm65 tokenizer included)
// construct Token literals directly and set Pos themselves.

// Ident builds an identifier token.
func Ident(s string) Token { return Token{Kind: KindIdent, Text: s} }

// Str builds a decoded string-literal token.
func Str(s string) Token { return Token{Kind: KindString, Str: s} }

// NumTok builds a numeric-literal token.
func NumTok(v int) Token { return Token{Kind: KindNum, Num: v} }

// OpTok builds an operator/punctuation token.
func OpTok(s string) Token { return Token{Kind: KindOp, Text: s} }

// Control builds a control-symbol (directive) token, e.g. ".org".
func Control(s string) Token { return Token{Kind: KindControl, Text: s} }

// Group builds a grouped sub-token list, e.g. the contents of `(...)`.
func Group(toks ...Token) Token { return Token{Kind: KindGroup, Group: toks} }

// BracketGroup builds a grouped sub-token list spelled with "[...]".
func BracketGroup(toks ...Token) Token { return Token{Kind: KindGroup, Group: toks, Bracket: true} }
