package bundler

import (
	"io"
	"unicode"
	"unicode/utf8"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"
)

// token is a significant (non-whitespace, non-comment) lexeme with its byte
// range in the source.
type token struct {
	tt    js.TokenType
	text  string
	start int
	end   int
}

func (t token) isString() bool { return t.tt == js.StringToken }

// keywords after which a slash starts a regular expression.
var regexAfter = map[string]bool{
	"return": true, "typeof": true, "case": true, "do": true, "else": true,
	"in": true, "of": true, "new": true, "delete": true, "void": true,
	"throw": true, "instanceof": true, "yield": true, "await": true,
}

// regexAllowed decides whether a slash after prev starts a regular
// expression rather than a division.
func regexAllowed(prev *token) bool {
	if prev == nil {
		return true
	}
	if regexAfter[prev.text] {
		return true
	}
	switch prev.text {
	case ")", "]", "}":
		return false
	}
	r, _ := utf8.DecodeRuneInString(prev.text)
	switch {
	case r == '`' || r == '}':
		// Template pieces: an open substitution takes an expression.
		return len(prev.text) >= 2 && prev.text[len(prev.text)-2:] == "${"
	case r == '"' || r == '\'' || r == '/':
		return false
	case r == '_' || r == '$' || r == '#' || unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' && len(prev.text) > 1:
		return false
	}
	return true
}

// tokenize lexes src into significant tokens. It fails on input the lexer
// rejects, such as untransformed JSX text.
func tokenize(src string) ([]token, error) {
	l := js.NewLexer(parse.NewInputString(src))
	var toks []token
	pos := 0
	for {
		tt, data := l.Next()
		if tt == js.ErrorToken {
			if err := l.Err(); err != nil && err != io.EOF {
				return nil, err
			}
			return toks, nil
		}
		start := pos
		if tt == js.DivToken || tt == js.DivEqToken {
			var prev *token
			if len(toks) > 0 {
				prev = &toks[len(toks)-1]
			}
			if regexAllowed(prev) {
				tt, data = l.RegExp()
				if tt == js.ErrorToken {
					return nil, l.Err()
				}
			}
		}
		pos = start + len(data)
		switch tt {
		case js.WhitespaceToken, js.LineTerminatorToken, js.CommentToken, js.CommentLineTerminatorToken:
			continue
		}
		toks = append(toks, token{tt: tt, text: string(data), start: start, end: pos})
	}
}
