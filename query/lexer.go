package query

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIRI
	tokPName
	tokVar
	tokString
	tokInteger
	tokKeyword
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	// lang or datatype suffix on a string literal, unexpanded
	datatype string
	lang     string
	line     int
	col      int
}

type lexer struct {
	src  string
	pos  int
	line int
	col  int
}

func lex(src string) ([]token, error) {
	l := &lexer{src: src, line: 1, col: 1}
	var out []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.kind == tokEOF {
			return out, nil
		}
	}
}

func (l *lexer) errorf(msg string) error {
	return &MalformedQueryError{Line: l.line, Column: l.col, Msg: msg}
}

func (l *lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return r
}

func (l *lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		r := l.peek()
		switch {
		case r == '#':
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
		case unicode.IsSpace(r):
			l.advance()
		default:
			return
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	tok := token{line: l.line, col: l.col}
	if l.pos >= len(l.src) {
		tok.kind = tokEOF
		return tok, nil
	}

	r := l.peek()
	switch {
	case r == '<':
		l.advance()
		start := l.pos
		for l.pos < len(l.src) && l.peek() != '>' {
			if c := l.peek(); c == ' ' || c == '\n' || c == '\t' {
				return tok, l.errorf("whitespace in IRI")
			}
			l.advance()
		}
		if l.pos >= len(l.src) {
			return tok, l.errorf("unterminated IRI")
		}
		tok.kind, tok.text = tokIRI, l.src[start:l.pos]
		l.advance()
		return tok, nil

	case r == '?' || r == '$':
		l.advance()
		name := l.name()
		if name == "" {
			return tok, l.errorf("empty variable name")
		}
		tok.kind, tok.text = tokVar, name
		return tok, nil

	case r == '"' || r == '\'':
		text, err := l.quoted(r)
		if err != nil {
			return tok, err
		}
		tok.kind, tok.text = tokString, text
		if strings.HasPrefix(l.src[l.pos:], "^^") {
			l.advance()
			l.advance()
			dt, err := l.next()
			if err != nil {
				return tok, err
			}
			if dt.kind != tokIRI && dt.kind != tokPName {
				return tok, l.errorf("expected datatype after ^^")
			}
			if dt.kind == tokIRI {
				tok.datatype = "<" + dt.text + ">"
			} else {
				tok.datatype = dt.text
			}
		} else if l.peek() == '@' {
			l.advance()
			tok.lang = l.name()
			if tok.lang == "" {
				return tok, l.errorf("empty language tag")
			}
		}
		return tok, nil

	case unicode.IsDigit(r) || ((r == '-' || r == '+') && l.digitFollows()):
		start := l.pos
		l.advance()
		for unicode.IsDigit(l.peek()) {
			l.advance()
		}
		tok.kind, tok.text = tokInteger, l.src[start:l.pos]
		return tok, nil

	case strings.ContainsRune("{}.;,()*+", r):
		l.advance()
		tok.kind, tok.text = tokPunct, string(r)
		return tok, nil

	case isNameStart(r) || r == ':':
		word := l.name()
		if l.peek() == ':' {
			l.advance()
			local := l.localName()
			tok.kind, tok.text = tokPName, word+":"+local
			return tok, nil
		}
		tok.kind, tok.text = tokKeyword, word
		return tok, nil
	}
	return tok, l.errorf("unexpected character " + string(r))
}

func (l *lexer) digitFollows() bool {
	if l.pos+1 >= len(l.src) {
		return false
	}
	c := l.src[l.pos+1]
	return c >= '0' && c <= '9'
}

func isNameStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isNameChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-'
}

func (l *lexer) name() string {
	start := l.pos
	for l.pos < len(l.src) && isNameChar(l.peek()) {
		l.advance()
	}
	return l.src[start:l.pos]
}

// localName reads the local part of a prefixed name. Dots are allowed
// inside but never at the end, where they terminate a triple.
func (l *lexer) localName() string {
	start := l.pos
	for l.pos < len(l.src) {
		r := l.peek()
		if isNameChar(r) {
			l.advance()
			continue
		}
		if r == '.' && l.pos+1 < len(l.src) {
			next, _ := utf8.DecodeRuneInString(l.src[l.pos+1:])
			if isNameChar(next) {
				l.advance()
				continue
			}
		}
		break
	}
	return l.src[start:l.pos]
}

func (l *lexer) quoted(quote rune) (string, error) {
	l.advance()
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return "", l.errorf("unterminated string")
		}
		r := l.advance()
		switch r {
		case quote:
			return b.String(), nil
		case '\n':
			return "", l.errorf("newline in string")
		case '\\':
			if l.pos >= len(l.src) {
				return "", l.errorf("unterminated escape")
			}
			switch e := l.advance(); e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '"', '\'', '\\':
				b.WriteRune(e)
			default:
				return "", l.errorf("unknown escape \\" + string(e))
			}
		default:
			b.WriteRune(r)
		}
	}
}
