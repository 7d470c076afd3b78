package nginxconf

import (
	"fmt"
	"strings"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokWord
	tokLBrace
	tokRBrace
	tokSemicolon
	tokComment
)

type token struct {
	kind tokKind
	text string
	pos  int
}

// scanner tokenizes nginx-style configuration text: words, single- and
// double-quoted strings, '#' line comments, braces and semicolons. A failed
// scan (unterminated string) is sticky; next keeps returning EOF afterwards.
type scanner struct {
	path string
	src  string
	off  int
	err  error
}

func newScanner(path, src string) *scanner {
	return &scanner{path: path, src: src}
}

func (s *scanner) next() token {
	if s.err != nil {
		return token{kind: tokEOF, pos: s.off}
	}
	for s.off < len(s.src) && isSpace(s.src[s.off]) {
		s.off++
	}
	if s.off >= len(s.src) {
		return token{kind: tokEOF, pos: s.off}
	}
	start := s.off
	switch c := s.src[s.off]; c {
	case '{':
		s.off++
		return token{kind: tokLBrace, text: "{", pos: start}
	case '}':
		s.off++
		return token{kind: tokRBrace, text: "}", pos: start}
	case ';':
		s.off++
		return token{kind: tokSemicolon, text: ";", pos: start}
	case '#':
		for s.off < len(s.src) && s.src[s.off] != '\n' {
			s.off++
		}
		return token{kind: tokComment, text: s.src[start:s.off], pos: start}
	case '\'', '"':
		return s.scanQuoted(c)
	default:
		return s.scanWord()
	}
}

func (s *scanner) nextNonTrivia() token {
	for {
		tok := s.next()
		if tok.kind != tokComment {
			return tok
		}
	}
}

func (s *scanner) scanQuoted(quote byte) token {
	start := s.off
	s.off++
	var b strings.Builder
	for s.off < len(s.src) {
		c := s.src[s.off]
		if c == '\\' && s.off+1 < len(s.src) {
			next := s.src[s.off+1]
			if next == quote || next == '\\' {
				b.WriteByte(next)
				s.off += 2
				continue
			}
			b.WriteByte(c)
			s.off++
			continue
		}
		if c == quote {
			s.off++
			return token{kind: tokWord, text: b.String(), pos: start}
		}
		b.WriteByte(c)
		s.off++
	}
	s.err = s.errAtPos(start, "unterminated string")
	return token{kind: tokEOF, pos: s.off}
}

func (s *scanner) scanWord() token {
	start := s.off
	for s.off < len(s.src) {
		c := s.src[s.off]
		if isSpace(c) || c == ';' || c == '{' || c == '}' || c == '#' {
			break
		}
		s.off++
	}
	return token{kind: tokWord, text: s.src[start:s.off], pos: start}
}

func (s *scanner) lineCol(pos int) (line, col int) {
	if pos > len(s.src) {
		pos = len(s.src)
	}
	line, col = 1, 1
	for i := 0; i < pos; i++ {
		if s.src[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

func (s *scanner) errAt(tok token, msg string) error {
	return s.errAtPos(tok.pos, msg)
}

func (s *scanner) errAtPos(pos int, msg string) error {
	line, col := s.lineCol(pos)
	file := strings.TrimSpace(s.path)
	if file == "" {
		file = "<input>"
	}
	return fmt.Errorf("%s:%d:%d: %s", file, line, col, msg)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
