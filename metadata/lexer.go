package metadata

import (
	"strings"

	"github.com/wippyai/wasm-resolver/errors"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokPunct
	tokArrow
	tokDoc
)

type token struct {
	text string
	kind tokenKind
	line int
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '-' || c == '_' || c == '.' || c == '%'
}

// tokenize splits WIT text into words, punctuation and doc comments.
// Plain comments are dropped.
func tokenize(src string) ([]token, error) {
	var toks []token
	line := 1
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case strings.HasPrefix(src[i:], "///"):
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				end = len(src) - i
			}
			text := strings.TrimPrefix(src[i+3:i+end], " ")
			toks = append(toks, token{kind: tokDoc, text: strings.TrimRight(text, " \t\r"), line: line})
			i += end
		case strings.HasPrefix(src[i:], "//"):
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				end = len(src) - i
			}
			i += end
		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return nil, errors.InvalidData(errors.PhaseParse, "unterminated block comment")
			}
			line += strings.Count(src[i:i+2+end], "\n")
			i += end + 4
		case strings.HasPrefix(src[i:], "->"):
			toks = append(toks, token{kind: tokArrow, text: "->", line: line})
			i += 2
		case strings.IndexByte("{}()<>,;:=@/*", c) >= 0:
			toks = append(toks, token{kind: tokPunct, text: string(c), line: line})
			i++
		case isWordByte(c):
			start := i
			for i < len(src) && isWordByte(src[i]) && !strings.HasPrefix(src[i:], "->") {
				i++
			}
			toks = append(toks, token{kind: tokWord, text: src[start:i], line: line})
		default:
			return nil, errors.New(errors.PhaseParse, errors.KindInvalidData).
				Detail("line %d: unexpected character %q", line, c).
				Build()
		}
	}
	toks = append(toks, token{kind: tokEOF, line: line})
	return toks, nil
}
