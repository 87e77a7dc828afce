package parse

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Dict parses a mapping literal of string keys to string values,
// optionally wrapped in a ```python code fence.
//
// Only this restricted grammar is accepted:
//
//	dict   = "{" [ entry { "," entry } [ "," ] ] "}"
//	entry  = string ":" string
//	string = literal { literal }
//
// where a literal is a single-, double- or triple-quoted string with
// backslash escapes. Anything else is rejected with ErrSyntax.
type Dict struct {
	Policy DuplicatePolicy
}

// Name returns the grammar name
func (d *Dict) Name() string {
	return "dict"
}

// Parse decodes the mapping literal, entries in document order
func (d *Dict) Parse(output string) ([]Pair, error) {
	src := strings.ReplaceAll(output, "```python", "")
	src = strings.ReplaceAll(src, "```", "")
	src = strings.TrimSpace(src)

	p := &dictParser{src: src}
	pairs, err := p.parse()
	if err != nil {
		return nil, err
	}
	return collect(pairs, d.Policy), nil
}

type dictParser struct {
	src string
	pos int
}

func (p *dictParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s at offset %d", ErrSyntax, fmt.Sprintf(format, args...), p.pos)
}

func (p *dictParser) parse() ([]Pair, error) {
	p.skipSpace()
	if !p.consume('{') {
		return nil, p.errorf("expected '{'")
	}

	var pairs []Pair
	for {
		p.skipSpace()
		if p.consume('}') {
			break
		}

		key, err := p.parseString()
		if err != nil {
			return nil, err
		}

		p.skipSpace()
		if !p.consume(':') {
			return nil, p.errorf("expected ':' after key")
		}
		p.skipSpace()

		value, err := p.parseString()
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, Pair{Span: key, Label: value})

		p.skipSpace()
		if p.consume(',') {
			continue
		}
		if p.consume('}') {
			break
		}
		return nil, p.errorf("expected ',' or '}'")
	}

	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected trailing content")
	}
	return pairs, nil
}

// parseString reads one or more adjacent string literals and concatenates them
func (p *dictParser) parseString() (string, error) {
	if !p.atQuote() {
		return "", p.errorf("expected string literal")
	}

	var b strings.Builder
	for {
		s, err := p.parseLiteral()
		if err != nil {
			return "", err
		}
		b.WriteString(s)

		save := p.pos
		p.skipSpace()
		if !p.atQuote() {
			p.pos = save
			return b.String(), nil
		}
	}
}

func (p *dictParser) atQuote() bool {
	return p.pos < len(p.src) && (p.src[p.pos] == '"' || p.src[p.pos] == '\'')
}

func (p *dictParser) parseLiteral() (string, error) {
	quote := p.src[p.pos]
	delim := string(quote)
	if strings.HasPrefix(p.src[p.pos:], strings.Repeat(delim, 3)) {
		delim = strings.Repeat(delim, 3)
	}
	p.pos += len(delim)
	triple := len(delim) == 3

	var b strings.Builder
	for {
		if p.pos >= len(p.src) {
			return "", p.errorf("unterminated string")
		}
		if strings.HasPrefix(p.src[p.pos:], delim) {
			p.pos += len(delim)
			return b.String(), nil
		}

		c := p.src[p.pos]
		switch {
		case c == '\\':
			if err := p.escape(&b); err != nil {
				return "", err
			}
		case c == '\n' && !triple:
			return "", p.errorf("newline in string")
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}
}

func (p *dictParser) escape(b *strings.Builder) error {
	p.pos++ // backslash
	if p.pos >= len(p.src) {
		return p.errorf("unterminated escape")
	}

	c := p.src[p.pos]
	p.pos++
	switch c {
	case '\n':
		// line continuation
	case '\\', '\'', '"':
		b.WriteByte(c)
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'x', 'u', 'U':
		width := map[byte]int{'x': 2, 'u': 4, 'U': 8}[c]
		if p.pos+width > len(p.src) {
			return p.errorf("truncated \\%c escape", c)
		}
		code, err := strconv.ParseUint(p.src[p.pos:p.pos+width], 16, 32)
		if err != nil || !utf8.ValidRune(rune(code)) {
			return p.errorf("invalid \\%c escape", c)
		}
		b.WriteRune(rune(code))
		p.pos += width
	default:
		// unknown escapes are kept verbatim
		r, size := utf8.DecodeRuneInString(p.src[p.pos-1:])
		b.WriteByte('\\')
		b.WriteRune(r)
		p.pos += size - 1
	}
	return nil
}

func (p *dictParser) consume(c byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *dictParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}
