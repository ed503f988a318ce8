// Package expr parses and evaluates branch-node condition expressions such
// as `input.status == "ok" AND input.score >= 0.5`. Expressions are compiled
// once at validation time; simulation evaluates the compiled form against a
// node's resolved inputs.
package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Expr is a compiled expression.
type Expr interface{ exprNode() }

// Logical joins two expressions with AND or OR.
type Logical struct {
	Op    string // "AND" | "OR"
	Left  Expr
	Right Expr
}

// Not negates an expression.
type Not struct{ Inner Expr }

// Compare applies a comparison operator to two operands. An operand is
// either a literal value or a dot-separated field path into the inputs.
type Compare struct {
	Op    string // ==, !=, >, >=, <, <=, contains, matches
	Left  Operand
	Right Operand
}

func (*Logical) exprNode() {}
func (*Not) exprNode()     {}
func (*Compare) exprNode() {}

// Operand is a literal or a field reference.
type Operand struct {
	Path    []string // non-nil for field references
	Literal any      // set for literals
}

type lexeme struct {
	kind string // word, op, str, num, bool, lparen, rparen, eof
	text string
}

func lex(src string) ([]lexeme, error) {
	var out []lexeme
	i := 0
	for i < len(src) {
		ch := src[i]
		switch {
		case unicode.IsSpace(rune(ch)):
			i++
		case ch == '(':
			out = append(out, lexeme{"lparen", "("})
			i++
		case ch == ')':
			out = append(out, lexeme{"rparen", ")"})
			i++
		case ch == '=' || ch == '!' || ch == '<' || ch == '>':
			if i+1 < len(src) && src[i+1] == '=' {
				out = append(out, lexeme{"op", src[i : i+2]})
				i += 2
			} else {
				out = append(out, lexeme{"op", string(ch)})
				i++
			}
		case ch == '"' || ch == '\'':
			quote := ch
			j := i + 1
			for j < len(src) && src[j] != quote {
				j++
			}
			if j >= len(src) {
				return nil, fmt.Errorf("unterminated string at position %d", i)
			}
			out = append(out, lexeme{"str", src[i+1 : j]})
			i = j + 1
		case unicode.IsDigit(rune(ch)) || (ch == '-' && i+1 < len(src) && unicode.IsDigit(rune(src[i+1]))):
			j := i + 1
			for j < len(src) && (unicode.IsDigit(rune(src[j])) || src[j] == '.') {
				j++
			}
			out = append(out, lexeme{"num", src[i:j]})
			i = j
		case unicode.IsLetter(rune(ch)) || ch == '_':
			j := i
			for j < len(src) && (unicode.IsLetter(rune(src[j])) || unicode.IsDigit(rune(src[j])) || src[j] == '_' || src[j] == '.' || src[j] == '-') {
				j++
			}
			word := src[i:j]
			if lower := strings.ToLower(word); lower == "true" || lower == "false" {
				out = append(out, lexeme{"bool", lower})
			} else {
				out = append(out, lexeme{"word", word})
			}
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", ch, i)
		}
	}
	return append(out, lexeme{"eof", ""}), nil
}

type parser struct {
	toks []lexeme
	pos  int
}

func (p *parser) head() lexeme { return p.toks[p.pos] }

func (p *parser) take() lexeme {
	t := p.toks[p.pos]
	p.pos++
	return t
}

func (p *parser) headIsWord(w string) bool {
	return p.head().kind == "word" && strings.EqualFold(p.head().text, w)
}

// Parse compiles src into an expression tree.
func Parse(src string) (Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("empty expression")
	}
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.head().kind != "eof" {
		return nil, fmt.Errorf("unexpected %q after expression", p.head().text)
	}
	return e, nil
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.headIsWord("or") {
		p.take()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.headIsWord("and") {
		p.take()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.headIsWord("not") {
		p.take()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Not{Inner: inner}, nil
	}
	if p.head().kind == "lparen" {
		p.take()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.head().kind != "rparen" {
			return nil, fmt.Errorf("expected ) but got %q", p.head().text)
		}
		p.take()
		return inner, nil
	}
	return p.parseCompare()
}

func (p *parser) parseCompare() (Expr, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	var op string
	switch t := p.head(); {
	case t.kind == "op":
		op = p.take().text
	case p.headIsWord("contains") || p.headIsWord("matches"):
		op = strings.ToLower(p.take().text)
	default:
		return nil, fmt.Errorf("expected comparison operator, got %q", t.text)
	}
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &Compare{Op: op, Left: left, Right: right}, nil
}

func (p *parser) parseOperand() (Operand, error) {
	switch t := p.take(); t.kind {
	case "str":
		return Operand{Literal: t.text}, nil
	case "num":
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return Operand{}, fmt.Errorf("invalid number %q", t.text)
		}
		return Operand{Literal: f}, nil
	case "bool":
		return Operand{Literal: t.text == "true"}, nil
	case "word":
		return Operand{Path: strings.Split(t.text, ".")}, nil
	default:
		return Operand{}, fmt.Errorf("expected operand, got %q", t.text)
	}
}
