package tool

import (
	"fmt"
	"math"
	"strconv"
)

// Evaluate parses and evaluates one arithmetic expression. Supported:
// + - * / % ** ^, parentheses, unary minus, sqrt/abs/pow/min/max/round,
// and the constants pi and e.
func Evaluate(expr string) (float64, error) {
	tokens := lex(expr)
	for _, t := range tokens {
		if t.kind == tokenJunk {
			return 0, &ParseError{Expr: expr, Reason: fmt.Sprintf("unexpected %q", t.text)}
		}
	}
	if len(tokens) == 0 {
		return 0, &ParseError{Expr: expr, Reason: "empty expression"}
	}

	p := &parser{expr: expr, tokens: tokens}
	value, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.tokens) {
		return 0, &ParseError{Expr: expr, Reason: fmt.Sprintf("unexpected %q", p.tokens[p.pos].text)}
	}
	return value, nil
}

type parser struct {
	expr   string
	tokens []token
	pos    int
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &ParseError{Expr: p.expr, Reason: fmt.Sprintf(format, args...)}
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) next() (token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

// expr := term (('+'|'-') term)*
func (p *parser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokenOperator || (t.text != "+" && t.text != "-") {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if t.text == "+" {
			left += right
		} else {
			left -= right
		}
	}
}

// term := unary (('*'|'/'|'%') unary)*
func (p *parser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokenOperator || (t.text != "*" && t.text != "/" && t.text != "%") {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		switch t.text {
		case "*":
			left *= right
		case "/":
			if right == 0 {
				return 0, p.errorf("division by zero")
			}
			left /= right
		case "%":
			if right == 0 {
				return 0, p.errorf("division by zero")
			}
			left = math.Mod(left, right)
		}
	}
}

// unary := '-' unary | power
func (p *parser) parseUnary() (float64, error) {
	if t, ok := p.peek(); ok && t.kind == tokenOperator && t.text == "-" {
		p.pos++
		v, err := p.parseUnary()
		return -v, err
	}
	return p.parsePower()
}

// power := primary (('**'|'^') unary)?  — right associative
func (p *parser) parsePower() (float64, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return 0, err
	}
	t, ok := p.peek()
	if !ok || t.kind != tokenOperator || (t.text != "**" && t.text != "^") {
		return base, nil
	}
	p.pos++
	exp, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	return math.Pow(base, exp), nil
}

func (p *parser) parsePrimary() (float64, error) {
	t, ok := p.next()
	if !ok {
		return 0, p.errorf("unexpected end of expression")
	}
	switch t.kind {
	case tokenNumber:
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return 0, p.errorf("bad number %q", t.text)
		}
		return v, nil
	case tokenConst:
		return calcConsts[t.text], nil
	case tokenFunc:
		return p.parseCall(t.text)
	case tokenParen:
		if t.text != "(" {
			return 0, p.errorf("unexpected %q", t.text)
		}
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if closing, ok := p.next(); !ok || closing.text != ")" {
			return 0, p.errorf("missing closing parenthesis")
		}
		return v, nil
	default:
		return 0, p.errorf("unexpected %q", t.text)
	}
}

func (p *parser) parseCall(name string) (float64, error) {
	sig := calcFuncs[name]
	if t, ok := p.next(); !ok || t.text != "(" {
		return 0, p.errorf("%s requires parentheses", name)
	}

	var args []float64
	for {
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		args = append(args, v)
		t, ok := p.next()
		if !ok {
			return 0, p.errorf("missing closing parenthesis")
		}
		if t.kind == tokenComma {
			continue
		}
		if t.text == ")" {
			break
		}
		return 0, p.errorf("unexpected %q", t.text)
	}

	if len(args) < sig.minArgs || (sig.maxArgs >= 0 && len(args) > sig.maxArgs) {
		return 0, p.errorf("%s takes %d argument(s)", name, sig.minArgs)
	}

	switch name {
	case "sqrt":
		if args[0] < 0 {
			return 0, p.errorf("sqrt of negative number")
		}
		return math.Sqrt(args[0]), nil
	case "abs":
		return math.Abs(args[0]), nil
	case "pow":
		return math.Pow(args[0], args[1]), nil
	case "round":
		return math.Round(args[0]), nil
	case "min":
		v := args[0]
		for _, a := range args[1:] {
			v = math.Min(v, a)
		}
		return v, nil
	case "max":
		v := args[0]
		for _, a := range args[1:] {
			v = math.Max(v, a)
		}
		return v, nil
	}
	return 0, p.errorf("unknown function %q", name)
}
