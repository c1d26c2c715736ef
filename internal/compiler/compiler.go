// Package compiler turns an arithmetic formula over named inputs into a
// kernel.ModelProgram.
//
// Grammar:
//
//	expr   = term { ("+" | "-") term }
//	term   = unary { ("*" | "/") unary }
//	unary  = "-" unary | primary
//	primary = NUMBER | IDENT | "(" expr ")"
//
// Identifiers resolve to the position of the input with that name; that
// position becomes the PUSH_INPUT operand.
package compiler

import (
	"errors"
	"fmt"

	"mcsim/domain/core"
	"mcsim/domain/kernel"
)

// CompileError reports a problem at a byte offset of the formula.
type CompileError struct {
	Pos int
	Msg string
	Err error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("position %d: %s", e.Pos, e.Msg)
}

func (e *CompileError) Unwrap() error { return e.Err }

// ErrUnknownInput is returned for identifiers that name no declared input.
var ErrUnknownInput = errors.New("unknown input")

const (
	// MaxFormulaLength bounds the formula text accepted by Emit.
	MaxFormulaLength = 16 << 10

	// maxNesting bounds parentheses and unary minus chains so the parser
	// recursion stays shallow whatever the input.
	maxNesting = kernel.MaxOps
)

// Compile parses formula and emits a validated program. inputNames fixes
// the index of every identifier the formula may reference.
func Compile(formula string, inputNames []string) (*kernel.ModelProgram, error) {
	ops, err := Emit(formula, inputNames)
	if err != nil {
		return nil, err
	}
	program, err := kernel.NewModelProgram(ops)
	if err != nil {
		return nil, &CompileError{Pos: 0, Msg: err.Error(), Err: err}
	}
	return program, nil
}

// Emit parses formula into postfix instructions. Stack depth is left to
// kernel.NewModelProgram.
func Emit(formula string, inputNames []string) ([]kernel.Instruction, error) {
	if len(inputNames) > kernel.MaxInputs {
		return nil, fmt.Errorf("%w: %d > %d", core.ErrTooManyInputs, len(inputNames), kernel.MaxInputs)
	}
	if len(formula) > MaxFormulaLength {
		return nil, &CompileError{
			Pos: MaxFormulaLength,
			Msg: fmt.Sprintf("formula is %d bytes, limit is %d", len(formula), MaxFormulaLength),
			Err: core.ErrProgramTooLong,
		}
	}
	toks, err := Lex(formula)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(inputNames))
	for i, name := range inputNames {
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("%w: %q", core.ErrDuplicateInput, name)
		}
		index[name] = i
	}

	p := &parser{toks: toks, inputs: index}
	if p.peek().Type == EOF {
		return nil, &CompileError{Pos: 0, Msg: "empty formula", Err: core.ErrEmptyProgram}
	}
	if err := p.expr(); err != nil {
		return nil, err
	}
	if t := p.peek(); t.Type != EOF {
		return nil, &CompileError{Pos: t.Pos, Msg: fmt.Sprintf("unexpected %s %q", t.Type, t.Text)}
	}
	if len(p.out) > kernel.MaxOps {
		return nil, &CompileError{
			Pos: len(formula),
			Msg: fmt.Sprintf("formula needs %d instructions, limit is %d", len(p.out), kernel.MaxOps),
			Err: core.ErrProgramTooLong,
		}
	}
	return p.out, nil
}

type parser struct {
	toks   []Token
	i      int
	inputs map[string]int
	out    []kernel.Instruction
	depth  int
}

func (p *parser) peek() Token { return p.toks[p.i] }

func (p *parser) next() Token {
	t := p.toks[p.i]
	if t.Type != EOF {
		p.i++
	}
	return t
}

func (p *parser) emit(ins kernel.Instruction) { p.out = append(p.out, ins) }

func (p *parser) enter(pos int) error {
	p.depth++
	if p.depth > maxNesting {
		return &CompileError{
			Pos: pos,
			Msg: fmt.Sprintf("expression nested deeper than %d", maxNesting),
			Err: core.ErrStackOverflow,
		}
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) expr() error {
	if err := p.term(); err != nil {
		return err
	}
	for {
		switch p.peek().Type {
		case PLUS:
			p.next()
			if err := p.term(); err != nil {
				return err
			}
			p.emit(kernel.Binary(kernel.OpAdd))
		case MINUS:
			p.next()
			if err := p.term(); err != nil {
				return err
			}
			p.emit(kernel.Binary(kernel.OpSub))
		default:
			return nil
		}
	}
}

func (p *parser) term() error {
	if err := p.unary(); err != nil {
		return err
	}
	for {
		switch p.peek().Type {
		case MULT:
			p.next()
			if err := p.unary(); err != nil {
				return err
			}
			p.emit(kernel.Binary(kernel.OpMul))
		case DIV:
			p.next()
			if err := p.unary(); err != nil {
				return err
			}
			p.emit(kernel.Binary(kernel.OpDiv))
		default:
			return nil
		}
	}
}

func (p *parser) unary() error {
	if p.peek().Type != MINUS {
		return p.primary()
	}
	minus := p.next()
	if err := p.enter(minus.Pos); err != nil {
		return err
	}
	defer p.leave()
	// Negative literals fold into the constant; anything else becomes 0 - x.
	if t := p.peek(); t.Type == NUMBER {
		p.next()
		p.emit(kernel.PushConst(-t.Value))
		return nil
	}
	p.emit(kernel.PushConst(0))
	if err := p.unary(); err != nil {
		return err
	}
	p.emit(kernel.Binary(kernel.OpSub))
	return nil
}

func (p *parser) primary() error {
	t := p.next()
	switch t.Type {
	case NUMBER:
		p.emit(kernel.PushConst(t.Value))
		return nil
	case IDENT:
		idx, ok := p.inputs[t.Text]
		if !ok {
			return &CompileError{Pos: t.Pos, Msg: fmt.Sprintf("unknown input %q", t.Text), Err: ErrUnknownInput}
		}
		p.emit(kernel.PushInput(idx))
		return nil
	case LROUND:
		if err := p.enter(t.Pos); err != nil {
			return err
		}
		defer p.leave()
		if err := p.expr(); err != nil {
			return err
		}
		if closing := p.next(); closing.Type != RROUND {
			return &CompileError{Pos: closing.Pos, Msg: fmt.Sprintf("expected ')' but found %s", closing.Type)}
		}
		return nil
	default:
		return &CompileError{Pos: t.Pos, Msg: fmt.Sprintf("expected a number, input or '(' but found %s", t.Type)}
	}
}
