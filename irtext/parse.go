// Package irtext reads the textual namespace interchange format produced by
// the front-end (and by cfg's printer).  The format is line oriented:
//
//	entry main
//
//	fn main(a, b) {
//	  locals x
//	entry:
//	  r0 = add a, b
//	  store x, r0
//	  r1 = call @helper, r0, 7
//	  br r1, then, done
//	then:
//	  ret r1
//	done:
//	  ret 0
//	}
//
// Values are virtual registers (rN), integer immediates, function references
// (@name), or named local slots.
package irtext

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"dcc/cfg"
	"dcc/common"
	"dcc/report"
)

// Error is a parse error at a position in a namespace file.
type Error struct {
	// Pos is the position the error occurred at.
	Pos report.TextPosition

	// Msg is the error message.
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Pos.Line, e.Msg)
}

// -----------------------------------------------------------------------------

// parser holds the state of one parse run.
type parser struct {
	ns   *cfg.Namespace
	fn   *cfg.Function
	blk  *cfg.Block
	line int
}

// Parse reads a namespace from r.  The filename is recorded on the namespace
// for diagnostics; it is not opened.
func Parse(filename string, r io.Reader) (*cfg.Namespace, error) {
	p := &parser{ns: &cfg.Namespace{Filename: filename}}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		p.line++

		if err := p.parseLine(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if p.fn != nil {
		return nil, p.errorf("unterminated function `%s`", p.fn.Name)
	}

	if p.ns.Entry == "" {
		if _, ok := p.ns.Lookup(common.DefaultEntryName); ok {
			p.ns.Entry = common.DefaultEntryName
		}
	}

	return p.ns, nil
}

// errorf creates a parse error at the current line.
func (p *parser) errorf(msg string, args ...interface{}) error {
	return &Error{
		Pos: report.TextPosition{Line: p.line},
		Msg: fmt.Sprintf(msg, args...),
	}
}

// parseLine dispatches on one line of input.
func (p *parser) parseLine(raw string) error {
	// Strip comments and surrounding whitespace.
	if idx := strings.Index(raw, ";"); idx >= 0 {
		raw = raw[:idx]
	}
	line := strings.TrimSpace(raw)
	if line == "" {
		return nil
	}

	if p.fn == nil {
		return p.parseTopLevel(line)
	}

	return p.parseFunctionLine(line)
}

// parseTopLevel handles lines outside any function body.
func (p *parser) parseTopLevel(line string) error {
	fields := strings.Fields(line)

	switch fields[0] {
	case "entry":
		if len(fields) != 2 {
			return p.errorf("entry directive requires a function name")
		}
		p.ns.Entry = fields[1]
		return nil

	case "fn":
		return p.parseFunctionHeader(line)

	default:
		return p.errorf("expected `fn` or `entry`, found `%s`", fields[0])
	}
}

// parseFunctionHeader parses `fn name(params...) {`.
func (p *parser) parseFunctionHeader(line string) error {
	open := strings.Index(line, "(")
	closing := strings.Index(line, ")")
	if open < 0 || closing < open || !strings.HasSuffix(line, "{") {
		return p.errorf("malformed function header")
	}

	name := strings.TrimSpace(line[len("fn"):open])
	if name == "" {
		return p.errorf("function header missing a name")
	}

	var params []string
	for _, param := range strings.Split(line[open+1:closing], ",") {
		if param = strings.TrimSpace(param); param != "" {
			params = append(params, param)
		}
	}

	p.fn = &cfg.Function{
		Name:   name,
		Params: params,
		Locals: append([]string{}, params...),
	}
	p.ns.Funcs = append(p.ns.Funcs, p.fn)
	return nil
}

// parseFunctionLine handles lines inside a function body.
func (p *parser) parseFunctionLine(line string) error {
	if line == "}" {
		p.fn = nil
		p.blk = nil
		return nil
	}

	if strings.HasPrefix(line, "locals ") {
		for _, local := range strings.Split(line[len("locals "):], ",") {
			if local = strings.TrimSpace(local); local != "" {
				p.fn.Locals = append(p.fn.Locals, local)
			}
		}
		return nil
	}

	if strings.HasSuffix(line, ":") {
		label := strings.TrimSuffix(line, ":")
		p.blk = &cfg.Block{Label: label}
		p.fn.Blocks = append(p.fn.Blocks, p.blk)
		return nil
	}

	if p.blk == nil {
		return p.errorf("instruction outside of a block")
	}

	return p.parseInstruction(line)
}

// -----------------------------------------------------------------------------

// mnemonicOps maps instruction mnemonics to their op codes.
var mnemonicOps = map[string]int{
	"const": cfg.OpConst,
	"add":   cfg.OpAdd,
	"sub":   cfg.OpSub,
	"mul":   cfg.OpMul,
	"div":   cfg.OpDiv,
	"rem":   cfg.OpRem,
	"neg":   cfg.OpNeg,
	"not":   cfg.OpNot,
	"cmpeq": cfg.OpCmpEQ,
	"cmpne": cfg.OpCmpNE,
	"cmplt": cfg.OpCmpLT,
	"cmple": cfg.OpCmpLE,
	"cmpgt": cfg.OpCmpGT,
	"cmpge": cfg.OpCmpGE,
	"load":  cfg.OpLoad,
	"store": cfg.OpStore,
	"call":  cfg.OpCall,
}

// parseInstruction parses an instruction or terminator line.
func parseOperands(rest string) []string {
	var operands []string
	for _, op := range strings.Split(rest, ",") {
		if op = strings.TrimSpace(op); op != "" {
			operands = append(operands, op)
		}
	}

	return operands
}

func (p *parser) parseInstruction(line string) error {
	// Split an optional `dst =` prefix off the front.
	dst := cfg.None()
	if idx := strings.Index(line, "="); idx >= 0 {
		dstText := strings.TrimSpace(line[:idx])
		v, err := p.parseValue(dstText)
		if err != nil || v.Kind != cfg.KindReg {
			return p.errorf("destination `%s` is not a virtual register", dstText)
		}

		dst = v
		line = strings.TrimSpace(line[idx+1:])
	}

	fields := strings.SplitN(line, " ", 2)
	mnemonic := fields[0]
	rest := ""
	if len(fields) == 2 {
		rest = fields[1]
	}

	switch mnemonic {
	case "jmp":
		return p.parseJump(rest)
	case "br":
		return p.parseBranch(rest)
	case "ret":
		return p.parseRet(rest)
	}

	opCode, ok := mnemonicOps[mnemonic]
	if !ok {
		return p.errorf("unknown instruction `%s`", mnemonic)
	}

	var operands []cfg.Value
	for _, text := range parseOperands(rest) {
		v, err := p.parseValue(text)
		if err != nil {
			return err
		}

		operands = append(operands, v)
	}

	p.blk.Instrs = append(p.blk.Instrs, cfg.Instr{
		OpCode:   opCode,
		Dst:      dst,
		Operands: operands,
	})
	return nil
}

// parseJump parses `jmp label`.
func (p *parser) parseJump(rest string) error {
	label := strings.TrimSpace(rest)
	if label == "" {
		return p.errorf("jmp requires a target label")
	}

	p.blk.Term = cfg.Terminator{Kind: cfg.TermJump, To: label}
	return nil
}

// parseBranch parses `br cond, trueLabel, falseLabel`.
func (p *parser) parseBranch(rest string) error {
	operands := parseOperands(rest)
	if len(operands) != 3 {
		return p.errorf("br requires a condition and two target labels")
	}

	cond, err := p.parseValue(operands[0])
	if err != nil {
		return err
	}

	p.blk.Term = cfg.Terminator{
		Kind: cfg.TermBranch,
		Cond: cond,
		To:   operands[1],
		Else: operands[2],
	}
	return nil
}

// parseRet parses `ret` or `ret value`.
func (p *parser) parseRet(rest string) error {
	val := cfg.None()
	if text := strings.TrimSpace(rest); text != "" {
		v, err := p.parseValue(text)
		if err != nil {
			return err
		}
		val = v
	}

	p.blk.Term = cfg.Terminator{Kind: cfg.TermRet, Val: val}
	return nil
}

// parseValue parses one operand.
func (p *parser) parseValue(text string) (cfg.Value, error) {
	switch {
	case strings.HasPrefix(text, "@"):
		return cfg.FuncRef(text[1:]), nil

	case strings.HasPrefix(text, "r"):
		if n, err := strconv.Atoi(text[1:]); err == nil {
			return cfg.Reg(n), nil
		}
		// Not a register number: fall through to a local name (eg. `result`).
		return cfg.Local(text), nil

	default:
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return cfg.Imm(n), nil
		}

		return cfg.Local(text), nil
	}
}
