package bytecode

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

const disasmOpColumn = 36

// Disassemble writes a listing of fn:
//
//	ip  line  OP arg  ; annotation
//
// Annotations give jump targets, local slots and viz node labels.
func (p *Program) Disassemble(w io.Writer, fn *Function) error {
	header := fmt.Sprintf("function %s(%d) [%s]", fn.Name, fn.Arity, fn.Kind)
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	if fn.Kind != FuncExec {
		return nil
	}
	for ip, in := range fn.Bytecode.Instructions {
		text := p.Render(fn, ip)
		line := 0
		if ip < len(fn.Bytecode.SourceLines) {
			line = fn.Bytecode.SourceLines[ip]
		}
		row := fmt.Sprintf("%5d %5d  %s", ip, line, runewidth.FillRight(runewidth.Truncate(text, disasmOpColumn, "…"), disasmOpColumn))
		if note := annotate(fn, ip, in); note != "" {
			row += " ; " + note
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(row, " ")); err != nil {
			return err
		}
	}
	return nil
}

// DisassembleAll lists every exec function in pool order.
func (p *Program) DisassembleAll(w io.Writer) error {
	for i, fn := range p.ExecFunctions() {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := p.Disassemble(w, fn); err != nil {
			return err
		}
	}
	return nil
}

func annotate(fn *Function, ip int, in Instruction) string {
	switch in.Op {
	case OpJump, OpJumpIfFalse:
		return fmt.Sprintf("-> %d", ip+in.Arg)
	case OpLoadVar, OpStoreVar, OpWatch, OpNotify:
		return fmt.Sprintf("slot %d", in.Arg)
	case OpVizEnter, OpVizExit:
		if in.Arg >= 0 && in.Arg < len(fn.VizNodes) {
			node := fn.VizNodes[in.Arg]
			return node.Type.String() + " " + node.LogFilterKey
		}
	}
	return ""
}
