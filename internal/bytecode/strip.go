package bytecode

import "fmt"

// Strip removes every instruction for which drop reports true and rewrites
// relative jumps so control flow is unchanged. A jump whose target was
// removed lands on the next kept instruction, which is where execution
// would have continued after the dropped one. Jumps that end up outside the
// function are a compiler bug and panic.
func Strip(bc *Bytecode, drop func(Instruction) bool) {
	n := len(bc.Instructions)
	newIndex := make([]int, n)
	kept := 0
	for i, in := range bc.Instructions {
		if drop(in) {
			newIndex[i] = -1
			continue
		}
		newIndex[i] = kept
		kept++
	}
	if kept == n {
		return
	}

	resolve := func(target int) int {
		for t := target; t < n; t++ {
			if t >= 0 && newIndex[t] >= 0 {
				return newIndex[t]
			}
			if t < 0 {
				break
			}
		}
		panic(fmt.Errorf("strip: jump target %d has no kept instruction", target))
	}

	insts := make([]Instruction, 0, kept)
	lines := make([]int, 0, kept)
	scopes := make([]int, 0, kept)
	for i, in := range bc.Instructions {
		if newIndex[i] < 0 {
			continue
		}
		if in.Op.IsJump() {
			in.Arg = resolve(i+in.Arg) - newIndex[i]
		}
		insts = append(insts, in)
		if i < len(bc.SourceLines) {
			lines = append(lines, bc.SourceLines[i])
		}
		if i < len(bc.Scopes) {
			scopes = append(scopes, bc.Scopes[i])
		}
	}
	bc.Instructions = insts
	bc.SourceLines = lines
	bc.Scopes = scopes
}

// StripViz drops VizEnter/VizExit from fn and forgets its viz nodes.
func StripViz(fn *Function) {
	Strip(&fn.Bytecode, func(in Instruction) bool { return in.Op.IsViz() })
	fn.VizNodes = nil
}

// StripVizAll applies StripViz to every exec function of p.
func (p *Program) StripVizAll() {
	for _, fn := range p.ExecFunctions() {
		StripViz(fn)
	}
}
