package lower

import (
	"fmt"
	"strings"
)

// Body is the lowered machine-level representation of one function: an
// ordered sequence of machine blocks whose labels and branch targets preserve
// the control-flow edges of the source graph.
type Body struct {
	// Name is the function identity the body was lowered from.
	Name string

	// FrameSize is the function's stack frame size in bytes.  Targets that do
	// not use frames (eg. IR-level targets) leave it zero.
	FrameSize int

	// Blocks are the machine blocks in layout order.  Blocks[0] corresponds
	// to the source graph's entry block.
	Blocks []*MachBlock
}

// Block returns the machine block with the given label, if it exists.
func (b *Body) Block(label string) (*MachBlock, bool) {
	for _, blk := range b.Blocks {
		if blk.Label == label {
			return blk, true
		}
	}

	return nil, false
}

// MachBlock is one machine-level basic block: a label followed by an ordered
// instruction stream.
type MachBlock struct {
	// Label is the block label, unique within the body.
	Label string

	// Instrs is the ordered machine instruction stream.
	Instrs []MachInstr
}

// Append adds an instruction with no branch target to the block.
func (mb *MachBlock) Append(mnemonic string, args ...string) {
	mb.Instrs = append(mb.Instrs, MachInstr{Mnemonic: mnemonic, Args: args})
}

// AppendBranch adds a control-transfer instruction targeting the given label.
func (mb *MachBlock) AppendBranch(mnemonic string, target string, args ...string) {
	mb.Instrs = append(mb.Instrs, MachInstr{Mnemonic: mnemonic, Args: args, Target: target})
}

// MachInstr is a single emitted machine instruction.
type MachInstr struct {
	// Mnemonic is the target-specific instruction mnemonic.
	Mnemonic string

	// Args are the rendered operands in the target's syntax.
	Args []string

	// Target is the label this instruction transfers control to, or the empty
	// string for instructions that are not control transfers.  Call targets
	// are rendered in Args, not here: Target only records intra-function
	// block edges so that control-flow preservation is checkable.
	Target string
}

// Render converts the instruction into its assembly-listing form.
func (mi *MachInstr) Render() string {
	args := mi.Args
	if mi.Target != "" {
		args = append(append([]string{}, args...), mi.Target)
	}

	if len(args) == 0 {
		return mi.Mnemonic
	}

	return mi.Mnemonic + " " + strings.Join(args, ", ")
}

// Render converts the body into an assembly-style listing.
func (b *Body) Render() string {
	sb := strings.Builder{}

	sb.WriteString(b.Name + ":\n")
	for _, blk := range b.Blocks {
		if blk.Label != "" {
			sb.WriteString(fmt.Sprintf(".L%s_%s:\n", b.Name, blk.Label))
		}

		for i := range blk.Instrs {
			mi := &blk.Instrs[i]

			// Intra-function branch targets render as local labels.
			if mi.Target != "" {
				local := MachInstr{
					Mnemonic: mi.Mnemonic,
					Args:     mi.Args,
					Target:   fmt.Sprintf(".L%s_%s", b.Name, mi.Target),
				}
				sb.WriteString("\t" + local.Render() + "\n")
				continue
			}

			sb.WriteString("\t" + mi.Render() + "\n")
		}
	}

	return sb.String()
}

// BranchTargets returns the labels of all intra-function control transfers in
// the block, in emission order.
func (mb *MachBlock) BranchTargets() []string {
	var targets []string
	for i := range mb.Instrs {
		if mb.Instrs[i].Target != "" {
			targets = append(targets, mb.Instrs[i].Target)
		}
	}

	return targets
}
