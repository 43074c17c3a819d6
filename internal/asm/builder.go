package asm

import (
	"fmt"

	"udonsharp/internal/symbols"
)

// Sink receives emitted instructions. The compiler only ever appends.
type Sink interface {
	AddPush(sym *symbols.Symbol)
	AddPop()
	AddCopy(dst, src *symbols.Symbol)
	AddStore(dst *symbols.Symbol)
	AddExternCall(name string)
	AddJump(l *Label)
	AddJumpIfFalse(l *Label, cond *symbols.Symbol)
	AddJumpLabel(l *Label)
	AddJumpIndirect(sym *symbols.Symbol)
}

// Instruction is one VM operation. Symbol is the operand of PUSH and
// JUMP_INDIRECT, Label of JUMP and JUMP_IF_FALSE, Extern of EXTERN. A JUMP
// with neither Label nor Symbol halts.
type Instruction struct {
	Op     Opcode
	Symbol *symbols.Symbol
	Label  *Label
	Extern string
}

func (in Instruction) String() string {
	switch in.Op {
	case OpPush, OpJumpIndirect:
		return fmt.Sprintf("%s, %s", in.Op, in.Symbol)
	case OpJump, OpJumpIfFalse:
		if in.Label == nil {
			return fmt.Sprintf("%s, 0x%08X", in.Op, HaltAddress)
		}
		return fmt.Sprintf("%s, %s", in.Op, in.Label)
	case OpExtern:
		return fmt.Sprintf("%s, %q", in.Op, in.Extern)
	default:
		return in.Op.String()
	}
}

// Builder is the Sink that accumulates a unit's code.
type Builder struct {
	code   []Instruction
	places map[*Label]int
	order  []*Label
}

func NewBuilder() *Builder {
	return &Builder{places: make(map[*Label]int)}
}

func (b *Builder) add(in Instruction) {
	b.code = append(b.code, in)
}

func (b *Builder) AddPush(sym *symbols.Symbol) {
	if sym == nil {
		panic("asm: push of nil symbol")
	}
	b.add(Instruction{Op: OpPush, Symbol: sym})
}

func (b *Builder) AddPop() { b.add(Instruction{Op: OpPop}) }

// AddCopy emits PUSH src; PUSH dst; COPY.
func (b *Builder) AddCopy(dst, src *symbols.Symbol) {
	b.AddPush(src)
	b.AddPush(dst)
	b.add(Instruction{Op: OpCopy})
}

// AddStore emits PUSH dst; COPY, storing the slot whose address is already
// on the stack into dst.
func (b *Builder) AddStore(dst *symbols.Symbol) {
	b.AddPush(dst)
	b.add(Instruction{Op: OpCopy})
}

func (b *Builder) AddExternCall(name string) {
	b.add(Instruction{Op: OpExtern, Extern: name})
}

func (b *Builder) AddJump(l *Label) {
	b.add(Instruction{Op: OpJump, Label: l})
}

// AddHalt emits JUMP to the halt address.
func (b *Builder) AddHalt() {
	b.add(Instruction{Op: OpJump})
}

// AddJumpIfFalse emits PUSH cond; JUMP_IF_FALSE l.
func (b *Builder) AddJumpIfFalse(l *Label, cond *symbols.Symbol) {
	b.AddPush(cond)
	b.add(Instruction{Op: OpJumpIfFalse, Label: l})
}

func (b *Builder) AddJumpIndirect(sym *symbols.Symbol) {
	b.add(Instruction{Op: OpJumpIndirect, Symbol: sym})
}

// AddJumpLabel places l at the next instruction. Placing a label twice is
// a compiler bug.
func (b *Builder) AddJumpLabel(l *Label) {
	if _, placed := b.places[l]; placed {
		panic(fmt.Sprintf("asm: label %s placed twice", l))
	}
	b.places[l] = len(b.code)
	b.order = append(b.order, l)
}

func (b *Builder) Instructions() []Instruction { return b.code }

func (b *Builder) Len() int { return len(b.code) }

// Placement returns the instruction index l was placed at.
func (b *Builder) Placement(l *Label) (int, bool) {
	idx, ok := b.places[l]
	return idx, ok
}

// PlacedLabels lists labels in placement order.
func (b *Builder) PlacedLabels() []*Label { return b.order }

// Externs lists extern names in emission order.
func (b *Builder) Externs() []string {
	var out []string
	for _, in := range b.code {
		if in.Op == OpExtern {
			out = append(out, in.Extern)
		}
	}
	return out
}
