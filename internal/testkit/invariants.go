package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"udonsharp/internal/asm"
	"udonsharp/internal/symbols"
)

// CheckProgramInvariants runs the structural checks every compiled program
// must pass:
// 1) every pushed or jumped-through symbol lives in the data section
// 2) every jump target and entry label is placed
// 3) symbol names are unique and constants hold a value
// 4) the code fits below the halt sentinel
func CheckProgramInvariants(p *asm.Program) error {
	if p == nil || p.Code == nil {
		return fmt.Errorf("nil program or code")
	}
	data := make(map[*symbols.Symbol]struct{}, len(p.Data))
	names := make(map[string]struct{}, len(p.Data))
	for _, sym := range p.Data {
		if _, dup := names[sym.Name]; dup {
			return fmt.Errorf("symbol name %q appears twice", sym.Name)
		}
		names[sym.Name] = struct{}{}
		data[sym] = struct{}{}
		if sym.IsConstant() && !sym.HasValue {
			return fmt.Errorf("constant %s has no value", sym.Name)
		}
	}

	labels, _, err := asm.Addresses(p.Code)
	if err != nil {
		return err
	}
	for i, in := range p.Code.Instructions() {
		switch in.Op {
		case asm.OpPush, asm.OpJumpIndirect:
			if _, ok := data[in.Symbol]; !ok {
				return fmt.Errorf("instruction %d (%s) uses %s outside the data section", i, in.Op, in.Symbol)
			}
		case asm.OpJump, asm.OpJumpIfFalse:
			if in.Label == nil {
				continue
			}
			if _, ok := labels[in.Label]; !ok {
				return fmt.Errorf("instruction %d (%s) targets unplaced label %s", i, in.Op, in.Label)
			}
		case asm.OpExtern:
			if in.Extern == "" {
				return fmt.Errorf("instruction %d calls an unnamed extern", i)
			}
		}
	}
	for _, e := range p.Entries {
		if _, ok := labels[e.Label]; !ok {
			return fmt.Errorf("entry %s is never placed", e.Name)
		}
	}

	n, err := safecast.Conv[uint32](p.Code.Len())
	if err != nil {
		return fmt.Errorf("instruction count overflow: %w", err)
	}
	if n*8 >= asm.HaltAddress {
		return fmt.Errorf("program of %d instructions reaches the halt sentinel", n)
	}
	return nil
}
