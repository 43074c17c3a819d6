package asm

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"udonsharp/internal/diag"
	"udonsharp/internal/symbols"
)

// Entry is an exported event: a name bound to a code label.
type Entry struct {
	Name  string
	Label *Label
}

// Program is a compiled behaviour before address resolution.
type Program struct {
	Name    string
	Mapper  symbols.TypeMapper
	Data    []*symbols.Symbol
	Code    *Builder
	Entries []Entry
}

// DataEntry is one heap slot of an assembled program.
type DataEntry struct {
	Name   string `msgpack:"name" cbor:"1,keyasint"`
	Type   string `msgpack:"type" cbor:"2,keyasint"`
	Value  string `msgpack:"value" cbor:"3,keyasint"`
	Export bool   `msgpack:"export" cbor:"4,keyasint,omitempty"`
}

// CodeEntry is one instruction with its resolved address. Operand is a
// symbol name, an extern signature or a hex address.
type CodeEntry struct {
	Addr    uint32   `msgpack:"addr" cbor:"1,keyasint"`
	Op      Opcode   `msgpack:"op" cbor:"2,keyasint"`
	Operand string   `msgpack:"operand" cbor:"3,keyasint,omitempty"`
	Labels  []string `msgpack:"labels" cbor:"4,keyasint,omitempty"`
}

type EntryPoint struct {
	Name string `msgpack:"name" cbor:"1,keyasint"`
	Addr uint32 `msgpack:"addr" cbor:"2,keyasint"`
}

// Assembly is a program with every label resolved to a byte address.
type Assembly struct {
	Name    string       `msgpack:"name" cbor:"1,keyasint"`
	Data    []DataEntry  `msgpack:"data" cbor:"2,keyasint"`
	Code    []CodeEntry  `msgpack:"code" cbor:"3,keyasint"`
	Entries []EntryPoint `msgpack:"entries" cbor:"4,keyasint"`
	Size    uint32       `msgpack:"size" cbor:"5,keyasint"`
}

// Addresses maps every placed label of p to its byte address. Addresses
// are final: instruction widths are fixed.
func Addresses(code *Builder) (map[*Label]uint32, []uint32, error) {
	offsets := make([]uint32, len(code.code)+1)
	var pc uint64
	for i, in := range code.code {
		addr, err := safecast.Conv[uint32](pc)
		if err != nil {
			return nil, nil, diag.Errorf(diag.AsmOverflow, "instruction %d lies beyond the 32-bit address space", i)
		}
		offsets[i] = addr
		pc += uint64(in.Op.Size())
	}
	end, err := safecast.Conv[uint32](pc)
	if err != nil || end >= HaltAddress {
		return nil, nil, diag.Errorf(diag.AsmOverflow, "program of %d bytes does not fit the address space", pc)
	}
	offsets[len(code.code)] = end
	labels := make(map[*Label]uint32, len(code.places))
	for l, idx := range code.places {
		labels[l] = offsets[idx]
	}
	return labels, offsets, nil
}

// Assemble resolves p. A label that is referenced but never placed is an
// error.
func Assemble(p *Program) (*Assembly, error) {
	labels, offsets, err := Addresses(p.Code)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]uint32, len(labels))
	for l, addr := range labels {
		byName[l.name] = addr
	}
	resolve := func(l *Label) (string, error) {
		addr, ok := labels[l]
		if !ok {
			return "", diag.Errorf(diag.AsmUnplacedLabel, "label %s is referenced but never placed", l)
		}
		return hexAddr(addr), nil
	}

	out := &Assembly{Name: p.Name, Size: offsets[len(offsets)-1]}
	for _, sym := range p.Data {
		value, err := dataValue(sym, byName)
		if err != nil {
			return nil, err
		}
		out.Data = append(out.Data, DataEntry{
			Name:   sym.Name,
			Type:   p.Mapper.UdonTypeName(sym.UdonType),
			Value:  value,
			Export: sym.IsPublic(),
		})
	}

	placedAt := make(map[int][]string)
	for _, l := range p.Code.order {
		idx := p.Code.places[l]
		placedAt[idx] = append(placedAt[idx], l.name)
	}
	for i, in := range p.Code.code {
		entry := CodeEntry{Addr: offsets[i], Op: in.Op, Labels: placedAt[i]}
		switch in.Op {
		case OpPush, OpJumpIndirect:
			entry.Operand = in.Symbol.Name
		case OpExtern:
			entry.Operand = in.Extern
		case OpJump, OpJumpIfFalse:
			if in.Label == nil {
				entry.Operand = hexAddr(HaltAddress)
				break
			}
			operand, err := resolve(in.Label)
			if err != nil {
				return nil, err
			}
			entry.Operand = operand
		}
		out.Code = append(out.Code, entry)
	}
	for _, e := range p.Entries {
		addr, ok := labels[e.Label]
		if !ok {
			return nil, diag.Errorf(diag.AsmUnplacedLabel, "entry point %s was never placed", e.Name)
		}
		out.Entries = append(out.Entries, EntryPoint{Name: e.Name, Addr: addr})
	}
	return out, nil
}

func hexAddr(addr uint32) string {
	return fmt.Sprintf("0x%08X", addr)
}

func dataValue(sym *symbols.Symbol, labels map[string]uint32) (string, error) {
	if sym.IsThis() {
		return "this", nil
	}
	if !sym.HasValue || sym.Value == nil {
		return "null", nil
	}
	switch v := sym.Value.(type) {
	case symbols.Addressable:
		addr, ok := labels[v.LabelName()]
		if !ok {
			return "", diag.Errorf(diag.AsmUnplacedLabel, "constant %s refers to unplaced label %s", sym.Name, v.LabelName())
		}
		return hexAddr(addr), nil
	case string:
		return strconv.Quote(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// Text renders the assembly in the Udon assembly text format.
func (a *Assembly) Text() string {
	var sb strings.Builder
	sb.WriteString(".data_start\n")
	for _, d := range a.Data {
		if d.Export {
			fmt.Fprintf(&sb, "    .export %s\n", d.Name)
		}
	}
	for _, d := range a.Data {
		fmt.Fprintf(&sb, "    %s: %%%s, %s\n", d.Name, d.Type, d.Value)
	}
	sb.WriteString(".data_end\n")
	sb.WriteString(".code_start\n")
	entries := make(map[uint32][]string)
	for _, e := range a.Entries {
		entries[e.Addr] = append(entries[e.Addr], e.Name)
	}
	emitted := make(map[uint32]bool)
	writeEntries := func(addr uint32) {
		if emitted[addr] {
			return
		}
		emitted[addr] = true
		for _, name := range entries[addr] {
			fmt.Fprintf(&sb, "    .export %s\n    %s:\n", name, name)
		}
	}
	for _, c := range a.Code {
		writeEntries(c.Addr)
		for _, l := range c.Labels {
			fmt.Fprintf(&sb, "        # %s\n", l)
		}
		switch c.Op {
		case OpExtern:
			fmt.Fprintf(&sb, "        %s, %q\n", c.Op, c.Operand)
		case OpPush, OpJump, OpJumpIfFalse, OpJumpIndirect:
			fmt.Fprintf(&sb, "        %s, %s\n", c.Op, c.Operand)
		default:
			fmt.Fprintf(&sb, "        %s\n", c.Op)
		}
	}
	writeEntries(a.Size)
	sb.WriteString(".code_end\n")
	return sb.String()
}
