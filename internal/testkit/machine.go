package testkit

import (
	"fmt"
	"reflect"
	"strings"

	"udonsharp/internal/asm"
	"udonsharp/internal/resolver"
	"udonsharp/internal/symbols"
	"udonsharp/internal/types"
)

// GameObject is a simulated scene object.
type GameObject struct {
	Name       string
	Components []*Component
}

// Component is a simulated component. Components of type
// VRC.Udon.UdonBehaviour carry program variables.
type Component struct {
	Type      string
	Owner     *GameObject
	Variables map[string]any
}

// NewGameObject creates an empty scene object.
func NewGameObject(name string) *GameObject {
	return &GameObject{Name: name}
}

// AddComponent attaches a component of type typeName.
func (g *GameObject) AddComponent(typeName string) *Component {
	c := &Component{Type: typeName, Owner: g, Variables: make(map[string]any)}
	g.Components = append(g.Components, c)
	return c
}

// AddBehaviour attaches an UdonBehaviour compiled from the behaviour named
// fullName: it carries the reflection constants GetComponent<T> filters on.
func (g *GameObject) AddBehaviour(fullName string) *Component {
	c := g.AddComponent("VRC.Udon.UdonBehaviour")
	c.Variables[resolver.TypeIDSymbol] = types.TypeTagOf(fullName)
	c.Variables[resolver.TypeNameSymbol] = fullName
	return c
}

// ExternFunc implements one extern. slots are heap indices in push order.
type ExternFunc func(m *Machine, slots []int) error

type extern struct {
	arity int
	fn    ExternFunc
}

// Machine runs a Program on a model of the Udon VM that covers the
// instructions and externs the compiler emits. It is a test double.
type Machine struct {
	prog    *asm.Program
	heap    []any
	slots   map[*symbols.Symbol]int
	byName  map[string]int
	labels  map[*asm.Label]uint32
	byAddr  map[uint32]int
	stack   []int
	externs map[string]extern

	// Calls records every extern in execution order.
	Calls []string
	// Events records SendCustomEvent calls as "<type>.<event>".
	Events []string
	// MaxSteps bounds a run; 0 means 100000.
	MaxSteps int
}

// NewMachine loads p with this bound to every this slot.
func NewMachine(p *asm.Program, this any) (*Machine, error) {
	labels, offsets, err := asm.Addresses(p.Code)
	if err != nil {
		return nil, err
	}
	m := &Machine{
		prog:    p,
		heap:    make([]any, len(p.Data)),
		slots:   make(map[*symbols.Symbol]int, len(p.Data)),
		byName:  make(map[string]int, len(p.Data)),
		labels:  labels,
		byAddr:  make(map[uint32]int, len(offsets)),
		externs: make(map[string]extern),
	}
	for i, addr := range offsets {
		m.byAddr[addr] = i
	}
	for i, sym := range p.Data {
		m.slots[sym] = i
		m.byName[sym.Name] = i
		switch {
		case sym.IsThis():
			m.heap[i] = this
		case !sym.HasValue:
		default:
			if l, ok := sym.Value.(symbols.Addressable); ok {
				m.heap[i] = m.addressOf(l.LabelName())
				continue
			}
			m.heap[i] = sym.Value
		}
	}
	m.registerStd()
	return m, nil
}

func (m *Machine) addressOf(label string) any {
	for l, addr := range m.labels {
		if l.LabelName() == label {
			return addr
		}
	}
	return nil
}

// Register installs or replaces an extern.
func (m *Machine) Register(name string, arity int, fn ExternFunc) {
	m.externs[name] = extern{arity: arity, fn: fn}
}

// Get reads a heap slot.
func (m *Machine) Get(slot int) any { return m.heap[slot] }

// Set writes a heap slot.
func (m *Machine) Set(slot int, v any) { m.heap[slot] = v }

// Value reads the heap slot of the symbol called name.
func (m *Machine) Value(name string) (any, bool) {
	i, ok := m.byName[name]
	if !ok {
		return nil, false
	}
	return m.heap[i], true
}

// SetValue writes the heap slot of the symbol called name.
func (m *Machine) SetValue(name string, v any) error {
	i, ok := m.byName[name]
	if !ok {
		return fmt.Errorf("no symbol %q", name)
	}
	m.heap[i] = v
	return nil
}

// ValueOf reads the heap slot of sym.
func (m *Machine) ValueOf(sym *symbols.Symbol) any {
	return m.heap[m.slots[sym]]
}

// Run executes from the exported entry until the program halts.
func (m *Machine) Run(entry string) error {
	pc := -1
	for _, e := range m.prog.Entries {
		if e.Name == entry {
			pc = m.byAddr[m.labels[e.Label]]
		}
	}
	if pc < 0 {
		return fmt.Errorf("no entry point %q", entry)
	}
	limit := m.MaxSteps
	if limit == 0 {
		limit = 100000
	}
	code := m.prog.Code.Instructions()
	for steps := 0; pc < len(code); steps++ {
		if steps >= limit {
			return fmt.Errorf("step limit %d reached at instruction %d", limit, pc)
		}
		in := code[pc]
		pc++
		switch in.Op {
		case asm.OpNop:
		case asm.OpPush:
			m.stack = append(m.stack, m.slots[in.Symbol])
		case asm.OpPop:
			if _, err := m.pop(1); err != nil {
				return err
			}
		case asm.OpCopy:
			pair, err := m.pop(2)
			if err != nil {
				return err
			}
			m.heap[pair[1]] = m.heap[pair[0]]
		case asm.OpJumpIfFalse:
			cond, err := m.pop(1)
			if err != nil {
				return err
			}
			b, ok := m.heap[cond[0]].(bool)
			if !ok {
				return fmt.Errorf("JUMP_IF_FALSE on %T", m.heap[cond[0]])
			}
			if !b {
				pc = m.byAddr[m.labels[in.Label]]
			}
		case asm.OpJump:
			if in.Label == nil {
				return nil
			}
			pc = m.byAddr[m.labels[in.Label]]
		case asm.OpJumpIndirect:
			addr, ok := m.heap[m.slots[in.Symbol]].(uint32)
			if !ok {
				return fmt.Errorf("JUMP_INDIRECT through %T", m.heap[m.slots[in.Symbol]])
			}
			if addr == asm.HaltAddress {
				return nil
			}
			pc = m.byAddr[addr]
		case asm.OpExtern:
			if err := m.call(in.Extern); err != nil {
				return fmt.Errorf("%s: %w", in.Extern, err)
			}
		default:
			return fmt.Errorf("unsupported opcode %s", in.Op)
		}
	}
	return nil
}

// StackDepth is the number of addresses left on the stack.
func (m *Machine) StackDepth() int { return len(m.stack) }

func (m *Machine) pop(n int) ([]int, error) {
	if len(m.stack) < n {
		return nil, fmt.Errorf("stack underflow: need %d, have %d", n, len(m.stack))
	}
	out := append([]int(nil), m.stack[len(m.stack)-n:]...)
	m.stack = m.stack[:len(m.stack)-n]
	return out, nil
}

func (m *Machine) call(name string) error {
	ext, ok := m.externs[name]
	if !ok {
		ext, ok = arrayExtern(name)
	}
	if !ok {
		return fmt.Errorf("extern not implemented by the simulator")
	}
	slots, err := m.pop(ext.arity)
	if err != nil {
		return err
	}
	m.Calls = append(m.Calls, name)
	return ext.fn(m, slots)
}

// arrayExtern implements the accessors the VM synthesizes for every array
// type.
func arrayExtern(name string) (extern, bool) {
	typ, _, _ := strings.Cut(name, ".")
	if !strings.HasSuffix(typ, "Array") {
		return extern{}, false
	}
	switch {
	case strings.Contains(name, ".__ctor__SystemInt32__"):
		return extern{arity: 2, fn: func(m *Machine, s []int) error {
			n, ok := m.heap[s[0]].(int32)
			if !ok || n < 0 {
				return fmt.Errorf("bad array length %v", m.heap[s[0]])
			}
			m.heap[s[1]] = make([]any, n)
			return nil
		}}, true
	case strings.Contains(name, ".__Get__SystemInt32__"):
		return extern{arity: 3, fn: func(m *Machine, s []int) error {
			arr, i, err := m.element(s[0], s[1])
			if err != nil {
				return err
			}
			m.heap[s[2]] = arr[i]
			return nil
		}}, true
	case strings.Contains(name, ".__Set__SystemInt32_"):
		return extern{arity: 3, fn: func(m *Machine, s []int) error {
			arr, i, err := m.element(s[0], s[1])
			if err != nil {
				return err
			}
			arr[i] = m.heap[s[2]]
			return nil
		}}, true
	case strings.Contains(name, ".__get_Length__SystemInt32"):
		return extern{arity: 2, fn: func(m *Machine, s []int) error {
			arr, ok := m.heap[s[0]].([]any)
			if !ok {
				return fmt.Errorf("length of %T", m.heap[s[0]])
			}
			m.heap[s[1]] = int32(len(arr))
			return nil
		}}, true
	}
	return extern{}, false
}

func (m *Machine) element(arrSlot, indexSlot int) ([]any, int, error) {
	arr, ok := m.heap[arrSlot].([]any)
	if !ok {
		return nil, 0, fmt.Errorf("index into %T", m.heap[arrSlot])
	}
	i, ok := m.heap[indexSlot].(int32)
	if !ok || int(i) < 0 || int(i) >= len(arr) {
		return nil, 0, fmt.Errorf("index %v out of range [0,%d)", m.heap[indexSlot], len(arr))
	}
	return arr, int(i), nil
}

func int32Op(op func(a, b int32) any) ExternFunc {
	return func(m *Machine, s []int) error {
		a, okA := m.heap[s[0]].(int32)
		b, okB := m.heap[s[1]].(int32)
		if !okA || !okB {
			return fmt.Errorf("operands %T, %T", m.heap[s[0]], m.heap[s[1]])
		}
		m.heap[s[2]] = op(a, b)
		return nil
	}
}

func (m *Machine) behaviour(slot int) (*Component, error) {
	c, ok := m.heap[slot].(*Component)
	if !ok || c == nil {
		return nil, fmt.Errorf("receiver is %T, not a behaviour", m.heap[slot])
	}
	return c, nil
}

func (m *Machine) registerStd() {
	m.Register(resolver.ExternInt32LessThan, 3, int32Op(func(a, b int32) any { return a < b }))
	m.Register(resolver.ExternInt32GreaterThan, 3, int32Op(func(a, b int32) any { return a > b }))
	m.Register(resolver.ExternInt32Addition, 3, int32Op(func(a, b int32) any { return a + b }))
	m.Register(resolver.ExternObjectEquals, 3, func(m *Machine, s []int) error {
		m.heap[s[2]] = reflect.DeepEqual(m.heap[s[0]], m.heap[s[1]])
		return nil
	})
	m.Register(resolver.ExternGetProgramVariable, 3, func(m *Machine, s []int) error {
		c, err := m.behaviour(s[0])
		if err != nil {
			return err
		}
		m.heap[s[2]] = c.Variables[m.heap[s[1]].(string)]
		return nil
	})
	m.Register(resolver.ExternSetProgramVariable, 3, func(m *Machine, s []int) error {
		c, err := m.behaviour(s[0])
		if err != nil {
			return err
		}
		c.Variables[m.heap[s[1]].(string)] = m.heap[s[2]]
		return nil
	})
	m.Register(resolver.ExternSendCustomEvent, 2, func(m *Machine, s []int) error {
		c, err := m.behaviour(s[0])
		if err != nil {
			return err
		}
		name, _ := c.Variables[resolver.TypeNameSymbol].(string)
		m.Events = append(m.Events, name+"."+m.heap[s[1]].(string))
		return nil
	})
	m.Register(resolver.ExternComponentGetTransform, 2, func(m *Machine, s []int) error {
		c, ok := m.heap[s[0]].(*Component)
		if !ok {
			return fmt.Errorf("transform of %T", m.heap[s[0]])
		}
		m.heap[s[1]] = c.Owner.transform()
		return nil
	})
	m.Register(resolver.ExternGameObjectGetTransform, 2, func(m *Machine, s []int) error {
		g, ok := m.heap[s[0]].(*GameObject)
		if !ok {
			return fmt.Errorf("transform of %T", m.heap[s[0]])
		}
		m.heap[s[1]] = g.transform()
		return nil
	})
	for _, name := range []string{"GetComponents", "GetComponentsInChildren", "GetComponentsInParent"} {
		m.Register("UnityEngineComponent.__"+name+"__SystemType__UnityEngineComponentArray", 3, getComponents)
	}
}

// getComponents returns the components of the receiver's GameObject whose
// type is the requested one.
func getComponents(m *Machine, s []int) error {
	c, ok := m.heap[s[0]].(*Component)
	if !ok {
		return fmt.Errorf("GetComponents on %T", m.heap[s[0]])
	}
	want, ok := m.heap[s[1]].(*types.Type)
	if !ok {
		return fmt.Errorf("GetComponents with %T", m.heap[s[1]])
	}
	var out []any
	for _, comp := range c.Owner.Components {
		if comp.Type == want.FullName() {
			out = append(out, comp)
		}
	}
	if out == nil {
		out = []any{}
	}
	m.heap[s[2]] = out
	return nil
}

func (g *GameObject) transform() *Component {
	for _, c := range g.Components {
		if c.Type == "UnityEngine.Transform" {
			return c
		}
	}
	return g.AddComponent("UnityEngine.Transform")
}
