package asm

import "fmt"

// Label is a jump target. It is placed at most once; references before
// placement are resolved during assembly.
type Label struct {
	name string
}

func (l *Label) LabelName() string { return l.name }

func (l *Label) String() string { return l.name }

// LabelTable hands out uniquely named labels for one compilation unit.
type LabelTable struct {
	counts map[string]int
	labels []*Label
}

func NewLabelTable() *LabelTable {
	return &LabelTable{counts: make(map[string]int)}
}

// New returns a fresh label named <prefix>_<n>.
func (lt *LabelTable) New(prefix string) *Label {
	n := lt.counts[prefix]
	lt.counts[prefix] = n + 1
	l := &Label{name: fmt.Sprintf("%s_%d", prefix, n)}
	lt.labels = append(lt.labels, l)
	return l
}

// Named returns a label with an exact name, used for exported entry points.
func (lt *LabelTable) Named(name string) *Label {
	if _, taken := lt.counts[name]; taken {
		panic(fmt.Sprintf("asm: label name %q already in use", name))
	}
	lt.counts[name] = 1
	l := &Label{name: name}
	lt.labels = append(lt.labels, l)
	return l
}

func (lt *LabelTable) Labels() []*Label { return lt.labels }
