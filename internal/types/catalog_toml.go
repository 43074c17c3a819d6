package types

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Catalog extension files describe additional host types in TOML:
//
//	[[type]]
//	name = "VRC.SDK3.Components.VRCPickup"
//	kind = "class"
//	base = "UnityEngine.Component"
//	  [[type.property]]
//	  name = "pickupable"
//	  type = "System.Boolean"
//	  access = "rw"
//	  [[type.method]]
//	  name = "Drop"
//	  returns = "System.Void"
//	  params = ["VRC.SDKBase.VRCPlayerApi player"]
type catalogFile struct {
	Types []typeDecl `toml:"type"`
}

type typeDecl struct {
	Name       string       `toml:"name"`
	Kind       string       `toml:"kind"`
	Base       string       `toml:"base"`
	Interfaces []string     `toml:"interfaces"`
	Underlying string       `toml:"underlying"`
	Values     []valueDecl  `toml:"value"`
	Fields     []fieldDecl  `toml:"field"`
	Properties []propDecl   `toml:"property"`
	Methods    []methodDecl `toml:"method"`
}

type valueDecl struct {
	Name  string `toml:"name"`
	Value int64  `toml:"value"`
}

type fieldDecl struct {
	Name     string `toml:"name"`
	Type     string `toml:"type"`
	Static   bool   `toml:"static"`
	ReadOnly bool   `toml:"readonly"`
	Exposed  *bool  `toml:"exposed"`
}

type propDecl struct {
	Name    string `toml:"name"`
	Type    string `toml:"type"`
	Access  string `toml:"access"`
	Static  bool   `toml:"static"`
	Exposed *bool  `toml:"exposed"`
}

type methodDecl struct {
	Name    string   `toml:"name"`
	Returns string   `toml:"returns"`
	Params  []string `toml:"params"`
	Static  bool     `toml:"static"`
	Generic int      `toml:"generic"`
	Exposed *bool    `toml:"exposed"`
}

// LoadFile merges a catalog extension file into c.
func (c *Catalog) LoadFile(path string) error {
	var file catalogFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if err := c.load(&file); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// LoadString merges catalog extension text into c; name labels errors.
func (c *Catalog) LoadString(name, data string) error {
	var file catalogFile
	if _, err := toml.Decode(data, &file); err != nil {
		return fmt.Errorf("%s: failed to parse TOML: %w", name, err)
	}
	if err := c.load(&file); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (c *Catalog) load(file *catalogFile) error {
	declared := make([]*Type, len(file.Types))
	for i, decl := range file.Types {
		t, err := c.declare(decl)
		if err != nil {
			return err
		}
		declared[i] = t
	}
	for i, decl := range file.Types {
		if err := c.populate(declared[i], decl); err != nil {
			return fmt.Errorf("type %s: %w", decl.Name, err)
		}
	}
	return nil
}

func (c *Catalog) declare(decl typeDecl) (*Type, error) {
	name := strings.TrimSpace(decl.Name)
	if name == "" {
		return nil, fmt.Errorf("type without a name")
	}
	t := &Type{Name: name}
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		t.Namespace, t.Name = name[:idx], name[idx+1:]
	}
	switch decl.Kind {
	case "", "class":
		t.Kind = KindClass
	case "struct":
		t.Kind = KindStruct
	case "interface":
		t.Kind = KindInterface
	case "enum":
		t.Kind = KindEnum
	default:
		return nil, fmt.Errorf("type %s: unknown kind %q", name, decl.Kind)
	}
	if err := c.Define(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (c *Catalog) populate(t *Type, decl typeDecl) error {
	b := c.builtins
	if t.Kind == KindClass {
		t.Base = b.Object
		if decl.Base != "" {
			base, err := c.typeRef(decl.Base)
			if err != nil {
				return err
			}
			t.Base = base
		}
	}
	for _, name := range decl.Interfaces {
		it, err := c.typeRef(name)
		if err != nil {
			return err
		}
		t.Interfaces = append(t.Interfaces, it)
	}
	if t.Kind == KindEnum {
		t.Underlying = b.Int32
		if decl.Underlying != "" {
			u, err := c.typeRef(decl.Underlying)
			if err != nil {
				return err
			}
			t.Underlying = u
		}
		for _, v := range decl.Values {
			t.AddEnumValue(v.Name, v.Value)
		}
	}
	for _, fd := range decl.Fields {
		ft, err := c.typeRef(fd.Type)
		if err != nil {
			return err
		}
		t.AddField(&Field{Name: fd.Name, Type: ft, Static: fd.Static, ReadOnly: fd.ReadOnly, Exposed: exposed(fd.Exposed)})
	}
	for _, pd := range decl.Properties {
		pt, err := c.typeRef(pd.Type)
		if err != nil {
			return err
		}
		p := &Property{Name: pd.Name, Type: pt, Static: pd.Static}
		access := pd.Access
		if access == "" {
			access = "r"
		}
		if strings.Contains(access, "r") {
			p.Getter = &Method{Name: "get_" + pd.Name, Return: pt, Exposed: exposed(pd.Exposed)}
		}
		if strings.Contains(access, "w") {
			p.Setter = &Method{Name: "set_" + pd.Name, Return: b.Void, Params: []Param{{Name: "value", Type: pt}}, Exposed: exposed(pd.Exposed)}
		}
		t.AddProperty(p)
	}
	for _, md := range decl.Methods {
		m := &Method{Name: md.Name, Static: md.Static, GenericArity: md.Generic, Exposed: exposed(md.Exposed), Return: b.Void}
		if md.Returns != "" {
			rt, err := c.typeRef(md.Returns)
			if err != nil {
				return err
			}
			m.Return = rt
		}
		for _, spec := range md.Params {
			p, err := c.parseParam(spec)
			if err != nil {
				return fmt.Errorf("method %s: %w", md.Name, err)
			}
			m.Params = append(m.Params, p)
		}
		t.AddMethod(m)
	}
	return nil
}

// parseParam reads "[params|out|ref] Type [name]".
func (c *Catalog) parseParam(spec string) (Param, error) {
	fields := strings.Fields(spec)
	var p Param
	if len(fields) > 0 {
		switch fields[0] {
		case "params":
			p.Variadic = true
			fields = fields[1:]
		case "out":
			p.Out = true
			fields = fields[1:]
		case "ref":
			fields = fields[1:]
			if len(fields) > 0 {
				fields[0] += "&"
			}
		}
	}
	if len(fields) == 0 || len(fields) > 2 {
		return Param{}, fmt.Errorf("malformed parameter %q", spec)
	}
	typ, err := c.typeRef(fields[0])
	if err != nil {
		return Param{}, err
	}
	if p.Out {
		typ = c.ByRefOf(typ)
	}
	if p.Variadic && !typ.IsArray() {
		return Param{}, fmt.Errorf("params parameter %q must be an array", spec)
	}
	p.Type = typ
	if len(fields) == 2 {
		p.Name = fields[1]
	}
	return p, nil
}

func (c *Catalog) typeRef(name string) (*Type, error) {
	if t, ok := c.builtins.Alias(name); ok {
		return t, nil
	}
	t, ok := c.ParseTypeName(name)
	if !ok {
		return nil, fmt.Errorf("unknown type %q", name)
	}
	return t, nil
}

func exposed(flag *bool) bool {
	return flag == nil || *flag
}
