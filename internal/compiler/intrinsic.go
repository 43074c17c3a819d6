package compiler

import (
	"udonsharp/internal/diag"
	"udonsharp/internal/resolver"
	"udonsharp/internal/symbols"
	"udonsharp/internal/types"
)

// InternalMethod is a compiler intrinsic: a pseudo method with no extern
// behind it.
type InternalMethod struct {
	Name   string
	Static bool
	id     int
}

// IntrinsicCall carries everything an intrinsic needs to expand.
type IntrinsicCall struct {
	Method *InternalMethod
	// Receiver is nil for static intrinsics.
	Receiver    *symbols.Symbol
	Args        []*symbols.Symbol
	GenericArgs []*types.Type
}

// InternalMethodHandler resolves and expands compiler intrinsics.
type InternalMethodHandler interface {
	// Resolve finds the intrinsic name on owner. static is set when the
	// token follows a type name rather than a value.
	Resolve(name string, owner *types.Type, static bool) (*InternalMethod, bool)
	Invoke(c *Context, call *IntrinsicCall) (*symbols.Symbol, error)
}

const (
	intrinsicVRCInstantiate = iota + 1
	intrinsicGetUdonTypeID
	intrinsicGetUdonTypeName
)

var builtinIntrinsics = []*InternalMethod{
	{Name: "VRCInstantiate", Static: true, id: intrinsicVRCInstantiate},
	{Name: "GetUdonTypeID", id: intrinsicGetUdonTypeID},
	{Name: "GetUdonTypeName", id: intrinsicGetUdonTypeName},
}

// BuiltinIntrinsics implements the intrinsics every behaviour can use:
// VRCInstantiate, and GetUdonTypeID/GetUdonTypeName in their generic static
// form (a constant) and their instance form on user behaviours.
type BuiltinIntrinsics struct{}

func (BuiltinIntrinsics) Resolve(name string, owner *types.Type, static bool) (*InternalMethod, bool) {
	if owner == nil {
		return nil, false
	}
	for _, m := range builtinIntrinsics {
		if m.Name != name {
			continue
		}
		switch {
		case static && !owner.UserBehaviour && owner.FullName() != "UdonSharp.UdonSharpBehaviour":
			return nil, false
		case !static && !owner.UserBehaviour:
			return nil, false
		}
		return m, true
	}
	return nil, false
}

func (BuiltinIntrinsics) Invoke(c *Context, call *IntrinsicCall) (*symbols.Symbol, error) {
	b := c.Builtins()
	switch call.Method.id {
	case intrinsicVRCInstantiate:
		if len(call.Args) != 1 {
			return nil, diag.Errorf(diag.SemaArgumentCount, "VRCInstantiate takes 1 argument, got %d", len(call.Args))
		}
		original, err := c.CastSymbolToType(call.Args[0], b.GameObject, false)
		if err != nil {
			return nil, err
		}
		out := c.TopTable.CreateUnnamed(b.GameObject)
		c.Sink.AddPush(original)
		c.Sink.AddPush(out)
		c.Sink.AddExternCall(resolver.ExternVRCInstantiate)
		return out, nil
	case intrinsicGetUdonTypeID, intrinsicGetUdonTypeName:
		return c.udonTypeIdentity(call)
	}
	return nil, diag.Errorf(diag.SemaIntrinsic, "unknown intrinsic %s", call.Method.Name)
}

// udonTypeIdentity expands GetUdonTypeID and GetUdonTypeName. With a type
// argument the answer is a constant; without one it is read from the
// receiver's reflection constants.
func (c *Context) udonTypeIdentity(call *IntrinsicCall) (*symbols.Symbol, error) {
	b := c.Builtins()
	wantID := call.Method.id == intrinsicGetUdonTypeID
	if len(call.Args) != 0 {
		return nil, diag.Errorf(diag.SemaArgumentCount, "%s takes no arguments, got %d", call.Method.Name, len(call.Args))
	}
	switch len(call.GenericArgs) {
	case 0:
		recv := call.Receiver
		if recv == nil || !recv.Type.UserBehaviour {
			return nil, diag.Errorf(diag.SemaIntrinsic, "%s needs a type argument or a behaviour instance", call.Method.Name)
		}
		if recv.IsThis() {
			if wantID {
				return c.TopTable.CreateConst(b.Int64, types.TypeTag(c.Behaviour)), nil
			}
			return c.TopTable.CreateConst(b.String, c.Behaviour.FullName()), nil
		}
		if wantID {
			return c.retype(c.getProgramVariable(recv, resolver.TypeIDSymbol), b.Int64)
		}
		return c.retype(c.getProgramVariable(recv, resolver.TypeNameSymbol), b.String)
	case 1:
		t := call.GenericArgs[0]
		if !t.UserBehaviour {
			return nil, diag.Errorf(diag.SemaIntrinsic, "%s<%s>: type argument must be a user behaviour", call.Method.Name, t.DisplayName())
		}
		if wantID {
			return c.TopTable.CreateConst(b.Int64, types.TypeTag(t)), nil
		}
		return c.TopTable.CreateConst(b.String, t.FullName()), nil
	}
	return nil, diag.Errorf(diag.SemaIntrinsic, "%s takes at most one type argument", call.Method.Name)
}
