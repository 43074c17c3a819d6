package resolver

import (
	"testing"

	"udonsharp/internal/types"
)

func newTestContext(quirk bool) *Context {
	return New(types.NewBuiltinCatalog().Overlay(), Options{ProxySetterQuirk: quirk})
}

func mustType(t *testing.T, r *Context, name string) *types.Type {
	t.Helper()
	typ, ok := r.ResolveTypeName(name)
	if !ok {
		t.Fatalf("unknown type %s", name)
	}
	return typ
}

func only(t *testing.T, ms []*types.Method, arity int) *types.Method {
	t.Helper()
	for _, m := range ms {
		if len(m.Params) == arity {
			return m
		}
	}
	t.Fatalf("no overload with %d params in %v", arity, ms)
	return nil
}

func TestMethodNames(t *testing.T) {
	r := newTestContext(true)
	b := r.Builtins()
	vec3 := mustType(t, r, "UnityEngine.Vector3")
	cases := []struct {
		got, want string
	}{
		{r.MethodName(only(t, b.Object.Methods("Equals"), 2)), ExternObjectEquals},
		{r.MethodName(b.String.Methods("get_Chars")[0]), ExternStringGetChars},
		{r.MethodName(b.Int32.Methods("op_LessThan")[0]), ExternInt32LessThan},
		{r.MethodName(b.Int32.Methods("op_GreaterThan")[0]), ExternInt32GreaterThan},
		{r.MethodName(b.Int32.Methods("op_Addition")[0]), ExternInt32Addition},
		{r.MethodName(b.Component.Property("transform").Getter), ExternComponentGetTransform},
		{r.MethodName(b.GameObject.Property("transform").Getter), ExternGameObjectGetTransform},
		{r.MethodName(b.EventReceiver.Methods("GetProgramVariable")[0]), ExternGetProgramVariable},
		{r.MethodName(b.EventReceiver.Methods("SetProgramVariable")[0]), ExternSetProgramVariable},
		{r.MethodName(b.UdonSharpBehaviour.Methods("SendCustomEvent")[0]), ExternSendCustomEvent},
		{r.MethodName(b.Component.Methods("GetComponents")[0]), "UnityEngineComponent.__GetComponents__SystemType__UnityEngineComponentArray"},
		{r.MethodName(b.Component.Methods("GetComponent")[1]), "UnityEngineComponent.__GetComponent__T"},
		{r.MethodName(b.Component.Methods("GetComponents")[1]), "UnityEngineComponent.__GetComponents__TArray"},
		{r.MethodName(only(t, vec3.Methods(types.CtorName), 3)), "UnityEngineVector3.__ctor__SystemSingle_SystemSingle_SystemSingle__UnityEngineVector3"},
		{r.FieldGetterName(vec3.Field("x")), "UnityEngineVector3.__get_x__SystemSingle"},
		{r.FieldSetterName(vec3.Field("x")), "UnityEngineVector3.__set_x__SystemSingle"},
		{r.MethodName(r.NumericConversion(b.Single, b.Int32)), "SystemConvert.__ToInt32__SystemSingle__SystemInt32"},
		{r.ArrayGetName(r.Catalog().ArrayOf(b.Int32)), "SystemInt32Array.__Get__SystemInt32__SystemInt32"},
		{r.ArraySetName(r.Catalog().ArrayOf(b.Int32)), "SystemInt32Array.__Set__SystemInt32_SystemInt32__SystemVoid"},
		{r.ArrayCtorName(r.Catalog().ArrayOf(b.Int32)), "SystemInt32Array.__ctor__SystemInt32__SystemInt32Array"},
		{r.ArrayLengthName(r.Catalog().ArrayOf(b.Int32)), "SystemInt32Array.__get_Length__SystemInt32"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("got %s, want %s", tc.got, tc.want)
		}
	}
}

func TestBehaviourStorageTypes(t *testing.T) {
	r := newTestContext(true)
	b := r.Builtins()
	player := &types.Type{Kind: types.KindClass, Name: "Player", Base: b.UdonSharpBehaviour, UserBehaviour: true}
	r.Catalog().MustDefine(player)
	if got := r.UdonTypeName(player); got != "VRCUdonUdonBehaviour" {
		t.Fatalf("Player storage: got %s", got)
	}
	if got := r.UdonTypeName(r.Catalog().ArrayOf(player)); got != "UnityEngineComponentArray" {
		t.Fatalf("Player[] storage: got %s", got)
	}
	if got := r.ArrayGetName(r.Catalog().ArrayOf(player)); got != "UnityEngineComponentArray.__Get__SystemInt32__UnityEngineComponent" {
		t.Fatalf("Player[] get: got %s", got)
	}
}

func TestExposure(t *testing.T) {
	r := newTestContext(true)
	b := r.Builtins()
	if !r.IsExposed(b.Transform.Methods("Translate")[0]) {
		t.Fatalf("Transform.Translate should be exposed")
	}
	if r.IsExposed(b.Transform.Methods("GetSiblingIndex")[0]) {
		t.Fatalf("Transform.GetSiblingIndex should not be exposed")
	}
	if r.IsExposed(b.UdonSharpBehaviour.Methods("SendCustomEventDelayedFrames")[0]) {
		t.Fatalf("proxy-only method must not be exposed")
	}
	if !r.IsExposed(b.UdonSharpBehaviour.Methods("SendCustomEventDelayedSeconds")[0]) {
		t.Fatalf("proxy method with a receiver counterpart should be exposed")
	}
	if !r.IsExposedName(ExternVRCInstantiate) {
		t.Fatalf("VRCInstantiate must be exposed")
	}
	if !r.IsExposedName("UnityEngineVector3Array.__ctor__SystemInt32__UnityEngineVector3Array") {
		t.Fatalf("array constructors are synthesized by the VM")
	}
	if r.IsExposedName("UnityEngineTransform.__Nope__SystemVoid") {
		t.Fatalf("unknown name reported as exposed")
	}
}

func TestProxyAccessors(t *testing.T) {
	for _, quirk := range []bool{true, false} {
		r := newTestContext(quirk)
		b := r.Builtins()
		p := b.UdonSharpBehaviour.Property("DisableInteractive")
		getter := r.UdonGetter(p)
		if getter == nil || r.MethodName(getter) != "VRCUdonUdonBehaviour.__get_DisableInteractive__SystemBoolean" {
			t.Fatalf("quirk=%v getter: got %v", quirk, getter)
		}
		setter, flagged := r.UdonSetter(p)
		if quirk {
			if !flagged || setter != getter {
				t.Fatalf("quirk on: setter should be the substitute getter, got %v flagged=%v", setter, flagged)
			}
		} else if flagged || r.MethodName(setter) != "VRCUdonUdonBehaviour.__set_DisableInteractive__SystemBoolean__SystemVoid" {
			t.Fatalf("quirk off: got %v flagged=%v", setter, flagged)
		}
	}
	r := newTestContext(true)
	pos := r.Builtins().Transform.Property("position")
	if s, q := r.UdonSetter(pos); s != pos.Setter || q {
		t.Fatalf("non-proxy setter changed: %v %v", s, q)
	}
}

func TestFindBestOverload(t *testing.T) {
	r := newTestContext(true)
	b := r.Builtins()
	mathf := mustType(t, r, "UnityEngine.Mathf")
	maxes := mathf.Methods("Max")

	m, ok := r.FindBestOverload(maxes, []*types.Type{b.Int32, b.Int32}, true)
	if !ok || m.Method.Return != b.Int32 || m.Score != 0 {
		t.Fatalf("Max(int,int): got %v score %d", m.Method, m.Score)
	}
	m, ok = r.FindBestOverload(maxes, []*types.Type{b.Int32, b.Single}, true)
	if !ok || m.Expanded || m.Method.Return != b.Single || len(m.Method.Params) != 2 {
		t.Fatalf("Max(int,float): got %v expanded=%v", m.Method, m.Expanded)
	}
	m, ok = r.FindBestOverload(maxes, []*types.Type{b.Single, b.Single, b.Single}, true)
	if !ok || !m.Expanded {
		t.Fatalf("Max(float,float,float): expected params expansion, got %v", m.Method)
	}

	color := mustType(t, r, "UnityEngine.Color")
	m, ok = r.FindBestOverload(color.Methods(types.CtorName), []*types.Type{b.Single, b.Single, b.Single}, true)
	if !ok || m.Defaults != 1 {
		t.Fatalf("Color(r,g,b): got defaults %d", m.Defaults)
	}

	debug := mustType(t, r, "UnityEngine.Debug")
	m, ok = r.FindBestOverload(debug.Methods("Log"), []*types.Type{b.String}, true)
	if !ok || m.Method.Params[0].Type != b.Object {
		t.Fatalf("Debug.Log(string): got %v", m.Method)
	}

	if _, ok := r.FindBestOverload(maxes, []*types.Type{b.String}, true); ok {
		t.Fatalf("Max(string) should not resolve")
	}
}

func TestOverloadDeterminism(t *testing.T) {
	r := newTestContext(true)
	b := r.Builtins()
	cands := b.Transform.Methods("Translate")
	args := []*types.Type{b.Single, b.Single, b.Single}
	first, ok := r.FindBestOverload(cands, args, true)
	if !ok {
		t.Fatalf("Translate(float,float,float) did not resolve")
	}
	for i := 0; i < 100; i++ {
		got, _ := r.FindBestOverload(cands, args, true)
		if got.Method != first.Method {
			t.Fatalf("iteration %d picked %v, first pick was %v", i, got.Method, first.Method)
		}
	}
}

func TestExposureFilterSeparatesHiddenMethods(t *testing.T) {
	r := newTestContext(true)
	b := r.Builtins()
	inst := b.UnityObject.Methods("Instantiate")
	if _, ok := r.FindBestOverload(inst, []*types.Type{b.GameObject}, true); ok {
		t.Fatalf("hidden Instantiate resolved with exposure required")
	}
	if _, ok := r.FindBestOverload(inst, []*types.Type{b.GameObject}, false); !ok {
		t.Fatalf("hidden Instantiate should resolve without exposure filter")
	}
}

func TestConversions(t *testing.T) {
	r := newTestContext(true)
	b := r.Builtins()
	vec2 := mustType(t, r, "UnityEngine.Vector2")
	vec3 := mustType(t, r, "UnityEngine.Vector3")
	if r.NumericConversion(vec3, b.Int32) != nil {
		t.Fatalf("no numeric conversion expected for Vector3")
	}
	if m := r.FindUserConversion(vec3, vec2, false); m == nil || m.Return != vec2 {
		t.Fatalf("Vector3 -> Vector2: got %v", m)
	}
	if m := r.FindUserConversion(b.Transform, b.Bool, false); m == nil || m.Declaring != b.UnityObject {
		t.Fatalf("Transform -> bool through UnityEngine.Object: got %v", m)
	}
	space := mustType(t, r, "UnityEngine.Space")
	if m := r.NumericConversion(space, b.Int64); m == nil {
		t.Fatalf("enum to long should convert through the underlying type")
	}
}

func TestResolveTypeName(t *testing.T) {
	r := newTestContext(true)
	if typ := mustType(t, r, "float[]"); typ.Elem != r.Builtins().Single {
		t.Fatalf("float[]: got %v", typ)
	}
	if typ := mustType(t, r, "UnityEngine.Transform[][]"); typ.Elem.Elem != r.Builtins().Transform {
		t.Fatalf("Transform[][]: got %v", typ)
	}
}
