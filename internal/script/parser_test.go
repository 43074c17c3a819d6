package script

import (
	"testing"

	"udonsharp/internal/diag"
)

const playerScript = `behaviour Player            # the behaviour being compiled
extern Door                 # another user behaviour
  field bool isOpen
  method Open(float speed) returns int
end
field public UnityEngine.Transform target
field int score = 3
method Start(int a) returns float
  local int i = 0
  let px = this.transform.position.x
  set target.position = this.transform.position
  let d = GetComponent<Door>()
  do d.Open(1.5)
  let n = (int) px
  return px
end
`

func parse(t *testing.T, src string) (*File, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(32)
	f, ok := Parse(virtualFile(src), Options{Reporter: diag.BagReporter{Bag: bag}})
	if ok != !bag.HasErrors() {
		t.Fatalf("Parse reported ok=%v with %d diagnostics", ok, bag.Len())
	}
	return f, bag
}

func mustParse(t *testing.T, src string) *File {
	t.Helper()
	f, bag := parse(t, src)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	return f
}

func TestParseBehaviourScript(t *testing.T) {
	f := mustParse(t, playerScript)
	if f.Behaviour != "Player" {
		t.Fatalf("behaviour: got %q", f.Behaviour)
	}
	if len(f.Externs) != 1 || f.Externs[0].Name != "Door" {
		t.Fatalf("externs: got %+v", f.Externs)
	}
	door := f.Externs[0]
	if len(door.Fields) != 1 || door.Fields[0].Name != "isOpen" || door.Fields[0].Type.Name != "bool" {
		t.Fatalf("Door fields: got %+v", door.Fields)
	}
	if len(door.Methods) != 1 || door.Methods[0].Return == nil || door.Methods[0].Return.Name != "int" || len(door.Methods[0].Body) != 0 {
		t.Fatalf("Door methods: got %+v", door.Methods)
	}
	if len(f.Fields) != 2 {
		t.Fatalf("fields: got %d, want 2", len(f.Fields))
	}
	if target := f.Fields[0]; !target.Public || target.Type.Name != "UnityEngine.Transform" || target.Init != nil {
		t.Fatalf("target: got %+v", target)
	}
	if score := f.Fields[1]; score.Public || score.Init == nil || score.Init.Value != int32(3) {
		t.Fatalf("score: got %+v", score)
	}
	start := f.Methods[0]
	if start.Name != "Start" || len(start.Params) != 1 || start.Params[0].Name != "a" || start.Return.Name != "float" {
		t.Fatalf("Start header: got %+v", start)
	}
	if len(start.Body) != 7 {
		t.Fatalf("Start body: got %d statements, want 7", len(start.Body))
	}
	if _, ok := start.Body[0].(*LocalStmt); !ok {
		t.Fatalf("statement 0: got %T", start.Body[0])
	}
	set, ok := start.Body[2].(*SetStmt)
	if !ok || len(set.Target.Links) != 2 || set.Target.Links[1].Name != "position" {
		t.Fatalf("statement 2: got %+v", start.Body[2])
	}
	let := start.Body[3].(*LetStmt)
	chain := let.Value.(*ChainExpr)
	if len(chain.Links) != 2 || chain.Links[0].Name != "GetComponent" || len(chain.Links[0].Generic) != 1 || chain.Links[1].Kind != LinkCall {
		t.Fatalf("GetComponent<Door>(): got %+v", chain.Links)
	}
	do := start.Body[4].(*DoStmt)
	call := do.Call.(*ChainExpr)
	if arg := call.Links[2].Args[0].(*Literal); arg.Kind != LitFloat || arg.Value != float32(1.5) {
		t.Fatalf("Open argument: got %+v", arg)
	}
	cast := start.Body[5].(*LetStmt).Value.(*CastExpr)
	if cast.Type.Name != "int" {
		t.Fatalf("cast type: got %s", cast.Type)
	}
	if ret := start.Body[6].(*ReturnStmt); ret.Value == nil {
		t.Fatalf("return without value")
	}
}

func TestParseExpressions(t *testing.T) {
	f := mustParse(t, `behaviour P
using UnityEngine
method Run()
  let a = new Vector3(1, 2.5f, -3)
  let g = Mathf.Max<float, int>(1L, 2d, true, "s")
  let e = null
end
`)
	if len(f.Usings) != 1 || f.Usings[0] != "UnityEngine" {
		t.Fatalf("usings: got %v", f.Usings)
	}
	body := f.Methods[0].Body
	ctor := body[0].(*LetStmt).Value.(*NewExpr)
	if ctor.Type.Name != "Vector3" || len(ctor.Args) != 3 {
		t.Fatalf("new Vector3: got %+v", ctor)
	}
	if z := ctor.Args[2].(*Literal); z.Kind != LitInt || z.Value != int32(-3) {
		t.Fatalf("negative literal: got %+v", z)
	}
	chain := body[1].(*LetStmt).Value.(*ChainExpr)
	if len(chain.Links) != 3 || len(chain.Links[1].Generic) != 2 || chain.Links[1].Generic[1].Name != "int" {
		t.Fatalf("Mathf.Max<float, int>: got %+v", chain.Links)
	}
	wantKinds := []LiteralKind{LitLong, LitDouble, LitBool, LitString}
	for i, arg := range chain.Links[2].Args {
		if lit := arg.(*Literal); lit.Kind != wantKinds[i] {
			t.Fatalf("argument %d: got kind %d, want %d", i, lit.Kind, wantKinds[i])
		}
	}
	if lit := body[2].(*LetStmt).Value.(*Literal); lit.Kind != LitNull || lit.Value != nil {
		t.Fatalf("null literal: got %+v", lit)
	}
}

func TestParseTypes(t *testing.T) {
	f := mustParse(t, `behaviour P
field UnityEngine.Vector3[][] grid
method Run()
  let b = new int[][4]
  let c = (System.Single[]) b
end
`)
	if got := f.Fields[0].Type; got.Name != "UnityEngine.Vector3" || got.Dims != 2 || got.String() != "UnityEngine.Vector3[][]" {
		t.Fatalf("grid type: got %+v", got)
	}
	arr := f.Methods[0].Body[0].(*LetStmt).Value.(*NewArrayExpr)
	if arr.Elem.Name != "int" || arr.Elem.Dims != 1 {
		t.Fatalf("new int[][4]: got element %s", arr.Elem)
	}
	if n := arr.Len.(*Literal); n.Value != int32(4) {
		t.Fatalf("length: got %v", n.Value)
	}
	cast := f.Methods[0].Body[1].(*LetStmt).Value.(*CastExpr)
	if cast.Type.String() != "System.Single[]" {
		t.Fatalf("cast type: got %s", cast.Type)
	}
}

func TestParseChainLinks(t *testing.T) {
	f := mustParse(t, `behaviour P
method Run()
  do Find("x").transform.GetChild(0).SetParent(null)
end
`)
	chain := f.Methods[0].Body[0].(*DoStmt).Call.(*ChainExpr)
	want := []LinkKind{LinkName, LinkCall, LinkName, LinkName, LinkCall, LinkName, LinkCall}
	if len(chain.Links) != len(want) {
		t.Fatalf("got %d links, want %d", len(chain.Links), len(want))
	}
	for i, k := range want {
		if chain.Links[i].Kind != k {
			t.Fatalf("link %d: got kind %d, want %d", i, chain.Links[i].Kind, k)
		}
	}
	if !chain.EndsInCall() {
		t.Fatalf("chain should end in a call")
	}
	if lit := chain.Links[6].Args[0].(*Literal); lit.Kind != LitNull {
		t.Fatalf("SetParent argument: got %+v", lit)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code diag.Code
	}{
		{"statement outside method", "behaviour P\nlet x = 1\n", diag.SynStatementOutside},
		{"missing end at eof", "behaviour P\nmethod Start()\n  return\n", diag.SynMissingEnd},
		{"missing end before method", "behaviour P\nmethod A()\nmethod B()\nend\n", diag.SynMissingEnd},
		{"missing extern end", "behaviour P\nextern Door\n  field int hp\n", diag.SynMissingEnd},
		{"second behaviour", "behaviour P\nbehaviour Q\n", diag.SynDuplicateDecl},
		{"no behaviour", "field int x\n", diag.SynMissingBehaviour},
		{"unknown statement", "behaviour P\nmethod Start()\n  jump 3\nend\n", diag.SynUnknownStatement},
		{"keyword as name", "behaviour P\nfield int end\n", diag.SynExpectIdentifier},
		{"missing field name", "behaviour P\nfield x\n", diag.SynExpectIdentifier},
		{"int out of range", "behaviour P\nmethod Start()\n  let x = 99999999999\nend\n", diag.SynBadLiteral},
		{"assign to call", "behaviour P\nmethod Start()\n  set Foo() = 1\nend\n", diag.SynUnexpectedToken},
		{"missing value", "behaviour P\nmethod Start()\n  let x =\nend\n", diag.SynExpectExpression},
		{"field initializer not literal", "behaviour P\nfield int x = y\n", diag.SynExpectExpression},
		{"trailing tokens", "behaviour P\nmethod Start()\n  return x y\nend\n", diag.SynUnexpectedToken},
		{"bad type", "behaviour P\nmethod Start()\n  local 3 x\nend\n", diag.SynExpectType},
		{"new without parens", "behaviour P\nmethod Start()\n  do new Vector3\nend\n", diag.SynUnexpectedToken},
		{"unclosed generic", "behaviour P\nmethod Start()\n  do Get<int(1)\nend\n", diag.SynUnexpectedToken},
		{"stray end", "behaviour P\nend\n", diag.SynUnexpectedToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, bag := parse(t, tt.src)
			if !bag.HasErrors() {
				t.Fatalf("no errors, want %s", tt.code.ID())
			}
			if got := bag.Items()[0].Code; got != tt.code {
				t.Fatalf("got %s (%s), want %s", got.ID(), bag.Items()[0].Message, tt.code.ID())
			}
		})
	}
}

func TestParseRecoversAtLineBoundaries(t *testing.T) {
	f, bag := parse(t, `behaviour P
field int = 1
field int ok
method Start()
  bogus
  let y = 2
end
`)
	if bag.Len() != 2 {
		t.Fatalf("got %d diagnostics, want 2: %v", bag.Len(), bag.Items())
	}
	if len(f.Fields) != 1 || f.Fields[0].Name != "ok" {
		t.Fatalf("fields after recovery: got %+v", f.Fields)
	}
	if len(f.Methods) != 1 || len(f.Methods[0].Body) != 1 {
		t.Fatalf("Start after recovery: got %+v", f.Methods)
	}
}

func TestParseMaxErrors(t *testing.T) {
	bag := diag.NewBag(32)
	_, ok := Parse(virtualFile("behaviour P\n$\n$\n$\n"), Options{Reporter: diag.BagReporter{Bag: bag}, MaxErrors: 2})
	if ok {
		t.Fatalf("Parse succeeded on invalid input")
	}
	if bag.Len() != 2 {
		t.Fatalf("got %d diagnostics, want 2", bag.Len())
	}
}
