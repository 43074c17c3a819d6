package types

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const pickupCatalog = `
[[type]]
name = "VRC.SDK3.Components.VRCPickup"
kind = "class"
base = "UnityEngine.Component"

  [[type.property]]
  name = "pickupable"
  type = "bool"
  access = "rw"

  [[type.property]]
  name = "currentPlayer"
  type = "VRC.SDKBase.VRCPlayerApi"

  [[type.method]]
  name = "Drop"

  [[type.method]]
  name = "GenerateHapticEvent"
  params = ["float duration", "float amplitude", "float frequency"]
  exposed = false

[[type]]
name = "VRC.SDK3.Components.PickupHand"
kind = "enum"

  [[type.value]]
  name = "None"
  value = 0

  [[type.value]]
  name = "Left"
  value = 1
`

func TestLoadCatalogString(t *testing.T) {
	c := NewBuiltinCatalog().Overlay()
	if err := c.LoadString("pickup.toml", pickupCatalog); err != nil {
		t.Fatalf("load: %v", err)
	}
	pickup, ok := c.Lookup("VRC.SDK3.Components.VRCPickup")
	if !ok {
		t.Fatalf("VRCPickup not defined")
	}
	if pickup.Base != c.Builtins().Component {
		t.Fatalf("base: got %v", pickup.Base)
	}
	p := pickup.Property("pickupable")
	if p == nil || p.Setter == nil || p.Type != c.Builtins().Bool {
		t.Fatalf("pickupable: got %+v", p)
	}
	if cp := pickup.Property("currentPlayer"); cp == nil || cp.Setter != nil {
		t.Fatalf("currentPlayer should be read-only, got %+v", cp)
	}
	drop := pickup.Methods("Drop")
	if len(drop) != 1 || !drop[0].IsVoid() || !drop[0].Exposed {
		t.Fatalf("Drop: got %v", drop)
	}
	haptic := pickup.Methods("GenerateHapticEvent")
	if len(haptic) != 1 || haptic[0].Exposed || len(haptic[0].Params) != 3 {
		t.Fatalf("GenerateHapticEvent: got %v", haptic)
	}
	hand, _ := c.Lookup("VRC.SDK3.Components.PickupHand")
	if v, ok := hand.EnumValue("Left"); !ok || v != 1 {
		t.Fatalf("PickupHand.Left: got %d %v", v, ok)
	}
	if !c.IsNamespace("VRC.SDK3") {
		t.Fatalf("namespace from extension file not indexed")
	}
}

func TestLoadCatalogFileErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	data := "[[type]]\nname = \"Broken\"\n  [[type.field]]\n  name = \"f\"\n  type = \"Missing.Type\"\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := NewBuiltinCatalog().Overlay().LoadFile(path)
	if err == nil || !strings.Contains(err.Error(), "Missing.Type") {
		t.Fatalf("expected unknown type error, got %v", err)
	}
}

func TestParseParamModifiers(t *testing.T) {
	c := NewBuiltinCatalog()
	p, err := c.parseParam("params System.Object[] args")
	if err != nil || !p.Variadic || p.Name != "args" {
		t.Fatalf("params: got %+v, %v", p, err)
	}
	p, err = c.parseParam("out int value")
	if err != nil || !p.Out || !p.Type.IsByRef() {
		t.Fatalf("out: got %+v, %v", p, err)
	}
	if _, err := c.parseParam("params int notArray"); err == nil {
		t.Fatalf("expected error for non-array params parameter")
	}
}
