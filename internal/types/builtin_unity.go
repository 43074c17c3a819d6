package types

// NewBuiltinCatalog returns the base catalog: the System core plus the subset
// of UnityEngine, VRChat SDK and UdonSharp types behaviours commonly touch.
func NewBuiltinCatalog() *Catalog {
	c := NewCatalog()
	bd := builder{c: c, b: c.builtins}
	bd.seedUnity()
	bd.seedUdon()
	return c
}

func (bd builder) seedUnity() {
	b, c := bd.b, bd.c
	const ue = "UnityEngine"
	f32 := b.Single
	tParam := c.GenericParam("T")

	vec3 := bd.structType(ue, "Vector3")
	vec2 := bd.structType(ue, "Vector2")
	quat := bd.structType(ue, "Quaternion")
	color := bd.structType(ue, "Color")
	space := bd.enum(ue, "Space", EnumValue{"World", 0}, EnumValue{"Self", 1})
	forceMode := bd.enum(ue, "ForceMode",
		EnumValue{"Force", 0}, EnumValue{"Impulse", 1}, EnumValue{"VelocityChange", 2}, EnumValue{"Acceleration", 5})
	keyCode := bd.enum(ue, "KeyCode",
		EnumValue{"None", 0}, EnumValue{"Return", 13}, EnumValue{"Escape", 27}, EnumValue{"Space", 32},
		EnumValue{"A", 97}, EnumValue{"D", 100}, EnumValue{"E", 101}, EnumValue{"S", 115}, EnumValue{"W", 119})

	for _, name := range []string{"x", "y", "z"} {
		field(vec3, name, f32)
	}
	ctor(vec3, arg("x", f32), arg("y", f32), arg("z", f32))
	ctor(vec3, arg("x", f32), arg("y", f32))
	bd.getter(vec3, "magnitude", f32)
	bd.getter(vec3, "sqrMagnitude", f32)
	bd.getter(vec3, "normalized", vec3)
	for _, name := range []string{"zero", "one", "up", "down", "forward", "back", "left", "right"} {
		bd.staticGetter(vec3, name, vec3)
	}
	static(vec3, "Distance", f32, arg("a", vec3), arg("b", vec3))
	static(vec3, "Dot", f32, arg("lhs", vec3), arg("rhs", vec3))
	static(vec3, "Cross", vec3, arg("lhs", vec3), arg("rhs", vec3))
	static(vec3, "Lerp", vec3, arg("a", vec3), arg("b", vec3), arg("t", f32))
	static(vec3, "op_Addition", vec3, arg("a", vec3), arg("b", vec3))
	static(vec3, "op_Subtraction", vec3, arg("a", vec3), arg("b", vec3))
	static(vec3, "op_Multiply", vec3, arg("a", vec3), arg("d", f32))
	static(vec3, "op_Multiply", vec3, arg("d", f32), arg("a", vec3))
	static(vec3, "op_Equality", b.Bool, arg("lhs", vec3), arg("rhs", vec3))
	instance(vec3, "Normalize", b.Void)
	instance(vec3, "Set", b.Void, arg("newX", f32), arg("newY", f32), arg("newZ", f32))

	field(vec2, "x", f32)
	field(vec2, "y", f32)
	ctor(vec2, arg("x", f32), arg("y", f32))
	bd.getter(vec2, "magnitude", f32)
	bd.staticGetter(vec2, "zero", vec2)
	static(vec2, "op_Implicit", vec2, arg("v", vec3))
	static(vec2, "op_Implicit", vec3, arg("v", vec2))

	for _, name := range []string{"x", "y", "z", "w"} {
		field(quat, name, f32)
	}
	bd.staticGetter(quat, "identity", quat)
	bd.accessor(quat, "eulerAngles", vec3)
	static(quat, "Euler", quat, arg("x", f32), arg("y", f32), arg("z", f32))
	static(quat, "Euler", quat, arg("euler", vec3))
	static(quat, "op_Multiply", quat, arg("lhs", quat), arg("rhs", quat))
	static(quat, "op_Multiply", vec3, arg("rotation", quat), arg("point", vec3))

	for _, name := range []string{"r", "g", "b", "a"} {
		field(color, name, f32)
	}
	ctor(color, arg("r", f32), arg("g", f32), arg("b", f32), optional("a", f32, float32(1)))
	for _, name := range []string{"red", "green", "blue", "white", "black", "clear"} {
		bd.staticGetter(color, name, color)
	}

	uobj := bd.class(ue, "Object", nil)
	b.UnityObject = uobj
	bd.accessor(uobj, "name", b.String)
	static(uobj, "Destroy", b.Void, arg("obj", uobj))
	static(uobj, "Destroy", b.Void, arg("obj", uobj), arg("t", f32))
	hidden(static(uobj, "Instantiate", uobj, arg("original", uobj)))
	hidden(static(uobj, "DontDestroyOnLoad", b.Void, arg("target", uobj)))
	static(uobj, "op_Implicit", b.Bool, arg("exists", uobj))
	static(uobj, "op_Equality", b.Bool, arg("x", uobj), arg("y", uobj))
	static(uobj, "op_Inequality", b.Bool, arg("x", uobj), arg("y", uobj))

	comp := bd.class(ue, "Component", uobj)
	b.Component = comp
	gobj := bd.class(ue, "GameObject", uobj)
	b.GameObject = gobj
	tr := bd.class(ue, "Transform", comp)
	b.Transform = tr
	behaviour := bd.class(ue, "Behaviour", comp)
	b.Behaviour = behaviour
	mono := bd.class(ue, "MonoBehaviour", behaviour)
	b.MonoBehaviour = mono

	bd.getter(comp, "transform", tr)
	bd.getter(comp, "gameObject", gobj)
	bd.accessor(comp, "tag", b.String)
	instance(comp, "CompareTag", b.Bool, arg("tag", b.String))
	hidden(instance(comp, "SendMessage", b.Void, arg("methodName", b.String)))
	bd.seedComponentAccessors(comp, tParam)

	bd.getter(gobj, "transform", tr)
	bd.getter(gobj, "activeSelf", b.Bool)
	bd.getter(gobj, "activeInHierarchy", b.Bool)
	bd.accessor(gobj, "layer", b.Int32)
	bd.accessor(gobj, "tag", b.String)
	instance(gobj, "SetActive", b.Void, arg("value", b.Bool))
	instance(gobj, "CompareTag", b.Bool, arg("tag", b.String))
	static(gobj, "Find", gobj, arg("name", b.String))
	hidden(instance(gobj, "SendMessage", b.Void, arg("methodName", b.String)))
	hidden(ctor(gobj, arg("name", b.String)))
	bd.seedComponentAccessors(gobj, tParam)

	bd.accessor(tr, "position", vec3)
	bd.accessor(tr, "localPosition", vec3)
	bd.accessor(tr, "rotation", quat)
	bd.accessor(tr, "localRotation", quat)
	bd.accessor(tr, "localScale", vec3)
	bd.accessor(tr, "eulerAngles", vec3)
	bd.accessor(tr, "parent", tr)
	bd.getter(tr, "childCount", b.Int32)
	bd.getter(tr, "forward", vec3)
	bd.getter(tr, "up", vec3)
	bd.getter(tr, "right", vec3)
	instance(tr, "GetChild", tr, arg("index", b.Int32))
	instance(tr, "Find", tr, arg("n", b.String))
	instance(tr, "Translate", b.Void, arg("translation", vec3))
	instance(tr, "Translate", b.Void, arg("translation", vec3), arg("relativeTo", space))
	instance(tr, "Translate", b.Void, arg("x", f32), arg("y", f32), arg("z", f32))
	instance(tr, "Rotate", b.Void, arg("eulers", vec3))
	instance(tr, "Rotate", b.Void, arg("xAngle", f32), arg("yAngle", f32), arg("zAngle", f32))
	instance(tr, "LookAt", b.Void, arg("target", tr))
	instance(tr, "LookAt", b.Void, arg("worldPosition", vec3))
	instance(tr, "SetParent", b.Void, arg("parent", tr))
	instance(tr, "SetParent", b.Void, arg("parent", tr), arg("worldPositionStays", b.Bool))
	hidden(instance(tr, "GetSiblingIndex", b.Int32))

	bd.accessor(behaviour, "enabled", b.Bool)
	bd.getter(behaviour, "isActiveAndEnabled", b.Bool)
	hidden(instance(mono, "StartCoroutine", b.Object, arg("methodName", b.String)))
	hidden(instance(mono, "Invoke", b.Void, arg("methodName", b.String), arg("time", f32)))

	rb := bd.class(ue, "Rigidbody", comp)
	bd.accessor(rb, "velocity", vec3)
	bd.accessor(rb, "angularVelocity", vec3)
	bd.accessor(rb, "mass", f32)
	bd.accessor(rb, "isKinematic", b.Bool)
	bd.accessor(rb, "useGravity", b.Bool)
	instance(rb, "AddForce", b.Void, arg("force", vec3))
	instance(rb, "AddForce", b.Void, arg("force", vec3), arg("mode", forceMode))
	instance(rb, "MovePosition", b.Void, arg("position", vec3))

	col := bd.class(ue, "Collider", comp)
	bd.accessor(col, "enabled", b.Bool)
	bd.accessor(col, "isTrigger", b.Bool)

	clip := bd.class(ue, "AudioClip", uobj)
	bd.getter(clip, "length", f32)
	audio := bd.class(ue, "AudioSource", behaviour)
	bd.accessor(audio, "clip", clip)
	bd.accessor(audio, "volume", f32)
	bd.accessor(audio, "loop", b.Bool)
	bd.getter(audio, "isPlaying", b.Bool)
	instance(audio, "Play", b.Void)
	instance(audio, "Stop", b.Void)
	instance(audio, "PlayOneShot", b.Void, arg("clip", clip), optional("volumeScale", f32, float32(1)))

	anim := bd.class(ue, "Animator", behaviour)
	instance(anim, "SetBool", b.Void, arg("name", b.String), arg("value", b.Bool))
	instance(anim, "SetFloat", b.Void, arg("name", b.String), arg("value", f32))
	instance(anim, "SetInteger", b.Void, arg("name", b.String), arg("value", b.Int32))
	instance(anim, "SetTrigger", b.Void, arg("name", b.String))

	light := bd.class(ue, "Light", behaviour)
	bd.accessor(light, "intensity", f32)
	bd.accessor(light, "color", color)

	mathf := bd.structType(ue, "Mathf")
	constField(mathf, "PI", f32, float32(3.14159274))
	static(mathf, "Abs", f32, arg("f", f32))
	static(mathf, "Abs", b.Int32, arg("value", b.Int32))
	static(mathf, "Clamp", f32, arg("value", f32), arg("min", f32), arg("max", f32))
	static(mathf, "Clamp", b.Int32, arg("value", b.Int32), arg("min", b.Int32), arg("max", b.Int32))
	static(mathf, "Clamp01", f32, arg("value", f32))
	static(mathf, "Max", f32, arg("a", f32), arg("b", f32))
	static(mathf, "Max", f32, variadic("values", c.ArrayOf(f32)))
	static(mathf, "Max", b.Int32, arg("a", b.Int32), arg("b", b.Int32))
	static(mathf, "Min", f32, arg("a", f32), arg("b", f32))
	static(mathf, "Min", b.Int32, arg("a", b.Int32), arg("b", b.Int32))
	static(mathf, "Lerp", f32, arg("a", f32), arg("b", f32), arg("t", f32))
	static(mathf, "Sqrt", f32, arg("f", f32))
	static(mathf, "Sin", f32, arg("f", f32))
	static(mathf, "Cos", f32, arg("f", f32))
	static(mathf, "FloorToInt", b.Int32, arg("f", f32))
	static(mathf, "RoundToInt", b.Int32, arg("f", f32))

	debug := bd.class(ue, "Debug", nil)
	static(debug, "Log", b.Void, arg("message", b.Object))
	static(debug, "Log", b.Void, arg("message", b.Object), arg("context", uobj))
	static(debug, "LogWarning", b.Void, arg("message", b.Object))
	static(debug, "LogError", b.Void, arg("message", b.Object))
	static(debug, "LogFormat", b.Void, arg("format", b.String), variadic("args", c.ArrayOf(b.Object)))
	hidden(static(debug, "Break", b.Void))

	timeT := bd.class(ue, "Time", nil)
	bd.staticGetter(timeT, "deltaTime", f32)
	bd.staticGetter(timeT, "time", f32)
	bd.staticGetter(timeT, "frameCount", b.Int32)

	input := bd.class(ue, "Input", nil)
	static(input, "GetKey", b.Bool, arg("key", keyCode))
	static(input, "GetKeyDown", b.Bool, arg("key", keyCode))
	static(input, "GetKeyUp", b.Bool, arg("key", keyCode))
	static(input, "GetAxis", f32, arg("axisName", b.String))
	static(input, "GetButtonDown", b.Bool, arg("buttonName", b.String))

	random := bd.class(ue, "Random", nil)
	static(random, "Range", f32, arg("min", f32), arg("max", f32))
	static(random, "Range", b.Int32, arg("min", b.Int32), arg("max", b.Int32))
	bd.staticGetter(random, "value", f32)
}

// seedComponentAccessors declares the GetComponent family on Component or
// GameObject: the System.Type overloads and their generic counterparts.
func (bd builder) seedComponentAccessors(t, tParam *Type) {
	b, c := bd.b, bd.c
	comp := b.Component
	compArr := c.ArrayOf(comp)
	tArr := c.ArrayOf(tParam)
	for _, name := range []string{"GetComponent", "GetComponentInChildren", "GetComponentInParent"} {
		instance(t, name, comp, arg("type", b.Type))
		generic := instance(t, name, tParam)
		generic.GenericArity = 1
	}
	for _, name := range []string{"GetComponents", "GetComponentsInChildren", "GetComponentsInParent"} {
		instance(t, name, compArr, arg("type", b.Type))
		generic := instance(t, name, tArr)
		generic.GenericArity = 1
	}
	instance(t, "GetComponentsInChildren", compArr, arg("type", b.Type), arg("includeInactive", b.Bool))
}

func (bd builder) seedUdon() {
	b, c := bd.b, bd.c
	object, str, void := b.Object, b.String, b.Void

	netTarget := bd.enum("VRC.Udon.Common.Interfaces", "NetworkEventTarget",
		EnumValue{"All", 0}, EnumValue{"Owner", 1})

	recv := bd.iface("VRC.Udon.Common.Interfaces", "IUdonEventReceiver")
	b.EventReceiver = recv
	instance(recv, "SendCustomEvent", void, arg("eventName", str))
	instance(recv, "SendCustomNetworkEvent", void, arg("target", netTarget), arg("eventName", str))
	instance(recv, "SendCustomEventDelayedSeconds", void, arg("eventName", str), arg("delaySeconds", b.Single))
	instance(recv, "GetProgramVariable", object, arg("symbolName", str))
	instance(recv, "SetProgramVariable", void, arg("symbolName", str), arg("value", object))
	instance(recv, "RequestSerialization", void)

	udon := bd.class("VRC.Udon", "UdonBehaviour", b.MonoBehaviour, recv)
	b.UdonBehaviour = udon
	bd.accessor(udon, "DisableInteractive", b.Bool)
	bd.accessor(udon, "InteractionText", str)

	player := bd.class("VRC.SDKBase", "VRCPlayerApi", nil)
	bd.getter(player, "displayName", str)
	bd.getter(player, "isLocal", b.Bool)
	bd.getter(player, "isMaster", b.Bool)
	bd.getter(player, "playerId", b.Int32)
	instance(player, "GetPosition", c.builtinsType("UnityEngine.Vector3"))
	instance(player, "TeleportTo", void,
		arg("teleportPos", c.builtinsType("UnityEngine.Vector3")),
		arg("teleportRot", c.builtinsType("UnityEngine.Quaternion")))
	static(player, "GetPlayerCount", b.Int32)

	net := bd.class("VRC.SDKBase", "Networking", nil)
	bd.staticGetter(net, "LocalPlayer", player)
	bd.staticGetter(net, "IsMaster", b.Bool)
	static(net, "IsOwner", b.Bool, arg("obj", b.GameObject))
	static(net, "IsOwner", b.Bool, arg("player", player), arg("obj", b.GameObject))
	static(net, "SetOwner", void, arg("player", player), arg("obj", b.GameObject))
	static(net, "GetOwner", player, arg("obj", b.GameObject))

	// Members of the proxy base are remapped onto UdonBehaviour and
	// IUdonEventReceiver by the resolver.
	usb := bd.class("UdonSharp", "UdonSharpBehaviour", b.MonoBehaviour)
	b.UdonSharpBehaviour = usb
	instance(usb, "SendCustomEvent", void, arg("eventName", str))
	instance(usb, "SendCustomNetworkEvent", void, arg("target", netTarget), arg("eventName", str))
	instance(usb, "SendCustomEventDelayedSeconds", void, arg("eventName", str), arg("delaySeconds", b.Single))
	instance(usb, "SendCustomEventDelayedFrames", void, arg("eventName", str), arg("delayFrames", b.Int32))
	instance(usb, "GetProgramVariable", object, arg("symbolName", str))
	instance(usb, "SetProgramVariable", void, arg("symbolName", str), arg("value", object))
	instance(usb, "RequestSerialization", void)
	bd.accessor(usb, "DisableInteractive", b.Bool)
	bd.accessor(usb, "InteractionText", str)
}

func (c *Catalog) builtinsType(name string) *Type {
	t, ok := c.Lookup(name)
	if !ok {
		panic("types: missing builtin " + name)
	}
	return t
}
