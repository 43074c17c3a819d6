package resolver

// Well-known extern signatures the compiler emits without a catalog lookup.
const (
	ExternGetProgramVariable = "VRCUdonCommonInterfacesIUdonEventReceiver.__GetProgramVariable__SystemString__SystemObject"
	ExternSetProgramVariable = "VRCUdonCommonInterfacesIUdonEventReceiver.__SetProgramVariable__SystemString_SystemObject__SystemVoid"
	ExternSendCustomEvent    = "VRCUdonCommonInterfacesIUdonEventReceiver.__SendCustomEvent__SystemString__SystemVoid"

	ExternStringGetChars = "SystemString.__get_Chars__SystemInt32__SystemChar"
	ExternObjectEquals   = "SystemObject.__Equals__SystemObject_SystemObject__SystemBoolean"

	ExternInt32LessThan    = "SystemInt32.__op_LessThan__SystemInt32_SystemInt32__SystemBoolean"
	ExternInt32GreaterThan = "SystemInt32.__op_GreaterThan__SystemInt32_SystemInt32__SystemBoolean"
	ExternInt32Addition    = "SystemInt32.__op_Addition__SystemInt32_SystemInt32__SystemInt32"

	ExternComponentGetTransform  = "UnityEngineComponent.__get_transform__UnityEngineTransform"
	ExternGameObjectGetTransform = "UnityEngineGameObject.__get_transform__UnityEngineTransform"

	ExternVRCInstantiate = "VRCInstantiate.__Instantiate__UnityEngineGameObject__UnityEngineGameObject"
)

// Reflection constants every compiled behaviour carries.
const (
	TypeIDSymbol   = "__refl_const_intnl_udonTypeID"
	TypeNameSymbol = "__refl_const_intnl_udonTypeName"
)

// intrinsicExterns are VM functions with no catalog type behind them.
var intrinsicExterns = []string{
	ExternVRCInstantiate,
}
