package classify

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

func registerHelpers(L *lua.LState, api *lua.LTable) {
	helpers := L.NewTable()
	L.SetField(helpers, "trim", L.NewFunction(luaTrim))
	L.SetField(helpers, "lower", L.NewFunction(luaLower))
	L.SetField(helpers, "parse_bool", L.NewFunction(luaParseBool))
	L.SetField(helpers, "get_name", L.NewFunction(luaGetName))
	L.SetField(helpers, "has_value", L.NewFunction(luaHasValue))
	L.SetField(api, "helpers", helpers)
}

func luaTrim(L *lua.LState) int {
	L.Push(lua.LString(strings.TrimSpace(L.CheckString(1))))
	return 1
}

func luaLower(L *lua.LState) int {
	L.Push(lua.LString(strings.ToLower(L.CheckString(1))))
	return 1
}

// luaParseBool treats any value other than no/false/0/off as true
func luaParseBool(L *lua.LState) int {
	switch strings.ToLower(strings.TrimSpace(L.CheckString(1))) {
	case "no", "false", "0", "off", "":
		L.Push(lua.LFalse)
	default:
		L.Push(lua.LTrue)
	}
	return 1
}

// luaGetName returns name:en, then name, then nil
func luaGetName(L *lua.LState) int {
	tags := L.CheckTable(1)
	for _, key := range []string{"name:en", "name"} {
		if s := lua.LVAsString(L.GetField(tags, key)); s != "" {
			L.Push(lua.LString(s))
			return 1
		}
	}
	L.Push(lua.LNil)
	return 1
}

// luaHasValue reports whether tags[key] is one of the listed values
// Usage: has_value(tags, "natural", "wood", "scrub")
func luaHasValue(L *lua.LState) int {
	tags := L.CheckTable(1)
	v := lua.LVAsString(L.GetField(tags, L.CheckString(2)))
	if v != "" {
		for i := 3; i <= L.GetTop(); i++ {
			if L.CheckString(i) == v {
				L.Push(lua.LTrue)
				return 1
			}
		}
	}
	L.Push(lua.LFalse)
	return 1
}
