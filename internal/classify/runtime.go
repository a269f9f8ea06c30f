// Package classify runs user Lua scripts that decide the feature type of
// OSM ways.
//
// A script defines osmmaps.classify_way(object) and returns a feature type
// name such as "lake", "unknown" to drop the way, or nil to fall back to
// the built-in rules.
package classify

import (
	"fmt"
	"strings"
	"sync"

	"github.com/paulmach/osm"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Runtime manages the Lua interpreter. It is safe for concurrent use; calls
// into Lua are serialised.
type Runtime struct {
	L           *lua.LState
	mu          sync.Mutex
	log         *zap.Logger
	classifyWay lua.LValue
}

// NewRuntime creates a Lua state with the osmmaps API registered
func NewRuntime(log *zap.Logger) *Runtime {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Runtime{
		L:   lua.NewState(),
		log: log,
	}
	r.registerAPI()
	return r
}

// Close releases Lua resources
func (r *Runtime) Close() {
	r.L.Close()
}

func (r *Runtime) registerAPI() {
	api := r.L.NewTable()
	api.RawSetString("version", lua.LString("1.0.0"))

	types := r.L.NewTable()
	for i, name := range FeatureTypes {
		types.RawSetInt(i+1, lua.LString(name))
	}
	api.RawSetString("feature_types", types)

	r.L.SetGlobal("osmmaps", api)
	registerHelpers(r.L, api)
	r.L.SetGlobal("print", r.L.NewFunction(r.luaPrint))
}

// FeatureTypes are the names a script may return
var FeatureTypes = []string{
	"unknown", "park", "beach", "lake", "river", "island",
	"shoreline", "building", "greenspace", "golfcourse", "stream",
}

// LoadFile loads and executes a Lua script
func (r *Runtime) LoadFile(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("failed to load Lua file: %w", err)
	}
	return r.extractCallbacks()
}

// LoadString loads and executes Lua code from a string
func (r *Runtime) LoadString(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.L.DoString(code); err != nil {
		return fmt.Errorf("failed to load Lua code: %w", err)
	}
	return r.extractCallbacks()
}

func (r *Runtime) extractCallbacks() error {
	api, ok := r.L.GetGlobal("osmmaps").(*lua.LTable)
	if !ok {
		return fmt.Errorf("script replaced the osmmaps table")
	}
	r.classifyWay = api.RawGetString("classify_way")
	if !r.HasClassifyWay() {
		return fmt.Errorf("script does not define osmmaps.classify_way")
	}
	return nil
}

// HasClassifyWay returns true if classify_way is defined
func (r *Runtime) HasClassifyWay() bool {
	return r.classifyWay != nil && r.classifyWay.Type() == lua.LTFunction
}

// ClassifyWay calls osmmaps.classify_way. ok is false when the script
// returned nil.
func (r *Runtime) ClassifyWay(w *osm.Way, closed bool) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.HasClassifyWay() {
		return "", false, nil
	}

	if err := r.L.CallByParam(lua.P{
		Fn:      r.classifyWay,
		NRet:    1,
		Protect: true,
	}, r.wayToLua(w, closed)); err != nil {
		return "", false, fmt.Errorf("classify_way(%d): %w", w.ID, err)
	}
	ret := r.L.Get(-1)
	r.L.Pop(1)

	switch v := ret.(type) {
	case *lua.LNilType:
		return "", false, nil
	case lua.LString:
		return strings.ToLower(string(v)), true, nil
	default:
		return "", false, fmt.Errorf("classify_way(%d) returned %s, want string or nil", w.ID, ret.Type())
	}
}

func (r *Runtime) wayToLua(w *osm.Way, closed bool) *lua.LTable {
	L := r.L
	tbl := L.NewTable()
	tbl.RawSetString("id", lua.LNumber(w.ID))
	tbl.RawSetString("type", lua.LString("way"))
	tbl.RawSetString("is_closed", lua.LBool(closed))

	tags := L.NewTable()
	for _, t := range w.Tags {
		tags.RawSetString(t.Key, lua.LString(t.Value))
	}
	tbl.RawSetString("tags", tags)

	nodes := L.NewTable()
	for i, wn := range w.Nodes {
		nodes.RawSetInt(i+1, lua.LNumber(wn.ID))
	}
	tbl.RawSetString("nodes", nodes)
	return tbl
}

// luaPrint sends script output to the log
func (r *Runtime) luaPrint(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	r.log.Info(strings.Join(parts, "\t"), zap.String("source", "lua"))
	return 0
}
