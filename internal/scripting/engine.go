package scripting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/foesim/simcore/internal/component"
	"github.com/foesim/simcore/internal/core/ecs"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM running producer scripts against a World.
// Single-goroutine access only (tick loop).
type Engine struct {
	vm    *lua.LState
	world *ecs.World
	log   *zap.Logger
}

func newEngine(world *ecs.World, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, world: world, log: log}
	vm.PreloadModule("simcore", e.loader)
	// Scripts may use the global table directly without require.
	if err := vm.DoString(`simcore = require("simcore")`); err != nil {
		vm.Close()
		return nil, fmt.Errorf("open simcore module: %w", err)
	}
	return e, nil
}

// NewEngine creates a Lua engine and loads every .lua file in scriptsDir, in name
// order. A missing directory loads nothing.
func NewEngine(scriptsDir string, world *ecs.World, log *zap.Logger) (*Engine, error) {
	e, err := newEngine(world, log)
	if err != nil {
		return nil, err
	}
	if err := e.loadDir(scriptsDir); err != nil {
		e.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

// NewEngineFromSource creates an engine running a single chunk of Lua source.
func NewEngineFromSource(src string, world *ecs.World, log *zap.Logger) (*Engine, error) {
	e, err := newEngine(world, log)
	if err != nil {
		return nil, err
	}
	if err := e.vm.DoString(src); err != nil {
		e.Close()
		return nil, fmt.Errorf("load script: %w", err)
	}
	return e, nil
}

func (e *Engine) Close() {
	e.vm.Close()
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// HasTick reports whether the scripts define on_tick.
func (e *Engine) HasTick() bool {
	return e.vm.GetGlobal("on_tick") != lua.LNil
}

// OnTick calls the global on_tick(dt_seconds) if it is defined.
func (e *Engine) OnTick(dt time.Duration) error {
	fn := e.vm.GetGlobal("on_tick")
	if fn == lua.LNil {
		return nil
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(dt.Seconds())); err != nil {
		return fmt.Errorf("on_tick: %w", err)
	}
	return nil
}

// Call invokes a global Lua function with number arguments and returns its first
// result as a number. A missing function or a non-number result is an error.
func (e *Engine) Call(name string, args ...float64) (float64, error) {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		return 0, fmt.Errorf("lua function %s not found", name)
	}
	largs := make([]lua.LValue, len(args))
	for i, a := range args {
		largs[i] = lua.LNumber(a)
	}
	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, largs...); err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	n, ok := result.(lua.LNumber)
	if !ok {
		return 0, fmt.Errorf("%s returned %s, want number", name, result.Type())
	}
	return float64(n), nil
}

func (e *Engine) loader(L *lua.LState) int {
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"generate": e.luaGenerate,
		"free":     e.luaFree,
		"destroy":  e.luaDestroy,
		"insert":   e.luaInsert,
		"remove":   e.luaRemove,
		"exists":   e.luaExists,
		"size":     e.luaSize,
		"get":      e.luaGet,
		"set_name": e.luaSetName,
		"log":      e.luaLog,
	})
	mod.RawSetString("PERSISTENT", lua.LNumber(ecs.PersistentGroup))
	mod.RawSetString("TEMPORARY", lua.LNumber(ecs.TemporaryGroup))
	L.Push(mod)
	return 1
}

func checkID(L *lua.LState, n int) ecs.ID {
	v := L.CheckNumber(n)
	if v < 0 || v > math.MaxUint32 || float64(v) != math.Trunc(float64(v)) {
		L.ArgError(n, "not an id")
	}
	return ecs.ID(uint32(v))
}

func (e *Engine) checkPool(L *lua.LState, n int) *ecs.ComponentPool {
	name := L.CheckString(n)
	cp, ok := e.world.Registry().ComponentPool(name)
	if !ok {
		L.ArgError(n, "unknown pool "+name)
	}
	return cp
}

func fail(L *lua.LState, err error) int {
	L.Push(lua.LNil)
	L.Push(lua.LString(err.Error()))
	return 2
}

// generate(group_name) -> id | nil, err
func (e *Engine) luaGenerate(L *lua.LState) int {
	name := L.OptString(1, ecs.PersistentGroupName)
	ix, ok := e.world.Groups().ByName(name)
	if !ok {
		return fail(L, fmt.Errorf("%w: %s", ecs.ErrUnknownGroup, name))
	}
	id, err := ix.Generate()
	if err != nil {
		return fail(L, err)
	}
	L.Push(lua.LNumber(id))
	return 1
}

// free(id) -> true | nil, err
func (e *Engine) luaFree(L *lua.LState) int {
	id := checkID(L, 1)
	ix, ok := e.world.Groups().Group(id.Group())
	if !ok {
		return fail(L, ecs.ErrUnknownGroup)
	}
	if err := ix.Free(id); err != nil {
		return fail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// destroy(id) queues id for end-of-tick destruction.
func (e *Engine) luaDestroy(L *lua.LState) int {
	e.world.MarkForDestruction(checkID(L, 1))
	return 0
}

// insert(pool, id, value) -> true | nil, err
// A number value is stored as a little-endian float64; a string as raw bytes.
func (e *Engine) luaInsert(L *lua.LState) int {
	cp := e.checkPool(L, 1)
	id := checkID(L, 2)

	var data []byte
	switch v := L.Get(3).(type) {
	case lua.LNumber:
		data = component.EncodeScalar(float64(v))
	case lua.LString:
		data = []byte(v)
	default:
		L.ArgError(3, "number or string expected")
	}
	if err := cp.Insert(id, data); err != nil {
		return fail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

func (e *Engine) luaRemove(L *lua.LState) int {
	cp := e.checkPool(L, 1)
	cp.Remove(checkID(L, 2))
	return 0
}

func (e *Engine) luaExists(L *lua.LState) int {
	cp := e.checkPool(L, 1)
	L.Push(lua.LBool(cp.Exist(checkID(L, 2))))
	return 1
}

func (e *Engine) luaSize(L *lua.LState) int {
	L.Push(lua.LNumber(e.checkPool(L, 1).Size()))
	return 1
}

// get(pool, id) -> number | string | nil
// Records of 8 bytes read back as numbers; anything else as a string.
func (e *Engine) luaGet(L *lua.LState) int {
	cp := e.checkPool(L, 1)
	i, ok := cp.Find(checkID(L, 2))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	data := *cp.Stored().At(i)
	if v, ok := component.DecodeScalar(data); ok {
		L.Push(lua.LNumber(v))
	} else {
		L.Push(lua.LString(data))
	}
	return 1
}

func (e *Engine) luaSetName(L *lua.LState) int {
	id := checkID(L, 1)
	name := L.CheckString(2)
	names := e.world.Names()
	if _, ok := names.FindName(id); ok {
		L.Push(lua.LBool(names.Update(id, name)))
	} else {
		L.Push(lua.LBool(names.Add(id, name)))
	}
	return 1
}

func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info("lua", zap.String("msg", L.CheckString(1)))
	return 0
}
