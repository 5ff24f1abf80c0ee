package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/azdice/internal/dice"
	"github.com/cory-johannsen/azdice/internal/preset"
)

// globalName is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no named VM is found.
const globalName = "__global__"

// vm is one sandboxed LState. LStates are single-threaded, so mu serializes
// every call into it.
type vm struct {
	mu        sync.Mutex
	L         *lua.LState
	cancel    context.CancelFunc
	instLimit int
}

// run executes fn under a fresh instruction budget.
func (v *vm) run(fn func(L *lua.LState) error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cancel()
	v.cancel = arm(v.L, v.instLimit)
	return fn(v.L)
}

func (v *vm) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cancel()
	v.L.Close()
}

// Manager owns one sandboxed LState per loaded script set and exposes hook
// dispatch. Every VM sees the same dice and log modules.
//
// Manager is safe for concurrent use. Calls into one VM are serialized while
// different VMs run concurrently.
type Manager struct {
	mu      sync.RWMutex
	vms     map[string]*vm
	roller  *dice.Roller
	presets *preset.Library
	limits  dice.Limits
	logger  *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no VMs.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	if roller == nil {
		panic("scripting.NewManager: roller must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		vms:    make(map[string]*vm),
		roller: roller,
		limits: dice.DefaultLimits,
		logger: logger,
	}
}

// SetLimits bounds the expressions dice.roll and dice.range accept. The
// default is dice.DefaultLimits.
func (m *Manager) SetLimits(l dice.Limits) {
	m.mu.Lock()
	m.limits = l
	m.mu.Unlock()
}

// SetPresets lets dice.roll, dice.range and dice.preset resolve preset names.
// It affects VMs loaded afterwards and calls made through existing ones.
func (m *Manager) SetPresets(lib *preset.Library) {
	m.mu.Lock()
	m.presets = lib
	m.mu.Unlock()
}

// LoadDir creates a sandboxed VM under name, registers the modules, then
// executes every *.lua file in scriptDir in lexicographic order.
//
// Precondition: name must be non-empty; scriptDir must be a readable directory.
// Postcondition: VM is registered; returns error on Lua load failure.
func (m *Manager) LoadDir(name, scriptDir string, instLimit int) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, name, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)
	return m.loadInto(name, instLimit, luaFiles...)
}

// LoadFile creates a VM under name from a single script.
func (m *Manager) LoadFile(name, path string, instLimit int) error {
	return m.loadInto(name, instLimit, path)
}

// LoadGlobal loads scriptDir into the shared VM that CallHook falls back to.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.LoadDir(globalName, scriptDir, instLimit)
}

func (m *Manager) loadInto(name string, instLimit int, files ...string) error {
	L, cancel := NewSandboxedState(instLimit)
	m.RegisterModules(L)
	v := &vm{L: L, cancel: cancel, instLimit: instLimit}

	for _, path := range files {
		if err := v.run(func(L *lua.LState) error { return L.DoFile(path) }); err != nil {
			v.close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, name, err)
		}
	}

	m.install(name, v)
	m.logger.Debug("scripting: loaded", zap.String("name", name), zap.Int("files", len(files)))
	return nil
}

func (m *Manager) install(name string, v *vm) {
	m.mu.Lock()
	old := m.vms[name]
	m.vms[name] = v
	m.mu.Unlock()
	if old != nil {
		old.close()
	}
}

// DoString runs src in the VM registered under name, creating it if needed.
//
// Postcondition: returns the Lua error, if any, wrapped with name.
func (m *Manager) DoString(name, src string, instLimit int) error {
	m.mu.RLock()
	v, ok := m.vms[name]
	m.mu.RUnlock()
	if !ok {
		L, cancel := NewSandboxedState(instLimit)
		m.RegisterModules(L)
		v = &vm{L: L, cancel: cancel, instLimit: instLimit}
		m.install(name, v)
	}
	if err := v.run(func(L *lua.LState) error { return L.DoString(src) }); err != nil {
		return fmt.Errorf("scripting: running chunk in %q: %w", name, err)
	}
	return nil
}

// CallHook calls the named Lua global function in name's VM. If name has no
// VM, the global VM is tried as a fallback. Returns (LNil, nil) if the hook
// is not defined or no VM exists. Lua runtime errors are logged at Warn level
// and returned.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(name, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	v, ok := m.vms[name]
	if !ok {
		v = m.vms[globalName]
	}
	m.mu.RUnlock()

	if v == nil {
		m.logger.Info("scripting: no VM",
			zap.String("name", name),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	ret := lua.LValue(lua.LNil)
	err := v.run(func(L *lua.LState) error {
		fn := L.GetGlobal(hook)
		if fn == lua.LNil {
			return nil
		}
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
			return err
		}
		ret = L.Get(-1)
		L.Pop(1)
		return nil
	})
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("name", name),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, fmt.Errorf("scripting: %s.%s: %w", name, hook, err)
	}
	return ret, nil
}

// Close releases every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	vms := m.vms
	m.vms = make(map[string]*vm)
	m.mu.Unlock()
	for _, v := range vms {
		v.close()
	}
}
