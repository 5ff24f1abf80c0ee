package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/azdice/internal/dice"
	"github.com/cory-johannsen/azdice/internal/preset"
)

// RegisterModules installs the dice and log tables into L.
//
//	dice.roll(expr)   -> {expression, total, bonus, groups = {{values, subtotal}, ...}}
//	dice.range(expr)  -> min, max
//	dice.parse(expr)  -> canonical text, or nil and an error message
//	dice.preset(name) -> expression, or nil
//	log.debug/info/warn/error(msg)
//
// dice.roll and dice.range raise a Lua error on invalid notation or when
// the expression exceeds the manager's limits. expr may name a preset when a
// library is attached.
//
// Precondition: L must be from NewSandboxedState.
func (m *Manager) RegisterModules(L *lua.LState) {
	d := L.NewTable()
	L.SetFuncs(d, map[string]lua.LGFunction{
		"roll":   m.luaRoll,
		"range":  m.luaRange,
		"parse":  luaParse,
		"preset": m.luaPreset,
	})
	L.SetGlobal("dice", d)

	log := L.NewTable()
	L.SetFuncs(log, map[string]lua.LGFunction{
		"debug": m.luaLog(zap.DebugLevel),
		"info":  m.luaLog(zap.InfoLevel),
		"warn":  m.luaLog(zap.WarnLevel),
		"error": m.luaLog(zap.ErrorLevel),
	})
	L.SetGlobal("log", log)
}

func (m *Manager) library() *preset.Library {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.presets
}

func (m *Manager) bounds() dice.Limits {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.limits
}

func (m *Manager) resolve(L *lua.LState) *dice.Bag {
	expr := L.CheckString(1)
	bag, err := m.library().Resolve(expr)
	if err == nil {
		err = m.bounds().Check(bag)
	}
	if err != nil {
		L.RaiseError("%s", err.Error())
		return nil
	}
	return bag
}

func (m *Manager) luaRoll(L *lua.LState) int {
	bag := m.resolve(L)
	res := m.roller.Roll(bag)

	groups := L.NewTable()
	for _, d := range res.Dice {
		values := L.NewTable()
		for _, v := range d.Values {
			values.Append(lua.LNumber(v))
		}
		g := L.NewTable()
		g.RawSetString("values", values)
		g.RawSetString("subtotal", lua.LNumber(d.Subtotal))
		g.RawSetString("notation", lua.LString(d.Group.String()))
		groups.Append(g)
	}

	t := L.NewTable()
	t.RawSetString("expression", lua.LString(res.Expression))
	t.RawSetString("total", lua.LNumber(res.Total))
	t.RawSetString("bonus", lua.LNumber(res.Bonus.Subtotal))
	t.RawSetString("groups", groups)
	L.Push(t)
	return 1
}

func (m *Manager) luaRange(L *lua.LState) int {
	rng := m.resolve(L).Range()
	L.Push(lua.LNumber(rng.Min))
	L.Push(lua.LNumber(rng.Max))
	return 2
}

func luaParse(L *lua.LState) int {
	bag, err := dice.Parse(L.CheckString(1))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LString(bag.String()))
	return 1
}

func (m *Manager) luaPreset(L *lua.LState) int {
	name := L.CheckString(1)
	lib := m.library()
	if lib == nil {
		L.Push(lua.LNil)
		return 1
	}
	p, ok := lib.Get(name)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(p.Expression))
	return 1
}

func (m *Manager) luaLog(level zapcore.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		if ce := m.logger.Check(level, L.CheckString(1)); ce != nil {
			ce.Write(zap.String("source", "lua"))
		}
		return 0
	}
}
