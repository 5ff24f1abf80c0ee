package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/azdice/internal/preset"
	"github.com/cory-johannsen/azdice/internal/scripting"
)

func runScript(t *testing.T, mgr *scripting.Manager, luaSrc, hook string, args ...lua.LValue) lua.LValue {
	t.Helper()
	dir := writeTempLua(t, "test.lua", luaSrc)
	name := "modtest_" + t.Name()
	require.NoError(t, mgr.LoadDir(name, dir, 0))
	ret, err := mgr.CallHook(name, hook, args...)
	require.NoError(t, err)
	return ret
}

func TestLog_AllLevels(t *testing.T) {
	mgr, logs := newTestManager(t)
	runScript(t, mgr, `
		function do_all_logs()
			log.debug("d")
			log.info("i")
			log.warn("w")
			log.error("e")
		end
	`, "do_all_logs")

	levels := map[string]bool{}
	for _, e := range logs.FilterField(zap.String("source", "lua")).All() {
		levels[e.Level.String()] = true
	}
	assert.True(t, levels["debug"], "expected debug log")
	assert.True(t, levels["info"], "expected info log")
	assert.True(t, levels["warn"], "expected warn log")
	assert.True(t, levels["error"], "expected error log")
}

func TestDiceRoll_ReturnsTable(t *testing.T) {
	mgr, logs := newTestManager(t)
	ret := runScript(t, mgr, `
		function do_roll()
			local r = dice.roll("4d6dl1 + 2")
			if r.expression ~= "4d6dl1+2" then error("bad expression " .. r.expression) end
			if #r.groups ~= 1 then error("expected one group") end
			if #r.groups[1].values ~= 3 then error("expected three kept dice") end
			if r.groups[1].notation ~= "4d6dl1" then error("bad notation") end
			if r.bonus ~= 2 then error("bad bonus") end
			return r.total
		end
	`, "do_roll")
	n, ok := ret.(lua.LNumber)
	require.True(t, ok, "expected LNumber, got %T", ret)
	assert.GreaterOrEqual(t, int(n), 5)
	assert.LessOrEqual(t, int(n), 20)
	assert.Equal(t, 1, logs.FilterMessage("dice roll").Len())
}

func TestDiceRoll_InvalidExpressionRaises(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "bad.lua", `function go() return dice.roll("4d6dl9") end`)
	require.NoError(t, mgr.LoadDir("bad", dir, 0))
	_, err := mgr.CallHook("bad", "go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drop")
}

func TestDiceRange(t *testing.T) {
	mgr, _ := newTestManager(t)
	ret := runScript(t, mgr, `
		function get_range()
			local lo, hi = dice.range("5d6 - 10d10")
			return lo * 1000 + hi
		end
	`, "get_range")
	assert.Equal(t, lua.LNumber(-70*1000-5), ret)
}

func TestDiceParse(t *testing.T) {
	mgr, _ := newTestManager(t)
	ret := runScript(t, mgr, `
		function canon() return dice.parse("15d20kh11kl12rr3ab4mn2mx18!") end
	`, "canon")
	assert.Equal(t, lua.LString("15d20dl4dh3rr3ab4mn2mx18!"), ret)

	ret = runScript(t, mgr, `
		function bad()
			local v, err = dice.parse("2x6")
			if v ~= nil then error("expected nil") end
			return err
		end
	`, "bad")
	msg, ok := ret.(lua.LString)
	require.True(t, ok)
	assert.Contains(t, string(msg), "dice:")
}

func TestDicePreset(t *testing.T) {
	mgr, _ := newTestManager(t)
	lib, err := preset.LoadFromBytes([]byte("presets:\n  - {name: stats, expression: 4d6dl1}\n"))
	require.NoError(t, err)

	ret := runScript(t, mgr, `function p() return dice.preset("stats") end`, "p")
	assert.Equal(t, lua.LNil, ret)

	mgr.SetPresets(lib)
	ret = runScript(t, mgr, `
		function p()
			local lo, hi = dice.range("stats")
			return dice.preset("STATS") .. ":" .. lo .. "-" .. hi
		end
	`, "p")
	assert.Equal(t, lua.LString("4d6dl1:3-18"), ret)
}

func TestProperty_DiceRoll_TotalEqualsGroupsPlusBonus(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "check.lua", `
		function check_invariant(expr)
			local r = dice.roll(expr)
			local sum = r.bonus
			for _, g in ipairs(r.groups) do sum = sum + g.subtotal end
			local lo, hi = dice.range(expr)
			return r.total == sum and r.total >= lo and r.total <= hi
		end
	`)
	require.NoError(t, mgr.LoadDir("prop", dir, 0))
	rapid.Check(t, func(rt *rapid.T) {
		expr := rapid.SampledFrom([]string{"1d6", "2d6+3", "4d6dl1", "3d8mn2-1", "10d10kh3"}).Draw(rt, "expr")
		ret, err := mgr.CallHook("prop", "check_invariant", lua.LString(expr))
		if err != nil {
			rt.Fatalf("check_invariant(%s): %v", expr, err)
		}
		assert.Equal(rt, lua.LTrue, ret, "total must equal groups plus bonus for %s", expr)
	})
}
