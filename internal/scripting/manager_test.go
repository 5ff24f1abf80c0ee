package scripting_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/azdice/internal/dice"
	"github.com/cory-johannsen/azdice/internal/scripting"
)

func newTestManager(t testing.TB) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	src := dice.NewCryptoSource()
	roller := dice.NewLoggedRoller(src, logger)
	mgr := scripting.NewManager(roller, logger)
	t.Cleanup(mgr.Close)
	return mgr, logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0644))
	return dir
}

// TestManager_LoadDir_HookRollsDice verifies a loaded hook receives its
// arguments and can roll through the dice module.
func TestManager_LoadDir_HookRollsDice(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "advantage.lua", `
		function with_bonus(expr, bonus)
			return dice.roll(expr).total + bonus
		end
	`)
	require.NoError(t, mgr.LoadDir("table", dir, 0))
	ret, err := mgr.CallHook("table", "with_bonus", lua.LString("3d1"), lua.LNumber(4))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(7), ret)
}

func TestManager_LoadFile(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "main.lua", `function main(expr) return dice.parse(expr) end`)
	require.NoError(t, mgr.LoadFile("main", filepath.Join(dir, "main.lua"), 0))
	ret, err := mgr.CallHook("main", "main", lua.LString("D6 + 2"))
	require.NoError(t, err)
	assert.Equal(t, lua.LString("1d6+2"), ret)

	assert.Error(t, mgr.LoadFile("missing", filepath.Join(dir, "nope.lua"), 0))
}

func TestManager_CallHook_UndefinedHookIsNil(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "empty.lua", `-- presets only, no hooks`)
	require.NoError(t, mgr.LoadDir("table", dir, 0))
	ret, err := mgr.CallHook("table", "on_crit")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_UnknownName_LogsInfoReturnsNil(t *testing.T) {
	mgr, logs := newTestManager(t)
	ret, err := mgr.CallHook("unloaded", "on_roll")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.Equal(t, 1, logs.FilterMessage("scripting: no VM").FilterField(zap.String("name", "unloaded")).Len())
}

func TestManager_CallHook_ScriptErrorReturnedAndLogged(t *testing.T) {
	mgr, logs := newTestManager(t)
	dir := writeTempLua(t, "reject.lua", `
		function reject(expr)
			if dice.range(expr) > 10 then error("minimum too high: " .. expr) end
		end
	`)
	require.NoError(t, mgr.LoadDir("table", dir, 0))
	ret, err := mgr.CallHook("table", "reject", lua.LString("11d6"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minimum too high: 11d6")
	assert.Equal(t, lua.LNil, ret)
	entries := logs.FilterMessage("scripting: Lua runtime error").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
}

// TestManager_DiceLimits verifies dice.roll and dice.range refuse oversized
// expressions with a Lua error instead of allocating them.
func TestManager_DiceLimits(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.SetLimits(dice.Limits{MaxDice: 100, MaxWidth: 1_000})
	dir := writeTempLua(t, "limits.lua", `
		function total(expr) return dice.roll(expr).total end
		function low(expr) return dice.range(expr) end
	`)
	require.NoError(t, mgr.LoadDir("table", dir, 0))

	_, err := mgr.CallHook("table", "total", lua.LString("4000000000d6"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds limits")

	_, err = mgr.CallHook("table", "low", lua.LString("1d1001"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds limits")

	ret, err := mgr.CallHook("table", "total", lua.LString("100d1"))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(100), ret)
}

func TestManager_CallHook_FreshBudgetPerCall(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "loop.lua", `
		function count(n)
			local s = 0
			for i = 1, n do s = s + i end
			return s
		end
	`)
	require.NoError(t, mgr.LoadDir("budget", dir, 500))
	for i := 0; i < 20; i++ {
		ret, err := mgr.CallHook("budget", "count", lua.LNumber(10))
		require.NoError(t, err)
		assert.Equal(t, lua.LNumber(55), ret)
	}
	_, err := mgr.CallHook("budget", "count", lua.LNumber(100_000))
	assert.Error(t, err)
}

func TestManager_GlobalScriptsAnswerUnknownNames(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "global.lua", `
		function max_of(expr)
			local _, hi = dice.range(expr)
			return hi
		end
	`)
	require.NoError(t, mgr.LoadGlobal(dir, 0))
	ret, err := mgr.CallHook("unknown", "max_of", lua.LString("2d20+2"))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(42), ret)
}

func TestManager_LoadDir_EmptyDir_NoError(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadDir("empty", t.TempDir(), 0))
	ret, err := mgr.CallHook("empty", "anything")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_LoadDir_InvalidLua_ReturnsError(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "broken.lua", `function roll( -- unterminated`)
	assert.Error(t, mgr.LoadDir("bad", dir, 0))
	assert.Error(t, mgr.LoadDir("missing", filepath.Join(dir, "nope"), 0))
}

func TestManager_LoadDir_MultipleFiles_OrderedByName(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "10_defaults.lua"), []byte(`default_expr = "4d1"`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20_hooks.lua"), []byte(`
		function roll_default() return dice.roll(default_expr).total end
	`), 0644))
	require.NoError(t, mgr.LoadDir("ordered", dir, 0))
	ret, err := mgr.CallHook("ordered", "roll_default")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(4), ret)
}

func TestManager_DoString_CreatesAndReusesVM(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.DoString("repl", `last = dice.roll("5d1").total`, 0))
	require.NoError(t, mgr.DoString("repl", `function last_total() return last end`, 0))
	ret, err := mgr.CallHook("repl", "last_total")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(5), ret)

	assert.Error(t, mgr.DoString("repl", `error("boom")`, 0))
}

func TestManager_UnloadedNamesAlwaysNil(t *testing.T) {
	mgr, _ := newTestManager(t)
	rapid.Check(t, func(rt *rapid.T) {
		name := rapid.StringMatching(`[a-z]{1,12}`).Draw(rt, "name")
		hook := rapid.StringMatching(`on_[a-z]{1,8}`).Draw(rt, "hook")
		ret, err := mgr.CallHook(name, hook)
		if err != nil || ret != lua.LNil {
			rt.Fatalf("CallHook(%q, %q) = %v, %v", name, hook, ret, err)
		}
	})
}

func TestManager_ConcurrentCallsSerialisedPerVM(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "shared.lua", `
		rolls = 0
		function roll_and_count(expr)
			rolls = rolls + 1
			return dice.roll(expr).total
		end
		function count() return rolls end
	`)
	require.NoError(t, mgr.LoadDir("shared", dir, 0))

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				ret, err := mgr.CallHook("shared", "roll_and_count", lua.LString("2d1+1"))
				assert.NoError(t, err)
				assert.Equal(t, lua.LNumber(3), ret)
			}
		}()
	}
	wg.Wait()
	ret, err := mgr.CallHook("shared", "count")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(workers*perWorker), ret)
}

func TestNewManager_RequiresRoller(t *testing.T) {
	assert.Panics(t, func() {
		scripting.NewManager(nil, zap.NewNop())
	})
}

func TestNewManager_RequiresLogger(t *testing.T) {
	roller := dice.NewLoggedRoller(dice.NewCryptoSource(), zap.NewNop())
	assert.Panics(t, func() {
		scripting.NewManager(roller, nil)
	})
}

func TestManager_Close_ReleasesVMs(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "init.lua", `function on_roll() return 1 end`)
	require.NoError(t, mgr.LoadDir("closing", dir, 0))
	mgr.Close()
	ret, err := mgr.CallHook("closing", "on_roll")
	assert.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}
