// Package scripting runs user Lua scripts in a sandboxed GopherLua VM with a
// dice module bound to a logged roller.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the opcode budget of one script run when no
// override is configured.
const DefaultInstructionLimit = 100_000

// blockedGlobals can reach the filesystem, load arbitrary chunks or touch the GC.
var blockedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require"}

// opBudget is a context whose Done is polled by GopherLua once per opcode.
// The poll that exhausts the budget cancels it, stopping the VM at the next
// instruction.
type opBudget struct {
	context.Context
	cancel context.CancelFunc
	left   atomic.Int64
}

func (b *opBudget) Done() <-chan struct{} {
	if b.left.Add(-1) <= 0 {
		b.cancel()
	}
	return b.Context.Done()
}

// arm installs a budget of limit opcodes on L (DefaultInstructionLimit when
// limit <= 0) and returns the func that releases it.
func arm(L *lua.LState, limit int) context.CancelFunc {
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &opBudget{Context: ctx, cancel: cancel}
	b.left.Store(int64(limit))
	L.SetContext(b)
	return cancel
}

// NewSandboxedState returns an LState with only the base, table, string and
// math libraries, the blocked globals removed, and a budget of instLimit
// opcodes (0 selects DefaultInstructionLimit).
//
// Postcondition: the caller owns L and must call cancel and L.Close.
func NewSandboxedState(instLimit int) (*lua.LState, context.CancelFunc) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath} {
		open(L)
	}
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return L, arm(L, instLimit)
}
