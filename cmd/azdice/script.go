package main

import (
	"fmt"

	"github.com/spf13/cobra"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/azdice/internal/scripting"
)

func newScriptCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script file.lua [args...]",
		Short: "Run a Lua script with the dice module",
		Long: `Script loads file.lua into a sandboxed Lua VM, then calls its hook function
(default "main") with the remaining arguments as strings and prints the result.
Scripts in scripting.script_dir are loaded first into a shared VM.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hook, _ := cmd.Flags().GetString("hook")
			return a.runScript(cmd, args[0], hook, args[1:])
		},
	}
	cmd.Flags().String("hook", "main", "global function to call after loading")
	return cmd
}

func (a *app) runScript(cmd *cobra.Command, file, hook string, args []string) error {
	mgr := scripting.NewManager(a.roller, a.logger)
	defer mgr.Close()
	mgr.SetPresets(a.presets)

	limit := a.cfg.Scripting.InstructionLimit
	if dir := a.cfg.Scripting.ScriptDir; dir != "" {
		if err := mgr.LoadGlobal(dir, limit); err != nil {
			return err
		}
	}
	if err := mgr.LoadFile("main", file, limit); err != nil {
		return err
	}

	largs := make([]lua.LValue, len(args))
	for i, s := range args {
		largs[i] = lua.LString(s)
	}
	ret, err := mgr.CallHook("main", hook, largs...)
	if err != nil {
		return err
	}
	a.logger.Debug("script finished", zap.String("file", file), zap.String("hook", hook))
	if ret != lua.LNil {
		fmt.Fprintln(cmd.OutOrStdout(), ret.String())
	}
	return nil
}
