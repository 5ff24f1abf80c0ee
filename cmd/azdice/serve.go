package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/azdice/internal/dice"
	"github.com/cory-johannsen/azdice/internal/httpapi"
	"github.com/cory-johannsen/azdice/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the roller as a JSON API",
		Long: `Serve exposes parse, range, roll, distribution and preset lookups over HTTP
until interrupted. With --record, rolls requested with record=true are stored
in the history database.`,
		Example: `  azdice serve --addr :8080
  azdice serve --presets presets.yaml --record`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			record, _ := cmd.Flags().GetBool("record")
			return a.runServe(cmd, record)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default http.addr)")
	cmd.Flags().Bool("record", false, "connect to the history database so rolls can be recorded")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, record bool) error {
	httpCfg := a.cfg.HTTP
	if cmd.Flags().Changed("addr") {
		httpCfg.Addr, _ = cmd.Flags().GetString("addr")
	}

	// Handlers run concurrently, so a seeded source must be shared under a lock.
	src := a.roller.Source()
	if a.cfg.Roller.Source == "seeded" {
		src = dice.NewLockedSource(src)
	}
	deps := httpapi.Deps{
		Roller:       dice.NewLoggedRoller(src, a.logger),
		Presets:      a.presets,
		WorkerSource: workerSources(a.cfg.Roller),
		SourceName:   a.cfg.Roller.Source,
		Config:       httpCfg,
		Logger:       a.logger,
	}
	if record {
		pool, err := a.openHistory(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()
		deps.Recorder = pool.History()
		deps.Ping = pool.Ping
	}

	svc, err := server.ListenHTTP(httpCfg, httpapi.NewRouter(deps))
	if err != nil {
		return fmt.Errorf("listening on %s: %w", httpCfg.Addr, err)
	}
	a.logger.Info("http api listening", zap.Stringer("addr", svc.Addr()), zap.Bool("record", record))
	fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", svc.Addr())

	lc := server.NewLifecycle(a.logger, httpCfg.ShutdownTimeout)
	lc.Add("http", svc)
	return lc.Run(cmd.Context())
}
