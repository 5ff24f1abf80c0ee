package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/azdice/internal/storage/postgres"
)

const dbTimeout = 10 * time.Second

// openHistory connects to the configured database. The caller closes the pool.
func (a *app) openHistory(ctx context.Context) (*postgres.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	pool, err := postgres.NewPool(ctx, a.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting to history database: %w", err)
	}
	return pool, nil
}

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [expression|preset]",
		Short: "Show recorded rolls",
		Long: `History lists the most recent rolls stored with "roll --record", optionally
only those of one expression. --stats aggregates an expression's totals instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			stats, _ := cmd.Flags().GetBool("stats")
			return a.runHistory(cmd, args, limit, stats)
		},
	}
	cmd.Flags().Int("limit", 20, "maximum rows to show")
	cmd.Flags().Bool("stats", false, "print count, mean, min and max for the expression")
	return cmd
}

func (a *app) runHistory(cmd *cobra.Command, args []string, limit int, stats bool) error {
	if stats && len(args) == 0 {
		return errors.New("--stats needs an expression")
	}
	var expr string
	if len(args) > 0 {
		bag, err := a.resolve(args)
		if err != nil {
			return err
		}
		expr = bag.String()
	}

	ctx := cmd.Context()
	pool, err := a.openHistory(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()
	repo := pool.History()

	out := cmd.OutOrStdout()
	if stats {
		st, err := repo.Stats(ctx, expr)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %d rolls, mean %.3f, min %d, max %d\n", st.Expression, st.Count, st.Mean, st.Min, st.Max)
		return nil
	}

	var recs []postgres.RollRecord
	if expr == "" {
		recs, err = repo.Recent(ctx, limit)
	} else {
		recs, err = repo.ByExpression(ctx, expr, limit)
	}
	if err != nil {
		return err
	}
	for _, r := range recs {
		fmt.Fprintf(out, "%s  %-24s %v %+d = %s  [%s]\n",
			r.RolledAt.Local().Format(time.DateTime), r.Expression, r.Groups, r.Bonus,
			totalColor.Sprint(r.Total), r.Source)
	}
	return nil
}
