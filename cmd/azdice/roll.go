package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/azdice/internal/dice"
)

func newRollCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roll [expression|preset]",
		Short: "Roll a dice expression",
		Long: `Roll parses the expression (or preset name) and prints each roll's kept dice,
bonus and total. Without an argument the configured default expression is rolled.`,
		Example: `  azdice roll 4d6dl1
  azdice roll "2d20kh1 + 5" -n 3
  azdice roll stats --record`,
		RunE: func(cmd *cobra.Command, args []string) error {
			times, _ := cmd.Flags().GetInt("times")
			record, _ := cmd.Flags().GetBool("record")
			return a.runRoll(cmd, args, times, record)
		},
	}
	cmd.Flags().IntP("times", "n", 1, "number of times to roll")
	cmd.Flags().Bool("record", false, "store the rolls in the history database")
	return cmd
}

func (a *app) runRoll(cmd *cobra.Command, args []string, times int, record bool) error {
	if times < 1 {
		return fmt.Errorf("--times must be >= 1, got %d", times)
	}
	bag, err := a.resolve(args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	summaries := make([]dice.Summary, 0, times)
	for i := 0; i < times; i++ {
		res := a.roller.Roll(bag)
		fmt.Fprintln(out, formatResult(res))
		summaries = append(summaries, res.Summary())
	}

	if !record {
		return nil
	}
	pool, err := a.openHistory(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()
	n, err := pool.History().RecordMany(cmd.Context(), bag.String(), a.cfg.Roller.Source, summaries)
	if err != nil {
		return err
	}
	a.logger.Info("rolls recorded", zap.String("expression", bag.String()), zap.Int64("count", n))
	return nil
}

// formatResult renders res like RollResult.String with the total highlighted.
func formatResult(res dice.RollResult) string {
	line := strings.TrimSuffix(res.String(), fmt.Sprintf(" = %d", res.Total))
	return line + " = " + totalColor.Sprint(res.Total)
}
