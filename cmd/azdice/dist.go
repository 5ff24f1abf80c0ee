package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/azdice/internal/dice"
)

const barWidth = 40

func newDistCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dist [expression|preset]",
		Short: "Sample the frequency distribution of an expression",
		Long: `Dist rolls the expression many times across worker goroutines and prints
how often each total in its range came up.`,
		Example: `  azdice dist 3d6
  azdice dist 4d6dl1 --rolls 5000000 --workers 8
  azdice dist 1d10 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDist(cmd, args)
		},
	}
	cmd.Flags().Int("rolls", 0, "number of samples (default distribution.rolls)")
	cmd.Flags().Int("workers", -1, "sampling goroutines, 0 = GOMAXPROCS (default distribution.workers)")
	cmd.Flags().Duration("timeout", 0, "abort after this long (default distribution.timeout)")
	cmd.Flags().Bool("json", false, "print the histogram as JSON")
	return cmd
}

func (a *app) runDist(cmd *cobra.Command, args []string) error {
	rolls, workers, timeout := a.cfg.Distribution.Rolls, a.cfg.Distribution.Workers, a.cfg.Distribution.Timeout
	if cmd.Flags().Changed("rolls") {
		rolls, _ = cmd.Flags().GetInt("rolls")
	}
	if cmd.Flags().Changed("workers") {
		workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("timeout") {
		timeout, _ = cmd.Flags().GetDuration("timeout")
	}
	if rolls < 1 {
		return fmt.Errorf("--rolls must be >= 1, got %d", rolls)
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	bag, err := a.resolve(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	h, err := a.roller.Distribution(ctx, bag, rolls, workers, workerSources(a.cfg.Roller))
	if err != nil {
		return fmt.Errorf("sampling %s: %w", bag, err)
	}
	a.logger.Info("distribution complete",
		zap.String("expression", bag.String()),
		zap.Int("rolls", rolls),
		zap.Duration("elapsed", time.Since(start)),
	)

	if asJSON {
		return writeHistogramJSON(cmd.OutOrStdout(), bag, rolls, h)
	}
	writeHistogram(cmd.OutOrStdout(), bag, rolls, h)
	return nil
}

type histogramJSON struct {
	Expression string     `json:"expression"`
	Rolls      int        `json:"rolls"`
	Min        int64      `json:"min"`
	Max        int64      `json:"max"`
	Mean       float64    `json:"mean"`
	Bins       []dice.Bin `json:"bins"`
}

func writeHistogramJSON(w io.Writer, bag *dice.Bag, rolls int, h dice.Histogram) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(histogramJSON{
		Expression: bag.String(),
		Rolls:      rolls,
		Min:        bag.Range().Min,
		Max:        bag.Range().Max,
		Mean:       h.Mean(),
		Bins:       h,
	})
}

func writeHistogram(w io.Writer, bag *dice.Bag, rolls int, h dice.Histogram) {
	var peak float64
	for _, b := range h {
		peak = max(peak, b.Percent)
	}
	fmt.Fprintf(w, "%s over %d rolls, mean %s\n", bag, rolls, totalColor.Sprintf("%.4f", h.Mean()))
	for _, b := range h {
		n := 0
		if peak > 0 {
			n = int(b.Percent / peak * barWidth)
		}
		fmt.Fprintf(w, "%6d %8.4f%% %s\n", b.Value, b.Percent, rangeColor.Sprint(strings.Repeat("#", n)))
	}
}
