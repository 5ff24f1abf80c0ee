package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/azdice/internal/dice"
)

// valuesLimit bounds how many totals --values will list.
var valuesLimit = dice.Limits{MaxWidth: dice.DefaultLimits.MaxWidth}

func newRangeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "range [expression|preset]",
		Short: "Print the minimum and maximum of an expression without rolling",
		Example: `  azdice range 15d20dl4dh3rr3ab4mn2mx18
  azdice range "5d6 - 10d10"
  azdice range 3d6 --values`,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, _ := cmd.Flags().GetBool("values")
			bag, err := a.resolve(args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rng := bag.Range()
			fmt.Fprintf(out, "%s: %s\n", bag, rangeColor.Sprintf("%d..%d", rng.Min, rng.Max))
			if reach := bag.Reachable(); reach != rng {
				fmt.Fprintf(out, "reachable: %d..%d\n", reach.Min, reach.Max)
			}
			if bag.Exploding() {
				fmt.Fprintln(out, "explosive dice can exceed the maximum")
			}
			if values {
				if err := valuesLimit.Check(bag); err != nil {
					return err
				}
				vals := bag.RangeValues()
				parts := make([]string, len(vals))
				for i, v := range vals {
					parts[i] = fmt.Sprint(v)
				}
				fmt.Fprintln(out, strings.Join(parts, " "))
			}
			return nil
		},
	}
	cmd.Flags().Bool("values", false, "list every total in the range")
	return cmd
}
