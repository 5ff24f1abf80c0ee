package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPresetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the named expressions from presets.path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.presets == nil {
				return errors.New("no presets configured; set presets.path or --presets")
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range a.presets.Names() {
				p, _ := a.presets.Get(name)
				bag, _ := a.presets.Bag(name)
				rng := bag.Range()
				fmt.Fprintf(tw, "%s\t%s\t%d..%d\t%s\n", p.Name, bag, rng.Min, rng.Max, p.Description)
			}
			return tw.Flush()
		},
	}
}
