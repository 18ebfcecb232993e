package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"powerpilot/internal/capability"
)

// probeCmd probes capability domains and prints the resulting tiers.
var probeCmd = &cobra.Command{
	Use:   "probe [domain]",
	Short: "Probe capability access tiers",
	Long: `Probes which access tier is usable per capability domain. With
no argument, probes every domain.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime(false)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := context.Background()
		domains := capability.Domains()
		if len(args) == 1 {
			d := capability.Domain(args[0])
			if !capability.Known(d) {
				return fmt.Errorf("unknown domain %q", args[0])
			}
			domains = []capability.Domain{d}
		}

		for _, d := range domains {
			fmt.Printf("%-18s %s\n", d, rt.prober.Probe(ctx, d))
		}
		return nil
	},
}
