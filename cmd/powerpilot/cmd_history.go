package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyByDay bool
)

// historyCmd prints recorded outcomes, newest first.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded outcomes",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime(true)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := context.Background()
		if historyByDay {
			groups, err := rt.store.GroupedByDay(ctx, historyLimit)
			if err != nil {
				return err
			}
			for _, g := range groups {
				fmt.Printf("%s\n", g.Day)
				for _, e := range g.Entries {
					fmt.Printf("  %s  %-28s %-12s %s\n",
						e.CompletedAt.Local().Format(time.Kitchen), e.Type, e.Status, e.Detail)
				}
			}
			return nil
		}

		entries, err := rt.store.Recent(ctx, historyLimit)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s  %-40s %-28s %-12s %s\n",
				e.CompletedAt.Local().Format("2006-01-02 15:04:05"),
				e.ActionableID, e.Type, e.Status, e.Detail)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 50, "maximum entries")
	historyCmd.Flags().BoolVar(&historyByDay, "by-day", false, "group by calendar day")
}
