package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"powerpilot/internal/engine"
)

var (
	execFile   string
	execAsJSON bool
)

// execCmd runs one instruction batch from a file (or stdin) and prints
// the outcomes.
var execCmd = &cobra.Command{
	Use:   "exec",
	Short: "Execute an instruction batch",
	Long: `Reads a JSON batch of actionables, executes each instruction in
order, and prints one outcome per instruction. Use "-" (or omit --file)
to read from stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime(true)
		if err != nil {
			return err
		}
		defer rt.Close()

		in := os.Stdin
		if execFile != "" && execFile != "-" {
			f, err := os.Open(execFile)
			if err != nil {
				return fmt.Errorf("open batch file: %w", err)
			}
			defer f.Close()
			in = f
		}

		batch, err := engine.DecodeBatch(in)
		if err != nil {
			return err
		}
		if len(batch.Records) > rt.cfg.Execution.MaxBatchSize {
			return fmt.Errorf("batch has %d records, maximum is %d", len(batch.Records), rt.cfg.Execution.MaxBatchSize)
		}

		logger.Info("executing batch",
			zap.String("batch_id", batch.ID),
			zap.Int("records", len(batch.Records)))

		results := rt.coordinator.ExecuteBatch(context.Background(), batch.ID, batch.Records)

		if execAsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"batch_id": batch.ID, "results": results})
		}
		for _, res := range results {
			fmt.Printf("%-40s %-12s %s\n", res.ActionableID, res.Status, res.Detail)
		}
		return nil
	},
}

func init() {
	execCmd.Flags().StringVarP(&execFile, "file", "f", "", "batch file (JSON); - for stdin")
	execCmd.Flags().BoolVar(&execAsJSON, "json", false, "print results as JSON")
}
