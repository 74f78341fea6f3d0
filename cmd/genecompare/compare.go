package main

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/agenthands/genecompare/internal/app"
)

var compareCmd = &cobra.Command{
	Use:   "compare ID_A ID_B",
	Short: "Compare the GO annotations of two Ensembl genes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		agg := app.NewAggregator(cfg, slog.Default())

		result, err := agg.Compare(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return writeJSON(result)
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
