package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agenthands/genecompare/internal/app"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate FILE",
	Short: "Annotate every Ensembl id listed in FILE, one per line",
	Long: `Annotate reads Ensembl gene ids from FILE (or stdin when FILE is "-"),
one per line. Blank lines and lines starting with '#' are ignored.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := readIDFile(args[0])
		if err != nil {
			return err
		}

		agg := app.NewAggregator(cfg, slog.Default())
		report, err := agg.Annotate(cmd.Context(), ids)
		if err != nil {
			return err
		}
		return writeJSON(report)
	},
}

func init() {
	rootCmd.AddCommand(annotateCmd)
}

func readIDFile(path string) ([]string, error) {
	if path == "-" {
		return readIDs(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open id file: %w", err)
	}
	defer f.Close()
	return readIDs(f)
}

func readIDs(r io.Reader) ([]string, error) {
	var ids []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read ids: %w", err)
	}
	return ids, nil
}
