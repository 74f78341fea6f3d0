package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agenthands/genecompare/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of genecompare",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("genecompare version %s\n", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
