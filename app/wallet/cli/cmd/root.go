// Package cmd implements the wallet command line tool used to build,
// sign, and submit transactions against a running node.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Wallet manages keys and submits transactions to a node.",
}

// Execute runs the wallet CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
