// Command passctl builds, signs and inspects wallet passes offline,
// using the signer configuration of a walletpass server.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "passctl",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		Short:             "Wallet pass command line tool",
		Long:              "Build and sign wallet passes from tickets, verify signed passes and print their manifest",
		Version:           version,
		SilenceUsage:      true,
	}
	rootCmd.AddCommand(newBuildCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newManifestCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
