package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev" // Will be set during build

var rootCmd = &cobra.Command{
	Use:   "phpvhost",
	Short: "Local HTTPS virtual hosts for PHP projects",
	Long: `Phpvhost provisions HTTPS-enabled Apache virtual hosts for PHP projects
on a developer workstation.

It issues locally-trusted certificates, writes the Apache site config, keeps
/etc/hosts in sync and tracks everything in a per-user registry. Run without
arguments for the interactive menu.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runMenu,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", remediation(err))
		os.Exit(1)
	}
}

func init() {
	// Register subcommands
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}
