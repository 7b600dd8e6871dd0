package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for webkb.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webkb",
		Short: "Turn a website into a markdown knowledge base",
		Long: `webkb crawls a website breadth first, extracts the main content of every
page, removes boilerplate repeated across pages and combines the result
into one markdown document grouped by host.

It respects robots.txt, stays within the configured scope and refuses to
fetch private or loopback addresses.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewImportCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
