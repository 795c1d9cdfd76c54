package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "replytree",
		Short:         "Nested comment threads for posts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "path to config.yml (default: ./config.yml or ./config/config.yml)")

	root.AddCommand(newServeCmd(), newThreadCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "replytree:", err)
		os.Exit(1)
	}
}
