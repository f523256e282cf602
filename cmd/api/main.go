package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "filecommand-api",
		Short:        "File command API for named storage mounts",
		Long:         "Serves file commands (delete, edit, copy, move, rename, upload) and file listings for the storages in STORAGE_MOUNTS.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	cmd.AddCommand(newServeCommand(), newReindexCommand())
	return cmd
}
