package main

import (
	"fmt"

	"filecommand-api/internal/app"
	"filecommand-api/internal/config"
	"filecommand-api/internal/infra/filesystem"
	"filecommand-api/internal/log"

	"github.com/spf13/cobra"
)

func newReindexCommand() *cobra.Command {
	var storage string

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the file index and exit",
		Example: `  filecommand-api reindex
  filecommand-api reindex --storage default`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReindex(cmd, storage)
		},
	}

	cmd.Flags().StringVarP(&storage, "storage", "s", "", "Only reindex this storage")
	return cmd
}

func runReindex(cmd *cobra.Command, storage string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	lg := log.New(cfg.Debug)

	driver := filesystem.NewLocalDriver(cfg.StorageMounts)
	index, err := app.NewIndex(driver, cfg.IndexDSN, lg)
	if err != nil {
		return err
	}
	defer index.Close()

	storages := driver.StorageNames()
	if storage != "" {
		if _, ok := cfg.StorageMounts[storage]; !ok {
			return fmt.Errorf("unknown storage %q", storage)
		}
		storages = []string{storage}
	}

	for _, name := range storages {
		if err := index.Reindex(name); err != nil {
			return fmt.Errorf("reindex %s: %w", name, err)
		}
		_, total, err := index.Search(name, nil, 0, 0, 0)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d files\n", name, total)
	}
	return nil
}
