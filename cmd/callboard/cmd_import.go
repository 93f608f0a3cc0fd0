package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sweeney/callboard/internal/inbox"
	"github.com/sweeney/callboard/internal/store"
)

func init() {
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import call data exports into the store",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		for _, path := range args {
			n, err := inbox.ImportFile(cmd.Context(), st, path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d sessions\n", path, n)
		}
		return nil
	},
}
