package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sweeney/callboard/internal/store"
	"github.com/sweeney/callboard/internal/timeline"
)

func init() {
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session summary with its timeline as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid session id %q: %w", args[0], err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		view := timeline.NewView(st, st, timeline.WithUnansweredThreshold(cfg.UnansweredWarn))
		sum, err := view.Summarize(cmd.Context(), id.String())
		if err != nil {
			return err
		}
		if sum == nil {
			return fmt.Errorf("session %s not found", id)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	},
}
