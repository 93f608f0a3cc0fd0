package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sweeney/callboard/internal/phone"
	"github.com/sweeney/callboard/internal/provider"
)

var dialAPIURL string

func init() {
	dialCmd.Flags().StringVar(&dialAPIURL, "api-url", "", "override the provider API base URL")
	rootCmd.AddCommand(dialCmd)
}

var dialCmd = &cobra.Command{
	Use:   "dial <from> <to>",
	Short: "Ring <from> and connect it to <to> through the provider",
	Long:  "Both numbers must be in full E.164 format, for example +4790000000.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := phone.ParseE164(args[0])
		if err != nil {
			return err
		}
		to, err := phone.ParseE164(args[1])
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.PollingEnabled() && dialAPIURL == "" {
			return fmt.Errorf("provider.host is not configured")
		}
		var opts []provider.ClientOption
		if dialAPIURL != "" {
			opts = append(opts, provider.WithBaseURL(dialAPIURL))
		}
		client := provider.NewClient(cfg.Provider.Host, cfg.Provider.Username, cfg.Provider.Password, cfg.Provider.Timeout, opts...)
		if err := client.Dial(cmd.Context(), from, to); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "dialing %s to %s\n", phone.E164(from), phone.E164(to))
		return nil
	},
}
