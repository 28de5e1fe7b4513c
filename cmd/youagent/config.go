package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/EmberRavager/youagent/internal/config"
)

func newConfigCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or update the saved workspace settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the saved settings as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := resolveOptions(v)
			saved := config.NewSettingsStore(opts.Workspace).Load()
			for provider := range saved.APIKeys {
				saved.APIKeys[provider] = "***"
			}
			out, err := json.MarshalIndent(saved, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Save the current flags/env as the workspace defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := resolveOptions(v)
			if _, ok := config.ProviderPresets[opts.Provider]; !ok {
				fmt.Fprintf(os.Stderr, "warning: unknown provider %q (known: %v)\n",
					opts.Provider, config.AvailableProviders())
			}
			if err := persistOptions(opts); err != nil {
				return err
			}
			fmt.Println("Saved", config.NewSettingsStore(opts.Workspace).Path())
			return nil
		},
	})

	return cmd
}
