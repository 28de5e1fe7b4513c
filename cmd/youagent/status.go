package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/EmberRavager/youagent/internal/config"
	"github.com/EmberRavager/youagent/internal/mcp"
	"github.com/EmberRavager/youagent/internal/tasking"
)

func newStatusCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show effective configuration and task summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := resolveOptions(v)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "workspace:\t%s\n", opts.Workspace)
			fmt.Fprintf(w, "provider:\t%s\n", opts.Provider)
			fmt.Fprintf(w, "model:\t%s\n", opts.Model)
			fmt.Fprintf(w, "agent:\t%s\n", opts.Agent)
			fmt.Fprintf(w, "session:\t%s\n", opts.Session)
			fmt.Fprintf(w, "timeout:\t%ds\n", opts.Timeout)
			fmt.Fprintf(w, "memory:\t%v\n", !opts.NoMemory)

			if opts.MCPConfig != "" {
				servers, err := mcp.LoadServers(opts.MCPConfig, opts.Workspace)
				if err != nil {
					fmt.Fprintf(w, "tool servers:\t(error: %v)\n", err)
				} else {
					fmt.Fprintf(w, "tool servers:\t%d configured\n", len(servers))
				}
			}

			key := opts.APIKey
			if key == "" {
				if preset, ok := config.ProviderPresets[opts.Provider]; ok && preset.KeyEnv != "" {
					key = os.Getenv(preset.KeyEnv)
				}
			}
			if key != "" {
				fmt.Fprintf(w, "api key:\tset\n")
			} else {
				fmt.Fprintf(w, "api key:\tmissing\n")
			}

			tasks := tasking.NewStore(opts.Workspace).List()
			fmt.Fprintf(w, "tasks:\t%d\n", len(tasks))
			return w.Flush()
		},
	}
}
