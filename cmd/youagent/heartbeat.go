package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/EmberRavager/youagent/internal/agent"
)

const defaultHeartbeatPrompt = "Check the workspace for anything that needs attention " +
	"(failing files, TODO notes, stale outputs) and report briefly. " +
	"If nothing needs attention, reply with a one-line all-clear."

func newHeartbeatCmd(v *viper.Viper) *cobra.Command {
	var (
		prompt  string
		every   time.Duration
		count   int
		runOnce bool
	)

	cmd := &cobra.Command{
		Use:   "heartbeat",
		Short: "Periodically prompt the agent with a standing instruction",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := resolveOptions(v)
			logger := newLogger(opts, "heartbeat")

			session, err := agent.NewSession(cmd.Context(), agent.SessionOptions{
				Workspace: opts.Workspace,
				Provider:  opts.Provider,
				Model:     opts.Model,
				APIKey:    opts.APIKey,
				BaseURL:   opts.BaseURL,
				Timeout:   opts.Timeout,
				Agent:     opts.Agent,
				SessionID: opts.Session + "-heartbeat",
				NoMemory:  opts.NoMemory,
				MCPConfig: opts.MCPConfig,
				Logger:    logger,
			})
			if err != nil {
				return err
			}
			defer session.Close()

			beat := func() {
				reply, err := session.Runtime.Ask(cmd.Context(), prompt, nil)
				if err != nil {
					fmt.Fprintln(os.Stderr, "heartbeat error:", err)
					return
				}
				fmt.Printf("[%s] %s\n", time.Now().Format(time.RFC3339), reply)
			}

			beat()
			if runOnce || count == 1 {
				return nil
			}

			ticker := time.NewTicker(every)
			defer ticker.Stop()
			sent := 1
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-ticker.C:
					beat()
					sent++
					if count > 0 && sent >= count {
						return nil
					}
				}
			}
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", defaultHeartbeatPrompt, "heartbeat prompt text")
	cmd.Flags().DurationVar(&every, "every", 15*time.Minute, "interval between heartbeats")
	cmd.Flags().IntVar(&count, "count", 0, "stop after this many heartbeats (0 = run until interrupted)")
	cmd.Flags().BoolVar(&runOnce, "once", false, "run a single heartbeat and exit")
	return cmd
}
