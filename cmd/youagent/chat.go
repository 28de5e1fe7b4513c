package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/EmberRavager/youagent/internal/agent"
)

func newChatCmd(v *viper.Viper) *cobra.Command {
	var once string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the agent in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := resolveOptions(v)
			logger := newLogger(opts, "chat")

			session, err := agent.NewSession(cmd.Context(), agent.SessionOptions{
				Workspace: opts.Workspace,
				Provider:  opts.Provider,
				Model:     opts.Model,
				APIKey:    opts.APIKey,
				BaseURL:   opts.BaseURL,
				Timeout:   opts.Timeout,
				Agent:     opts.Agent,
				SessionID: opts.Session,
				NoMemory:  opts.NoMemory,
				MCPConfig: opts.MCPConfig,
				Logger:    logger,
			})
			if err != nil {
				return err
			}
			defer session.Close()

			if err := persistOptions(opts); err != nil {
				logger.Warn("could not save settings", "error", err)
			}

			progress := func(ev agent.Event) {
				if ev.Phase == "tool_start" {
					fmt.Fprintf(os.Stderr, "  [tool %d/%d] %s\n", ev.Index, ev.Total, ev.Tool)
				}
			}

			if once != "" {
				reply, err := session.Runtime.Ask(cmd.Context(), once, progress)
				if err != nil {
					return err
				}
				fmt.Println(reply)
				return nil
			}

			fmt.Printf("youagent (%s/%s, agent %s). Empty line or Ctrl-D to quit.\n",
				opts.Provider, opts.Model, session.Runtime.Profile().Name)

			scanner := bufio.NewScanner(os.Stdin)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					break
				}
				reply, err := session.Runtime.Ask(cmd.Context(), line, progress)
				if err != nil {
					fmt.Fprintln(os.Stderr, "error:", err)
					continue
				}
				fmt.Println(reply)
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVarP(&once, "message", "m", "", "send one message and exit")
	return cmd
}
