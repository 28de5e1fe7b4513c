package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/EmberRavager/youagent/internal/agent"
	"github.com/EmberRavager/youagent/internal/observability"
	"github.com/EmberRavager/youagent/internal/tasking"
)

func newTasksCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage and run scheduled tasks",
	}
	cmd.AddCommand(
		newTasksListCmd(v),
		newTasksAddCmd(v),
		newTasksDeleteCmd(v),
		newTasksRunCmd(v),
		newTasksStartCmd(v),
	)
	return cmd
}

func newTasksListCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scheduled tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := resolveOptions(v)
			tasks := tasking.NewStore(opts.Workspace).List()
			if len(tasks) == 0 {
				fmt.Println("No tasks.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTATUS\tINTERVAL\tNEXT RUN\tRUNS\tENABLED")
			for _, t := range tasks {
				next := time.Unix(t.NextRunAt, 0).Format("2006-01-02 15:04:05")
				fmt.Fprintf(w, "%s\t%s\t%s\t%ds\t%s\t%d\t%v\n",
					t.ID, t.Name, t.Status, t.IntervalSeconds, next, t.Runs, t.Enabled)
			}
			return w.Flush()
		},
	}
}

func newTasksAddCmd(v *viper.Viper) *cobra.Command {
	var (
		name     string
		prompt   string
		interval int
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a scheduled task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if prompt == "" {
				return fmt.Errorf("--prompt is required")
			}
			opts := resolveOptions(v)
			task, err := tasking.NewStore(opts.Workspace).Add(tasking.Task{
				Name:            name,
				Prompt:          prompt,
				Provider:        v.GetString("provider"),
				Model:           v.GetString("model"),
				Agent:           v.GetString("agent"),
				Session:         v.GetString("session"),
				BaseURL:         v.GetString("base-url"),
				NoMemory:        v.GetBool("no-memory"),
				MCPConfig:       v.GetString("mcp-config"),
				IntervalSeconds: interval,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Added task %s (%s), every %ds\n", task.ID, task.Name, task.IntervalSeconds)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "task name")
	cmd.Flags().StringVar(&prompt, "prompt", "", "prompt to run on each execution")
	cmd.Flags().IntVar(&interval, "interval", tasking.DefaultIntervalSeconds, "seconds between runs")
	return cmd
}

func newTasksDeleteCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := resolveOptions(v)
			found, err := tasking.NewStore(opts.Workspace).Delete(args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no task with id %s", args[0])
			}
			fmt.Println("Deleted", args[0])
			return nil
		},
	}
}

func newTasksRunCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute all currently due tasks once",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := resolveOptions(v)
			count := runDueOnce(cmd.Context(), opts)
			fmt.Printf("Executed %d task(s)\n", count)
			return nil
		},
	}
}

func newTasksStartCmd(v *viper.Viper) *cobra.Command {
	var poll time.Duration

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Poll for due tasks until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := resolveOptions(v)
			store := tasking.NewStore(opts.Workspace)
			sink, err := observability.NewSink(opts.Workspace, nil)
			if err != nil {
				return err
			}
			fmt.Printf("Polling every %s (Ctrl-C to stop)\n", poll)
			tasking.PollLoop(cmd.Context(), store, taskRunnerFor(opts, sink), sink.Record, poll)
			return nil
		},
	}

	cmd.Flags().DurationVar(&poll, "poll", 3*time.Second, "interval between due checks")
	return cmd
}

func runDueOnce(ctx context.Context, opts cliOptions) int {
	store := tasking.NewStore(opts.Workspace)
	sink, err := observability.NewSink(opts.Workspace, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "observability unavailable:", err)
		return tasking.RunDueTasks(ctx, store, taskRunnerFor(opts, nil), nil)
	}
	return tasking.RunDueTasks(ctx, store, taskRunnerFor(opts, sink), sink.Record)
}

// taskRunnerFor builds the task execution callback: each run is a fresh
// session so tasks cannot leak state into each other.
func taskRunnerFor(opts cliOptions, sink *observability.Sink) tasking.Runner {
	return func(ctx context.Context, task tasking.Task, progress tasking.ProgressFunc) (string, error) {
		sessionOpts := agent.SessionOptions{
			Workspace: opts.Workspace,
			Provider:  pick(task.Provider, opts.Provider),
			Model:     pick(task.Model, opts.Model),
			APIKey:    opts.APIKey,
			BaseURL:   pick(task.BaseURL, opts.BaseURL),
			Timeout:   opts.Timeout,
			Agent:     pick(task.Agent, opts.Agent),
			SessionID: pick(task.Session, "task-"+task.ID),
			NoMemory:  task.NoMemory,
			MCPConfig: pick(task.MCPConfig, opts.MCPConfig),
			Logger:    newLogger(opts, "task"),
		}
		if task.Workspace != "" {
			sessionOpts.Workspace = task.Workspace
		}

		session, err := agent.NewSession(ctx, sessionOpts)
		if err != nil {
			return "", err
		}
		defer session.Close()

		return session.Runtime.Ask(ctx, task.Prompt, func(ev agent.Event) {
			if ev.Phase == "tool_start" {
				progress(tasking.Progress{StepIndex: ev.Index, StepTotal: ev.Total})
			}
			if sink != nil {
				sink.Record("agent_"+ev.Phase, map[string]any{"task_id": task.ID, "tool": ev.Tool})
			}
		})
	}
}
