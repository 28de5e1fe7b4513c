package main

import (
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/EmberRavager/youagent/internal/config"
	"github.com/EmberRavager/youagent/internal/logging"
)

// cliOptions is the merged view of flags, YOUAGENT_* environment
// variables, and the saved workspace settings. Flags win over env, env
// over the settings file.
type cliOptions struct {
	Workspace string
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	Agent     string
	Session   string
	Timeout   int
	NoMemory  bool
	MCPConfig string
	LogLevel  string
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "youagent",
		Short: "Local tool-calling agent with scheduled tasks and a web front end",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			godotenv.Load()
			v.SetEnvPrefix("YOUAGENT")
			v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			v.AutomaticEnv()
			return v.BindPFlags(cmd.Flags())
		},
		SilenceUsage: true,
	}

	registerGlobalFlags(root.PersistentFlags())

	root.AddCommand(
		newChatCmd(v),
		newServeCmd(v),
		newStatusCmd(v),
		newConfigCmd(v),
		newHeartbeatCmd(v),
		newTasksCmd(v),
		newSecurityCmd(v),
	)
	return root
}

func registerGlobalFlags(pf *pflag.FlagSet) {
	pf.String("workspace", ".", "workspace root directory")
	pf.String("provider", "", "LLM provider (openai, openrouter, minimax, custom)")
	pf.String("model", "", "model name")
	pf.String("api-key", "", "API key (falls back to provider env var)")
	pf.String("base-url", "", "override the provider base URL")
	pf.String("agent", "", "agent profile name or YAML file path")
	pf.String("session", "", "session id for conversation memory")
	pf.Int("timeout", 0, "LLM request timeout in seconds")
	pf.Bool("no-memory", false, "disable conversation persistence")
	pf.String("mcp-config", "", "path to the external tool server config")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
}

// resolveOptions merges the saved settings with env/flag overrides.
func resolveOptions(v *viper.Viper) cliOptions {
	workspace := v.GetString("workspace")
	if workspace == "" {
		workspace = "."
	}
	if abs, err := filepath.Abs(workspace); err == nil {
		workspace = abs
	}

	saved := config.NewSettingsStore(workspace).Load()

	opts := cliOptions{
		Workspace: workspace,
		Provider:  pick(v.GetString("provider"), saved.Provider),
		Model:     pick(v.GetString("model"), saved.Model),
		APIKey:    v.GetString("api-key"),
		BaseURL:   pick(v.GetString("base-url"), saved.BaseURL),
		Agent:     pick(v.GetString("agent"), saved.Agent),
		Session:   pick(v.GetString("session"), saved.Session),
		Timeout:   v.GetInt("timeout"),
		NoMemory:  v.GetBool("no-memory") || saved.NoMemory,
		MCPConfig: pick(v.GetString("mcp-config"), saved.MCPConfig),
		LogLevel:  v.GetString("log-level"),
	}
	if opts.Timeout <= 0 {
		opts.Timeout = saved.Timeout
	}
	if opts.APIKey == "" {
		opts.APIKey = saved.APIKeys[opts.Provider]
	}
	return opts
}

// persistOptions writes the effective options back so the next
// invocation starts from them.
func persistOptions(opts cliOptions) error {
	store := config.NewSettingsStore(opts.Workspace)
	saved := store.Load()
	saved.Provider = opts.Provider
	saved.Model = opts.Model
	saved.BaseURL = opts.BaseURL
	saved.Agent = opts.Agent
	saved.Session = opts.Session
	saved.Timeout = opts.Timeout
	saved.NoMemory = opts.NoMemory
	saved.MCPConfig = opts.MCPConfig
	if opts.APIKey != "" {
		if saved.APIKeys == nil {
			saved.APIKeys = map[string]string{}
		}
		saved.APIKeys[opts.Provider] = opts.APIKey
	}
	return store.Save(saved)
}

func newLogger(opts cliOptions, component string) *logging.Logger {
	return logging.NewLogger(logging.LogLevel(opts.LogLevel), component)
}

func pick(flag, saved string) string {
	if flag != "" {
		return flag
	}
	return saved
}
