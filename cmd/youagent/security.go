package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/EmberRavager/youagent/internal/security"
)

func newSecurityCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "security",
		Short: "Inspect or initialize the security policy",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default security policy template",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := resolveOptions(v)
			path := security.PolicyPath(opts.Workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("policy already exists at %s", path)
			}
			raw, err := security.Template()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, raw, 0o644); err != nil {
				return err
			}
			fmt.Println("Wrote", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check <shell command>",
		Short: "Test a shell command against the policy",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := resolveOptions(v)
			policy := security.Load(opts.Workspace)
			allowed, reason := policy.CheckShell(strings.Join(args, " "), 0)
			if allowed {
				fmt.Println("allowed")
				return nil
			}
			fmt.Println("blocked:", reason)
			return nil
		},
	})

	return cmd
}
