package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ai-dev-2024/labtriage/internal/config"
)

const defaultPolicyTemplate = `version: "1"
classify:
  logs: ["*.log", "logcat*", "*test*log*"]
  results: ["*.xml", "*.json", "*test*result*"]
  performance: ["*perf*", "*performance*", "metrics*"]
  images: ["*.png", "*.jpg", "*.jpeg"]
  videos: ["*.mp4", "*.avi", "*.mov"]
  exclude_paths: []
crash:
  timestamp_window: 200
results:
  message_limit: 200
display:
  crashes_per_kind: 3
  result_files: 5
  media_items: 3
  summary_width: 100
report:
  file_name: firebase_analysis_report.json
`

func newPolicyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Manage triage policies",
	}

	cmd.AddCommand(
		newPolicyInitCommand(),
		newPolicyCheckCommand(),
	)

	return cmd
}

func newPolicyInitCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize policy file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = config.DefaultPolicyPath
			}

			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return toolingError("%v", err)
			}

			if _, err := os.Stat(path); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "policy already exists: %s\n", path)
				return nil
			}

			if err := os.WriteFile(path, []byte(defaultPolicyTemplate), 0o644); err != nil {
				return toolingError("%v", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "policy created: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", config.DefaultPolicyPath, "Policy output path")
	return cmd
}

func newPolicyCheckCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate policy syntax and patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(path); err != nil {
				return toolingError("policy check failed: %v", err)
			}
			if err := config.ValidatePolicy(path); err != nil {
				return toolingError("policy check failed: %v", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "policy valid: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", config.DefaultPolicyPath, "Policy path")
	return cmd
}
