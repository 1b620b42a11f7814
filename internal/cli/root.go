package cli

import "github.com/spf13/cobra"

// BuildVersion is overridden by release tooling (e.g. goreleaser).
var BuildVersion = "0.1.0-dev"

func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labtriage <results_directory>",
		Short: "Triage a device-test results directory",
		Long: "labtriage classifies every file of a test-lab results directory, extracts crash\n" +
			"signatures and structured test outcomes, writes firebase_analysis_report.json\n" +
			"into the directory and exits non-zero when any crash was found.",
		Args:          exactlyOneDirectory,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args[0])
		},
	}

	addSettingsFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newScanCommand(),
		newReportCommand(),
		newPolicyCommand(),
		newVersionCommand(),
	)

	return cmd
}

func exactlyOneDirectory(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return &ExitError{Code: 1, Message: usageLine}
	}
	return nil
}
