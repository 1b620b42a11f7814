package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ai-dev-2024/labtriage/internal/config"
	"github.com/ai-dev-2024/labtriage/internal/output"
	"github.com/ai-dev-2024/labtriage/internal/report"
)

func newReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Inspect a saved triage report",
	}

	cmd.AddCommand(
		newReportCheckCommand(),
		newReportShowCommand(),
		newReportSchemaCommand(),
	)

	return cmd
}

func newReportCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <report.json>",
		Short: "Validate a report against the report schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return toolingError("%v", err)
			}
			if err := report.Validate(data); err != nil {
				if report.IsValidationError(err) {
					return &ExitError{Code: 1, Message: err.Error()}
				}
				return toolingError("%v", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "report valid: %s\n", args[0])
			return nil
		},
	}
}

func newReportShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <report.json>",
		Short: "Print the summaries of a saved report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := LoadSettings(cmd.Flags())
			if err != nil {
				return toolingError("%v", err)
			}
			policy, err := config.LoadPolicy(config.ResolvePolicyPath(settings.Policy))
			if err != nil {
				return toolingError("load policy: %v", err)
			}
			rep, err := report.Load(args[0])
			if err != nil {
				return toolingError("%v", err)
			}

			out := cmd.OutOrStdout()
			if err := output.Write(rep, outputOptions(settings, policy, out), out); err != nil {
				return toolingError("%v", err)
			}
			return verdict(out, settings.Format == output.FormatHuman, rep.Summary.TotalCrashes)
		},
	}
}

func newReportSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the report file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmd.OutOrStdout().Write(report.Schema())
			return err
		},
	}
}
