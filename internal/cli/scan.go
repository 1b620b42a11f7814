package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ai-dev-2024/labtriage/internal/classify"
	"github.com/ai-dev-2024/labtriage/internal/config"
	"github.com/ai-dev-2024/labtriage/internal/output"
	"github.com/ai-dev-2024/labtriage/internal/report"
	"github.com/ai-dev-2024/labtriage/internal/scan"
)

func newScanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <results_directory>",
		Short: "Scan a results directory for crashes and test outcomes",
		Args:  exactlyOneDirectory,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args[0])
		},
	}
}

func runScan(cmd *cobra.Command, target string) error {
	settings, err := LoadSettings(cmd.Flags())
	if err != nil {
		return toolingError("%v", err)
	}

	logger, closer, err := newLogger(settings, cmd.ErrOrStderr())
	if err != nil {
		return toolingError("%v", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	policyPath := config.ResolvePolicyPath(settings.Policy)
	policy, err := config.LoadPolicy(policyPath)
	if err != nil {
		return toolingError("load policy: %v", err)
	}
	if policyPath != "" {
		logger.Debug("using policy", slog.String("path", policyPath))
	}

	out := cmd.OutOrStdout()
	human := settings.Format == output.FormatHuman
	if human {
		output.Banner(out, target)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := scan.Run(ctx, scan.Options{
		Target:  target,
		Policy:  policy,
		Threads: settings.Threads,
		Logger:  logger,
	})
	switch {
	case errors.Is(err, classify.ErrDirectoryNotFound):
		msg := fmt.Sprintf("Results directory not found: %s", target)
		if human {
			fmt.Fprintf(out, "❌ Error: %s\n", msg)
			return &ExitError{Code: 1}
		}
		return &ExitError{Code: 1, Message: msg}
	case errors.Is(err, context.Canceled):
		return &ExitError{Code: 1, Message: "scan interrupted"}
	case err != nil:
		return toolingError("scan: %v", err)
	}

	if err := output.Write(res.Report, outputOptions(settings, policy, out), out); err != nil {
		return toolingError("%v", err)
	}

	if !settings.NoReport {
		path := filepath.Join(target, policy.Report.FileName)
		saveErr := report.Save(path, res.Report)
		if saveErr != nil {
			logger.Warn("could not save report file", slog.String("path", path), slog.String("error", saveErr.Error()))
		}
		if human {
			output.Saved(out, path, saveErr)
		}
	}

	return verdict(out, human, res.Report.Summary.TotalCrashes)
}

// verdict maps the crash count to the exit signal.
func verdict(out io.Writer, human bool, crashes int) error {
	if human {
		output.Verdict(out, crashes)
	}
	if crashes == 0 {
		return nil
	}
	if human {
		return &ExitError{Code: 1}
	}
	return &ExitError{Code: 1, Message: fmt.Sprintf("%d crashes detected", crashes)}
}

func outputOptions(s Settings, p config.Policy, w io.Writer) output.Options {
	return output.Options{
		Format:  s.Format,
		Color:   colorEnabled(s, w),
		Display: p.Display,
		Version: BuildVersion,
	}
}
