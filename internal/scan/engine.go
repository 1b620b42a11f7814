package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ai-dev-2024/labtriage/internal/classify"
	"github.com/ai-dev-2024/labtriage/internal/config"
	"github.com/ai-dev-2024/labtriage/internal/crash"
	"github.com/ai-dev-2024/labtriage/internal/logging"
	"github.com/ai-dev-2024/labtriage/internal/media"
	"github.com/ai-dev-2024/labtriage/internal/model"
	"github.com/ai-dev-2024/labtriage/internal/results"
)

type Options struct {
	Target  string
	Policy  config.Policy
	Threads int
	// Now overrides the scan timestamp; zero means the clock at aggregation.
	Now    time.Time
	Logger *slog.Logger
}

// Stage names the pass that produced a warning.
type Stage string

const (
	StageWalk    Stage = "walk"
	StageCrash   Stage = "crash"
	StageResults Stage = "results"
	StageMedia   Stage = "media"
)

// Warning is a per-file failure that was contained at the file boundary.
type Warning struct {
	File  string
	Stage Stage
	Err   error
}

func (w Warning) Error() string {
	if w.File == "" {
		return fmt.Sprintf("%s: %v", w.Stage, w.Err)
	}
	return fmt.Sprintf("%s %s: %v", w.Stage, w.File, w.Err)
}

type Result struct {
	Report   model.Report
	Warnings []Warning
	// ShouldFail is set when at least one crash was found.
	ShouldFail bool
}

// Run classifies the results directory, runs every extractor and composes
// the report. Only a missing root (classify.ErrDirectoryNotFound) or a
// cancelled context is returned as an error; per-file failures end up in
// Result.Warnings.
func Run(ctx context.Context, opts Options) (Result, error) {
	if opts.Target == "" {
		opts.Target = "."
	}
	if opts.Threads <= 0 {
		opts.Threads = runtime.NumCPU()
		if opts.Threads < 1 {
			opts.Threads = 1
		}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	logger := opts.Logger.With(slog.String("component", "scan"))

	tsPatterns, err := opts.Policy.CompileTimestampPatterns()
	if err != nil {
		return Result{}, err
	}

	inv, err := classify.Walk(opts.Target, classify.RulesFromPolicy(opts.Policy))
	if err != nil {
		return Result{}, err
	}
	logger.Debug("classified results directory",
		slog.String("path", opts.Target),
		slog.Int("logs", inv.Len(classify.RoleLog)),
		slog.Int("results", inv.Len(classify.RoleResult)),
		slog.Int("performance", inv.Len(classify.RolePerformance)),
		slog.Int("images", inv.Len(classify.RoleImage)),
		slog.Int("videos", inv.Len(classify.RoleVideo)))

	p := passes{
		root:    opts.Target,
		threads: opts.Threads,
		logger:  logger,
		crash: crash.Extractor{
			TimestampPatterns: tsPatterns,
			TimestampWindow:   opts.Policy.Crash.TimestampWindow,
		},
		results: results.Parser{MessageLimit: opts.Policy.Results.MessageLimit},
	}

	var (
		crashes      []model.CrashRecord
		structured   []model.StructuredResult
		mediaEntries []model.MediaEntry
		crashWarn    []Warning
		resWarn      []Warning
		mediaWarn    []Warning
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		crashes, crashWarn, err = p.crashes(gctx, inv.Logs)
		return err
	})
	g.Go(func() (err error) {
		structured, resWarn, err = p.structured(gctx, inv.Results)
		return err
	})
	g.Go(func() (err error) {
		mediaEntries, mediaWarn, err = p.media(gctx, mediaPaths(inv))
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	warnings := make([]Warning, 0)
	for _, werr := range inv.WalkErrors {
		warnings = append(warnings, Warning{Stage: StageWalk, Err: werr})
	}
	warnings = append(warnings, crashWarn...)
	warnings = append(warnings, resWarn...)
	warnings = append(warnings, mediaWarn...)
	for _, w := range warnings {
		logger.Warn("could not process file",
			slog.String("stage", string(w.Stage)),
			slog.String("file", w.File),
			slog.String("error", w.Err.Error()))
	}

	report := Aggregate(crashes, structured, mediaEntries, inv.Performance, opts.Now)
	logger.Info("scan complete",
		slog.Int("crashes", report.Summary.TotalCrashes),
		slog.Int("test_files", report.Summary.TotalTestFiles),
		slog.Int("warnings", len(warnings)))

	return Result{
		Report:     report,
		Warnings:   warnings,
		ShouldFail: report.Summary.TotalCrashes > 0,
	}, nil
}

// Aggregate composes the extractor outputs into a report. Nil lists become
// empty ones so the artifact never carries nulls for collections.
func Aggregate(crashes []model.CrashRecord, structured []model.StructuredResult, entries []model.MediaEntry, perf []string, now time.Time) model.Report {
	if now.IsZero() {
		now = time.Now()
	}
	if crashes == nil {
		crashes = []model.CrashRecord{}
	}
	if structured == nil {
		structured = []model.StructuredResult{}
	}
	perfFiles := append([]string{}, perf...)
	screenshots, videos := media.Split(entries)

	return model.Report{
		Summary: model.Summary{
			TotalCrashes:     len(crashes),
			TotalTestFiles:   len(structured),
			TotalScreenshots: len(screenshots),
			TotalVideos:      len(videos),
			PerformanceFiles: len(perfFiles),
			ScanTime:         now,
		},
		Crashes:          crashes,
		TestResults:      structured,
		MediaFiles:       model.MediaFiles{Screenshots: screenshots, Videos: videos},
		PerformanceFiles: perfFiles,
	}
}

// mediaPaths merges image and video paths, dropping paths listed under both.
func mediaPaths(inv classify.Inventory) []string {
	seen := make(map[string]struct{}, len(inv.Images)+len(inv.Videos))
	out := make([]string, 0, len(inv.Images)+len(inv.Videos))
	for _, group := range [][]string{inv.Images, inv.Videos} {
		for _, rel := range group {
			if _, ok := seen[rel]; ok {
				continue
			}
			seen[rel] = struct{}{}
			out = append(out, rel)
		}
	}
	return out
}

type passes struct {
	root    string
	threads int
	logger  *slog.Logger
	crash   crash.Extractor
	results results.Parser
}

func (p passes) crashes(ctx context.Context, files []string) ([]model.CrashRecord, []Warning, error) {
	batches, warnings, err := forEachFile(ctx, files, p.threads, StageCrash, func(rel string) ([]model.CrashRecord, error) {
		return p.crash.ExtractFile(p.root, rel)
	})
	if err != nil {
		return nil, nil, err
	}
	out := make([]model.CrashRecord, 0)
	for _, batch := range batches {
		out = append(out, batch...)
	}
	return out, warnings, nil
}

func (p passes) structured(ctx context.Context, files []string) ([]model.StructuredResult, []Warning, error) {
	type parsed struct {
		res model.StructuredResult
		ok  bool
	}
	items, warnings, err := forEachFile(ctx, files, p.threads, StageResults, func(rel string) (parsed, error) {
		res, err := p.results.ParseFile(p.root, rel)
		if errors.Is(err, results.ErrUnsupported) {
			p.logger.Debug("no parser for result file", slog.String("file", rel))
			return parsed{}, nil
		}
		if err != nil {
			return parsed{}, err
		}
		return parsed{res: res, ok: true}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	out := make([]model.StructuredResult, 0, len(items))
	for _, it := range items {
		if it.ok {
			out = append(out, it.res)
		}
	}
	return out, warnings, nil
}

func (p passes) media(ctx context.Context, files []string) ([]model.MediaEntry, []Warning, error) {
	type stat struct {
		entry model.MediaEntry
		ok    bool
	}
	items, warnings, err := forEachFile(ctx, files, p.threads, StageMedia, func(rel string) (stat, error) {
		e, err := media.Entry(p.root, rel)
		if err != nil {
			return stat{}, err
		}
		return stat{entry: e, ok: true}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	out := make([]model.MediaEntry, 0, len(items))
	for _, it := range items {
		if it.ok {
			out = append(out, it.entry)
		}
	}
	return out, warnings, nil
}

// forEachFile runs fn over files with at most threads in flight. Results and
// warnings keep the order of files regardless of completion order. A failing
// fn never stops the others; only context cancellation does.
func forEachFile[T any](ctx context.Context, files []string, threads int, stage Stage, fn func(rel string) (T, error)) ([]T, []Warning, error) {
	out := make([]T, len(files))
	errs := make([]error, len(files))

	var g errgroup.Group
	g.SetLimit(threads)
	for i, rel := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out[i], errs[i] = fn(rel)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	warnings := make([]Warning, 0)
	for i, err := range errs {
		if err != nil {
			warnings = append(warnings, Warning{File: files[i], Stage: stage, Err: err})
		}
	}
	return out, warnings, nil
}
