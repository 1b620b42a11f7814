// Package classify buckets the files of a results directory into roles by
// file name alone.
package classify

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ai-dev-2024/labtriage/internal/config"
)

// ErrDirectoryNotFound is returned when the results root is missing or is
// not a directory.
var ErrDirectoryNotFound = errors.New("results directory not found")

type Role string

const (
	RoleLog         Role = "log"
	RoleResult      Role = "result"
	RolePerformance Role = "performance"
	RoleImage       Role = "image"
	RoleVideo       Role = "video"
)

// Rules are the glob sets for each role plus path exclusions. Role globs
// match the base name; exclusions match the slash-relative path.
type Rules struct {
	Logs         []string
	Results      []string
	Performance  []string
	Images       []string
	Videos       []string
	ExcludePaths []string
	// ReportFile is skipped at the root so a previous run's artifact is
	// never fed back into the scan.
	ReportFile string
}

func RulesFromPolicy(p config.Policy) Rules {
	return Rules{
		Logs:         p.Classify.Logs,
		Results:      p.Classify.Results,
		Performance:  p.Classify.Performance,
		Images:       p.Classify.Images,
		Videos:       p.Classify.Videos,
		ExcludePaths: p.Classify.ExcludePaths,
		ReportFile:   p.Report.FileName,
	}
}

// Inventory holds slash-relative paths per role in lexical walk order. A
// path may appear under several roles.
type Inventory struct {
	Logs        []string
	Results     []string
	Performance []string
	Images      []string
	Videos      []string
	// WalkErrors are unreadable sub-directories, skipped during the walk.
	WalkErrors []error
}

func (inv Inventory) Len(role Role) int {
	return len(inv.paths(role))
}

func (inv Inventory) paths(role Role) []string {
	switch role {
	case RoleLog:
		return inv.Logs
	case RoleResult:
		return inv.Results
	case RolePerformance:
		return inv.Performance
	case RoleImage:
		return inv.Images
	case RoleVideo:
		return inv.Videos
	default:
		return nil
	}
}

// CheckRoot fails with ErrDirectoryNotFound unless root is an existing directory.
func CheckRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrDirectoryNotFound, root)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrDirectoryNotFound, root)
	}
	return nil
}

// Walk enumerates root recursively and classifies every regular file.
func Walk(root string, rules Rules) (Inventory, error) {
	if err := CheckRoot(root); err != nil {
		return Inventory{}, err
	}

	var inv Inventory
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			inv.WalkErrors = append(inv.WalkErrors, fmt.Errorf("walk %s: %w", path, walkErr))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !isFile(path, d) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == rules.ReportFile || excluded(rel, rules.ExcludePaths) {
			return nil
		}

		name := d.Name()
		if matchAny(rules.Logs, name) {
			inv.Logs = append(inv.Logs, rel)
		}
		if matchAny(rules.Results, name) {
			inv.Results = append(inv.Results, rel)
		}
		if matchAny(rules.Performance, name) {
			inv.Performance = append(inv.Performance, rel)
		}
		if matchAny(rules.Images, name) {
			inv.Images = append(inv.Images, rel)
		}
		if matchAny(rules.Videos, name) {
			inv.Videos = append(inv.Videos, rel)
		}
		return nil
	})
	if err != nil {
		return Inventory{}, err
	}
	return inv, nil
}

// isFile follows symlinks, the same way a stat-based check would.
func isFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		m, err := doublestar.Match(p, name)
		if err == nil && m {
			return true
		}
	}
	return false
}

func excluded(rel string, patterns []string) bool {
	for _, p := range patterns {
		m, err := doublestar.Match(p, rel)
		if err == nil && m {
			return true
		}
	}
	return false
}
