package config

import (
	"os"
	"path/filepath"
)

const DefaultPolicyPath = ".labtriage/policy.yaml"

// ResolvePolicyPath returns path unchanged when it exists or is not the
// default. For the default relative path it walks up from the working
// directory and returns the first match, so the tool can be run from any
// sub-directory of a checkout. It returns "" when nothing is found.
func ResolvePolicyPath(path string) string {
	if path == "" {
		path = DefaultPolicyPath
	}
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path
	}
	if path != DefaultPolicyPath {
		return path
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		candidate := filepath.Join(dir, path)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
