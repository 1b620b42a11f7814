package cli

import (
	"testing"

	"github.com/spf13/cobra"
)

type Command = cobra.Command

func TestScanFlagDefaults(t *testing.T) {
	cmd := NewRootCommand()

	tests := []struct {
		flag string
		want string
	}{
		{"format", "human"},
		{"policy", ".labtriage/policy.yaml"},
		{"threads", "0"},
		{"no-report", "false"},
		{"no-color", "false"},
		{"log-level", "warn"},
		{"log-format", "text"},
		{"log-file", ""},
	}

	for _, tc := range tests {
		got := cmd.PersistentFlags().Lookup(tc.flag)
		if got == nil {
			t.Fatalf("flag %q missing", tc.flag)
		}
		if got.DefValue != tc.want {
			t.Fatalf("flag %q default = %q, want %q", tc.flag, got.DefValue, tc.want)
		}
	}
}

func TestLoadSettingsPrecedence(t *testing.T) {
	t.Setenv("LABTRIAGE_FORMAT", "JSON")
	t.Setenv("LABTRIAGE_THREADS", "3")
	t.Setenv("LABTRIAGE_NO_REPORT", "true")

	cmd := NewRootCommand()
	fs := cmd.PersistentFlags()
	if err := fs.Parse([]string{"--threads", "7"}); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSettings(fs)
	if err != nil {
		t.Fatal(err)
	}
	if s.Format != "json" {
		t.Fatalf("env format not applied: %+v", s)
	}
	if s.Threads != 7 {
		t.Fatalf("flag must win over env: %+v", s)
	}
	if !s.NoReport {
		t.Fatalf("env no-report not applied: %+v", s)
	}
	if s.LogLevel != "warn" {
		t.Fatalf("default log level lost: %+v", s)
	}
}

func TestLoadSettingsRejectsInvalid(t *testing.T) {
	cases := [][]string{
		{"--format", "xml"},
		{"--threads", "-1"},
		{"--log-level", "loud"},
		{"--log-format", "yaml"},
	}
	for _, args := range cases {
		fs := NewRootCommand().PersistentFlags()
		if err := fs.Parse(args); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadSettings(fs); err == nil {
			t.Fatalf("expected error for %q", args)
		}
	}
}
