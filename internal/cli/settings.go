package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ai-dev-2024/labtriage/internal/config"
	"github.com/ai-dev-2024/labtriage/internal/logging"
	"github.com/ai-dev-2024/labtriage/internal/output"
)

// EnvPrefix namespaces environment overrides, e.g. LABTRIAGE_FORMAT=json.
const EnvPrefix = "LABTRIAGE"

// Settings are the runtime knobs shared by every scanning command. Flags win
// over environment variables, which win over defaults.
type Settings struct {
	Format    string `mapstructure:"format"`
	Policy    string `mapstructure:"policy"`
	Threads   int    `mapstructure:"threads"`
	NoReport  bool   `mapstructure:"no-report"`
	NoColor   bool   `mapstructure:"no-color"`
	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`
	LogFile   string `mapstructure:"log-file"`
}

var settingKeys = []string{
	"format", "policy", "threads", "no-report", "no-color",
	"log-level", "log-format", "log-file",
}

func addSettingsFlags(fs *pflag.FlagSet) {
	fs.String("format", output.FormatHuman, "Output format: human|json|sarif")
	fs.String("policy", config.DefaultPolicyPath, "Policy file path")
	fs.Int("threads", 0, "Parallel file workers (0=auto)")
	fs.Bool("no-report", false, "Do not write the report file into the results directory")
	fs.Bool("no-color", false, "Disable colored output")
	fs.String("log-level", "warn", "Log level: debug|info|warn|error")
	fs.String("log-format", "text", "Log format: text|json")
	fs.String("log-file", "", "Also write logs to this file (rotated)")
}

// LoadSettings merges defaults, LABTRIAGE_* environment variables and the
// flags in fs, then validates the result.
func LoadSettings(fs *pflag.FlagSet) (Settings, error) {
	v := viper.New()
	v.SetDefault("format", output.FormatHuman)
	v.SetDefault("policy", config.DefaultPolicyPath)
	v.SetDefault("threads", 0)
	v.SetDefault("no-report", false)
	v.SetDefault("no-color", false)
	v.SetDefault("log-level", "warn")
	v.SetDefault("log-format", "text")
	v.SetDefault("log-file", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, key := range settingKeys {
		flag := fs.Lookup(key)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return Settings{}, fmt.Errorf("bind flag --%s: %w", key, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	s.Format = strings.ToLower(strings.TrimSpace(s.Format))
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))
	s.LogFormat = strings.ToLower(strings.TrimSpace(s.LogFormat))

	if !output.ValidFormat(s.Format) {
		return Settings{}, fmt.Errorf("unsupported output format: %s", s.Format)
	}
	if s.Threads < 0 {
		return Settings{}, fmt.Errorf("threads must be >= 0, got %d", s.Threads)
	}
	if !logging.ValidLevel(s.LogLevel) {
		return Settings{}, fmt.Errorf("invalid log level: %s", s.LogLevel)
	}
	if !logging.ValidFormat(s.LogFormat) {
		return Settings{}, fmt.Errorf("invalid log format: %s", s.LogFormat)
	}
	return s, nil
}
