package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/ai-dev-2024/labtriage/internal/logging"
)

func newLogger(s Settings, w io.Writer) (*slog.Logger, io.Closer, error) {
	cfg := logging.DefaultConfig()
	cfg.Level = s.LogLevel
	cfg.Format = s.LogFormat
	cfg.FilePath = s.LogFile
	return logging.New(cfg, w)
}

// colorEnabled is true only for a terminal, and never when NO_COLOR is set.
func colorEnabled(s Settings, w io.Writer) bool {
	if s.NoColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
