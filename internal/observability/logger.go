// Package observability provides logging setup for the CLI.
package observability

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the process-wide logger used by CLI commands. It is a
// no-op logger until InitCLILogger is called.
var CLILogger = zap.NewNop()

// InitCLILogger configures the global CLI logger.
//
// Output goes to stderr so that command output on stdout stays clean for
// piping. verbose enables debug-level logging.
func InitCLILogger(name string, verbose bool) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if !isTerminal(os.Stderr) {
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		level,
	)

	CLILogger = zap.New(core).Named(name)
}

// Sync flushes any buffered log entries. Errors are ignored; stderr
// cannot usefully report its own flush failure.
func Sync() {
	_ = CLILogger.Sync()
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
