package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/saltyorg/regshell/internal/config"
)

const timeFormat = "2006-01-02 15:04:05"

// Options controls where log output goes.
type Options struct {
	// Console receives human readable output. Defaults to os.Stdout.
	Console io.Writer
	// Quiet raises the minimum level to warn when no verbosity was requested.
	// Interactive mode uses this so log lines do not interleave with the menu.
	Quiet bool
	// File settings; an empty File logs to the console only.
	File config.LogConfig
}

// Apply sets the global log level and output writers (console + rotating file).
// Verbosity follows the -v count: 0 info, 1 debug, 2+ trace.
func Apply(verbosity int, opts Options) {
	applyLevel(verbosity, opts.Quiet)
	applyOutputs(opts)
}

func applyLevel(verbosity int, quiet bool) {
	switch {
	case verbosity >= 2:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case verbosity == 1:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case quiet:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func applyOutputs(opts Options) {
	out := opts.Console
	if out == nil {
		out = os.Stdout
	}

	consoleOutput := zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat}
	log.Logger = zerolog.New(consoleOutput).With().Timestamp().Logger()

	if opts.File.File == "" {
		return
	}

	if err := ensureLogDir(opts.File.File); err != nil {
		log.Error().Err(err).Str("path", opts.File.File).Msg("Failed to prepare log directory; logging to console only")
		return
	}

	fileWriter := &lumberjack.Logger{
		Filename:   opts.File.File,
		MaxSize:    opts.File.MaxSizeMB,
		MaxBackups: opts.File.MaxBackups,
		MaxAge:     opts.File.MaxAgeDays,
		Compress:   opts.File.Compress,
	}

	fileConsole := zerolog.ConsoleWriter{
		Out:        fileWriter,
		TimeFormat: timeFormat,
		NoColor:    true,
	}

	multi := zerolog.MultiLevelWriter(consoleOutput, fileConsole)
	log.Logger = zerolog.New(multi).With().Timestamp().Logger()
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
