// Package log wraps go-logging with a per-module leveled logger used across the renderer.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/op/go-logging"
)

// Level is the verbosity threshold applied to every module logger.
type Level logging.Level

const (
	// Debug enables every message, including per-frame diagnostics.
	Debug Level = iota

	// Info enables initialization and configuration messages.
	Info

	// Notice is the default level and covers user facing summaries.
	Notice

	// Warning only shows recoverable problems.
	Warning

	// Error only shows failures.
	Error
)

// format is the line layout shared by all sinks.
var format = logging.MustStringFormatter(
	`%{color}[%{time:15:04:05.000}] [%{module}] [%{level}]%{color:reset} %{message}`,
)

var (
	mu             sync.Mutex
	leveledBackend logging.LeveledBackend
	currentLevel   = Notice
)

// Logger is the leveled logging surface handed out by New.
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Notice(v ...interface{})
	Noticef(format string, v ...interface{})

	Warning(v ...interface{})
	Warningf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

// New creates a logger tagged with the given module name.
//
// Parameters:
//   - module: the name printed in the [module] column of every line
//
// Returns:
//   - Logger: the module logger
func New(module string) Logger {
	return logging.MustGetLogger(module)
}

// SetSink redirects all module loggers to the given writer. The current level is preserved.
//
// Parameters:
//   - sink: the writer that receives formatted log lines
func SetSink(sink io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	backend := logging.NewLogBackend(sink, "", 0)
	formatted := logging.NewBackendFormatter(backend, format)
	leveledBackend = logging.AddModuleLevel(formatted)
	leveledBackend.SetLevel(toLoggingLevel(currentLevel), "")
	logging.SetBackend(leveledBackend)
}

// SetLevel changes the verbosity of every module logger.
//
// Parameters:
//   - level: the minimum level that is written to the sink
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()

	currentLevel = level
	leveledBackend.SetLevel(toLoggingLevel(level), "")
}

// ParseLevel converts a case-insensitive level name into a Level.
//
// Parameters:
//   - name: one of debug, info, notice, warning or error
//
// Returns:
//   - Level: the parsed level
//   - error: an error if the name is not recognised
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return Debug, nil
	case "info":
		return Info, nil
	case "notice":
		return Notice, nil
	case "warning", "warn":
		return Warning, nil
	case "error":
		return Error, nil
	}
	return Notice, fmt.Errorf("log: unknown level %q", name)
}

func toLoggingLevel(level Level) logging.Level {
	switch level {
	case Debug:
		return logging.DEBUG
	case Info:
		return logging.INFO
	case Warning:
		return logging.WARNING
	case Error:
		return logging.ERROR
	default:
		return logging.NOTICE
	}
}

func init() {
	SetSink(os.Stdout)
	SetLevel(Notice)
}
