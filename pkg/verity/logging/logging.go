// Package logging provides component-scoped loggers for verity.
//
// Basic usage:
//
//	cfg := logging.Config{Level: "info"}
//	if err := logging.Init(cfg); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Close()
//
//	logger := logging.Get("scheduler")
//	logger.Info("batch drained", "rules", 42)
//
// Before Init is called, all loggers are silent. Loggers obtained before
// Init pick up the configured sink afterwards, so packages may hold a
// logger in a package-level variable.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a level string into a charmbracelet/log level.
func ParseLevel(s string) (log.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return log.DebugLevel, nil
	case "info", "":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the default log level (debug, info, warn, error).
	Level string

	// Path is the log file path. Empty logs to stderr.
	Path string

	// Components maps component names to level overrides.
	Components map[string]string
}

// Logger logs for a single named component. Its backend is resolved on
// every call, so reconfiguring via Init affects all existing loggers.
type Logger struct {
	component string
	extra     []interface{}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) { l.log(log.DebugLevel, msg, args...) }

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) { l.log(log.InfoLevel, msg, args...) }

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) { l.log(log.WarnLevel, msg, args...) }

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) { l.log(log.ErrorLevel, msg, args...) }

// With returns a logger that appends the given key/value context.
func (l *Logger) With(args ...interface{}) *Logger {
	extra := make([]interface{}, 0, len(l.extra)+len(args))
	extra = append(extra, l.extra...)
	extra = append(extra, args...)
	return &Logger{component: l.component, extra: extra}
}

func (l *Logger) log(level log.Level, msg string, args ...interface{}) {
	backend := globalState.backend(l.component)
	if backend == nil {
		return
	}
	if len(l.extra) > 0 {
		backend = backend.With(l.extra...)
	}
	backend.Log(level, msg, args...)
}

type state struct {
	mu          sync.RWMutex
	initialized bool
	sink        io.Writer
	file        *os.File
	level       log.Level
	components  map[string]log.Level
	backends    map[string]*log.Logger
}

var globalState = &state{
	components: make(map[string]log.Level),
	backends:   make(map[string]*log.Logger),
}

// backend returns the charm logger for a component, or nil before Init.
func (s *state) backend(component string) *log.Logger {
	s.mu.RLock()
	if b, ok := s.backends[component]; ok {
		s.mu.RUnlock()
		return b
	}
	initialized := s.initialized
	s.mu.RUnlock()

	if !initialized {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.backends[component]; ok {
		return b
	}
	b := s.create(component)
	s.backends[component] = b
	return b
}

// create builds a component backend. Must be called with the lock held.
func (s *state) create(component string) *log.Logger {
	level := s.level
	if compLevel, ok := s.components[component]; ok {
		level = compLevel
	}
	return log.NewWithOptions(s.sink, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          component,
	})
}

// Init initializes the logging system. It may be called again to
// reconfigure; existing loggers pick up the new sink and levels.
func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	components := make(map[string]log.Level, len(cfg.Components))
	for comp, lvl := range cfg.Components {
		parsed, perr := ParseLevel(lvl)
		if perr != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, perr)
		}
		components[comp] = parsed
	}

	sink := io.Writer(os.Stderr)
	var file *os.File
	if cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
		file, err = os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		sink = file
	}

	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if globalState.file != nil {
		_ = globalState.file.Close()
	}

	globalState.level = level
	globalState.components = components
	globalState.sink = sink
	globalState.file = file
	globalState.initialized = true
	globalState.backends = make(map[string]*log.Logger)

	return nil
}

// Get returns the logger for the given component.
func Get(component string) *Logger {
	return &Logger{component: component}
}

// Close flushes and closes the log sink. Loggers fall silent until the
// next Init.
func Close() error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if !globalState.initialized {
		return nil
	}
	if globalState.file != nil {
		if err := globalState.file.Close(); err != nil {
			return fmt.Errorf("closing log file: %w", err)
		}
		globalState.file = nil
	}
	globalState.initialized = false
	globalState.backends = make(map[string]*log.Logger)
	return nil
}

// DefaultLogPath returns $XDG_STATE_HOME/verity/verity.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "verity", "verity.log")
}
