// logger/logger.go
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// levelStyle is the console color and tag for each level, indexed by LogLevel.
var levelStyle = [...]struct {
	color string
	tag   string
}{
	DEBUG: {colorGray, "[DEBUG] "},
	INFO:  {colorReset, "[INFO]  "},
	WARN:  {colorYellow, "[WARN]  "},
	ERROR: {colorRed, "[ERROR] "},
}

// sink pairs one log.Logger per level with the writer they share.
type sink struct {
	out     io.Writer
	loggers [len(levelStyle)]*log.Logger
}

func newSink(out io.Writer, colored bool) *sink {
	s := &sink{out: out}
	flags := log.Ldate | log.Ltime | log.Lshortfile
	for lvl, style := range levelStyle {
		prefix := style.tag
		if colored {
			prefix = style.color + style.tag + colorReset
		}
		s.loggers[lvl] = log.New(out, prefix, flags)
	}
	return s
}

type Logger struct {
	console  *sink
	file     *sink
	handle   *os.File
	minLevel LogLevel
}

var (
	defaultLogger *Logger
	mu            sync.Mutex
)

// current returns the active logger, creating a console logger at DEBUG if
// Init was never called. Callers must hold mu.
func current() *Logger {
	if defaultLogger == nil {
		defaultLogger = &Logger{console: newSink(os.Stdout, true), minLevel: DEBUG}
	}
	return defaultLogger
}

// Init configures console and/or file output.
// If filename is empty, logs only to console.
// If console is false, logs only to file.
func Init(filename string, console bool) error {
	mu.Lock()
	defer mu.Unlock()

	level := DEBUG
	if defaultLogger != nil {
		level = defaultLogger.minLevel
	}
	if filename == "" && !console {
		return fmt.Errorf("no output destination specified")
	}

	l := &Logger{minLevel: level}
	if filename != "" {
		f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		l.handle = f
		l.file = newSink(f, false)
	}
	if console {
		l.console = newSink(os.Stdout, true)
	}
	if defaultLogger != nil && defaultLogger.handle != nil {
		defaultLogger.handle.Close()
	}
	defaultLogger = l
	return nil
}

// SetLevel sets the minimum level; messages below it are dropped.
func SetLevel(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	current().minLevel = level
}

// ParseLevel maps "debug", "info", "warn"/"warning" and "error" to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, nil
	case "", "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level %q", s)
	}
}

// Close closes the log file if one is open
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if defaultLogger != nil && defaultLogger.handle != nil {
		defaultLogger.handle.Close()
		defaultLogger.handle = nil
		defaultLogger.file = nil
	}
}

// output snapshots the sinks under mu and writes outside it. A write that
// loses a race with Close fails on the closed file and is dropped.
func output(level LogLevel, msg string) {
	mu.Lock()
	l := current()
	minLevel, console, file := l.minLevel, l.console, l.file
	mu.Unlock()

	if level < minLevel {
		return
	}
	if console != nil {
		console.loggers[level].Output(3, msg)
	}
	if file != nil {
		file.loggers[level].Output(3, msg)
	}
}

// Debug logs a debug message
func Debug(v ...interface{}) { output(DEBUG, fmt.Sprint(v...)) }

// Debugf logs a formatted debug message
func Debugf(format string, v ...interface{}) { output(DEBUG, fmt.Sprintf(format, v...)) }

// Info logs an info message
func Info(v ...interface{}) { output(INFO, fmt.Sprint(v...)) }

// Infof logs a formatted info message
func Infof(format string, v ...interface{}) { output(INFO, fmt.Sprintf(format, v...)) }

// Warn logs a warning message
func Warn(v ...interface{}) { output(WARN, fmt.Sprint(v...)) }

// Warnf logs a formatted warning message
func Warnf(format string, v ...interface{}) { output(WARN, fmt.Sprintf(format, v...)) }

// Error logs an error message
func Error(v ...interface{}) { output(ERROR, fmt.Sprint(v...)) }

// Errorf logs a formatted error message
func Errorf(format string, v ...interface{}) { output(ERROR, fmt.Sprintf(format, v...)) }

// Fatal logs an error message and exits the program
func Fatal(v ...interface{}) {
	output(ERROR, fmt.Sprint(v...))
	os.Exit(1)
}

// Fatalf logs a formatted error message and exits the program
func Fatalf(format string, v ...interface{}) {
	output(ERROR, fmt.Sprintf(format, v...))
	os.Exit(1)
}
