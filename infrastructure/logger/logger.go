package logger

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// logEntry is a single rendered log line queued for the backend's writer
// goroutine.
type logEntry struct {
	level Level
	log   []byte
}

// Logger writes tagged, leveled log lines to a shared Backend. Loggers are
// cheap to create and are usually held as a single package-level `log`
// variable per subsystem.
type Logger struct {
	level        Level
	subsystemTag string
	backend      *Backend
	writeChan    chan logEntry
}

// SetLevel changes the logging level of the logger.
func (l *Logger) SetLevel(level Level) {
	l.level = level
}

// Level returns the current logging level of the logger.
func (l *Logger) Level() Level {
	return l.level
}

func (l *Logger) write(level Level, s string) {
	if level < l.level {
		return
	}

	var callsite string
	if l.backend.flag&(LogFlagLongFile|LogFlagShortFile) != 0 {
		_, file, line, ok := runtime.Caller(3)
		if ok {
			if l.backend.flag&LogFlagShortFile != 0 {
				file = shortFile(file)
			}
			callsite = file + ":" + strconv.Itoa(line) + " "
		}
	}

	line := fmt.Sprintf("%s [%s] %s%s%s\n",
		time.Now().Format("2006-01-02 15:04:05.000"), level, callsite, l.subsystemTag+": ", s)

	select {
	case l.writeChan <- logEntry{level: level, log: []byte(line)}:
	default:
		// the backend isn't running (or is saturated); fall back to stderr
		// rather than block or drop silently.
		_, _ = fmt.Fprint(os.Stderr, line)
	}
}

func shortFile(file string) string {
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		return file[idx+1:]
	}
	return file
}

// Tracef formats and logs a message at the trace level.
func (l *Logger) Tracef(format string, args ...interface{}) { l.write(LevelTrace, fmt.Sprintf(format, args...)) }

// Debugf formats and logs a message at the debug level.
func (l *Logger) Debugf(format string, args ...interface{}) { l.write(LevelDebug, fmt.Sprintf(format, args...)) }

// Infof formats and logs a message at the info level.
func (l *Logger) Infof(format string, args ...interface{}) { l.write(LevelInfo, fmt.Sprintf(format, args...)) }

// Warnf formats and logs a message at the warn level.
func (l *Logger) Warnf(format string, args ...interface{}) { l.write(LevelWarn, fmt.Sprintf(format, args...)) }

// Errorf formats and logs a message at the error level.
func (l *Logger) Errorf(format string, args ...interface{}) { l.write(LevelError, fmt.Sprintf(format, args...)) }

// Criticalf formats and logs a message at the critical level.
func (l *Logger) Criticalf(format string, args ...interface{}) {
	l.write(LevelCritical, fmt.Sprintf(format, args...))
}

// Trace logs a message at the trace level.
func (l *Logger) Trace(args ...interface{}) { l.write(LevelTrace, fmt.Sprint(args...)) }

// Debug logs a message at the debug level.
func (l *Logger) Debug(args ...interface{}) { l.write(LevelDebug, fmt.Sprint(args...)) }

// Info logs a message at the info level.
func (l *Logger) Info(args ...interface{}) { l.write(LevelInfo, fmt.Sprint(args...)) }

// Warn logs a message at the warn level.
func (l *Logger) Warn(args ...interface{}) { l.write(LevelWarn, fmt.Sprint(args...)) }

// Error logs a message at the error level.
func (l *Logger) Error(args ...interface{}) { l.write(LevelError, fmt.Sprint(args...)) }

var defaultBackend = NewBackend()

// Get returns a new Logger for the given subsystem tag, backed by a shared
// default Backend. A second return value is reserved for parity with
// multi-backend registries and is always nil.
func Get(subsystemTag string) (*Logger, error) {
	return defaultBackend.Logger(subsystemTag), nil
}

func init() {
	_ = defaultBackend.Run()
}
