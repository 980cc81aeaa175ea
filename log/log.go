// Package log provides a leveled, structured logger for the whole engine,
// backed by zerolog. It is initialized once via Init and used through
// package-level functions.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	log zerolog.Logger
	// errorLog is a separate logger that writes errors to a dedicated writer,
	// when one is provided to Init.
	errorLog *zerolog.Logger

	// panicOnInvalidChars enables panics when a log message contains
	// non-printable characters. Used in tests to catch binary data leaking
	// into log lines.
	panicOnInvalidChars = os.Getenv("LOG_PANIC_ON_INVALIDCHARS") == "true"

	// logTestWriter is the writer used when output is logTestWriterName.
	logTestWriter     io.Writer = io.Discard
	logTestWriterName           = "_test"
)

const (
	outputStdout = "stdout"
	outputStderr = "stderr"
)

// invalidCharChecker panics on invalid characters when enabled. It is plugged
// as a zerolog hook so every formatted message goes through it.
type invalidCharChecker struct{}

func (invalidCharChecker) Run(_ *zerolog.Event, _ zerolog.Level, message string) {
	if !panicOnInvalidChars {
		return
	}
	for _, r := range message {
		if r == '�' {
			panic(fmt.Sprintf("invalid char in log message: %q", message))
		}
	}
}

// Init initializes the logger with the given level ("debug", "info", "warn",
// "error") and output ("stdout", "stderr" or a file path). If errorOutput is
// not nil, errors are duplicated to it.
func Init(level, output string, errorOutput io.Writer) {
	var out io.Writer
	switch output {
	case outputStdout:
		out = os.Stdout
	case outputStderr:
		out = os.Stderr
	case logTestWriterName:
		out = logTestWriter
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			panic(fmt.Sprintf("cannot open log output %q: %v", output, err))
		}
		out = f
	}
	if output == outputStdout || output == outputStderr {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339Nano}
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log = zerolog.New(out).With().Timestamp().Caller().Logger().Hook(invalidCharChecker{})
	switch strings.ToLower(level) {
	case "debug":
		log = log.Level(zerolog.DebugLevel)
	case "info":
		log = log.Level(zerolog.InfoLevel)
	case "warn":
		log = log.Level(zerolog.WarnLevel)
	case "error":
		log = log.Level(zerolog.ErrorLevel)
	default:
		panic(fmt.Sprintf("invalid log level: %q", level))
	}
	if errorOutput != nil {
		l := zerolog.New(errorOutput).With().Timestamp().Logger().Level(zerolog.ErrorLevel)
		errorLog = &l
	}
	Infow("logger construction succeeded", "level", level, "output", output)
}

// Logger returns the underlying zerolog logger.
func Logger() *zerolog.Logger { return &log }

func withFields(ev *zerolog.Event, keysAndValues ...any) *zerolog.Event {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keysAndValues[i])
		}
		switch v := keysAndValues[i+1].(type) {
		case string:
			ev = ev.Str(key, v)
		case []byte:
			ev = ev.Str(key, fmt.Sprintf("%x", v))
		case error:
			ev = ev.AnErr(key, v)
		case fmt.Stringer:
			ev = ev.Str(key, v.String())
		default:
			ev = ev.Interface(key, v)
		}
	}
	return ev
}

// Debug logs a debug message.
func Debug(args ...any) { log.Debug().Msg(fmt.Sprint(args...)) }

// Debugf logs a formatted debug message.
func Debugf(template string, args ...any) { log.Debug().Msgf(template, args...) }

// Debugw logs a debug message with key-value fields.
func Debugw(msg string, keysAndValues ...any) {
	withFields(log.Debug(), keysAndValues...).Msg(msg)
}

// Info logs an info message.
func Info(args ...any) { log.Info().Msg(fmt.Sprint(args...)) }

// Infof logs a formatted info message.
func Infof(template string, args ...any) { log.Info().Msgf(template, args...) }

// Infow logs an info message with key-value fields.
func Infow(msg string, keysAndValues ...any) {
	withFields(log.Info(), keysAndValues...).Msg(msg)
}

// Warn logs a warning message.
func Warn(args ...any) { log.Warn().Msg(fmt.Sprint(args...)) }

// Warnf logs a formatted warning message.
func Warnf(template string, args ...any) { log.Warn().Msgf(template, args...) }

// Warnw logs a warning message with key-value fields.
func Warnw(msg string, keysAndValues ...any) {
	withFields(log.Warn(), keysAndValues...).Msg(msg)
}

// Error logs an error message.
func Error(args ...any) {
	msg := fmt.Sprint(args...)
	log.Error().Msg(msg)
	if errorLog != nil {
		errorLog.Error().Msg(msg)
	}
}

// Errorf logs a formatted error message.
func Errorf(template string, args ...any) {
	log.Error().Msgf(template, args...)
	if errorLog != nil {
		errorLog.Error().Msgf(template, args...)
	}
}

// Errorw logs an error with a message and key-value fields.
func Errorw(err error, msg string, keysAndValues ...any) {
	withFields(log.Error().Err(err), keysAndValues...).Msg(msg)
	if errorLog != nil {
		errorLog.Error().Err(err).Msg(msg)
	}
}

// Fatalf logs a formatted message and exits the process.
func Fatalf(template string, args ...any) { log.Fatal().Msgf(template, args...) }

// Fatal logs a message and exits the process.
func Fatal(args ...any) { log.Fatal().Msg(fmt.Sprint(args...)) }
