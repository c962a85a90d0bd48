// Package logger is the leveled process logger shared by the shrine service.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/op/go-logging"
)

const moduleName = "shrine"

var (
	mu     sync.RWMutex
	logger *logging.Logger
)

func init() {
	InitLogger(logging.INFO, os.Stderr)
}

// InitLogger replaces the process logger. Output goes to out with a
// timestamped, leveled format.
func InitLogger(level logging.Level, out io.Writer) {
	newLogger := logging.MustGetLogger(moduleName)
	format := logging.MustStringFormatter(`%{time:2006/01/02 15:04:05} %{level} - %{message}`)

	backend := logging.NewLogBackend(out, "", 0)
	backendFormatter := logging.NewBackendFormatter(backend, format)
	backendLeveled := logging.AddModuleLevel(backendFormatter)
	backendLeveled.SetLevel(level, moduleName)
	newLogger.SetBackend(backendLeveled)

	mu.Lock()
	logger = newLogger
	mu.Unlock()
}

// ParseLevel maps LOG_LEVEL style names to go-logging levels. Unknown names fall back to INFO.
func ParseLevel(raw string) logging.Level {
	level, err := logging.LogLevel(strings.ToUpper(strings.TrimSpace(raw)))
	if err != nil {
		return logging.INFO
	}
	return level
}

func current() *logging.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debug(args ...interface{}) {
	current().Debug(fmt.Sprint(args...))
}

func Debugf(format string, args ...interface{}) {
	current().Debugf(format, args...)
}

func Info(args ...interface{}) {
	current().Info(fmt.Sprint(args...))
}

func Infof(format string, args ...interface{}) {
	current().Infof(format, args...)
}

func Warning(args ...interface{}) {
	current().Warning(fmt.Sprint(args...))
}

func Warningf(format string, args ...interface{}) {
	current().Warningf(format, args...)
}

func Error(args ...interface{}) {
	current().Error(fmt.Sprint(args...))
}

func Errorf(format string, args ...interface{}) {
	current().Errorf(format, args...)
}
