// Package logger is a thin process-wide logging facade backed by logrus.
//
// The bridge runs embedded in hosts that own their own log destinations
// (an editor process, an MCP stdio server where stdout is the protocol
// channel), so everything goes to stderr by default and the host can
// redirect or silence it with Configure.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu  sync.RWMutex
	log = newDefault()
)

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	return l
}

// Configure redirects output and sets the minimum level.
// Level accepts logrus level names ("debug", "info", "warn", "error");
// unknown names keep the current level.
func Configure(out io.Writer, level string) {
	mu.Lock()
	defer mu.Unlock()
	if out != nil {
		log.SetOutput(out)
	}
	if level != "" {
		if lv, err := logrus.ParseLevel(strings.ToLower(level)); err == nil {
			log.SetLevel(lv)
		}
	}
}

// SetLevel sets the minimum level directly.
func SetLevel(level logrus.Level) {
	mu.Lock()
	defer mu.Unlock()
	log.SetLevel(level)
}

func join(msg string, args []any) string {
	if len(args) == 0 {
		return msg
	}
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, msg)
	for _, a := range args {
		parts = append(parts, fmt.Sprintf("%v", a))
	}
	return strings.Join(parts, " ")
}

func Debug(msg string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Debug(join(msg, args))
}

func Info(msg string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Info(join(msg, args))
}

func Warn(msg string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Warn(join(msg, args))
}

func Error(msg string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Error(join(msg, args))
}
