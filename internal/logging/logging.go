// Package logging builds the logrus logger shared by the TUI and the CLI.
//
// The TUI owns the terminal, so when a log file is configured every entry is
// written there through a hook and the logger's own output is discarded.
package logging

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sanity-io/litter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Level is a logrus level name. Defaults to "info".
	Level string
	// File, when set, receives every entry through a size-rotated writer.
	File string
	// Console receives entries when File is empty. Nil discards them.
	Console io.Writer
}

// New returns a configured logger and a closer for its file, if any.
func New(opt Options) (*logrus.Logger, io.Closer, error) {
	lvl := strings.TrimSpace(opt.Level)
	if lvl == "" {
		lvl = "info"
	}
	level, err := logrus.ParseLevel(lvl)
	if err != nil {
		return nil, nil, errors.Wrap(err, "invalid log level")
	}

	formatter := new(lineFormatter)
	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(formatter)
	log.SetOutput(io.Discard)

	if opt.File != "" {
		rotate := &lumberjack.Logger{
			Filename:   opt.File,
			MaxSize:    20, // megabytes
			MaxBackups: 2,
			MaxAge:     10, // days
		}
		log.AddHook(&fileHook{writer: rotate, formatter: formatter})
		return log, rotate, nil
	}
	if opt.Console != nil {
		log.SetOutput(opt.Console)
	}
	return log, nopCloser{}, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// Dump logs a readable rendering of v at debug level.
func Dump(log logrus.FieldLogger, v any) {
	switch l := log.(type) {
	case *logrus.Entry:
		if !l.Logger.IsLevelEnabled(logrus.DebugLevel) {
			return
		}
	case *logrus.Logger:
		if !l.IsLevelEnabled(logrus.DebugLevel) {
			return
		}
	}
	log.Debug(litter.Sdump(v))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type fileHook struct {
	sync.Mutex
	writer    io.Writer
	formatter logrus.Formatter
}

// Fire formats the entry and writes it to the rotated file.
func (hook *fileHook) Fire(entry *logrus.Entry) error {
	hook.Lock()
	defer hook.Unlock()

	msg, err := hook.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = hook.writer.Write(msg)
	return err
}

// Levels returns every level; filtering happens on the logger.
func (hook *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

type lineFormatter struct{}

// Format renders "[time] LEVEL: message (k=v, ...)".
func (f *lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	fields := ""
	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fs := make([]string, 0, len(keys))
		for _, k := range keys {
			fs = append(fs, fmt.Sprintf("%s=%v", k, entry.Data[k]))
		}
		fields = fmt.Sprintf(" (%s)", strings.Join(fs, ", "))
	}

	t := entry.Time
	if t.IsZero() {
		t = time.Now()
	}
	data := fmt.Sprintf("[%s] %5s: %s%s\n",
		t.Format(time.RFC3339),
		strings.ToUpper(entry.Level.String()),
		entry.Message,
		fields,
	)
	return []byte(data), nil
}
