// Copyright 2015 Ka-Hing Cheung
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging provides the engine's per-component loggers: one named
// logrus.Logger per package (chunker, archive, clone, ...), a shared custom
// line format, and process-wide knobs (level, color, output file) that apply
// to every logger created so far.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	isatty "github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var mu sync.Mutex
var loggers = make(map[string]*Logger)

var framePlaceHolder = runtime.Frame{Function: "???", File: "???", Line: 0}

// Logger is a named logrus.Logger with the engine's line format.
type Logger struct {
	logrus.Logger

	name     string
	runID    string
	pid      int
	colorful bool
}

func (l *Logger) Format(e *logrus.Entry) ([]byte, error) {
	lvlStr := strings.ToUpper(e.Level.String())
	if l.colorful {
		var color int
		switch e.Level {
		case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
			color = 31 // red
		case logrus.WarnLevel:
			color = 33 // yellow
		case logrus.InfoLevel:
			color = 34 // blue
		default: // trace, debug
			color = 35 // magenta
		}
		lvlStr = fmt.Sprintf("\033[1;%dm%s\033[0m", color, lvlStr)
	}
	const timeFormat = "2006/01/02 15:04:05.000000"
	caller := e.Caller
	if caller == nil {
		caller = &framePlaceHolder
	}
	str := fmt.Sprintf("%s%v %s[%d] <%v>: %v [%s@%s:%d]",
		l.runID,
		e.Time.Format(timeFormat),
		l.name,
		l.pid,
		lvlStr,
		strings.TrimRight(e.Message, "\n"),
		MethodName(caller.Function),
		path.Base(caller.File),
		caller.Line)

	if len(e.Data) != 0 {
		str += " " + fmt.Sprint(e.Data)
	}
	if !strings.HasSuffix(str, "\n") {
		str += "\n"
	}
	return []byte(str), nil
}

// MethodName strips the package path and closure suffixes from a runtime
// function name, e.g. "github.com/xiaoz/bitasync/chunker.(*Chunker).Next.func1"
// becomes "Next".
func MethodName(fullFuncName string) string {
	firstSlash := strings.Index(fullFuncName, "/")
	if firstSlash != -1 && firstSlash < len(fullFuncName)-1 {
		fullFuncName = fullFuncName[firstSlash+1:]
	}
	lastDot := strings.LastIndex(fullFuncName, ".")
	if lastDot == -1 || lastDot == len(fullFuncName)-1 {
		return fullFuncName
	}
	method := fullFuncName[lastDot+1:]
	if strings.HasPrefix(method, "func") && len(method) > 4 && method[4] >= '0' && method[4] <= '9' {
		if candidate := MethodName(fullFuncName[:lastDot]); candidate != "" {
			method = candidate
		}
	}
	if len(method) == 1 && method[0] >= '0' && method[0] <= '9' {
		if candidate := MethodName(fullFuncName[:lastDot]); candidate != "" {
			method = candidate
		}
	}
	return method
}

func newLogger(name string) *Logger {
	l := &Logger{Logger: *logrus.New(), name: name, pid: os.Getpid()}
	l.Formatter = l
	l.Level = defaultLevel
	l.SetReportCaller(true)
	l.colorful = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	return l
}

// Get returns the logger registered under name, creating it on first use.
func Get(name string) *Logger {
	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[name]; ok {
		return l
	}
	l := newLogger(name)
	loggers[name] = l
	return l
}

// SetLevel applies lvl to every logger created so far and to loggers created
// afterward via a package default.
func SetLevel(lvl logrus.Level) {
	mu.Lock()
	defer mu.Unlock()
	defaultLevel = lvl
	for _, l := range loggers {
		l.Level = lvl
	}
}

var defaultLevel = logrus.InfoLevel

// DisableColor turns off ANSI color codes on every logger, regardless of
// terminal detection; used when writing to a log file.
func DisableColor() {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		l.colorful = false
	}
}

// SetOutFile redirects every logger to a daily-rotated file at path, keeping
// 7 days of history capped at 100MB per file, and disables color.
func SetOutFile(path string) error {
	logf, err := rotatelogs.New(
		path+".%Y%m%d",
		rotatelogs.WithLinkName(path),
		rotatelogs.WithMaxAge(7*24*time.Hour),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithRotationSize(100*1024*1024),
	)
	if err != nil {
		return fmt.Errorf("logging: open log file %s: %w", path, err)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		l.SetOutput(logf)
		l.colorful = false
	}
	return nil
}

// SetOutput redirects every logger to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		l.SetOutput(w)
	}
}

// SetRunID tags every subsequent log line with id, useful for correlating
// one compress or clone invocation's lines in a shared log file.
func SetRunID(id string) {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		l.runID = id
	}
}

// DefaultLogDir returns the platform-appropriate default log directory.
func DefaultLogDir() string {
	defaultDir := "/var/log"
	switch runtime.GOOS {
	case "linux":
		if os.Getuid() == 0 {
			break
		}
		fallthrough
	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = defaultDir
		}
		defaultDir = path.Join(homeDir, ".bitasync")
	case "windows":
		homeDir, err := os.UserHomeDir()
		if err == nil {
			defaultDir = path.Join(homeDir, ".bitasync")
		}
	}
	return defaultDir
}
