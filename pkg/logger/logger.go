// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// Logger writes prefixed log lines to stdout and the shared log file.
type Logger struct {
	prefix string
	out    *log.Logger
}

var (
	shared       *log.Logger
	logFile      *os.File
	once         sync.Once
	debugEnabled bool
	debugMu      sync.RWMutex
)

// Init opens the shared log file and wires up stdout mirroring.
// DEBUG env var enables debug output at startup.
func Init(logPath string) error {
	var err error
	once.Do(func() {
		logFile, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return
		}
		shared = log.New(io.MultiWriter(os.Stdout, logFile), "", log.LstdFlags)
		if os.Getenv("DEBUG") != "" {
			debugEnabled = true
		}
	})
	return err
}

// Close closes the log file (call on shutdown).
func Close() {
	if logFile != nil {
		logFile.Close()
	}
}

func EnableDebug(on bool) {
	debugMu.Lock()
	debugEnabled = on
	debugMu.Unlock()
}

func IsDebug() bool {
	debugMu.RLock()
	defer debugMu.RUnlock()
	return debugEnabled
}

func New(prefix string) *Logger {
	Init("default.log")
	return &Logger{
		prefix: prefix,
		out:    log.New(shared.Writer(), "", log.LstdFlags),
	}
}

// Writer exposes the shared output for libraries that want an
// io.Writer (request logging middleware and the like).
func Writer() io.Writer {
	Init("default.log")
	return shared.Writer()
}

func (l *Logger) Info(fmtstr string, v ...any) {
	l.out.Printf("[%s] INFO: %s", l.prefix, fmt.Sprintf(fmtstr, v...))
}

func (l *Logger) Error(fmtstr string, v ...any) {
	formatted := fmt.Sprintf(fmtstr, v...)
	if _, file, line, ok := runtime.Caller(1); ok {
		l.out.Printf("[%s] ERROR: (%s:%d) %s", l.prefix, filepath.Base(file), line, formatted)
	} else {
		l.out.Printf("[%s] ERROR: %s", l.prefix, formatted)
	}
}

func (l *Logger) Fatal(fmtstr string, v ...any) {
	formatted := fmt.Sprintf(fmtstr, v...)
	if _, file, line, ok := runtime.Caller(1); ok {
		l.out.Printf("[%s] FATAL: (%s:%d) %s", l.prefix, filepath.Base(file), line, formatted)
	} else {
		l.out.Printf("[%s] FATAL: %s", l.prefix, formatted)
	}
	panic(formatted)
}

func (l *Logger) Debug(fmtstr string, v ...any) {
	if !IsDebug() {
		return
	}
	l.out.Printf("[%s] DEBUG: %s", l.prefix, fmt.Sprintf(fmtstr, v...))
}
