// Copyright (C) 2020 Markus L. Noga
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

// Package logging writes progress messages to stdout, and optionally also to a rotating log file.
// Does not add prefixes, or force newlines
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/natefinch/lumberjack"
)

var (
	mu      sync.Mutex
	stdout  io.Writer = os.Stdout
	logFile *lumberjack.Logger // the optional additional file to log into
)

// Enables logging to a file, rotated once it exceeds maxSizeMB.
// Old files are removed after maxAgeDays, or beyond maxBackups copies
func LogAlsoToFile(fileName string, maxSizeMB, maxAgeDays, maxBackups int) error {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		if err := logFile.Close(); err != nil {
			return err
		}
	}
	logFile = &lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    maxSizeMB,
		MaxAge:     maxAgeDays,
		MaxBackups: maxBackups,
	}
	return nil
}

// Redirects console output, e.g. for tests. Returns the previous writer
func SetConsole(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := stdout
	stdout = w
	return prev
}

type teeWriter struct{}

// Writes to the console, and to the log file if enabled
func (teeWriter) Write(p []byte) (n int, err error) {
	mu.Lock()
	defer mu.Unlock()
	n, err = stdout.Write(p)
	if err != nil || logFile == nil {
		return n, err
	}
	return logFile.Write(p)
}

// Writer for operator contexts and other components taking an io.Writer
func Writer() io.Writer {
	return teeWriter{}
}

func LogPrint(args ...interface{}) (n int, err error) {
	return fmt.Fprint(Writer(), args...)
}

func LogPrintln(args ...interface{}) (n int, err error) {
	return fmt.Fprintln(Writer(), args...)
}

func LogPrintf(format string, args ...interface{}) (n int, err error) {
	return fmt.Fprintf(Writer(), format, args...)
}

func LogFatal(args ...interface{}) {
	fmt.Fprintln(Writer(), args...)
	LogSync()
	os.Exit(1)
}

func LogFatalf(format string, args ...interface{}) {
	fmt.Fprintf(Writer(), format, args...)
	LogSync()
	os.Exit(1)
}

// Closes the log file, if any. Later writes reopen it
func LogSync() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
	}
}
