/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2024-6 by the Jacobin Authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)  Consult jacobin.org.
 */

// Package trace is the VM-wide logging facade. It supersedes the older
// jacobin/log package; all code calls Trace/Info/Warning/Error directly.
package trace

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level controls which calls actually produce output.
type Level int

const (
	FINEST Level = iota
	FINE
	TRACE_INST
	INFO
	WARNING
	SEVERE
	ERROR
)

var (
	mu     sync.Mutex
	level  = INFO
	writer io.Writer = os.Stderr
)

// Init resets the tracer to its default level and writer. Tests call this
// to get a clean slate between cases, matching the teacher's log.Init().
func Init() {
	mu.Lock()
	defer mu.Unlock()
	level = INFO
	writer = os.Stderr
}

// SetLevel changes the minimum level that will be emitted.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// SetWriter redirects trace output; used by tests that capture stderr.
func SetWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	writer = w
}

func emit(l Level, prefix, msg string) {
	mu.Lock()
	defer mu.Unlock()
	if l < level {
		return
	}
	ts := time.Now().Format("15:04:05.000")
	fmt.Fprintf(writer, "[%s] %s %s\n", ts, prefix, msg)
}

// Trace logs at FINE granularity -- routine VM bookkeeping.
func Trace(msg string) { emit(FINE, "TRACE", msg) }

// Info logs user-facing informational messages.
func Info(msg string) { emit(INFO, "INFO", msg) }

// Warning logs recoverable anomalies.
func Warning(msg string) { emit(WARNING, "WARNING", msg) }

// Error logs failures; callers typically also return an error value.
func Error(msg string) { emit(SEVERE, "ERROR", msg) }
