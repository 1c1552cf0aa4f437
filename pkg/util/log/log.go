// Copyright 2016 The Cockroach Authors.
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

// Package log provides the leveled, context-tagged logging facility used
// throughout the czar and replication controller. It does not attempt to
// reproduce the teacher's on-disk rotation/GC machinery: that subsystem sits
// behind the "logging" external collaborator spec.md carves out of scope, so
// only the call-site surface (severities, AmbientContext, Vf-style verbosity)
// is kept.
package log

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

// Severity mirrors the teacher's Severity enum.
type Severity int32

// Severity levels, ascending.
const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "I"
	case SeverityWarning:
		return "W"
	case SeverityError:
		return "E"
	case SeverityFatal:
		return "F"
	default:
		return "?"
	}
}

// verbosity is the global V-level; VEventf calls whose level is above it
// are dropped. Set via SetVerbosity, analogous to the teacher's --vmodule.
var verbosity int32

// SetVerbosity sets the global V-level threshold.
func SetVerbosity(v int32) { atomic.StoreInt32(&verbosity, v) }

func output(ctx context.Context, sev Severity, depth int, format string, args ...interface{}) {
	msg := MakeMessage(ctx, format, args)
	now := time.Now().Format("2006/01/02 15:04:05.000000")
	fmt.Fprintf(os.Stderr, "%s%s %s\n", sev.String(), now, msg)
}

// Infof logs at the INFO severity.
func Infof(ctx context.Context, format string, args ...interface{}) {
	output(ctx, SeverityInfo, 1, format, args...)
}

// Warningf logs at the WARNING severity.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	output(ctx, SeverityWarning, 1, format, args...)
}

// Errorf logs at the ERROR severity.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	output(ctx, SeverityError, 1, format, args...)
}

// Fatalf logs at the FATAL severity and terminates the process. Reserved for
// invariant violations that make further progress unsafe (QueryProcessingBug
// in its fatal-to-process extreme, never used for recoverable request/job
// errors).
func Fatalf(ctx context.Context, format string, args ...interface{}) {
	output(ctx, SeverityFatal, 1, format, args...)
	os.Exit(1)
}

// VEventf logs at INFO only if the current verbosity is >= level.
func VEventf(ctx context.Context, level int32, format string, args ...interface{}) {
	if atomic.LoadInt32(&verbosity) < level {
		return
	}
	output(ctx, SeverityInfo, 1, format, args...)
}

// Event is a zero-argument convenience wrapper, matching the teacher's
// tracing-oriented Event() used for single-word breadcrumbs.
func Event(ctx context.Context, msg string) {
	output(ctx, SeverityInfo, 1, "%s", msg)
}
