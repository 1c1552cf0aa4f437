// Copyright 2017 The Cockroach Authors.
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

// Package qerrors collects the terminal error kinds of spec §7 in one place
// so that retry-eligibility (JobQuery, §4.4) and user-visible reporting
// (Executive's message store, QuerySession.getError) can classify any error
// raised by any subsystem without importing that subsystem.
package qerrors

import (
	"github.com/cockroachdb/errors"
)

// Kind tags a terminal error with the taxonomy of spec §7.
type Kind int

// The terminal error kinds.
const (
	KindUnknown Kind = iota
	KindParseError
	KindAnalysisError
	KindNoSuchDb
	KindNoSuchTable
	KindQueryProcessingBug
	KindTransportError
	KindServerBad
	KindServerCancelled
	KindServerError
	KindDuplicateKey
	KindDatabaseError
	KindMaxReconnectsExceeded
	KindConnectTimeout
)

func (k Kind) String() string {
	switch k {
	case KindParseError:
		return "ParseError"
	case KindAnalysisError:
		return "AnalysisError"
	case KindNoSuchDb:
		return "NoSuchDb"
	case KindNoSuchTable:
		return "NoSuchTable"
	case KindQueryProcessingBug:
		return "QueryProcessingBug"
	case KindTransportError:
		return "TransportError"
	case KindServerBad:
		return "ServerBad"
	case KindServerCancelled:
		return "ServerCancelled"
	case KindServerError:
		return "ServerError"
	case KindDuplicateKey:
		return "DuplicateKey"
	case KindDatabaseError:
		return "DatabaseError"
	case KindMaxReconnectsExceeded:
		return "MaxReconnectsExceeded"
	case KindConnectTimeout:
		return "ConnectTimeout"
	default:
		return "Unknown"
	}
}

// Retryable kinds are eligible for JobQuery's retry-on-FAILED transition
// (§4.4): transport/worker errors. Parse/plan errors and SERVER_BAD are
// terminal on first occurrence.
func (k Kind) Retryable() bool {
	switch k {
	case KindTransportError, KindServerError, KindMaxReconnectsExceeded, KindConnectTimeout:
		return true
	default:
		return false
	}
}

// qerror is the concrete error type carrying a Kind alongside the wrapped
// cause.
type qerror struct {
	kind  Kind
	cause error
}

func (e *qerror) Error() string {
	if e.cause == nil {
		return e.kind.String()
	}
	return e.kind.String() + ": " + e.cause.Error()
}

func (e *qerror) Unwrap() error { return e.cause }

// New constructs a terminal error of the given kind wrapping msg.
func New(kind Kind, msg string) error {
	return &qerror{kind: kind, cause: errors.New(msg)}
}

// Newf constructs a terminal error of the given kind with a formatted
// message.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &qerror{kind: kind, cause: errors.Newf(format, args...)}
}

// Wrap tags an existing error with a Kind, preserving it as the cause for
// errors.Is/As and Unwrap chains.
func Wrap(kind Kind, cause error) error {
	if cause == nil {
		return nil
	}
	return &qerror{kind: kind, cause: cause}
}

// KindOf returns the Kind tagged on err (or any error it wraps), and
// whether one was found.
func KindOf(err error) (Kind, bool) {
	var q *qerror
	if errors.As(err, &q) {
		return q.kind, true
	}
	return KindUnknown, false
}

// Is reports whether err is tagged with kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsRetryable reports whether err should drive a JobQuery retry rather than
// an immediate terminal failure. Untagged errors are treated as
// non-retryable (conservative default for programmer errors).
func IsRetryable(err error) bool {
	k, ok := KindOf(err)
	return ok && k.Retryable()
}
