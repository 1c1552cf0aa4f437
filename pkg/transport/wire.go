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

// Package transport implements the per-chunk request wire to workers (spec
// §4.11, §6): a correlated async request/response protocol with tracking
// polling, wrapped in a per-worker circuit breaker.
package transport

import (
	"time"

	"github.com/provingground-moe/qserv-sub001/pkg/qerrors"
)

// HeaderKind distinguishes the three frame kinds on the wire (spec §6).
type HeaderKind int

// Header kinds.
const (
	HeaderQueued HeaderKind = iota
	HeaderRequest
	HeaderService
)

// RequestType is the type tag carried by QUEUED frames (spec §6).
type RequestType int

// Recognized request types.
const (
	RequestReplicaCreate RequestType = iota
	RequestReplicaDelete
	RequestReplicaFind
	RequestReplicaFindAll
	RequestTestEcho
	RequestSQL
)

// Status is the response status enum (spec §6).
type Status int

// Recognized statuses.
const (
	StatusSuccess Status = iota
	StatusQueued
	StatusInProgress
	StatusIsCancelling
	StatusBad
	StatusFailed
	StatusCancelled
)

// IsTerminal reports whether a response in this status requires no further
// tracking.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusQueued, StatusInProgress, StatusIsCancelling:
		return false
	default:
		return true
	}
}

// StatusKind maps a non-success worker response status to the qerrors.Kind
// that should represent it. StatusBad (parse/plan rejection at the worker)
// and StatusCancelled are terminal per spec §4.4/§4.11 and must not land on
// a Kind that Kind.Retryable reports true for; only StatusFailed and
// transport-level failures get the retryable kind.
func StatusKind(s Status) qerrors.Kind {
	switch s {
	case StatusBad:
		return qerrors.KindServerBad
	case StatusCancelled:
		return qerrors.KindServerCancelled
	default:
		return qerrors.KindServerError
	}
}

// PerformanceRecord is the {receive_time, start_time, finish_time}
// triple, in milliseconds since epoch, attached to every response (spec
// §6).
type PerformanceRecord struct {
	ReceiveTimeMillis int64
	StartTimeMillis   int64
	FinishTimeMillis  int64
}

// Header is the fixed wire preamble distinguishing QUEUED / REQUEST /
// SERVICE frames.
type Header struct {
	Kind HeaderKind
}

// QueuedPayload is the body of a QUEUED (work request) frame. RequestID is
// stamped by NewRequest before the frame ever reaches a WorkerConn, so a
// remote worker can key its tracked-outcome table off the same correlation
// id the client polls STATUS with.
type QueuedPayload struct {
	RequestID string
	Priority  int
	Database  string
	Chunk     int32
	Type      RequestType
	Body      []byte
}

// Response is the message a worker sends back for a request, correlated by
// RequestID.
type Response struct {
	RequestID      string
	Status         Status
	ExtStatus      int
	Performance    PerformanceRecord
	Payload        []byte
	AllowDuplicate bool
}

// millisSince converts t to milliseconds since the epoch, the unit of the
// PerformanceRecord fields.
func millisSince(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}
