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

package dispatch

import (
	"sync"
	"sync/atomic"

	"github.com/provingground-moe/qserv-sub001/pkg/qerrors"
)

// MaxRetries bounds the attempt counter a JobQuery will accept before
// transitioning to TerminalFailed rather than retrying (spec §3: "attempt
// counter (<= MAX_RETRIES = 5)").
const MaxRetries = 5

// JobState is the JobQuery state machine of spec §4.4: NEW -> IN_FLIGHT ->
// {RESPONSE_READY, FAILED, CANCELLED}, with FAILED looping back to
// IN_FLIGHT on retry or falling to TerminalFailed once attempts are
// exhausted, and RESPONSE_READY advancing to Complete once the merge
// accepts the job's rows.
type JobState int

// The JobQuery states.
const (
	StateNew JobState = iota
	StateInFlight
	StateResponseReady
	StateFailed
	StateCancelled
	StateTerminalFailed
	StateComplete
)

func (s JobState) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateInFlight:
		return "IN_FLIGHT"
	case StateResponseReady:
		return "RESPONSE_READY"
	case StateFailed:
		return "FAILED"
	case StateCancelled:
		return "CANCELLED"
	case StateTerminalFailed:
		return "TERMINAL_FAILED"
	case StateComplete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// JobDescription is immutable after construction (spec §3: "{id, worker
// hint, payload, response handler}").
type JobDescription struct {
	ID              int64
	WorkerHint      string
	Payload         []byte
	ResponseHandler func(resp []byte, err error)
}

// RequestHandle is the transport-level handle a JobQuery's in-flight
// request is tracked by; Cancel requests the transport cancel it.
type RequestHandle interface {
	Cancel()
}

// JobQuery owns a JobDescription, its shared status, a mark-complete
// callback, the current request handle, an attempt counter and an atomic
// cancel flag (spec §3). It is shared by the Executive and its in-flight
// request; the request holds a non-owning back-reference.
type JobQuery struct {
	Description JobDescription

	mu       sync.Mutex
	state    JobState
	request  RequestHandle
	attempts int

	cancelled int32 // atomic

	onComplete func(id int64, success bool)
}

// NewJobQuery constructs a JobQuery in state NEW.
func NewJobQuery(desc JobDescription, onComplete func(id int64, success bool)) *JobQuery {
	return &JobQuery{Description: desc, state: StateNew, onComplete: onComplete}
}

// State returns the current state under the job's status mutex.
func (j *JobQuery) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Attempts returns the number of dispatch attempts made so far.
func (j *JobQuery) Attempts() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.attempts
}

// IsCancelled reports the atomic cancel flag.
func (j *JobQuery) IsCancelled() bool {
	return atomic.LoadInt32(&j.cancelled) != 0
}

// RunJob transitions NEW/FAILED -> IN_FLIGHT and attaches req as the
// current request handle. It is idempotent on cancelled jobs: returns
// false without side effects (spec §4.4: "runJob() is idempotent on
// cancelled jobs").
func (j *JobQuery) RunJob(req RequestHandle) bool {
	if j.IsCancelled() {
		return false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != StateNew && j.state != StateFailed {
		return false
	}
	j.attempts++
	j.state = StateInFlight
	j.request = req
	return true
}

// Cancel is idempotent: it sets the atomic cancel flag and, if a request
// is in flight, requests its cancellation through the transport (spec
// §4.4). Calling it more than once, or after the job has already reached a
// terminal state, has no further effect.
func (j *JobQuery) Cancel() {
	if !atomic.CompareAndSwapInt32(&j.cancelled, 0, 1) {
		return
	}
	j.mu.Lock()
	req := j.request
	if j.state == StateInFlight {
		j.state = StateCancelled
	}
	j.mu.Unlock()
	if req != nil {
		req.Cancel()
	}
}

// ResponseReady transitions IN_FLIGHT -> RESPONSE_READY. Returns false if
// the job was not in flight (e.g. already cancelled).
func (j *JobQuery) ResponseReady() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != StateInFlight {
		return false
	}
	j.state = StateResponseReady
	return true
}

// Fail transitions IN_FLIGHT -> FAILED on a retryable error, or directly to
// TERMINAL_FAILED when err is non-retryable, attempts are exhausted, or
// the job has been cancelled (spec §4.4: "From FAILED, if attempts <
// MAX_RETRIES and not cancelled, transition back to IN_FLIGHT on reissue;
// otherwise TERMINAL_FAILED. ... Retry eligibility: transport/worker
// errors are retryable; parse/plan errors and SERVER_BAD are terminal.").
func (j *JobQuery) Fail(err error) JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != StateInFlight {
		return j.state
	}
	if j.IsCancelled() || !qerrors.IsRetryable(err) || j.attempts >= MaxRetries {
		j.state = StateTerminalFailed
	} else {
		j.state = StateFailed
	}
	return j.state
}

// Reissue transitions FAILED -> IN_FLIGHT for a retry attempt, attaching
// the new request handle. Returns false if the job is not in FAILED, or
// has since been cancelled or exhausted its retry budget.
func (j *JobQuery) Reissue(req RequestHandle) bool {
	if j.IsCancelled() {
		return false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != StateFailed || j.attempts >= MaxRetries {
		return false
	}
	j.attempts++
	j.state = StateInFlight
	j.request = req
	return true
}

// Complete transitions RESPONSE_READY -> COMPLETE once the merge has
// accepted the job's rows, and invokes the mark-complete callback exactly
// once with success=true.
func (j *JobQuery) Complete() {
	j.mu.Lock()
	if j.state != StateResponseReady {
		j.mu.Unlock()
		return
	}
	j.state = StateComplete
	j.mu.Unlock()
	if j.onComplete != nil {
		j.onComplete(j.Description.ID, true)
	}
}

// Terminate invokes the mark-complete callback with success=false exactly
// once, for a job that reached TERMINAL_FAILED or CANCELLED.
func (j *JobQuery) Terminate() {
	if j.onComplete != nil {
		j.onComplete(j.Description.ID, false)
	}
}

// IsTerminal reports whether state is one the Executive's join() treats as
// final.
func (s JobState) IsTerminal() bool {
	switch s {
	case StateComplete, StateTerminalFailed, StateCancelled:
		return true
	default:
		return false
	}
}
