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

package transport

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/provingground-moe/qserv-sub001/pkg/qerrors"
)

// WorkerConn is what a Messenger dials to reach a single worker. A QUEUED
// payload either comes back SUCCESS/FAILED/BAD immediately, or QUEUED/
// IN_PROGRESS, in which case a keepTracking Request re-polls Status until a
// terminal status is observed (spec §4.11).
type WorkerConn interface {
	Send(ctx context.Context, worker string, payload QueuedPayload) (Response, error)
	Status(ctx context.Context, worker, requestID string) (Response, error)
}

// pollInterval is the delay between successive STATUS polls while a
// keepTracking request sits in a non-terminal state.
const pollInterval = 200 * time.Millisecond

// Request is one correlated, asynchronous request to a worker, optionally
// re-armed against a STATUS query until a terminal Response arrives.
type Request struct {
	ID      string
	Worker  string
	Payload QueuedPayload

	keepTracking   bool
	allowDuplicate bool

	mu       sync.Mutex
	cond     *sync.Cond
	response Response
	err      error
	done     bool
}

// NewRequest constructs a Request with a fresh correlation ID.
func NewRequest(worker string, payload QueuedPayload, keepTracking, allowDuplicate bool) *Request {
	id := uuid.NewString()
	payload.RequestID = id
	r := &Request{
		ID:             id,
		Worker:         worker,
		Payload:        payload,
		keepTracking:   keepTracking,
		allowDuplicate: allowDuplicate,
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// run sends the request over conn and, while keepTracking is set and the
// response is non-terminal, re-polls Status at pollInterval until either a
// terminal status arrives or ctx is cancelled. Messenger.Submit calls it
// synchronously, inside the worker's circuit breaker.
func (r *Request) run(ctx context.Context, conn WorkerConn) {
	resp, err := conn.Send(ctx, r.Worker, r.Payload)
	if err != nil {
		r.finish(Response{}, qerrors.Wrap(qerrors.KindTransportError, errors.Wrap(err, "sending request to worker")))
		return
	}

	for !resp.Status.IsTerminal() || (resp.AllowDuplicate && r.allowDuplicate) {
		if resp.AllowDuplicate && r.allowDuplicate {
			// The worker recognized requestID as one it already holds an
			// outcome for; that response isn't authoritative on its own,
			// so switch to tracking mode and poll Status instead of
			// finishing on it (spec §4.11).
			r.keepTracking = true
		}
		if r.keepTracking {
			r.setTracking(resp)
		}
		select {
		case <-ctx.Done():
			r.finish(resp, qerrors.Wrap(qerrors.KindTransportError, errors.Wrap(ctx.Err(), "tracking cancelled")))
			return
		case <-time.After(pollInterval):
		}
		if !r.keepTracking {
			r.finish(resp, nil)
			return
		}
		resp, err = conn.Status(ctx, r.Worker, r.ID)
		if err != nil {
			r.finish(resp, qerrors.Wrap(qerrors.KindTransportError, errors.Wrap(err, "polling request status")))
			return
		}
	}
	r.finish(resp, nil)
}

func (r *Request) setTracking(resp Response) {
	r.mu.Lock()
	r.response = resp
	r.mu.Unlock()
}

func (r *Request) finish(resp Response, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return
	}
	r.response = resp
	r.err = err
	r.done = true
	r.cond.Broadcast()
}

// Wait blocks until the request reaches a terminal outcome (a terminal
// Response, a transport error, or ctx cancellation) and returns it.
func (r *Request) Wait(ctx context.Context) (Response, error) {
	done := make(chan struct{})
	go func() {
		r.mu.Lock()
		for !r.done {
			r.cond.Wait()
		}
		r.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.response, r.err
	case <-ctx.Done():
		return Response{}, qerrors.Wrap(qerrors.KindTransportError, errors.Wrap(ctx.Err(), "waiting for request"))
	}
}

// Snapshot returns the most recently observed Response without blocking,
// for a caller polling progress (e.g. a Job's track callback).
func (r *Request) Snapshot() (Response, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.response, r.done
}
