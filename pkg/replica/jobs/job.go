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

// Package jobs implements the orchestration job framework of spec §4.8 and
// the replica-placement algorithms of spec §4.9 that run atop it: FindAll,
// Replicate, Purge, Rebalance, FixUp, MoveReplica, AbortTransaction.
package jobs

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/provingground-moe/qserv-sub001/pkg/qerrors"
)

// State is the job-framework state machine of spec §4.8.
type State int

// Job states.
const (
	Created State = iota
	InProgress
	Finished
)

func (s State) String() string {
	switch s {
	case Created:
		return "CREATED"
	case InProgress:
		return "IN_PROGRESS"
	case Finished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// ExtState is the extended (outcome) state, only meaningful once Finished.
type ExtState int

// Job extended states.
const (
	ExtNone ExtState = iota
	ExtSuccess
	ExtFailed
	ExtCancelled
)

func (s ExtState) String() string {
	switch s {
	case ExtNone:
		return "NONE"
	case ExtSuccess:
		return "SUCCESS"
	case ExtFailed:
		return "FAILED"
	case ExtCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// RunFunc is the job body; it must observe ctx.Done() for cancellation and
// return the replica data to be published via GetReplicaData.
type RunFunc func(ctx context.Context) (interface{}, error)

// Job is a single orchestration job: a state machine driven by Start,
// observed via Track, and cancellable via Cancel (spec §4.8: "start(),
// cancel(), track(progress,error,os) (blocking observation),
// getReplicaData() (only valid in FINISHED)").
type Job struct {
	ID   string
	Type string

	run      RunFunc
	onFinish func(*Job)

	mu       sync.Mutex
	cond     *sync.Cond
	state    State
	ext      ExtState
	progress int
	err      error
	result   interface{}
	done     bool

	cancel context.CancelFunc
}

// New constructs a Job in state CREATED. onFinish, if non-nil, is invoked
// exactly once when the job reaches FINISHED.
func New(jobType string, run RunFunc, onFinish func(*Job)) *Job {
	j := &Job{ID: uuid.NewString(), Type: jobType, run: run, onFinish: onFinish}
	j.cond = sync.NewCond(&j.mu)
	return j
}

// Start transitions CREATED -> IN_PROGRESS and runs the job body in a new
// goroutine. Calling Start more than once is a no-op.
func (j *Job) Start(ctx context.Context) {
	j.mu.Lock()
	if j.state != Created {
		j.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.state = InProgress
	j.mu.Unlock()
	j.cond.Broadcast()

	go func() {
		result, err := j.run(runCtx)
		j.finish(result, err, runCtx.Err() != nil)
	}()
}

// Cancel requests cooperative cancellation; the job still finishes
// asynchronously through its run body observing ctx.Done().
func (j *Job) Cancel() {
	j.mu.Lock()
	cancel := j.cancel
	j.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (j *Job) finish(result interface{}, err error, cancelled bool) {
	j.mu.Lock()
	if j.state == Finished {
		j.mu.Unlock()
		return
	}
	j.state = Finished
	j.result = result
	j.err = err
	switch {
	case cancelled:
		j.ext = ExtCancelled
	case err != nil:
		j.ext = ExtFailed
	default:
		j.ext = ExtSuccess
	}
	j.mu.Unlock()
	if j.onFinish != nil {
		j.onFinish(j)
	}
	j.mu.Lock()
	j.done = true
	j.mu.Unlock()
	j.cond.Broadcast()
}

// SetProgress updates the progress counter observable through Track; run
// bodies call this to report incremental work.
func (j *Job) SetProgress(p int) {
	j.mu.Lock()
	j.progress = p
	j.mu.Unlock()
	j.cond.Broadcast()
}

// Track blocks until the job reaches FINISHED and its onFinish callback, if
// any, has returned, and returns its final progress, error and extended
// state (spec §4.8: "track(progress,error,os) (blocking observation)").
func (j *Job) Track() (progress int, err error, ext ExtState) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for !j.done {
		j.cond.Wait()
	}
	return j.progress, j.err, j.ext
}

// State returns the current state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// ExtState returns the current extended state.
func (j *Job) ExtState() ExtState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.ext
}

// GetReplicaData returns the job's result, valid only once FINISHED (spec
// §4.8).
func (j *Job) GetReplicaData() (interface{}, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != Finished {
		return nil, qerrors.New(qerrors.KindQueryProcessingBug, "getReplicaData called before job finished")
	}
	return j.result, nil
}
