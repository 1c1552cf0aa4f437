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
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// JoinResult is the aggregate state Executive.Join reports once every
// registered job has reached a terminal state (spec §4.5).
type JoinResult int

// The Join outcomes.
const (
	JoinSuccess JoinResult = iota
	JoinPartial
	JoinError
)

// runCommand is the priority-pool Command an Executive enqueues per job:
// it runs the job's dispatcher and reports back through the Executive.
type runCommand struct {
	pri     int
	jobID   int64
	dispatch func(*JobQuery)
	job     *JobQuery
}

// Priority implements dispatch.Command.
func (c *runCommand) Priority() int { return c.pri }

// Executive owns the live {jobId -> JobQuery} map, a message store for
// user-visible diagnostics, and a reference to the priority pool (spec
// §4.5). Dispatching the command the pool hands back is the caller's
// responsibility via RunNext; Executive itself only decides what
// to enqueue and how to react to terminal states.
type Executive struct {
	pool    *PriorityPool
	limiter *rate.Limiter

	mu       sync.Mutex
	jobs     map[int64]*JobQuery
	messages []string
	added    int
	failed   int

	done chan struct{}
	wg   sync.WaitGroup
}

// NewExecutive constructs an Executive bound to pool, with no outbound rate
// cap.
func NewExecutive(pool *PriorityPool) *Executive {
	return &Executive{pool: pool, jobs: make(map[int64]*JobQuery), done: make(chan struct{})}
}

// NewThrottledExecutive is NewExecutive with an outbound dispatch rate cap:
// no more than requestsPerSecond (with the given burst) run commands leave
// RunNext per second. This is the knob spec §3's general.requestBufferSizeBytes
// and .retryTimeoutSec gesture at without naming a mechanism — a czar with
// thousands of ready chunk jobs should not burst every worker open at once.
func NewThrottledExecutive(pool *PriorityPool, requestsPerSecond float64, burst int) *Executive {
	e := NewExecutive(pool)
	e.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	return e
}

// Add constructs a JobQuery from desc, registers it, and enqueues a "run"
// command on the priority pool at the given dispatch priority (spec §4.5:
// "add(JobDescription) — constructs a JobQuery, registers it, enqueues a
// run command on the priority pool."). dispatch is invoked by whatever
// goroutine pulls the command off the pool (typically a worker pool
// draining Dequeue); it should issue the request over the transport and
// eventually call Executive.MarkComplete.
func (e *Executive) Add(desc JobDescription, priority int, dispatch func(*JobQuery)) *JobQuery {
	job := NewJobQuery(desc, e.onJobTerminal)
	e.mu.Lock()
	e.jobs[desc.ID] = job
	e.added++
	e.mu.Unlock()
	e.wg.Add(1)
	e.pool.Enqueue(&runCommand{pri: priority, jobID: desc.ID, dispatch: dispatch, job: job})
	return job
}

// RunNext dequeues and executes one pending run command, for callers
// driving their own worker loop against the pool (wait controls whether to
// block when the pool is currently empty).
func (e *Executive) RunNext(wait bool) bool {
	cmd, ok := e.pool.Dequeue(wait)
	if !ok {
		return false
	}
	if e.limiter != nil {
		_ = e.limiter.Wait(context.Background())
	}
	rc := cmd.(*runCommand)
	e.pool.CommandStart(cmd)
	defer e.pool.CommandFinish(cmd)
	rc.dispatch(rc.job)
	return true
}

// onJobTerminal is the JobQuery completion callback: it records the
// message-store entry, decrements the join waitgroup, and leaves job
// removal to MarkComplete so a job stays visible to Get until its rows (or
// absence of them) have been accounted for by the merger.
func (e *Executive) onJobTerminal(id int64, success bool) {
	e.mu.Lock()
	if !success {
		e.messages = append(e.messages, jobFailureMessage(id))
		e.failed++
	}
	e.mu.Unlock()
	e.wg.Done()
}

func jobFailureMessage(id int64) string {
	return "job " + itoa(id) + " failed"
}

// MarkComplete is invoked by a job's response handler once the merger has
// accepted (or permanently rejected) its rows; it removes the job from the
// live map (spec §4.5: "markComplete(jobId, success) — ... removes the job
// after the merger has accepted its rows.").
func (e *Executive) MarkComplete(jobID int64, success bool) {
	e.mu.Lock()
	job, ok := e.jobs[jobID]
	if ok {
		delete(e.jobs, jobID)
	}
	e.mu.Unlock()
	if !ok {
		return
	}
	if success {
		job.Complete()
	} else {
		job.Terminate()
	}
}

// Join blocks until every registered job reaches a terminal state and
// returns an aggregate outcome (spec §4.5, §8: "For an Executive with N
// added jobs and no cancellations: join() returns only after N
// markComplete calls have been observed.").
func (e *Executive) Join() JoinResult {
	e.wg.Wait()
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.failed == 0:
		return JoinSuccess
	case e.failed == e.added:
		return JoinError
	default:
		return JoinPartial
	}
}

// Kill cancels every live job and releases transport resources; idempotent
// (spec §4.5). Each live job is removed from the map and reported as
// failed, so Join returns after Kill without waiting for MarkComplete.
func (e *Executive) Kill() {
	e.mu.Lock()
	jobs := make([]*JobQuery, 0, len(e.jobs))
	for id, j := range e.jobs {
		jobs = append(jobs, j)
		delete(e.jobs, id)
	}
	e.mu.Unlock()
	for _, j := range jobs {
		j.Cancel()
		j.Terminate()
	}
	e.pool.PrepareShutdown()
}

// Messages returns a snapshot of the user-visible diagnostic messages
// accumulated so far.
func (e *Executive) Messages() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.messages))
	copy(out, e.messages)
	return out
}

// Get returns the live JobQuery for id, if still registered.
func (e *Executive) Get(id int64) (*JobQuery, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	j, ok := e.jobs[id]
	return j, ok
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
