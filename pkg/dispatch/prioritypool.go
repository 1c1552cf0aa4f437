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

// Package dispatch implements the job dispatch and execution core (spec
// §4.4-§4.6): the priority command pool that multiplexes worker-bound work
// across priority classes, the JobQuery state machine, and the Executive
// that owns the live job map and drives jobs to completion.
package dispatch

import (
	"sort"
	"sync"
)

// Command is one unit of work the priority pool schedules. Priority
// identifies the class it belongs to; a class with no registered floor
// falls back to the pool's default class.
type Command interface {
	Priority() int
}

// CommandFunc adapts a plain function to Command at a fixed priority.
type CommandFunc struct {
	Fn  func()
	Pri int
}

// Priority implements Command.
func (c *CommandFunc) Priority() int { return c.Pri }

type class struct {
	priority   int
	queue      []Command
	running    int
	minRunning int
}

// PriorityPool multiplexes work across N priority classes (spec §4.6).
// Each class maintains a FIFO queue, a running counter, and a minRunning
// floor; dequeue prefers classes below their floor before falling back to
// a plain highest-priority scan.
type PriorityPool struct {
	mu           sync.Mutex
	cond         *sync.Cond
	classes      map[int]*class
	order        []int // priorities, descending
	defaultPri   int
	shuttingDown bool
}

// NewPriorityPool constructs a pool with one class per entry in
// minRunning (priority -> floor). defaultPriority names the class that
// absorbs enqueue calls whose requested priority has no registered class.
func NewPriorityPool(minRunning map[int]int, defaultPriority int) *PriorityPool {
	p := &PriorityPool{classes: make(map[int]*class, len(minRunning)), defaultPri: defaultPriority}
	p.cond = sync.NewCond(&p.mu)
	for pri, floor := range minRunning {
		p.classes[pri] = &class{priority: pri, minRunning: floor}
	}
	if _, ok := p.classes[defaultPriority]; !ok {
		p.classes[defaultPriority] = &class{priority: defaultPriority}
	}
	for pri := range p.classes {
		p.order = append(p.order, pri)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(p.order)))
	return p
}

// Enqueue places cmd on the queue matching cmd.Priority(), falling back to
// the default class when absent, and wakes every dequeue(wait=true) waiter
// (spec §4.6: "enqueue(cmd, priority): place on the queue matching
// priority; if absent, place on the default queue. Signal the pool's
// condition.").
func (p *PriorityPool) Enqueue(cmd Command) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.classes[cmd.Priority()]
	if !ok {
		c = p.classes[p.defaultPri]
	}
	c.queue = append(c.queue, cmd)
	p.cond.Broadcast()
}

// Dequeue implements spec §4.6's three-step algorithm: a priority-floor
// scan when not shutting down, a plain highest-priority scan as fallback
// (or as the only scan once shutting down), and an optional condition wait
// when neither scan finds work.
func (p *PriorityPool) Dequeue(wait bool) (Command, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if !p.shuttingDown {
			if cmd, ok := p.scanUnderFloor(); ok {
				return cmd, true
			}
		}
		if cmd, ok := p.scanAny(); ok {
			return cmd, true
		}
		if !wait {
			return nil, false
		}
		p.cond.Wait()
	}
}

// scanUnderFloor returns the first command, in descending priority order,
// whose class is below its minRunning floor.
func (p *PriorityPool) scanUnderFloor() (Command, bool) {
	for _, pri := range p.order {
		c := p.classes[pri]
		if len(c.queue) > 0 && c.running < c.minRunning {
			return p.pop(c), true
		}
	}
	return nil, false
}

// scanAny returns the first non-empty queue's head, in descending
// priority order, ignoring minRunning floors entirely.
func (p *PriorityPool) scanAny() (Command, bool) {
	for _, pri := range p.order {
		c := p.classes[pri]
		if len(c.queue) > 0 {
			return p.pop(c), true
		}
	}
	return nil, false
}

func (p *PriorityPool) pop(c *class) Command {
	cmd := c.queue[0]
	c.queue = c.queue[1:]
	return cmd
}

// CommandStart increments cmd's class's running counter. Call after a
// successful Dequeue, immediately before executing cmd.
func (p *PriorityPool) CommandStart(cmd Command) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.classes[cmd.Priority()]
	if !ok {
		c = p.classes[p.defaultPri]
	}
	c.running++
}

// CommandFinish decrements cmd's class's running counter and wakes any
// dequeue(wait=true) waiter, since the class may now be back under its
// floor.
func (p *PriorityPool) CommandFinish(cmd Command) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.classes[cmd.Priority()]
	if !ok {
		c = p.classes[p.defaultPri]
	}
	if c.running > 0 {
		c.running--
	}
	p.cond.Broadcast()
}

// PrepareShutdown switches the pool into a mode that ignores minRunning
// floors, ensuring no class can prevent drain (spec §4.6), and wakes every
// waiter so blocked dequeue(wait=true) calls re-scan under the new mode.
func (p *PriorityPool) PrepareShutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shuttingDown = true
	p.cond.Broadcast()
}

// Stats reports the total running count and total queued count across all
// classes, for the invariant check in spec §8 (∑ running + ∑ queue.size is
// constant across dequeue-then-start).
func (p *PriorityPool) Stats() (running, queued int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.classes {
		running += c.running
		queued += len(c.queue)
	}
	return running, queued
}
