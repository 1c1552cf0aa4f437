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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPriorityPoolPrefersUnderFloorClass(t *testing.T) {
	pool := NewPriorityPool(map[int]int{2: 1, 1: 0}, 1)
	pool.Enqueue(&CommandFunc{Pri: 1})
	pool.Enqueue(&CommandFunc{Pri: 2})

	cmd, ok := pool.Dequeue(false)
	require.True(t, ok)
	require.Equal(t, 2, cmd.Priority())
}

func TestPriorityPoolFallsBackWhenNoFloorPending(t *testing.T) {
	pool := NewPriorityPool(map[int]int{2: 0, 1: 0}, 1)
	pool.Enqueue(&CommandFunc{Pri: 1})

	cmd, ok := pool.Dequeue(false)
	require.True(t, ok)
	require.Equal(t, 1, cmd.Priority())
}

func TestPriorityPoolEmptyNonWaitingReturnsFalse(t *testing.T) {
	pool := NewPriorityPool(map[int]int{1: 0}, 1)
	_, ok := pool.Dequeue(false)
	require.False(t, ok)
}

func TestPriorityPoolWaitWakesOnEnqueue(t *testing.T) {
	pool := NewPriorityPool(map[int]int{1: 0}, 1)
	done := make(chan Command, 1)
	go func() {
		cmd, _ := pool.Dequeue(true)
		done <- cmd
	}()
	time.Sleep(20 * time.Millisecond)
	pool.Enqueue(&CommandFunc{Pri: 1})

	select {
	case cmd := <-done:
		require.Equal(t, 1, cmd.Priority())
	case <-time.After(time.Second):
		t.Fatal("dequeue(wait=true) did not wake on enqueue")
	}
}

func TestPriorityPoolStartFinishConservesTotal(t *testing.T) {
	pool := NewPriorityPool(map[int]int{1: 0}, 1)
	pool.Enqueue(&CommandFunc{Pri: 1})
	pool.Enqueue(&CommandFunc{Pri: 1})

	_, queuedBefore := pool.Stats()
	require.Equal(t, 2, queuedBefore)

	cmd, ok := pool.Dequeue(false)
	require.True(t, ok)
	runningMid, queuedMid := pool.Stats()
	require.Equal(t, 0, runningMid)
	require.Equal(t, 1, queuedMid)

	pool.CommandStart(cmd)
	runningAfter, queuedAfter := pool.Stats()
	require.Equal(t, 1, runningAfter)
	require.Equal(t, 1, queuedAfter)
	require.Equal(t, queuedBefore, runningAfter+queuedAfter)

	pool.CommandFinish(cmd)
	runningFinal, _ := pool.Stats()
	require.Equal(t, 0, runningFinal)
}

func TestPriorityPoolShutdownIgnoresFloor(t *testing.T) {
	pool := NewPriorityPool(map[int]int{2: 0, 1: 5}, 1)
	pool.Enqueue(&CommandFunc{Pri: 1})
	pool.Enqueue(&CommandFunc{Pri: 2})
	pool.PrepareShutdown()

	// Without shutdown the under-floor class 1 would win; once shutting
	// down the plain highest-priority scan picks class 2.
	cmd, ok := pool.Dequeue(false)
	require.True(t, ok)
	require.Equal(t, 2, cmd.Priority())
}
