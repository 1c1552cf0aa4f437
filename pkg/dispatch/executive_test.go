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

	"github.com/stretchr/testify/require"
)

func newTestExecutive() (*Executive, *PriorityPool) {
	pool := NewPriorityPool(map[int]int{1: 0}, 1)
	return NewExecutive(pool), pool
}

func TestExecutiveAddAndJoinSuccess(t *testing.T) {
	exec, _ := newTestExecutive()
	job := exec.Add(JobDescription{ID: 1}, 1, func(j *JobQuery) {
		require.True(t, j.RunJob(&fakeRequest{}))
		require.True(t, j.ResponseReady())
		exec.MarkComplete(j.Description.ID, true)
	})
	require.NotNil(t, job)

	require.True(t, exec.RunNext(false))
	require.Equal(t, JoinSuccess, exec.Join())

	_, stillThere := exec.Get(1)
	require.False(t, stillThere)
}

func TestExecutiveJoinPartialOnMixedOutcome(t *testing.T) {
	exec, _ := newTestExecutive()
	exec.Add(JobDescription{ID: 1}, 1, func(j *JobQuery) {
		j.RunJob(&fakeRequest{})
		j.ResponseReady()
		exec.MarkComplete(j.Description.ID, true)
	})
	exec.Add(JobDescription{ID: 2}, 1, func(j *JobQuery) {
		exec.MarkComplete(j.Description.ID, false)
	})

	require.True(t, exec.RunNext(false))
	require.True(t, exec.RunNext(false))
	require.Equal(t, JoinPartial, exec.Join())
	require.Len(t, exec.Messages(), 1)
}

func TestExecutiveJoinErrorWhenAllFail(t *testing.T) {
	exec, _ := newTestExecutive()
	exec.Add(JobDescription{ID: 1}, 1, func(j *JobQuery) {
		exec.MarkComplete(j.Description.ID, false)
	})

	require.True(t, exec.RunNext(false))
	require.Equal(t, JoinError, exec.Join())
}

func TestExecutiveKillCancelsLiveJobs(t *testing.T) {
	exec, _ := newTestExecutive()
	job := exec.Add(JobDescription{ID: 1}, 1, func(j *JobQuery) {
		j.RunJob(&fakeRequest{})
	})
	require.True(t, exec.RunNext(false))
	exec.Kill()
	require.True(t, job.IsCancelled())
}

func TestThrottledExecutiveStillRunsEveryJob(t *testing.T) {
	pool := NewPriorityPool(map[int]int{1: 0}, 1)
	exec := NewThrottledExecutive(pool, 1000, 1000)
	var ran int
	for i := int64(1); i <= 3; i++ {
		exec.Add(JobDescription{ID: i}, 1, func(j *JobQuery) {
			require.True(t, j.RunJob(&fakeRequest{}))
			require.True(t, j.ResponseReady())
			ran++
			exec.MarkComplete(j.Description.ID, true)
		})
	}
	for exec.RunNext(false) {
	}
	require.Equal(t, 3, ran)
	require.Equal(t, JoinSuccess, exec.Join())
}
