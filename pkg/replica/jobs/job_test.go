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

package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJobHappyPathReachesFinishedSuccess(t *testing.T) {
	var finishedCalls int
	j := New("test", func(ctx context.Context) (interface{}, error) {
		return 42, nil
	}, func(*Job) { finishedCalls++ })

	require.Equal(t, Created, j.State())
	j.Start(context.Background())

	progress, err, ext := j.Track()
	require.NoError(t, err)
	require.Equal(t, 0, progress)
	require.Equal(t, ExtSuccess, ext)
	require.Equal(t, Finished, j.State())
	require.Equal(t, 1, finishedCalls)

	data, err := j.GetReplicaData()
	require.NoError(t, err)
	require.Equal(t, 42, data)
}

func TestJobFailurePropagatesExtFailed(t *testing.T) {
	j := New("test", func(ctx context.Context) (interface{}, error) {
		return nil, context.DeadlineExceeded
	}, nil)
	j.Start(context.Background())

	_, err, ext := j.Track()
	require.Error(t, err)
	require.Equal(t, ExtFailed, ext)
}

func TestJobCancelDrivesExtCancelled(t *testing.T) {
	started := make(chan struct{})
	j := New("test", func(ctx context.Context) (interface{}, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}, nil)
	j.Start(context.Background())
	<-started
	j.Cancel()

	_, _, ext := j.Track()
	require.Equal(t, ExtCancelled, ext)
}

func TestGetReplicaDataBeforeFinishedErrors(t *testing.T) {
	j := New("test", func(ctx context.Context) (interface{}, error) {
		return nil, nil
	}, nil)
	_, err := j.GetReplicaData()
	require.Error(t, err)
}

func TestJobTrackBlocksUntilFinished(t *testing.T) {
	j := New("test", func(ctx context.Context) (interface{}, error) {
		time.Sleep(20 * time.Millisecond)
		return "done", nil
	}, nil)
	j.Start(context.Background())

	start := time.Now()
	_, err, ext := j.Track()
	require.NoError(t, err)
	require.Equal(t, ExtSuccess, ext)
	require.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}
