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

	"github.com/stretchr/testify/require"

	"github.com/provingground-moe/qserv-sub001/pkg/qerrors"
	"github.com/provingground-moe/qserv-sub001/pkg/replica/lock"
)

func TestFixUpSubmitsPlanWhenNoFailures(t *testing.T) {
	family := Family{Name: "sky", Databases: []string{"Object"}, Workers: []string{"w1", "w2"}}
	enum := &fakeEnumerator{rows: map[string]map[string][]ReplicaSummary{
		"w1": {"Object": {{Chunk: 1234, Worker: "w1", Complete: true}}},
		"w2": {"Object": {}},
	}}
	req := &fakeRequester{}
	locker := lock.New()

	j := NewFixUp(family, 2, enum, req, locker, "controller-a", nil)
	j.Start(context.Background())
	data, err, ext := j.Track()
	require.NoError(t, err)
	require.Equal(t, ExtSuccess, ext)

	result := data.(FixUpResult)
	require.Len(t, result.Submitted, 1)
	require.Equal(t, 0, result.Restarts)

	_, locked := locker.IsLocked(lock.ChunkKey{Family: "sky", Chunk: 1234})
	require.False(t, locked, "fixup must release the chunk lock after submitting")
}

func TestFixUpRestartsOnTransportFailureThenSucceeds(t *testing.T) {
	family := Family{Name: "sky", Databases: []string{"Object"}, Workers: []string{"w1", "w2"}}
	enum := &fakeEnumerator{rows: map[string]map[string][]ReplicaSummary{
		"w1": {"Object": {{Chunk: 1234, Worker: "w1", Complete: true}}},
		"w2": {"Object": {}},
	}}
	locker := lock.New()

	attempts := 0
	req := &restartingRequester{
		failFirstN: 1,
		attempts:   &attempts,
	}

	j := NewFixUp(family, 2, enum, req, locker, "controller-a", nil)
	j.Start(context.Background())
	data, err, ext := j.Track()
	require.NoError(t, err)
	require.Equal(t, ExtSuccess, ext)

	result := data.(FixUpResult)
	require.Equal(t, 1, result.Restarts)
	require.Len(t, result.Submitted, 1)
}

type restartingRequester struct {
	failFirstN int
	attempts   *int
}

func (r *restartingRequester) CreateReplica(ctx context.Context, worker, database string, chunk int32) error {
	*r.attempts++
	if *r.attempts <= r.failFirstN {
		return qerrors.New(qerrors.KindTransportError, "connection reset")
	}
	return nil
}

func (r *restartingRequester) DeleteReplica(ctx context.Context, worker, database string, chunk int32) error {
	return nil
}
