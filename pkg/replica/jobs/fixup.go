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

	"github.com/provingground-moe/qserv-sub001/pkg/qerrors"
	"github.com/provingground-moe/qserv-sub001/pkg/replica/lock"
)

// MaxFixUpRestarts bounds the number of precursor-plus-plan restarts a
// FixUp job will attempt before surfacing the last transport failure,
// since spec §4.8 names restart as the progress mechanism but does not
// bound its count; an unbounded retry loop would never fail closed under
// a permanently unreachable worker.
const MaxFixUpRestarts = 3

// FixUpResult is the outcome of a single FixUp attempt.
type FixUpResult struct {
	Submitted  []ReplicationRequest
	LockFailed []lock.ChunkKey
	Restarts   int
}

// NewFixUp builds the composite job of spec §4.8: FindAll, then a
// Replicate plan for every under-replicated chunk, each mutation gated by
// a chunk-lock acquisition. A transport-level failure on any dependent
// request clears the in-flight set and restarts from FindAll, up to
// MaxFixUpRestarts times.
func NewFixUp(
	family Family, target int, enum Enumerator, req Requester, locker *lock.ChunkLocker, owner string,
	onFinish func(*Job),
) *Job {
	run := func(ctx context.Context) (interface{}, error) {
		var lastErr error
		for attempt := 0; attempt <= MaxFixUpRestarts; attempt++ {
			result, err := runFindAll(ctx, family, enum)
			if err != nil {
				return nil, err
			}
			plan := PlanReplicate(result, family, target)

			out := FixUpResult{Restarts: attempt}
			restart := false
			for _, r := range plan {
				if ctx.Err() != nil {
					return out, ctx.Err()
				}
				key := lock.ChunkKey{Family: family.Name, Chunk: r.Chunk}
				if !locker.Lock(key, owner) {
					out.LockFailed = append(out.LockFailed, key)
					continue
				}
				if err := req.CreateReplica(ctx, r.DestWorker, r.Database, r.Chunk); err != nil {
					locker.Release(key)
					if qerrors.IsRetryable(err) {
						lastErr = err
						restart = true
						break
					}
					return out, err
				}
				out.Submitted = append(out.Submitted, r)
				locker.Release(key)
			}
			if !restart {
				return out, nil
			}
		}
		return nil, lastErr
	}
	return New("FixUp", run, onFinish)
}
