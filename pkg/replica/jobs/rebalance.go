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
)

// RebalanceThresholds bounds the start/stop spread percentages of spec
// §4.9: "Both must lie in [10,50] and [5,45] respectively, with
// startPercent - stopPercent >= 5."
type RebalanceThresholds struct {
	StartPercent int
	StopPercent  int
}

// Validate enforces the bounds spec §4.9 places on the thresholds.
func (t RebalanceThresholds) Validate() error {
	if t.StartPercent < 10 || t.StartPercent > 50 {
		return qerrors.Newf(qerrors.KindAnalysisError, "startPercent %d out of [10,50]", t.StartPercent)
	}
	if t.StopPercent < 5 || t.StopPercent > 45 {
		return qerrors.Newf(qerrors.KindAnalysisError, "stopPercent %d out of [5,45]", t.StopPercent)
	}
	if t.StartPercent-t.StopPercent < 5 {
		return qerrors.Newf(qerrors.KindAnalysisError,
			"startPercent - stopPercent must be >= 5, got %d - %d", t.StartPercent, t.StopPercent)
	}
	return nil
}

// spreadPercent returns the percentage spread between the max- and
// min-loaded worker in load, 0 if there is at most one worker.
func spreadPercent(load map[string]int) int {
	if len(load) == 0 {
		return 0
	}
	first := true
	var min, max int
	for _, l := range load {
		if first {
			min, max = l, l
			first = false
			continue
		}
		if l < min {
			min = l
		}
		if l > max {
			max = l
		}
	}
	if max == 0 {
		return 0
	}
	return (max - min) * 100 / max
}

// ShouldStartRebalance reports whether the family's load spread exceeds
// startPercent (spec §4.9: "only considered when the spread ... exceeds
// startPercent").
func ShouldStartRebalance(result *FindAllResult, family Family, thresholds RebalanceThresholds) bool {
	load := currentChunkCounts(result, family)
	return spreadPercent(load) > thresholds.StartPercent
}

// PlanRebalance moves single replicas, one at a time, from the most-loaded
// worker to the least-loaded worker that does not already host the chunk
// being moved, stopping once the spread drops below stopPercent (spec
// §4.9).
func PlanRebalance(result *FindAllResult, family Family, thresholds RebalanceThresholds) []MoveRequest {
	load := currentChunkCounts(result, family)
	hostsByChunkDb := make(map[[2]interface{}]map[string]bool)
	for chunk, byDb := range result.ByChunk {
		for db, byWorker := range byDb {
			hostsByChunkDb[[2]interface{}{chunk, db}] = hostsOf(byWorker)
		}
	}

	var moves []MoveRequest
	for spreadPercent(load) >= thresholds.StopPercent {
		source := mostLoadedWorker(load)
		dest := leastLoadedWorker(load)
		if source == "" || dest == "" || source == dest {
			break
		}
		chunk, database, ok := pickMovableChunk(hostsByChunkDb, source, dest)
		if !ok {
			break
		}
		moves = append(moves, MoveRequest{Chunk: chunk, Database: database, SourceWorker: source, DestWorker: dest})
		key := [2]interface{}{chunk, database}
		delete(hostsByChunkDb[key], source)
		hostsByChunkDb[key][dest] = true
		load[source]--
		load[dest]++
	}
	return moves
}

// MoveRequest is one replica relocation produced by Rebalance or issued
// directly via MoveReplica.
type MoveRequest struct {
	Chunk        int32
	Database     string
	SourceWorker string
	DestWorker   string
}

func mostLoadedWorker(load map[string]int) string {
	best := ""
	bestLoad := -1
	for w, l := range load {
		if l > bestLoad || (l == bestLoad && w < best) {
			best, bestLoad = w, l
		}
	}
	return best
}

func leastLoadedWorker(load map[string]int) string {
	best := ""
	bestLoad := -1
	for w, l := range load {
		if bestLoad == -1 || l < bestLoad || (l == bestLoad && w < best) {
			best, bestLoad = w, l
		}
	}
	return best
}

func pickMovableChunk(hostsByChunkDb map[[2]interface{}]map[string]bool, source, dest string) (int32, string, bool) {
	for key, hosts := range hostsByChunkDb {
		if hosts[source] && !hosts[dest] {
			return key[0].(int32), key[1].(string), true
		}
	}
	return 0, "", false
}

// NewMoveReplica builds a Job that relocates a single chunk's replica from
// source to dest: create on dest, then delete on source, so the chunk
// never drops below one replica mid-move.
func NewMoveReplica(req Requester, move MoveRequest, onFinish func(*Job)) *Job {
	run := func(ctx context.Context) (interface{}, error) {
		if err := req.CreateReplica(ctx, move.DestWorker, move.Database, move.Chunk); err != nil {
			return nil, err
		}
		if err := req.DeleteReplica(ctx, move.SourceWorker, move.Database, move.Chunk); err != nil {
			return nil, err
		}
		return move, nil
	}
	return New("MoveReplica", run, onFinish)
}

// NewRebalance builds a Job that plans and submits a sequence of
// MoveRequests for family.
func NewRebalance(result *FindAllResult, family Family, thresholds RebalanceThresholds, req Requester, onFinish func(*Job)) *Job {
	run := func(ctx context.Context) (interface{}, error) {
		if err := thresholds.Validate(); err != nil {
			return nil, err
		}
		if !ShouldStartRebalance(result, family, thresholds) {
			return []MoveRequest{}, nil
		}
		plan := PlanRebalance(result, family, thresholds)
		done := make([]MoveRequest, 0, len(plan))
		for _, m := range plan {
			if ctx.Err() != nil {
				return done, ctx.Err()
			}
			if err := req.CreateReplica(ctx, m.DestWorker, m.Database, m.Chunk); err != nil {
				return done, err
			}
			if err := req.DeleteReplica(ctx, m.SourceWorker, m.Database, m.Chunk); err != nil {
				return done, err
			}
			done = append(done, m)
		}
		return done, nil
	}
	return New("Rebalance", run, onFinish)
}
