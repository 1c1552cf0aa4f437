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
	"sort"
)

// PlanReplicate computes the ReplicationRequests needed to bring every
// under-replicated chunk up to target replicas (spec §4.9 Replicate):
// "for each chunk with |complete workers| < N, pick a source worker
// holding a COMPLETE replica and a destination worker that does not
// currently host the chunk and has the smallest current chunk count
// across the family. Ties broken by worker name."
func PlanReplicate(result *FindAllResult, family Family, target int) []ReplicationRequest {
	load := currentChunkCounts(result, family)
	var reqs []ReplicationRequest

	chunks := sortedChunks(result.ByChunk)
	for _, chunk := range chunks {
		for _, database := range family.Databases {
			complete := result.Complete[chunk][database]
			if len(complete) >= target {
				continue
			}
			source := pickSource(complete)
			if source == "" {
				continue
			}
			hosts := hostSet(result.ByChunk[chunk][database])
			need := target - len(complete)
			for i := 0; i < need; i++ {
				dest := pickDest(family.Workers, hosts, load)
				if dest == "" {
					break
				}
				reqs = append(reqs, ReplicationRequest{
					Chunk: chunk, Database: database, SourceWorker: source, DestWorker: dest,
				})
				hosts[dest] = true
				load[dest]++
			}
		}
	}
	return reqs
}

func currentChunkCounts(result *FindAllResult, family Family) map[string]int {
	counts := make(map[string]int, len(family.Workers))
	for _, w := range family.Workers {
		counts[w] = 0
	}
	for _, byDb := range result.ByChunk {
		for _, byWorker := range byDb {
			for worker := range byWorker {
				counts[worker]++
			}
		}
	}
	return counts
}

func pickSource(complete []string) string {
	if len(complete) == 0 {
		return ""
	}
	best := complete[0]
	for _, w := range complete[1:] {
		if w < best {
			best = w
		}
	}
	return best
}

func hostSet(byWorker map[string]ReplicaSummary) map[string]bool {
	set := make(map[string]bool, len(byWorker))
	for w := range byWorker {
		set[w] = true
	}
	return set
}

// pickDest chooses the worker not already in hosts with the smallest
// current load, breaking ties by name.
func pickDest(workers []string, hosts map[string]bool, load map[string]int) string {
	best := ""
	bestLoad := 0
	for _, w := range workers {
		if hosts[w] {
			continue
		}
		if best == "" || load[w] < bestLoad || (load[w] == bestLoad && w < best) {
			best = w
			bestLoad = load[w]
		}
	}
	return best
}

func sortedChunks(byChunk map[int32]map[string]map[string]ReplicaSummary) []int32 {
	chunks := make([]int32, 0, len(byChunk))
	for c := range byChunk {
		chunks = append(chunks, c)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i] < chunks[j] })
	return chunks
}

// NewReplicate builds a Job that plans and submits ReplicationRequests via
// req for every under-replicated chunk in result.
func NewReplicate(result *FindAllResult, family Family, target int, req Requester, onFinish func(*Job)) *Job {
	run := func(ctx context.Context) (interface{}, error) {
		plan := PlanReplicate(result, family, target)
		submitted := make([]ReplicationRequest, 0, len(plan))
		for _, r := range plan {
			if ctx.Err() != nil {
				return submitted, ctx.Err()
			}
			if err := req.CreateReplica(ctx, r.DestWorker, r.Database, r.Chunk); err != nil {
				return submitted, err
			}
			submitted = append(submitted, r)
		}
		return submitted, nil
	}
	return New("Replicate", run, onFinish)
}
