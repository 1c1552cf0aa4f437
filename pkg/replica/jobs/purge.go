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

import "context"

// PlanPurge computes the RemovalRequests needed to bring every
// over-replicated chunk down to target replicas (spec §4.9 Purge): "for
// each chunk with |replicas| > N, repeatedly remove from the most-loaded
// worker among its current replicas, updating the per-worker load estimate
// in-flight so subsequent choices are consistent."
func PlanPurge(result *FindAllResult, family Family, target int) []RemovalRequest {
	load := currentChunkCounts(result, family)
	var reqs []RemovalRequest

	for _, chunk := range sortedChunks(result.ByChunk) {
		for _, database := range family.Databases {
			hosts := hostsOf(result.ByChunk[chunk][database])
			for len(hosts) > target {
				victim := mostLoaded(hosts, load)
				if victim == "" {
					break
				}
				reqs = append(reqs, RemovalRequest{Chunk: chunk, Database: database, Worker: victim})
				delete(hosts, victim)
				load[victim]--
			}
		}
	}
	return reqs
}

func hostsOf(byWorker map[string]ReplicaSummary) map[string]bool {
	hosts := make(map[string]bool, len(byWorker))
	for w := range byWorker {
		hosts[w] = true
	}
	return hosts
}

func mostLoaded(hosts map[string]bool, load map[string]int) string {
	best := ""
	bestLoad := -1
	for w := range hosts {
		l := load[w]
		if l > bestLoad || (l == bestLoad && w < best) {
			best = w
			bestLoad = l
		}
	}
	return best
}

// NewPurge builds a Job that plans and submits RemovalRequests via req for
// every over-replicated chunk in result.
func NewPurge(result *FindAllResult, family Family, target int, req Requester, onFinish func(*Job)) *Job {
	run := func(ctx context.Context) (interface{}, error) {
		plan := PlanPurge(result, family, target)
		submitted := make([]RemovalRequest, 0, len(plan))
		for _, r := range plan {
			if ctx.Err() != nil {
				return submitted, ctx.Err()
			}
			if err := req.DeleteReplica(ctx, r.Worker, r.Database, r.Chunk); err != nil {
				return submitted, err
			}
			submitted = append(submitted, r)
		}
		return submitted, nil
	}
	return New("Purge", run, onFinish)
}
