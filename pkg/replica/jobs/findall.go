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
	"sync"

	"golang.org/x/sync/errgroup"
)

// NewFindAll builds a Job that issues a replica enumeration request to
// every worker for every database in family and aggregates the results
// (spec §4.9). Fan-out is one goroutine per (worker, database) pair,
// generalizing the teacher's parallel per-range scatter-gather idiom via
// golang.org/x/sync/errgroup.
func NewFindAll(family Family, enum Enumerator, onFinish func(*Job)) *Job {
	run := func(ctx context.Context) (interface{}, error) {
		return runFindAll(ctx, family, enum)
	}
	return New("FindAll", run, onFinish)
}

func runFindAll(ctx context.Context, family Family, enum Enumerator) (*FindAllResult, error) {
	type report struct {
		database string
		worker   string
		rows     []ReplicaSummary
	}
	reports := make([]report, 0, len(family.Workers)*len(family.Databases))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, worker := range family.Workers {
		worker := worker
		for _, database := range family.Databases {
			database := database
			g.Go(func() error {
				rows, err := enum.EnumerateReplicas(gctx, worker, database)
				if err != nil {
					return err
				}
				mu.Lock()
				reports = append(reports, report{database: database, worker: worker, rows: rows})
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &FindAllResult{
		ByChunk:   make(map[int32]map[string]map[string]ReplicaSummary),
		Complete:  make(map[int32]map[string][]string),
		CoLocated: make(map[int32]bool),
	}
	for _, r := range reports {
		for _, row := range r.rows {
			byDb, ok := result.ByChunk[row.Chunk]
			if !ok {
				byDb = make(map[string]map[string]ReplicaSummary)
				result.ByChunk[row.Chunk] = byDb
			}
			byWorker, ok := byDb[r.database]
			if !ok {
				byWorker = make(map[string]ReplicaSummary)
				byDb[r.database] = byWorker
			}
			byWorker[r.worker] = row

			if row.Complete {
				complete, ok := result.Complete[row.Chunk]
				if !ok {
					complete = make(map[string][]string)
					result.Complete[row.Chunk] = complete
				}
				complete[r.database] = append(complete[r.database], r.worker)
			}
		}
	}
	for chunk, byDb := range result.ByChunk {
		result.CoLocated[chunk] = isCoLocated(byDb, family.Databases)
	}
	for _, byDb := range result.Complete {
		for _, workers := range byDb {
			sort.Strings(workers)
		}
	}
	return result, nil
}

// isCoLocated reports whether the set of workers holding a chunk is
// identical across every database in the family (spec §4.9).
func isCoLocated(byDb map[string]map[string]ReplicaSummary, databases []string) bool {
	var reference map[string]bool
	for _, db := range databases {
		workers, ok := byDb[db]
		if !ok {
			return false
		}
		set := make(map[string]bool, len(workers))
		for w := range workers {
			set[w] = true
		}
		if reference == nil {
			reference = set
			continue
		}
		if len(reference) != len(set) {
			return false
		}
		for w := range set {
			if !reference[w] {
				return false
			}
		}
	}
	return true
}
