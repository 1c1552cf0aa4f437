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
	"sync"
	"time"

	"github.com/provingground-moe/qserv-sub001/pkg/replica/store"
)

// IngestManager places newly ingested chunks on a worker, serialized by a
// single mutex (spec §4.9 AddChunk: "under the ingest-manager mutex").
type IngestManager struct {
	st *store.Store
	mu sync.Mutex
}

// NewIngestManager constructs an IngestManager backed by st.
func NewIngestManager(st *store.Store) *IngestManager {
	return &IngestManager{st: st}
}

// AddChunk implements spec §4.9 AddChunk: "if the chunk already has
// exactly one replica, return it; if zero, pick the least-loaded worker
// among candidates that hold the same chunk in any sibling database of the
// family, else the least-loaded worker overall; insert a placeholder
// ReplicaInfo{status=COMPLETE}."
func (m *IngestManager) AddChunk(ctx context.Context, family Family, database string, chunk int32) (store.ReplicaInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.st.ReplicasByChunk(ctx, database, chunk, false)
	if err != nil {
		return store.ReplicaInfo{}, err
	}
	if len(existing) == 1 {
		return existing[0], nil
	}

	candidates, err := m.siblingWorkers(ctx, family, database, chunk)
	if err != nil {
		return store.ReplicaInfo{}, err
	}
	worker, err := m.leastLoadedAmong(ctx, family, candidates)
	if err != nil {
		return store.ReplicaInfo{}, err
	}

	info := store.ReplicaInfo{Worker: worker, Database: database, Chunk: chunk, VerifyTime: time.Now(), Status: store.ReplicaComplete}
	id, err := m.st.UpsertReplica(ctx, info)
	if err != nil {
		return store.ReplicaInfo{}, err
	}
	info.ID = id
	return info, nil
}

// siblingWorkers returns the workers that hold chunk in any other database
// of the family.
func (m *IngestManager) siblingWorkers(ctx context.Context, family Family, database string, chunk int32) ([]string, error) {
	var candidates []string
	for _, db := range family.Databases {
		if db == database {
			continue
		}
		replicas, err := m.st.ReplicasByChunk(ctx, db, chunk, false)
		if err != nil {
			return nil, err
		}
		for _, r := range replicas {
			candidates = append(candidates, r.Worker)
		}
	}
	return candidates, nil
}

// leastLoadedAmong picks the least-loaded worker among candidates (falling
// back to every family worker when candidates is empty), breaking ties by
// name.
func (m *IngestManager) leastLoadedAmong(ctx context.Context, family Family, candidates []string) (string, error) {
	pool := candidates
	if len(pool) == 0 {
		pool = family.Workers
	}
	load := make(map[string]int, len(pool))
	for _, w := range pool {
		replicas, err := m.st.ReplicasByWorker(ctx, w)
		if err != nil {
			return "", err
		}
		load[w] = len(replicas)
	}
	best := ""
	bestLoad := -1
	for _, w := range pool {
		l := load[w]
		if bestLoad == -1 || l < bestLoad || (l == bestLoad && w < best) {
			best, bestLoad = w, l
		}
	}
	return best, nil
}
