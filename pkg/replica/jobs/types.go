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

// ReplicaSummary is one worker's report of a single chunk's replica for a
// database, as returned by a REPLICA_FIND_ALL request (spec §4.9).
type ReplicaSummary struct {
	Chunk    int32
	Worker   string
	Complete bool
}

// Enumerator issues a replica enumeration request to a single worker for a
// single database; FindAll fans this out across every worker and database
// in a family.
type Enumerator interface {
	EnumerateReplicas(ctx context.Context, worker, database string) ([]ReplicaSummary, error)
}

// Requester issues the worker-bound mutation requests the placement
// algorithms produce: create or delete a replica (a move is a create
// followed by a delete).
type Requester interface {
	CreateReplica(ctx context.Context, worker, database string, chunk int32) error
	DeleteReplica(ctx context.Context, worker, database string, chunk int32) error
}

// Family describes the replication family a job operates over: the set of
// databases sharing a chunking scheme, the worker fleet, and the desired
// replication level (spec §3, §4.9).
type Family struct {
	Name             string
	Databases        []string
	Workers          []string
	ReplicationLevel int
}

// FindAllResult is the aggregated output of FindAll (spec §4.9):
// chunk -> database -> worker -> ReplicaSummary, chunk -> database ->
// complete workers, and a per-chunk co-location flag.
type FindAllResult struct {
	ByChunk   map[int32]map[string]map[string]ReplicaSummary
	Complete  map[int32]map[string][]string
	CoLocated map[int32]bool
}

// ReplicationRequest is one new-replica submission produced by Replicate.
type ReplicationRequest struct {
	Chunk        int32
	Database     string
	SourceWorker string
	DestWorker   string
}

// RemovalRequest is one replica-removal submission produced by Purge.
type RemovalRequest struct {
	Chunk    int32
	Database string
	Worker   string
}
