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

package transport

import (
	"context"
	"sync"

	"github.com/provingground-moe/qserv-sub001/pkg/replica/jobs"
	"github.com/provingground-moe/qserv-sub001/pkg/util/log"
)

// ReplicaService is the worker-local collaborator a WorkerServer dispatches
// REPLICA_* requests to. Implementations live alongside the worker's
// storage driver; transport only handles the wire protocol.
type ReplicaService interface {
	CreateReplica(ctx context.Context, database string, chunk int32) error
	DeleteReplica(ctx context.Context, database string, chunk int32) error
	FindAllReplicas(ctx context.Context, database string) ([]jobs.ReplicaSummary, error)
}

// QueryExecutor runs one fragment of a dispatched SELECT against the
// worker's local shard of the partitioned table space and returns its
// result set (spec §4.7: the per-chunk query a czar's GenerateChunkQuerySpecs
// produces). A WorkerServer with no executor attached answers SQL requests
// with STATUS_BAD, the way a pure replica-management worker process would.
type QueryExecutor interface {
	ExecuteQuery(ctx context.Context, query string) (columns []string, rows [][]interface{}, err error)
}

// trackedOutcome is what WorkerServer remembers about a request it has
// accepted, so that repeated SERVICE/STATUS polls (keepTracking on the
// client side) observe a stable answer instead of re-executing the work.
type trackedOutcome struct {
	status  Status
	payload []byte
}

// WorkerServer is the worker-side counterpart of Messenger: it accepts
// QUEUED frames, executes them against svc (or, for TEST_ECHO, simply
// loops the payload back at once, with no delay), and answers subsequent
// STATUS polls for the same request ID with the remembered outcome.
//
// Requests execute synchronously here: the worker-side priority queueing
// that the original implementation layers in front of request execution is
// the dispatch package's PriorityPool, which this server sits behind.
type WorkerServer struct {
	svc  ReplicaService
	exec QueryExecutor

	mu       sync.Mutex
	outcomes map[string]trackedOutcome
}

// NewWorkerServer constructs a WorkerServer dispatching REPLICA_* work to
// svc.
func NewWorkerServer(svc ReplicaService) *WorkerServer {
	return &WorkerServer{
		svc:      svc,
		outcomes: make(map[string]trackedOutcome),
	}
}

// WithQueryExecutor attaches exec so this server also answers RequestSQL
// fragments, for worker processes that host a shard of the catalog
// alongside their replica management duties.
func (s *WorkerServer) WithQueryExecutor(exec QueryExecutor) *WorkerServer {
	s.exec = exec
	return s
}

// Handle executes a single QUEUED payload synchronously and returns its
// terminal Response. The gRPC service registered by RegisterWorkerService
// calls it for every QUEUED frame; no in-process WorkerConn wraps it.
//
// A requestID this server has already seen an outcome for is a duplicate
// Send (the client retried after a transport hiccup even though the
// original request landed) rather than a fresh request: the stored outcome
// is returned as-is, with AllowDuplicate set so the caller knows this
// answer didn't come from re-executing the payload.
func (s *WorkerServer) Handle(ctx context.Context, requestID string, payload QueuedPayload) Response {
	s.mu.Lock()
	if out, ok := s.outcomes[requestID]; ok {
		s.mu.Unlock()
		return Response{RequestID: requestID, Status: out.status, Payload: out.payload, AllowDuplicate: true}
	}
	s.mu.Unlock()

	status, out := s.execute(ctx, payload)
	s.mu.Lock()
	s.outcomes[requestID] = trackedOutcome{status: status, payload: out}
	s.mu.Unlock()
	return Response{RequestID: requestID, Status: status, Payload: out}
}

// Status answers a STATUS poll for a previously accepted request.
func (s *WorkerServer) Status(requestID string) (Response, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, ok := s.outcomes[requestID]
	if !ok {
		return Response{}, false
	}
	return Response{RequestID: requestID, Status: out.status, Payload: out.payload}, true
}

func (s *WorkerServer) execute(ctx context.Context, payload QueuedPayload) (Status, []byte) {
	switch payload.Type {
	case RequestTestEcho:
		return StatusSuccess, payload.Body

	case RequestReplicaCreate:
		if err := s.svc.CreateReplica(ctx, payload.Database, payload.Chunk); err != nil {
			log.Warningf(ctx, "replica create failed for %s/%d: %v", payload.Database, payload.Chunk, err)
			return StatusFailed, nil
		}
		return StatusSuccess, nil

	case RequestReplicaDelete:
		if err := s.svc.DeleteReplica(ctx, payload.Database, payload.Chunk); err != nil {
			log.Warningf(ctx, "replica delete failed for %s/%d: %v", payload.Database, payload.Chunk, err)
			return StatusFailed, nil
		}
		return StatusSuccess, nil

	case RequestReplicaFindAll:
		rows, err := s.svc.FindAllReplicas(ctx, payload.Database)
		if err != nil {
			log.Warningf(ctx, "replica enumeration failed for %s: %v", payload.Database, err)
			return StatusFailed, nil
		}
		return StatusSuccess, encodeReplicaSummaries(rows)

	case RequestSQL:
		if s.exec == nil {
			log.Warningf(ctx, "worker server received SQL request with no query executor attached")
			return StatusBad, nil
		}
		columns, rows, err := s.exec.ExecuteQuery(ctx, string(payload.Body))
		if err != nil {
			log.Warningf(ctx, "query fragment failed for %s/%d: %v", payload.Database, payload.Chunk, err)
			return StatusFailed, nil
		}
		return StatusSuccess, encodeQueryRows(QueryResult{Columns: columns, Rows: rows})

	default:
		log.Warningf(ctx, "worker server received unsupported request type %d", payload.Type)
		return StatusBad, nil
	}
}

