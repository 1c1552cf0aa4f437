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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/provingground-moe/qserv-sub001/pkg/qerrors"
	"github.com/provingground-moe/qserv-sub001/pkg/replica/jobs"
)

type fakeReplicaService struct {
	createErr error
	rows      []jobs.ReplicaSummary
}

func (f *fakeReplicaService) CreateReplica(ctx context.Context, database string, chunk int32) error {
	return f.createErr
}

func (f *fakeReplicaService) DeleteReplica(ctx context.Context, database string, chunk int32) error {
	return nil
}

func (f *fakeReplicaService) FindAllReplicas(ctx context.Context, database string) ([]jobs.ReplicaSummary, error) {
	return f.rows, nil
}

func TestWorkerServerEchoesPayloadUnchanged(t *testing.T) {
	s := NewWorkerServer(&fakeReplicaService{})
	resp := s.Handle(context.Background(), "req-1", QueuedPayload{Type: RequestTestEcho, Body: []byte("ping")})
	require.Equal(t, StatusSuccess, resp.Status)
	require.Equal(t, "ping", string(resp.Payload))
}

func TestWorkerServerRemembersOutcomeForStatusPoll(t *testing.T) {
	s := NewWorkerServer(&fakeReplicaService{})
	resp := s.Handle(context.Background(), "req-1", QueuedPayload{Type: RequestReplicaCreate, Database: "Object", Chunk: 1234})
	require.Equal(t, StatusSuccess, resp.Status)

	polled, ok := s.Status("req-1")
	require.True(t, ok)
	require.Equal(t, StatusSuccess, polled.Status)

	_, ok = s.Status("unknown")
	require.False(t, ok)
}

func TestWorkerServerFlagsResubmittedRequestIDAsDuplicate(t *testing.T) {
	svc := &fakeReplicaService{}
	s := NewWorkerServer(svc)
	payload := QueuedPayload{Type: RequestReplicaCreate, Database: "Object", Chunk: 1234}

	first := s.Handle(context.Background(), "req-1", payload)
	require.Equal(t, StatusSuccess, first.Status)
	require.False(t, first.AllowDuplicate)

	svc.createErr = qerrors.New(qerrors.KindDatabaseError, "would fail if re-executed")
	second := s.Handle(context.Background(), "req-1", payload)
	require.Equal(t, StatusSuccess, second.Status)
	require.True(t, second.AllowDuplicate)
}

func TestWorkerServerReportsFailedOnServiceError(t *testing.T) {
	s := NewWorkerServer(&fakeReplicaService{createErr: qerrors.New(qerrors.KindDatabaseError, "disk full")})
	resp := s.Handle(context.Background(), "req-1", QueuedPayload{Type: RequestReplicaCreate, Database: "Object", Chunk: 1234})
	require.Equal(t, StatusFailed, resp.Status)
}

func TestWorkerServerEnumeratesReplicas(t *testing.T) {
	s := NewWorkerServer(&fakeReplicaService{rows: []jobs.ReplicaSummary{{Chunk: 1234, Worker: "w1", Complete: true}}})
	resp := s.Handle(context.Background(), "req-1", QueuedPayload{Type: RequestReplicaFindAll, Database: "Object"})
	require.Equal(t, StatusSuccess, resp.Status)

	rows, err := decodeReplicaSummaries(resp.Payload)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

type fakeQueryExecutor struct {
	columns []string
	rows    [][]interface{}
	err     error
}

func (f *fakeQueryExecutor) ExecuteQuery(ctx context.Context, query string) ([]string, [][]interface{}, error) {
	return f.columns, f.rows, f.err
}

func TestWorkerServerWithNoQueryExecutorRejectsSQL(t *testing.T) {
	s := NewWorkerServer(&fakeReplicaService{})
	resp := s.Handle(context.Background(), "req-1", QueuedPayload{Type: RequestSQL, Body: []byte("SELECT 1")})
	require.Equal(t, StatusBad, resp.Status)
}

func TestWorkerServerExecutesSQLFragment(t *testing.T) {
	exec := &fakeQueryExecutor{
		columns: []string{"ra", "dec"},
		rows:    [][]interface{}{{1.5, -2.5}, {3.0, 4.0}},
	}
	s := NewWorkerServer(&fakeReplicaService{}).WithQueryExecutor(exec)
	resp := s.Handle(context.Background(), "req-1", QueuedPayload{Type: RequestSQL, Database: "Object", Chunk: 1234, Body: []byte("SELECT ra, decl FROM Object_1234")})
	require.Equal(t, StatusSuccess, resp.Status)

	result, err := DecodeQueryRows(resp.Payload)
	require.NoError(t, err)
	require.Equal(t, []string{"ra", "dec"}, result.Columns)
	require.Len(t, result.Rows, 2)

	polled, ok := s.Status("req-1")
	require.True(t, ok)
	require.Equal(t, StatusSuccess, polled.Status)
}

func TestWorkerServerReportsFailedOnQueryError(t *testing.T) {
	exec := &fakeQueryExecutor{err: qerrors.New(qerrors.KindAnalysisError, "syntax error")}
	s := NewWorkerServer(&fakeReplicaService{}).WithQueryExecutor(exec)
	resp := s.Handle(context.Background(), "req-1", QueuedPayload{Type: RequestSQL, Body: []byte("bad sql")})
	require.Equal(t, StatusFailed, resp.Status)
}
