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

package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/provingground-moe/qserv-sub001/pkg/config"
	"github.com/provingground-moe/qserv-sub001/pkg/replica/jobs"
	"github.com/provingground-moe/qserv-sub001/pkg/replica/store"
)

func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Configuration{
		Workers: []config.Worker{
			{Name: "w1", SvcHost: "host1", IsEnabled: true},
			{Name: "w2", SvcHost: "host2", IsEnabled: false},
		},
		Families: []config.Family{
			{Name: "sky", ReplicationLevel: 2, NumStripes: 340, NumSubStripes: 3},
		},
		Databases: []config.Database{
			{Name: "Object", Family: "sky"},
		},
	}
	st := store.New(db)
	ingest := jobs.NewIngestManager(st)
	return NewServer(cfg, st, ingest), mock
}

func TestListWorkersReturnsConfiguredFleet(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/replication/v1/worker", nil)
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var workers []config.Worker
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &workers))
	require.Len(t, workers, 2)
}

func TestGetWorkerMissingReturns404(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/replication/v1/worker/ghost", nil)
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutWorkerTogglesEnabled(t *testing.T) {
	s, _ := newTestServer(t)

	body, _ := json.Marshal(workerUpdate{IsEnabled: boolPtr(false)})
	req := httptest.NewRequest(http.MethodPut, "/replication/v1/worker/w1", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	w, ok := s.config.WorkerByName("w1")
	require.True(t, ok)
	require.False(t, w.IsEnabled)
}

func TestPutConfigRejectsInvalidManifest(t *testing.T) {
	s, _ := newTestServer(t)

	bad := config.Configuration{Families: []config.Family{{Name: "sky", NumStripes: 0, NumSubStripes: 1, ReplicationLevel: 1}}}
	body, _ := json.Marshal(bad)
	req := httptest.NewRequest(http.MethodPut, "/replication/v1/config", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddChunkReturnsPlacedReplica(t *testing.T) {
	s, mock := newTestServer(t)

	mock.ExpectQuery("SELECT id, worker, database_name, chunk, verify_time, status FROM replica").
		WithArgs("Object", int32(1234)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "worker", "database_name", "chunk", "verify_time", "status"}))
	mock.ExpectQuery("SELECT id, worker, database_name, chunk, verify_time, status FROM replica WHERE worker").
		WithArgs("w1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "worker", "database_name", "chunk", "verify_time", "status"}))
	mock.ExpectExec("INSERT INTO replica").
		WithArgs("w1", "Object", int32(1234), sqlmock.AnyArg(), store.ReplicaComplete).
		WillReturnResult(sqlmock.NewResult(9, 1))

	body, _ := json.Marshal(addChunkRequest{Family: "sky", Database: "Object", Chunk: 1234})
	req := httptest.NewRequest(http.MethodPost, "/ingest/v1/chunk", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func boolPtr(b bool) *bool { return &b }
