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
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/provingground-moe/qserv-sub001/pkg/replica/store"
)

type beginTransactionRequest struct {
	Database string `json:"database"`
}

func (s *Server) handleBeginTransaction(w http.ResponseWriter, r *http.Request) {
	var body beginTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}
	if body.Database == "" {
		writeError(w, http.StatusBadRequest, "database is required")
		return
	}

	id, err := s.store.BeginTransactionRecord(r.Context(), body.Database)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"id": id})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "transaction id must be an integer")
		return
	}

	txn, err := s.store.GetTransactionRecord(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "no such transaction")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

type endTransactionRequest struct {
	Abort bool `json:"abort"`
}

func (s *Server) handleEndTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "transaction id must be an integer")
		return
	}

	var body endTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}

	state := store.TxnCommitted
	if body.Abort {
		state = store.TxnAborted
	}
	if err := s.store.EndTransactionRecord(r.Context(), id, state); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

type addChunkRequest struct {
	Family   string `json:"family"`
	Database string `json:"database"`
	Chunk    int32  `json:"chunk"`
}

func (s *Server) handleAddChunk(w http.ResponseWriter, r *http.Request) {
	var body addChunkRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}

	s.mu.RLock()
	familyCfg, ok := s.config.FamilyByName(body.Family)
	databases := s.config.DatabasesInFamily(body.Family)
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusBadRequest, "no such family: "+body.Family)
		return
	}

	s.mu.RLock()
	var workers []string
	for _, worker := range s.config.EnabledWorkers() {
		workers = append(workers, worker.Name)
	}
	s.mu.RUnlock()

	family := familyFromConfig(familyCfg, databases, workers)
	info, err := s.ingest.AddChunk(r.Context(), family, body.Database, body.Chunk)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}
