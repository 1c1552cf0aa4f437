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
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/provingground-moe/qserv-sub001/pkg/config"
)

func (s *Server) handleListWorkers(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(w, http.StatusOK, s.config.Workers)
}

func (s *Server) handleGetWorker(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	s.mu.RLock()
	defer s.mu.RUnlock()
	worker, ok := s.config.WorkerByName(name)
	if !ok {
		writeError(w, http.StatusNotFound, "no such worker: "+name)
		return
	}
	writeJSON(w, http.StatusOK, worker)
}

// workerUpdate is the request body replica_controller_admin's worker
// enable/disable/read-only toggle accepts (supplemented feature, see
// original_source/core/modules/replica/replica_controller_admin.cc).
type workerUpdate struct {
	IsEnabled  *bool `json:"isEnabled"`
	IsReadOnly *bool `json:"isReadOnly"`
}

func (s *Server) handlePutWorker(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var body workerUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, worker := range s.config.Workers {
		if worker.Name == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		writeError(w, http.StatusNotFound, "no such worker: "+name)
		return
	}
	if body.IsEnabled != nil {
		s.config.Workers[idx].IsEnabled = *body.IsEnabled
	}
	if body.IsReadOnly != nil {
		s.config.Workers[idx].IsReadOnly = *body.IsReadOnly
	}
	writeJSON(w, http.StatusOK, s.config.Workers[idx])
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(w, http.StatusOK, s.config)
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var body config.Configuration
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}
	if err := body.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	*s.config = body
	s.levels.invalidate()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, &body)
}
