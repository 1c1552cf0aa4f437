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

package store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/provingground-moe/qserv-sub001/pkg/qerrors"
)

// Store wraps a *sql.DB connected to the replication controller's MySQL
// instance. Callers obtain the handle the way the teacher's stdpool does
// (sql.Open("mysql", dsn), pinged once at startup) and pass it in here.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New wraps an already-opened MySQL handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// RegisterController inserts a new controller row and returns its assigned
// id (spec §6: controller(id, host, pid, start_time)).
func (s *Store) RegisterController(ctx context.Context, host string, pid int32, start time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO controller (host, pid, start_time) VALUES (?, ?, ?)`, host, pid, start)
	if err != nil {
		return 0, wrapDB(err, "register controller")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapDB(err, "register controller: last insert id")
	}
	return id, nil
}

// CreateJob inserts a new job row in state CREATED/NONE and returns its id.
func (s *Store) CreateJob(ctx context.Context, controllerID int64, jobType string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO job (controller_id, type, state, ext_state, begin_time) VALUES (?, ?, ?, ?, ?)`,
		controllerID, jobType, JobCreated, ExtNone, time.Time{})
	if err != nil {
		return 0, wrapDB(err, "create job")
	}
	return res.LastInsertId()
}

// UpdateJobState transitions a job row's state/ext_state, stamping
// begin_time/end_time as appropriate.
func (s *Store) UpdateJobState(ctx context.Context, jobID int64, state JobState, ext JobExtState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var err error
	switch state {
	case JobInProgress:
		_, err = s.db.ExecContext(ctx,
			`UPDATE job SET state = ?, ext_state = ?, begin_time = ? WHERE id = ?`, state, ext, now, jobID)
	case JobFinished:
		_, err = s.db.ExecContext(ctx,
			`UPDATE job SET state = ?, ext_state = ?, end_time = ? WHERE id = ?`, state, ext, now, jobID)
	default:
		_, err = s.db.ExecContext(ctx, `UPDATE job SET state = ?, ext_state = ? WHERE id = ?`, state, ext, jobID)
	}
	if err != nil {
		return wrapDB(err, "update job state")
	}
	return nil
}

// GetJob fetches a single job row by id.
func (s *Store) GetJob(ctx context.Context, id int64) (JobRecord, error) {
	var j JobRecord
	var begin, end sql.NullTime
	row := s.db.QueryRowContext(ctx,
		`SELECT id, controller_id, type, state, ext_state, begin_time, end_time FROM job WHERE id = ?`, id)
	if err := row.Scan(&j.ID, &j.ControllerID, &j.Type, &j.State, &j.ExtState, &begin, &end); err != nil {
		if err == sql.ErrNoRows {
			return JobRecord{}, err
		}
		return JobRecord{}, wrapDB(err, "get job")
	}
	j.BeginTime = begin.Time
	j.EndTime = end.Time
	return j, nil
}

// UpsertReplica inserts or refreshes a replica row for (worker, database,
// chunk), the write path used by the FindAll/Replicate/Purge/AddChunk
// algorithms of spec §4.9.
func (s *Store) UpsertReplica(ctx context.Context, r ReplicaInfo) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO replica (worker, database_name, chunk, verify_time, status)
		 VALUES (?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE verify_time = VALUES(verify_time), status = VALUES(status)`,
		r.Worker, r.Database, r.Chunk, r.VerifyTime, r.Status)
	if err != nil {
		return 0, wrapDB(err, "upsert replica")
	}
	return res.LastInsertId()
}

// DeleteReplica drops the replica row for (worker, database, chunk), used
// by Purge and MoveReplica.
func (s *Store) DeleteReplica(ctx context.Context, worker, database string, chunk int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM replica WHERE worker = ? AND database_name = ? AND chunk = ?`, worker, database, chunk)
	if err != nil {
		return wrapDB(err, "delete replica")
	}
	return nil
}

// ReplicasByChunk enumerates every replica of (database, chunk), optionally
// restricted to status = COMPLETE (spec §6: "enumerate replicas by (chunk,
// database[, enabled-only])").
func (s *Store) ReplicasByChunk(ctx context.Context, database string, chunk int32, completeOnly bool) ([]ReplicaInfo, error) {
	query := `SELECT id, worker, database_name, chunk, verify_time, status FROM replica WHERE database_name = ? AND chunk = ?`
	args := []interface{}{database, chunk}
	if completeOnly {
		query += ` AND status = ?`
		args = append(args, ReplicaComplete)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDB(err, "replicas by chunk")
	}
	defer rows.Close()
	return scanReplicas(rows)
}

// ReplicasByWorker enumerates every replica hosted on worker (spec §6:
// "by worker").
func (s *Store) ReplicasByWorker(ctx context.Context, worker string) ([]ReplicaInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, worker, database_name, chunk, verify_time, status FROM replica WHERE worker = ?`, worker)
	if err != nil {
		return nil, wrapDB(err, "replicas by worker")
	}
	defer rows.Close()
	return scanReplicas(rows)
}

func scanReplicas(rows *sql.Rows) ([]ReplicaInfo, error) {
	var out []ReplicaInfo
	for rows.Next() {
		var r ReplicaInfo
		if err := rows.Scan(&r.ID, &r.Worker, &r.Database, &r.Chunk, &r.VerifyTime, &r.Status); err != nil {
			return nil, wrapDB(err, "scan replica")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDB(err, "iterate replicas")
	}
	return out, nil
}

// ReplicaFiles fetches all files of a replica (spec §6: "fetch all files of
// a replica").
func (s *Store) ReplicaFiles(ctx context.Context, replicaID int64) ([]ReplicaFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT replica_id, name, size, mtime, cs FROM replica_file WHERE replica_id = ?`, replicaID)
	if err != nil {
		return nil, wrapDB(err, "replica files")
	}
	defer rows.Close()
	var out []ReplicaFile
	for rows.Next() {
		var f ReplicaFile
		if err := rows.Scan(&f.ReplicaID, &f.Name, &f.Size, &f.MTime, &f.CS); err != nil {
			return nil, wrapDB(err, "scan replica file")
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDB(err, "iterate replica files")
	}
	return out, nil
}

// AddReplicaFiles records the file manifest for a replica, replacing any
// previously recorded manifest for the same replica id.
func (s *Store) AddReplicaFiles(ctx context.Context, replicaID int64, files []ReplicaFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapDB(err, "add replica files: begin")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM replica_file WHERE replica_id = ?`, replicaID); err != nil {
		_ = tx.Rollback()
		return wrapDB(err, "add replica files: clear")
	}
	for _, f := range files {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO replica_file (replica_id, name, size, mtime, cs) VALUES (?, ?, ?, ?, ?)`,
			replicaID, f.Name, f.Size, f.MTime, f.CS); err != nil {
			_ = tx.Rollback()
			return wrapDB(err, "add replica files: insert")
		}
	}
	if err := tx.Commit(); err != nil {
		return wrapDB(err, "add replica files: commit")
	}
	return nil
}

// BeginTransactionRecord opens a transaction logical-table row for
// database, used by AbortTransaction (spec §4.8 supplement) and ingest.
func (s *Store) BeginTransactionRecord(ctx context.Context, database string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO txn (database_name, begin_time, state) VALUES (?, ?, ?)`,
		database, time.Now(), TxnInProgress)
	if err != nil {
		return 0, wrapDB(err, "begin transaction record")
	}
	return res.LastInsertId()
}

// EndTransactionRecord closes a transaction logical-table row with a final
// state.
func (s *Store) EndTransactionRecord(ctx context.Context, txnID int64, state TransactionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`UPDATE txn SET state = ?, end_time = ? WHERE id = ?`, state, time.Now(), txnID)
	if err != nil {
		return wrapDB(err, "end transaction record")
	}
	return nil
}

// GetTransactionRecord fetches a single transaction logical-table row by
// id.
func (s *Store) GetTransactionRecord(ctx context.Context, id int64) (TransactionRecord, error) {
	var t TransactionRecord
	var end sql.NullTime
	row := s.db.QueryRowContext(ctx,
		`SELECT id, database_name, begin_time, end_time, state FROM txn WHERE id = ?`, id)
	if err := row.Scan(&t.ID, &t.Database, &t.BeginTime, &end, &t.State); err != nil {
		if err == sql.ErrNoRows {
			return TransactionRecord{}, err
		}
		return TransactionRecord{}, wrapDB(err, "get transaction record")
	}
	t.EndTime = end.Time
	return t, nil
}

func wrapDB(err error, op string) error {
	return qerrors.Wrap(qerrors.KindDatabaseError, errors.Wrap(err, op))
}
