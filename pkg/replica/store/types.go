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

// Package store is the persistent replica/job/transaction store (spec §6):
// five logical tables backed by MySQL through database/sql and
// github.com/go-sql-driver/mysql, serialized behind a single service-wide
// mutex for writes. Reads take no lock: they run concurrently with each
// other and with writes.
package store

import "time"

// ReplicaStatus is the status column of the replica table.
type ReplicaStatus int

// Replica statuses.
const (
	ReplicaIncomplete ReplicaStatus = iota
	ReplicaComplete
)

// ReplicaInfo is one row of the replica logical table: (worker, database,
// chunk) -> status, verified at verify_time.
type ReplicaInfo struct {
	ID         int64
	Worker     string
	Database   string
	Chunk      int32
	VerifyTime time.Time
	Status     ReplicaStatus
}

// ReplicaFile is one row of the replica_file logical table: the files that
// back a single replica, as reported by the worker.
type ReplicaFile struct {
	ReplicaID int64
	Name      string
	Size      int64
	MTime     time.Time
	CS        string // checksum
}

// JobState mirrors the job-framework state machine of spec §4.8 as
// persisted alongside its extended state.
type JobState int

// Job states.
const (
	JobCreated JobState = iota
	JobInProgress
	JobFinished
)

// JobExtState is the job's extended (outcome) state, valid once Finished.
type JobExtState int

// Job extended states.
const (
	ExtNone JobExtState = iota
	ExtSuccess
	ExtFailed
	ExtCancelled
)

// JobRecord is one row of the job logical table.
type JobRecord struct {
	ID           int64
	ControllerID int64
	Type         string
	State        JobState
	ExtState     JobExtState
	BeginTime    time.Time
	EndTime      time.Time
}

// ControllerRecord is one row of the controller logical table: one per
// controller process that has ever registered with the store.
type ControllerRecord struct {
	ID        int64
	Host      string
	PID       int32
	StartTime time.Time
}

// TransactionState is the state column of the transaction logical table.
type TransactionState int

// Transaction states.
const (
	TxnInProgress TransactionState = iota
	TxnCommitted
	TxnAborted
)

// TransactionRecord is one row of the transaction logical table.
type TransactionRecord struct {
	ID        int64
	Database  string
	BeginTime time.Time
	EndTime   time.Time
	State     TransactionState
}
