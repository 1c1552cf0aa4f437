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

// Package merge streams per-chunk worker result sets into a single merge
// table at the coordinator (spec §4.7), and applies the final
// merge/aggregation query once every chunk's rows have landed.
package merge

import (
	"context"
	"database/sql"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/provingground-moe/qserv-sub001/pkg/qerrors"
)

// Row is a single result row streamed from a worker, in column order.
type Row []interface{}

// Merger owns the connection to the merge database and enforces the
// at-most-one-active-ingestion-per-table invariant. Its zero value is not
// usable; construct with NewMerger.
type Merger struct {
	db *sql.DB

	mu     sync.Mutex
	active map[string]bool
}

// NewMerger wraps an already-opened merge database handle (typically
// sql.Open("mysql", ...), per the teacher's stdpool convention of a single
// driver-agnostic *sql.DB passed in rather than opened here).
func NewMerger(db *sql.DB) *Merger {
	return &Merger{db: db, active: make(map[string]bool)}
}

// BeginIngestion opens a per-job transaction against table and marks it as
// the table's active ingestion. It returns qerrors.KindDatabaseError if
// another ingestion is already active on the same table (spec §4.7: "at
// most one active ingestion per target table at a time").
func (m *Merger) BeginIngestion(ctx context.Context, table string) (*Ingestion, error) {
	m.mu.Lock()
	if m.active[table] {
		m.mu.Unlock()
		return nil, qerrors.Newf(qerrors.KindDatabaseError, "table %q already has an active ingestion", table)
	}
	m.active[table] = true
	m.mu.Unlock()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		m.mu.Lock()
		delete(m.active, table)
		m.mu.Unlock()
		return nil, qerrors.Wrap(qerrors.KindDatabaseError, errors.Wrap(err, "begin ingestion transaction"))
	}
	return &Ingestion{merger: m, table: table, tx: tx}, nil
}

// ApplyMergeQuery executes the coordinator's merge/aggregation statement
// against the merge table once every job's rows have been committed,
// producing the user's final result set (spec §4.7).
func (m *Merger) ApplyMergeQuery(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, qerrors.Wrap(qerrors.KindDatabaseError, errors.Wrap(err, "apply merge query"))
	}
	return rows, nil
}

func (m *Merger) release(table string) {
	m.mu.Lock()
	delete(m.active, table)
	m.mu.Unlock()
}
