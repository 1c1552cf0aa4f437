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

package merge

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/provingground-moe/qserv-sub001/pkg/qerrors"
)

// Ingestion is a single job's streaming transaction against the merge
// table. Its rows are invisible to ApplyMergeQuery (and to any concurrent
// ingestion against the same table, per Merger's per-table lock) until
// Commit succeeds; Rollback (or any ingestion-time error) leaves the merge
// table exactly as if the job had never run (spec §4.7).
type Ingestion struct {
	merger *Merger
	table  string
	tx     *sql.Tx

	mu   sync.Mutex
	done bool
}

// WriteRows appends a batch of rows to the merge table within the
// ingestion's transaction. columns fixes the column order used to build
// the INSERT statement; callers typically pass the same columns for every
// batch of a given ingestion.
func (in *Ingestion) WriteRows(ctx context.Context, columns []string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.done {
		return qerrors.New(qerrors.KindDatabaseError, "ingestion already finalized")
	}

	stmt := insertStatement(in.table, columns)
	prepared, err := in.tx.PrepareContext(ctx, stmt)
	if err != nil {
		return qerrors.Wrap(qerrors.KindDatabaseError, errors.Wrap(err, "prepare insert"))
	}
	defer prepared.Close()

	for _, row := range rows {
		if _, err := prepared.ExecContext(ctx, row...); err != nil {
			return qerrors.Wrap(qerrors.KindDatabaseError, errors.Wrap(err, "insert row"))
		}
	}
	return nil
}

// Commit finalizes the ingestion, making its rows visible to subsequent
// ApplyMergeQuery calls, and releases the per-table lock.
func (in *Ingestion) Commit() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.done {
		return nil
	}
	in.done = true
	defer in.merger.release(in.table)
	if err := in.tx.Commit(); err != nil {
		return qerrors.Wrap(qerrors.KindDatabaseError, errors.Wrap(err, "commit ingestion"))
	}
	return nil
}

// Rollback discards every row written so far and releases the per-table
// lock. Safe to call after a failed WriteRows, and idempotent alongside
// Commit (a second call is a no-op).
func (in *Ingestion) Rollback() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.done {
		return nil
	}
	in.done = true
	defer in.merger.release(in.table)
	if err := in.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return qerrors.Wrap(qerrors.KindDatabaseError, errors.Wrap(err, "rollback ingestion"))
	}
	return nil
}

func insertStatement(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = "?"
	}
	return "INSERT INTO " + table + " (" + strings.Join(columns, ", ") + ") VALUES (" +
		strings.Join(placeholders, ", ") + ")"
}
