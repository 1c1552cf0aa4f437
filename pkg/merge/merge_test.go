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
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestBeginIngestionRejectsSecondActiveIngestion(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	m := NewMerger(db)

	ing, err := m.BeginIngestion(context.Background(), "Object_1234")
	require.NoError(t, err)
	require.NotNil(t, ing)

	_, err = m.BeginIngestion(context.Background(), "Object_1234")
	require.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitReleasesTableForNextIngestion(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()

	m := NewMerger(db)
	ing, err := m.BeginIngestion(context.Background(), "Object_1234")
	require.NoError(t, err)
	require.NoError(t, ing.Commit())

	ing2, err := m.BeginIngestion(context.Background(), "Object_1234")
	require.NoError(t, err)
	require.NotNil(t, ing2)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteRowsInsertsWithinTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO Object_1234")
	prep.ExpectExec().WithArgs(int64(1), 4.5).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs(int64(2), 6.25).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	m := NewMerger(db)
	ing, err := m.BeginIngestion(context.Background(), "Object_1234")
	require.NoError(t, err)

	err = ing.WriteRows(context.Background(), []string{"objectId", "ra"}, []Row{
		{int64(1), 4.5},
		{int64(2), 6.25},
	})
	require.NoError(t, err)
	require.NoError(t, ing.Commit())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRollbackLeavesNoTraceAndReleasesTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO Object_1234")
	prep.ExpectExec().WillReturnError(errFake{})
	mock.ExpectRollback()
	mock.ExpectBegin()

	m := NewMerger(db)
	ing, err := m.BeginIngestion(context.Background(), "Object_1234")
	require.NoError(t, err)

	err = ing.WriteRows(context.Background(), []string{"objectId"}, []Row{{int64(1)}})
	require.Error(t, err)
	require.NoError(t, ing.Rollback())

	ing2, err := m.BeginIngestion(context.Background(), "Object_1234")
	require.NoError(t, err)
	require.NotNil(t, ing2)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMergeQueryRunsAgainstMergeTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))

	m := NewMerger(db)
	rows, err := m.ApplyMergeQuery(context.Background(), "SELECT COUNT(*) AS n FROM Object_1234")
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var n int
	require.NoError(t, rows.Scan(&n))
	require.Equal(t, 3, n)

	require.NoError(t, mock.ExpectationsWereMet())
}

type errFake struct{}

func (errFake) Error() string { return "fake driver error" }
