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

package lock

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestRemoteLockReportsFalseWhenHeldByAnotherOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	key := ChunkKey{Family: "Object", Chunk: 1234}

	mock.ExpectExec("INSERT INTO chunk_lock").
		WithArgs("Object", int32(1234), "controller-b").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT owner FROM chunk_lock").
		WithArgs("Object", int32(1234)).
		WillReturnRows(sqlmock.NewRows([]string{"owner"}).AddRow("controller-a"))

	r := NewRemote(db)
	ok, err := r.Lock(context.Background(), key, "controller-b")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoteReleaseOwnerReturnsFreedKeys(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT family, chunk FROM chunk_lock WHERE owner").
		WithArgs("controller-a").
		WillReturnRows(sqlmock.NewRows([]string{"family", "chunk"}).
			AddRow("Object", int32(1)).
			AddRow("Object", int32(2)))
	mock.ExpectExec("DELETE FROM chunk_lock WHERE owner").
		WithArgs("controller-a").
		WillReturnResult(sqlmock.NewResult(0, 2))

	r := NewRemote(db)
	keys, err := r.ReleaseOwner(context.Background(), "controller-a")
	require.NoError(t, err)
	require.ElementsMatch(t, []ChunkKey{{Family: "Object", Chunk: 1}, {Family: "Object", Chunk: 2}}, keys)

	require.NoError(t, mock.ExpectationsWereMet())
}
