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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockIsAtomicTestAndSet(t *testing.T) {
	l := New()
	key := ChunkKey{Family: "Object", Chunk: 1234}

	require.True(t, l.Lock(key, "controller-a"))
	require.True(t, l.Lock(key, "controller-a"))
	require.False(t, l.Lock(key, "controller-b"))

	owner, locked := l.IsLocked(key)
	require.True(t, locked)
	require.Equal(t, "controller-a", owner)
}

func TestLockRejectsEmptyOwner(t *testing.T) {
	l := New()
	require.False(t, l.Lock(ChunkKey{Family: "Object", Chunk: 1}, ""))
}

func TestReleaseDropsEntryAndUnlocksForOthers(t *testing.T) {
	l := New()
	key := ChunkKey{Family: "Object", Chunk: 1234}
	require.True(t, l.Lock(key, "controller-a"))

	require.True(t, l.Release(key))
	require.False(t, l.Release(key))

	_, locked := l.IsLocked(key)
	require.False(t, locked)
	require.True(t, l.Lock(key, "controller-b"))
}

func TestReleaseOwnerDropsAllChunksAndKeepsBijection(t *testing.T) {
	l := New()
	k1 := ChunkKey{Family: "Object", Chunk: 1}
	k2 := ChunkKey{Family: "Object", Chunk: 2}
	k3 := ChunkKey{Family: "Source", Chunk: 1}

	require.True(t, l.Lock(k1, "controller-a"))
	require.True(t, l.Lock(k2, "controller-a"))
	require.True(t, l.Lock(k3, "controller-b"))

	freed := l.ReleaseOwner("controller-a")
	require.ElementsMatch(t, []ChunkKey{k1, k2}, freed)

	_, locked1 := l.IsLocked(k1)
	_, locked2 := l.IsLocked(k2)
	require.False(t, locked1)
	require.False(t, locked2)

	owner3, locked3 := l.IsLocked(k3)
	require.True(t, locked3)
	require.Equal(t, "controller-b", owner3)

	_, stillOwner := l.owner2chunks["controller-a"]
	require.False(t, stillOwner)
}

func TestReleaseOwnerWithNoChunksReturnsEmpty(t *testing.T) {
	l := New()
	require.Empty(t, l.ReleaseOwner("nobody"))
}
