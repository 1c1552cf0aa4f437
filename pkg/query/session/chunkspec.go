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

// Package session drives parsing inputs through the plugin pipeline and
// turns the resulting plan into a stream of ChunkQuerySpec values the
// dispatch layer can hand to workers (spec §4.3).
package session

// ChunkSpec names one chunk and the sub-chunks within it a query must
// touch. A fragmenter splits it when the sub-chunk set exceeds
// fragmentSoftCap; fragments form a linked sequence via NextFragment (spec
// §3: "ChunkSpec. {chunkId, subChunks[]}").
type ChunkSpec struct {
	ChunkID      int32
	SubChunks    []int32
	NextFragment *ChunkSpec
}

// DefaultFragmentSoftCap bounds the number of sub-chunks a single
// ChunkQuerySpec may carry before the fragmenter splits it.
const DefaultFragmentSoftCap = 256

// Fragment splits spec into a linked chain of ChunkSpec values, each
// carrying at most cap sub-chunks (cap <= 0 selects
// DefaultFragmentSoftCap). A spec with no sub-chunks, or with a sub-chunk
// count at or below cap, is returned unchanged as a single-element chain.
func Fragment(spec *ChunkSpec, cap int) *ChunkSpec {
	if cap <= 0 {
		cap = DefaultFragmentSoftCap
	}
	if len(spec.SubChunks) <= cap {
		return &ChunkSpec{ChunkID: spec.ChunkID, SubChunks: spec.SubChunks}
	}
	head := &ChunkSpec{ChunkID: spec.ChunkID, SubChunks: spec.SubChunks[:cap]}
	cur := head
	for rest := spec.SubChunks[cap:]; len(rest) > 0; {
		n := cap
		if n > len(rest) {
			n = len(rest)
		}
		next := &ChunkSpec{ChunkID: spec.ChunkID, SubChunks: rest[:n]}
		cur.NextFragment = next
		cur = next
		rest = rest[n:]
	}
	return head
}

// Fragments returns the chain starting at head as a slice, in order.
func Fragments(head *ChunkSpec) []*ChunkSpec {
	var out []*ChunkSpec
	for f := head; f != nil; f = f.NextFragment {
		out = append(out, f)
	}
	return out
}

// ScanInfo is a per-table scan rating and in-memory-lock flag (spec §3).
// Nothing fills it: QueryContext has no such field and BuildChunkQuerySpec
// leaves ChunkQuerySpec.ScanInfo empty.
type ScanInfo struct {
	Table        string
	Rating       int
	InMemoryLock bool
}

// ChunkQuerySpec is what QuerySession emits and the Executive consumes:
// the concrete, per-chunk query set plus the scan-scheduling metadata the
// priority pool needs (spec §3: "ChunkQuerySpec.
// {dominantDb, chunkId, scanInfo, scanInteractive, subChunkTables, queries[],
// subChunkIds[], nextFragment?}"). It exclusively owns its fragment chain.
type ChunkQuerySpec struct {
	DominantDb      string
	ChunkID         int32
	ScanInfo        []ScanInfo
	ScanInteractive bool
	SubChunkTables  []string
	Queries         []string
	SubChunkIDs     []int32
	NextFragment    *ChunkQuerySpec
}
