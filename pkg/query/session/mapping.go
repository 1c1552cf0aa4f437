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

package session

import (
	"fmt"
	"strings"

	"github.com/provingground-moe/qserv-sub001/pkg/query/ir"
)

// QueryMapping resolves the ChunkToken/SubChunkToken placeholders a
// rendered template carries into concrete table name suffixes for one
// chunk (spec §4.3: "queryMapping.apply(chunkSpec, template) returns a
// concrete SQL string ... substituted by the chunk id and ... a generated
// list of sub-chunk table names").
type QueryMapping struct {
	// SubChunkTables names the tables (unqualified) that require per-
	// sub-chunk substitution rather than a bare chunk suffix.
	SubChunkTables []string
}

// Apply substitutes template's placeholder tokens for the concrete chunk
// (and, for sub-chunked tables, one representative sub-chunk id) and
// returns the resulting SQL string. When spec has more than one sub-chunk,
// callers are expected to call Apply once per sub-chunk and union the
// results, since a single rendered statement can only name one subchunk
// table per sub-chunked reference.
func (m *QueryMapping) Apply(spec *ChunkSpec, template *ir.Template) string {
	text := template.String()
	text = strings.ReplaceAll(text, ir.ChunkToken, fmt.Sprintf("_%d", spec.ChunkID))
	if len(spec.SubChunks) > 0 {
		text = strings.ReplaceAll(text, ir.SubChunkToken, fmt.Sprintf("_%d", spec.SubChunks[0]))
	} else {
		text = strings.ReplaceAll(text, ir.SubChunkToken, "")
	}
	return text
}

// ApplyAll renders one concrete SQL string per sub-chunk in spec (or a
// single string when spec has no sub-chunks), so every sub-chunk
// combination named by a sub-chunked TableRef is represented.
func (m *QueryMapping) ApplyAll(spec *ChunkSpec, template *ir.Template) []string {
	text := template.String()
	text = strings.ReplaceAll(text, ir.ChunkToken, fmt.Sprintf("_%d", spec.ChunkID))
	if len(spec.SubChunks) == 0 {
		return []string{strings.ReplaceAll(text, ir.SubChunkToken, "")}
	}
	out := make([]string, len(spec.SubChunks))
	for i, sc := range spec.SubChunks {
		out[i] = strings.ReplaceAll(text, ir.SubChunkToken, fmt.Sprintf("_%d", sc))
	}
	return out
}

// BuildChunkQuerySpec renders templates (one SelectStmt per parallel query,
// spec §4.2's stmtParallel) against spec, producing a ChunkQuerySpec whose
// Queries list has one entry per template (spec §4.3:
// "buildChunkQuerySpec(templates, chunkSpec) emits a ChunkQuerySpec whose
// queries list has one entry per parallel template").
func (m *QueryMapping) BuildChunkQuerySpec(
	templates []*ir.SelectStmt, spec *ChunkSpec, dominantDb string, scanInteractive bool,
) *ChunkQuerySpec {
	cqs := &ChunkQuerySpec{
		DominantDb:      dominantDb,
		ChunkID:         spec.ChunkID,
		ScanInteractive: scanInteractive,
		SubChunkTables:  append([]string{}, m.SubChunkTables...),
		SubChunkIDs:     append([]int32{}, spec.SubChunks...),
	}
	for _, stmt := range templates {
		t := ir.NewTemplate()
		stmt.Render(t)
		cqs.Queries = append(cqs.Queries, m.Apply(spec, t))
	}
	if spec.NextFragment != nil {
		cqs.NextFragment = m.BuildChunkQuerySpec(templates, spec.NextFragment, dominantDb, scanInteractive)
	}
	return cqs
}
