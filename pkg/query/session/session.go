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
	"github.com/provingground-moe/qserv-sub001/pkg/qerrors"
	"github.com/provingground-moe/qserv-sub001/pkg/query/ir"
	"github.com/provingground-moe/qserv-sub001/pkg/query/parser"
	"github.com/provingground-moe/qserv-sub001/pkg/query/plugin"
)

// ChunkEnumerator resolves which chunks (and, for sub-chunked tables, which
// sub-chunks) a query's restrictors select, once the pipeline has run.
// Implementations live with the catalog/partition map; this package only
// needs the interface.
type ChunkEnumerator interface {
	// Chunks returns the chunk ids a query over db must visit, given the
	// restrictors the QservRestrictor pass extracted. A nil or empty
	// restrictor list means "every chunk of db".
	Chunks(db string, restrictors []plugin.Restrictor) ([]int32, error)
	// SubChunks returns the sub-chunk ids within chunk a sub-chunked table
	// reference must visit.
	SubChunks(db string, chunk int32, restrictors []plugin.Restrictor) ([]int32, error)
}

// QuerySession drives one query from SQL text to a stream of
// ChunkQuerySpec values: parse, run the plugin pipeline, enumerate chunks,
// and build the per-chunk concrete query set (spec §2: "QuerySession.
// Drives parsing, plugin application, produces ChunkQuerySpec stream").
type QuerySession struct {
	Pipeline        *plugin.Pipeline
	Enumerator      ChunkEnumerator
	FragmentSoftCap int

	stmt *ir.SelectStmt
	ctx  *plugin.QueryContext
	plan *plugin.Plan
	err  error
}

// NewQuerySession constructs a session bound to catalog and a chunk
// enumerator. If pipeline is nil, plugin.DefaultPipeline() is used.
func NewQuerySession(catalog map[string]plugin.TableMeta, enumerator ChunkEnumerator, pipeline *plugin.Pipeline) *QuerySession {
	if pipeline == nil {
		pipeline = plugin.DefaultPipeline()
	}
	return &QuerySession{
		Pipeline:   pipeline,
		Enumerator: enumerator,
		ctx:        &plugin.QueryContext{KnownTables: catalog},
	}
}

// Analyze parses sql and runs the plugin pipeline to completion, recording
// any terminal error for GetError. It returns the error immediately for
// convenience, but callers that need the spec's exact propagation contract
// ("errors raised inside a plugin pass set QuerySession.error and abort
// further analysis; the session's final state is reported by getError()",
// spec §4.2) should prefer GetError after calling Analyze.
func (s *QuerySession) Analyze(sql string) error {
	stmt, err := parser.Parse(sql)
	if err != nil {
		s.err = err
		return err
	}
	s.stmt = stmt
	if err := s.Pipeline.Run(stmt, s.ctx); err != nil {
		s.err = err
		return err
	}
	s.plan = plugin.GenerateConcrete(stmt, s.ctx)
	if err := s.Pipeline.RunPhysical(s.plan, s.ctx); err != nil {
		s.err = err
		return err
	}
	return nil
}

// GetError returns the terminal error recorded by Analyze, if any.
func (s *QuerySession) GetError() error { return s.err }

// NeedsMerge reports whether the analyzed query requires a coordinator-side
// merge statement.
func (s *QuerySession) NeedsMerge() bool { return s.ctx.NeedsMerge }

// Context exposes the accumulated QueryContext for callers that need the
// restrictors, dominant database or scan decisions directly.
func (s *QuerySession) Context() *plugin.QueryContext { return s.ctx }

// MergeStmt returns the merge statement (nil when NeedsMerge is false).
func (s *QuerySession) MergeStmt() *ir.SelectStmt {
	if s.plan == nil {
		return nil
	}
	return s.plan.Merge
}

// GenerateChunkQuerySpecs enumerates chunks for the analyzed query and
// builds one ChunkQuerySpec per chunk (fragmenting any whose sub-chunk set
// exceeds FragmentSoftCap), finalizing ctx.ChunkCount and running each
// pass's ApplyFinal so scan-interactivity reflects the real chunk count
// (spec §4.2 item 9, §4.3). Analyze must have succeeded first.
func (s *QuerySession) GenerateChunkQuerySpecs() ([]*ChunkQuerySpec, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.stmt == nil || s.plan == nil {
		return nil, qerrors.New(qerrors.KindQueryProcessingBug, "GenerateChunkQuerySpecs called before a successful Analyze")
	}

	db := s.ctx.DominantDb
	chunks, err := s.Enumerator.Chunks(db, s.ctx.Restrictors)
	if err != nil {
		s.err = err
		return nil, err
	}
	s.ctx.ChunkCount = len(chunks)
	if err := s.Pipeline.RunFinal(s.ctx); err != nil {
		s.err = err
		return nil, err
	}

	subChunkTables := subChunkedTableNames(s.stmt)
	mapping := &QueryMapping{SubChunkTables: subChunkTables}

	var out []*ChunkQuerySpec
	for _, chunkID := range chunks {
		var subChunks []int32
		if len(subChunkTables) > 0 {
			subChunks, err = s.Enumerator.SubChunks(db, chunkID, s.ctx.Restrictors)
			if err != nil {
				s.err = err
				return nil, err
			}
		}
		head := Fragment(&ChunkSpec{ChunkID: chunkID, SubChunks: subChunks}, s.FragmentSoftCap)
		cqs := mapping.BuildChunkQuerySpec(s.plan.Parallel, head, db, s.ctx.ScanInteractive)
		out = append(out, cqs)
	}
	return out, nil
}

func subChunkedTableNames(stmt *ir.SelectStmt) []string {
	if stmt.FromList == nil {
		return nil
	}
	var names []string
	for _, ref := range stmt.FromList.Tables {
		if ref.IsSubChunked {
			names = append(names, ref.Table)
		}
	}
	return names
}
