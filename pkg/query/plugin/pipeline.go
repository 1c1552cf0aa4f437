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

// Package plugin implements the ordered analysis/rewrite pass pipeline that
// turns a parsed SelectStmt into the parallel/merge/pre-flight statement
// triple a QuerySession hands to query mapping. Passes run in a fixed,
// contractual order: later passes depend on invariants earlier ones
// establish (DNF shape, dominantDb, restrictor extraction).
package plugin

import (
	"github.com/provingground-moe/qserv-sub001/pkg/qerrors"
	"github.com/provingground-moe/qserv-sub001/pkg/query/ir"
)

// Restrictor is a spatial or secondary-index constraint the QservRestrictor
// pass extracted from the WHERE clause, expressed in terms a chunk/sub-chunk
// mapping step can evaluate against a partition map.
type Restrictor struct {
	Name string
	Args []string
}

// Plan is the physical counterpart of a logical SelectStmt: the set of
// concrete statements generateConcrete/applyPhysical produce for dispatch.
type Plan struct {
	// Parallel is executed once per chunk (and, when fragmented, once per
	// sub-chunk fragment); it is never empty after a successful pipeline run.
	Parallel []*ir.SelectStmt
	// Merge is executed once at the coordinator over the parallel results;
	// nil when the query needs no merge step.
	Merge *ir.SelectStmt
	// PreFlight is an optional statement run once before dispatch (e.g. to
	// resolve a secondary-index restrictor into a chunk list).
	PreFlight *ir.SelectStmt
}

// QueryContext accumulates the cross-pass state spec §4.2 describes:
// dominantDb, the merge requirement, extracted restrictors and the final
// scan-sharing decision.
type QueryContext struct {
	DominantDb      string
	NeedsMerge      bool
	Restrictors     []Restrictor
	ScanInteractive bool
	ScanShared      bool
	ChunkCount      int

	// IsMatchQuery and MatchTables record the match-table join pattern the
	// MatchTable pass recognized (spec §4.2 item 6): a FromList of exactly
	// two partitioned TableRefs in the same database.
	IsMatchQuery bool
	MatchTables  [2]string

	// RequireMergeOrderBy is set by the Post pass: ORDER BY is carried into
	// the merge statement only when the original query also has a LIMIT
	// (spec §4.2 item 8).
	RequireMergeOrderBy bool

	// InteractiveChunkThreshold is the chunk-count ceiling above which
	// ScanTable flips ScanInteractive off (spec §4.2 item 9). Zero means
	// "use DefaultInteractiveChunkThreshold".
	InteractiveChunkThreshold int

	// KnownTables maps unqualified table names to their owning database for
	// the Table pass to resolve against (spec §4.2 item 5). Populated by the
	// caller (QuerySession) from catalog metadata before the pipeline runs.
	KnownTables map[string]TableMeta
}

// TableMeta is the catalog information the Table/QservRestrictor/ScanTable
// passes need about one table.
type TableMeta struct {
	Db            string
	IsPartitioned bool
	IsSubChunked  bool
}

// DefaultInteractiveChunkThreshold is used when QueryContext does not
// specify one.
const DefaultInteractiveChunkThreshold = 1000

func (c *QueryContext) interactiveThreshold() int {
	if c.InteractiveChunkThreshold > 0 {
		return c.InteractiveChunkThreshold
	}
	return DefaultInteractiveChunkThreshold
}

// LogicalPass is the mandatory half of the Pass contract (spec §4.2: every
// pass exposes prepare() and applyLogical(stmt, ctx)).
type LogicalPass interface {
	// Name identifies the pass for diagnostics and ordering assertions.
	Name() string
	// Prepare resets any pass-local state before a fresh pipeline run.
	Prepare()
	// ApplyLogical inspects and rewrites stmt in place, or returns an
	// AnalysisError/ParseError-kinded error to abort the pipeline.
	ApplyLogical(stmt *ir.SelectStmt, ctx *QueryContext) error
}

// PhysicalPass is implemented by passes that also act once a Plan exists
// (spec §4.2: "optionally applyPhysical(plan, ctx)").
type PhysicalPass interface {
	ApplyPhysical(plan *Plan, ctx *QueryContext) error
}

// FinalPass is implemented by passes that run once more after physical
// planning, with no statement argument (spec §4.2: "optionally
// applyFinal(ctx)").
type FinalPass interface {
	ApplyFinal(ctx *QueryContext) error
}

// Pipeline runs an ordered, fixed sequence of LogicalPass values, and any
// PhysicalPass/FinalPass facets they additionally implement.
type Pipeline struct {
	passes []LogicalPass
}

// NewPipeline constructs a Pipeline from passes, in the order they must run.
func NewPipeline(passes ...LogicalPass) *Pipeline {
	return &Pipeline{passes: passes}
}

// DefaultPipeline returns the fixed nine-pass pipeline of spec §4.2, in
// contractual order.
func DefaultPipeline() *Pipeline {
	return NewPipeline(
		&DuplicateSelectExprPass{},
		&WherePass{},
		&DNFPass{},
		&AggregatePass{},
		&TablePass{},
		&MatchTablePass{},
		&QservRestrictorPass{},
		&PostPass{},
		&ScanTablePass{},
	)
}

// Run executes prepare() then applyLogical(stmt, ctx) for every pass in
// order, stopping at the first error (spec §4.2: "Each pass may fail ...
// surfaced to the caller as a terminal error on the QuerySession").
func (p *Pipeline) Run(stmt *ir.SelectStmt, ctx *QueryContext) error {
	for _, pass := range p.passes {
		pass.Prepare()
		if err := pass.ApplyLogical(stmt, ctx); err != nil {
			return err
		}
	}
	return nil
}

// RunPhysical invokes ApplyPhysical on every pass that implements
// PhysicalPass, in the same pipeline order.
func (p *Pipeline) RunPhysical(plan *Plan, ctx *QueryContext) error {
	for _, pass := range p.passes {
		if pp, ok := pass.(PhysicalPass); ok {
			if err := pp.ApplyPhysical(plan, ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// RunFinal invokes ApplyFinal on every pass that implements FinalPass.
func (p *Pipeline) RunFinal(ctx *QueryContext) error {
	for _, pass := range p.passes {
		if fp, ok := pass.(FinalPass); ok {
			if err := fp.ApplyFinal(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// analysisErrorf constructs an AnalysisError-kinded failure, the common case
// for a rejecting pass.
func analysisErrorf(format string, args ...interface{}) error {
	return qerrors.Newf(qerrors.KindAnalysisError, format, args...)
}
