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

package plugin

import "github.com/provingground-moe/qserv-sub001/pkg/query/ir"

// TablePass resolves unqualified table references against ctx.KnownTables
// and computes ctx.DominantDb: the database of the first partitioned table
// in the FROM list, or the first table's database when none is partitioned
// (spec §4.2 item 5).
type TablePass struct{}

// Name implements LogicalPass.
func (p *TablePass) Name() string { return "Table" }

// Prepare implements LogicalPass.
func (p *TablePass) Prepare() {}

// ApplyLogical implements LogicalPass.
func (p *TablePass) ApplyLogical(stmt *ir.SelectStmt, ctx *QueryContext) error {
	if stmt.FromList == nil || len(stmt.FromList.Tables) == 0 {
		return nil
	}
	var fallbackDb string
	for _, ref := range stmt.FromList.Tables {
		meta, ok := ctx.KnownTables[ref.Table]
		if !ok {
			return analysisErrorf("no such table: %s", ref.Table)
		}
		if ref.Db == "" {
			ref.Db = meta.Db
		}
		ref.IsPartitioned = meta.IsPartitioned
		ref.IsSubChunked = meta.IsSubChunked
		if fallbackDb == "" {
			fallbackDb = ref.Db
		}
		if meta.IsPartitioned && ctx.DominantDb == "" {
			ctx.DominantDb = ref.Db
		}
	}
	if ctx.DominantDb == "" {
		ctx.DominantDb = fallbackDb
	}
	return nil
}
