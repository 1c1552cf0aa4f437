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

// GenerateConcrete produces the Plan a pipeline run yields: stmtParallel (one
// element in the common case), and, when ctx.NeedsMerge, a merge statement
// derived by copying the select list, ORDER BY, GROUP BY and HAVING from
// stmt and clearing FROM and WHERE (spec §4.2).
func GenerateConcrete(stmt *ir.SelectStmt, ctx *QueryContext) *Plan {
	plan := &Plan{Parallel: []*ir.SelectStmt{stmt.Clone()}}
	if !ctx.NeedsMerge {
		return plan
	}
	merge := ir.NewSelectStmt()
	merge.SelectList = stmt.SelectList.Clone()
	merge.GroupBy = stmt.GroupBy.Clone()
	merge.Having = cloneBoolTerm(stmt.Having)
	merge.OrderBy = stmt.OrderBy.Clone()
	merge.HasDistinct = stmt.HasDistinct
	merge.Limit = stmt.Limit
	plan.Merge = merge
	return plan
}

func cloneBoolTerm(t ir.BoolTerm) ir.BoolTerm {
	if t == nil {
		return nil
	}
	return t.Clone()
}
