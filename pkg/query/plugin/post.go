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

// PostPass finalizes ORDER BY / LIMIT policy for the merge phase: ORDER BY
// is required in the merge query only when a LIMIT is present (spec §4.2
// item 8). The logical half records the decision on ctx; the physical half
// strips ORDER BY from the merge statement when it is not required.
type PostPass struct{}

// Name implements LogicalPass.
func (p *PostPass) Name() string { return "Post" }

// Prepare implements LogicalPass.
func (p *PostPass) Prepare() {}

// ApplyLogical implements LogicalPass.
func (p *PostPass) ApplyLogical(stmt *ir.SelectStmt, ctx *QueryContext) error {
	ctx.RequireMergeOrderBy = stmt.Limit != ir.NoLimit
	return nil
}

// ApplyPhysical implements PhysicalPass.
func (p *PostPass) ApplyPhysical(plan *Plan, ctx *QueryContext) error {
	if plan.Merge == nil {
		return nil
	}
	if !ctx.RequireMergeOrderBy {
		plan.Merge.OrderBy = nil
	}
	return nil
}
