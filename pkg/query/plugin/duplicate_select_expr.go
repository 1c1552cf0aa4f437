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

// DuplicateSelectExprPass rejects repeated expressions in the projection
// (spec §4.2 item 1). Two projected terms are duplicates when their
// rendered text is identical, regardless of alias.
type DuplicateSelectExprPass struct{}

// Name implements LogicalPass.
func (p *DuplicateSelectExprPass) Name() string { return "DuplicateSelectExpr" }

// Prepare implements LogicalPass.
func (p *DuplicateSelectExprPass) Prepare() {}

// ApplyLogical implements LogicalPass.
func (p *DuplicateSelectExprPass) ApplyLogical(stmt *ir.SelectStmt, ctx *QueryContext) error {
	if stmt.SelectList == nil {
		return nil
	}
	seen := make(map[string]bool, len(stmt.SelectList.Terms))
	for _, term := range stmt.SelectList.Terms {
		text := ir.Render(term.Expr)
		if seen[text] {
			return analysisErrorf("duplicate select expression: %s", text)
		}
		seen[text] = true
	}
	return nil
}
