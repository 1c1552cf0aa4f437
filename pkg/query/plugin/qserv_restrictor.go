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

import (
	"strings"

	"github.com/provingground-moe/qserv-sub001/pkg/query/ir"
)

// qservFuncPrefix marks a function call as a spatial/secondary-index
// restrictor rather than an ordinary predicate, e.g. qserv_areaspec_box(...).
const qservFuncPrefix = "qserv_"

// QservRestrictorPass translates spatial restrictors into chunk/sub-chunk
// constraints recorded on ctx.Restrictors, removing them from the rendered
// WHERE clause since they carry no meaning against a single chunk's rows
// (spec §4.2 item 7). Runs after DNF, so the WHERE root is always an OrTerm
// of AndTerms of BoolFactors.
type QservRestrictorPass struct{}

// Name implements LogicalPass.
func (p *QservRestrictorPass) Name() string { return "QservRestrictor" }

// Prepare implements LogicalPass.
func (p *QservRestrictorPass) Prepare() {}

// ApplyLogical implements LogicalPass.
func (p *QservRestrictorPass) ApplyLogical(stmt *ir.SelectStmt, ctx *QueryContext) error {
	if stmt.WhereClause == nil {
		return nil
	}
	or, ok := stmt.WhereClause.(*ir.OrTerm)
	if !ok {
		return nil
	}
	for _, andChild := range or.Children {
		and, ok := andChild.(*ir.AndTerm)
		if !ok {
			continue
		}
		var kept []ir.BoolTerm
		for _, bfChild := range and.Children {
			bf, ok := bfChild.(*ir.BoolFactor)
			if !ok {
				kept = append(kept, bfChild)
				continue
			}
			var keptTerms []ir.BoolFactorTerm
			for _, t := range bf.Terms {
				if r, ok := extractRestrictor(t); ok {
					ctx.Restrictors = append(ctx.Restrictors, r)
					continue
				}
				keptTerms = append(keptTerms, t)
			}
			if len(keptTerms) == 0 {
				continue
			}
			kept = append(kept, &ir.BoolFactor{Not: bf.Not, Terms: keptTerms})
		}
		and.Children = kept
	}
	return nil
}

// extractRestrictor reports whether t is a bare qserv_* function call and,
// if so, the Restrictor it describes.
func extractRestrictor(t ir.BoolFactorTerm) (Restrictor, bool) {
	pred, ok := t.(*ir.ValueExprPredicate)
	if !ok {
		return Restrictor{}, false
	}
	fn, ok := pred.Expr.(*ir.FuncExpr)
	if !ok || !strings.HasPrefix(fn.Name, qservFuncPrefix) {
		return Restrictor{}, false
	}
	args := make([]string, len(fn.Args))
	for i, a := range fn.Args {
		args[i] = ir.Render(a)
	}
	return Restrictor{Name: fn.Name, Args: args}, true
}
