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
	"fmt"

	"github.com/provingground-moe/qserv-sub001/pkg/query/ir"
)

// AggregatePass splits aggregates into a parallel form, computed per chunk,
// and sets ctx.NeedsMerge when any aggregate is present (spec §4.2 item 4).
// AVG(x) is rewritten to SUM(x) and COUNT(x) in the parallel form;
// COUNT/SUM/MIN/MAX pass through unchanged. The pass builds no merge form:
// GenerateConcrete copies the rewritten parallel select list into the merge
// statement as it is, without wrapping the pieces in merge functions or
// recombining an AVG's SUM and COUNT.
type AggregatePass struct {
	synth int
}

// Name implements LogicalPass.
func (p *AggregatePass) Name() string { return "Aggregate" }

// Prepare implements LogicalPass.
func (p *AggregatePass) Prepare() { p.synth = 0 }

// ApplyLogical implements LogicalPass.
func (p *AggregatePass) ApplyLogical(stmt *ir.SelectStmt, ctx *QueryContext) error {
	if stmt.SelectList == nil || !stmt.SelectList.HasAggregate() {
		return nil
	}
	ctx.NeedsMerge = true
	var rewritten []*ir.SelectTerm
	for _, term := range stmt.SelectList.Terms {
		rewritten = append(rewritten, p.splitTerm(term)...)
	}
	stmt.SelectList.Terms = rewritten
	return nil
}

// splitTerm rewrites a single projected term into its parallel-form
// pieces, assigning synthetic aliases ("qcN") to both pieces of an AVG
// split (SUM + COUNT) and to any other aggregate that has no alias.
func (p *AggregatePass) splitTerm(term *ir.SelectTerm) []*ir.SelectTerm {
	fn, ok := term.Expr.(*ir.FuncExpr)
	if !ok || !fn.IsAggregate() {
		return []*ir.SelectTerm{term}
	}
	switch fn.Name {
	case "AVG":
		sum := &ir.FuncExpr{Name: "SUM", Args: fn.Args}
		cnt := &ir.FuncExpr{Name: "COUNT", Args: fn.Args}
		return []*ir.SelectTerm{
			{Expr: sum, Alias: p.nextAlias()},
			{Expr: cnt, Alias: p.nextAlias()},
		}
	default:
		alias := term.Alias
		if alias == "" {
			alias = p.nextAlias()
		}
		return []*ir.SelectTerm{{Expr: term.Expr, Alias: alias}}
	}
}

func (p *AggregatePass) nextAlias() string {
	alias := fmt.Sprintf("qc%d", p.synth)
	p.synth++
	return alias
}
