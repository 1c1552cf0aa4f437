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

// WherePass canonicalizes the WHERE clause ahead of DNF conversion (spec
// §4.2 item 2): nested AndTerm/OrTerm of the same kind are flattened so DNF
// sees a minimal tree, and literal-equals-literal predicates that always
// hold are hoisted out (dropped, since an always-true conjunct contributes
// nothing to the result).
type WherePass struct{}

// Name implements LogicalPass.
func (p *WherePass) Name() string { return "Where" }

// Prepare implements LogicalPass.
func (p *WherePass) Prepare() {}

// ApplyLogical implements LogicalPass.
func (p *WherePass) ApplyLogical(stmt *ir.SelectStmt, ctx *QueryContext) error {
	if stmt.WhereClause == nil {
		return nil
	}
	stmt.WhereClause = canonicalize(stmt.WhereClause)
	return nil
}

// canonicalize flattens same-kind nesting and drops tautological literal
// comparisons, recursively and bottom-up.
func canonicalize(term ir.BoolTerm) ir.BoolTerm {
	switch t := term.(type) {
	case *ir.AndTerm:
		var flat []ir.BoolTerm
		for _, c := range t.Children {
			cc := canonicalize(c)
			if isTautology(cc) {
				continue
			}
			if nested, ok := cc.(*ir.AndTerm); ok {
				flat = append(flat, nested.Children...)
			} else {
				flat = append(flat, cc)
			}
		}
		if len(flat) == 1 {
			return flat[0]
		}
		return ir.NewAndTerm(flat...)
	case *ir.OrTerm:
		var flat []ir.BoolTerm
		for _, c := range t.Children {
			cc := canonicalize(c)
			if nested, ok := cc.(*ir.OrTerm); ok {
				flat = append(flat, nested.Children...)
			} else {
				flat = append(flat, cc)
			}
		}
		if len(flat) == 1 {
			return flat[0]
		}
		return ir.NewOrTerm(flat...)
	default:
		return term
	}
}

// isTautology reports whether term is a literal-equals-literal predicate
// with identical operands (the only constant-folding shape this pass
// recognizes; anything it cannot prove true is kept).
func isTautology(term ir.BoolTerm) bool {
	pred, ok := term.(*ir.ValueExprPredicate)
	if !ok {
		return false
	}
	bin, ok := pred.Expr.(*ir.BinaryOp)
	if !ok || bin.Op != "=" {
		return false
	}
	l, lok := bin.Left.(*ir.Literal)
	r, rok := bin.Right.(*ir.Literal)
	return lok && rok && l.Text == r.Text
}
