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

// DNFPass rewrites the WHERE root into disjunctive normal form: an OrTerm
// whose children are AndTerms whose children are BoolFactors (spec §4.2
// item 3). If the incoming root is neither Or nor And, it is wrapped as
// Or(And(root)).
type DNFPass struct{}

// Name implements LogicalPass.
func (p *DNFPass) Name() string { return "DNF" }

// Prepare implements LogicalPass.
func (p *DNFPass) Prepare() {}

// ApplyLogical implements LogicalPass.
func (p *DNFPass) ApplyLogical(stmt *ir.SelectStmt, ctx *QueryContext) error {
	if stmt.WhereClause == nil {
		return nil
	}
	stmt.WhereClause = toDNF(stmt.WhereClause)
	return nil
}

// toDNF distributes AND over OR, treating already-conjoined BoolFactors
// (without a leading NOT) as pre-formed products and negated BoolFactors as
// opaque leaves (De Morgan expansion of NOT is not attempted: spec §4.2
// item 3 only requires shape normalization, not boolean minimization).
func toDNF(term ir.BoolTerm) ir.BoolTerm {
	products := toProducts(term)
	ands := make([]ir.BoolTerm, len(products))
	for i, leaves := range products {
		factors := make([]ir.BoolFactorTerm, len(leaves))
		copy(factors, leaves)
		ands[i] = ir.NewAndTerm(wrapFactors(factors)...)
	}
	if len(ands) == 1 {
		return ir.NewOrTerm(ands[0])
	}
	return ir.NewOrTerm(ands...)
}

// wrapFactors wraps each factor term as its own single-term BoolFactor, so
// the resulting AndTerm's children are BoolFactors per spec §4.2 item 3.
func wrapFactors(factors []ir.BoolFactorTerm) []ir.BoolTerm {
	out := make([]ir.BoolTerm, len(factors))
	for i, f := range factors {
		if bf, ok := f.(*ir.BoolFactor); ok && !bf.Not {
			out[i] = bf
			continue
		}
		out[i] = ir.NewBoolFactor(f)
	}
	return out
}

// toProducts returns the sum-of-products form of term as a list of
// conjunctions, each a list of leaf BoolTerms.
func toProducts(term ir.BoolTerm) [][]ir.BoolTerm {
	switch t := term.(type) {
	case *ir.AndTerm:
		products := [][]ir.BoolTerm{{}}
		for _, c := range t.Children {
			products = crossProduct(products, toProducts(c))
		}
		return products
	case *ir.OrTerm:
		var products [][]ir.BoolTerm
		for _, c := range t.Children {
			products = append(products, toProducts(c)...)
		}
		return products
	case *ir.BoolFactor:
		if t.Not {
			return [][]ir.BoolTerm{{t}}
		}
		return [][]ir.BoolTerm{append([]ir.BoolTerm{}, t.Terms...)}
	default:
		return [][]ir.BoolTerm{{t}}
	}
}

// crossProduct combines every conjunction in a with every conjunction in b.
func crossProduct(a, b [][]ir.BoolTerm) [][]ir.BoolTerm {
	out := make([][]ir.BoolTerm, 0, len(a)*len(b))
	for _, ai := range a {
		for _, bi := range b {
			combined := make([]ir.BoolTerm, 0, len(ai)+len(bi))
			combined = append(combined, ai...)
			combined = append(combined, bi...)
			out = append(out, combined)
		}
	}
	return out
}
