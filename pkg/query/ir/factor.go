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

package ir

// BoolFactorTerm is the leaf-level variant of BoolTerm that a BoolFactor's
// Terms slice holds: either a ValueExprPredicate or a PassTerm. It is the
// same interface as BoolTerm (spec §4.1 treats the whole family
// polymorphically); the alias exists purely to document intent at call
// sites that only ever expect a leaf.
type BoolFactorTerm = BoolTerm

// BoolFactor is "[NOT] term (AND term)*" at the leaf of the boolean term
// tree: a conjunction of predicates, optionally negated as a whole. After
// the DNF pass (spec §4.2 item 3) every grandchild of the WHERE root is a
// BoolFactor.
type BoolFactor struct {
	Not   bool
	Terms []BoolFactorTerm
}

// NewBoolFactor constructs a (non-negated) BoolFactor from one or more
// leaf terms joined by AND.
func NewBoolFactor(terms ...BoolFactorTerm) *BoolFactor {
	return &BoolFactor{Terms: terms}
}

func (f *BoolFactor) Kind() TermKind { return KindBoolFactor }

func (f *BoolFactor) Render(t *Template) {
	if f.Not {
		t.WriteString("NOT ")
	}
	multi := len(f.Terms) > 1
	if multi && f.Not {
		t.WriteByte('(')
	}
	for i, term := range f.Terms {
		if i > 0 {
			t.WriteString(" AND ")
		}
		term.Render(t)
	}
	if multi && f.Not {
		t.WriteByte(')')
	}
}

func (f *BoolFactor) Clone() BoolTerm {
	cp := &BoolFactor{Not: f.Not, Terms: make([]BoolFactorTerm, len(f.Terms))}
	for i, term := range f.Terms {
		cp.Terms[i] = term.Clone()
	}
	return cp
}

func (f *BoolFactor) SyntaxCopy() BoolTerm {
	cp := &BoolFactor{Not: f.Not, Terms: make([]BoolFactorTerm, len(f.Terms))}
	for i, term := range f.Terms {
		cp.Terms[i] = term.SyntaxCopy()
	}
	return cp
}

func (f *BoolFactor) Equal(other BoolTerm) bool {
	o, ok := other.(*BoolFactor)
	return ok && f.Not == o.Not && equalTermSlices(f.Terms, o.Terms)
}

func (f *BoolFactor) ValueExprs(out []ValueExpr) []ValueExpr {
	for _, term := range f.Terms {
		out = term.ValueExprs(out)
	}
	return out
}

func (f *BoolFactor) ColumnRefs(out []*ColumnRef) []*ColumnRef {
	for _, term := range f.Terms {
		out = term.ColumnRefs(out)
	}
	return out
}

// ValueExprPredicate is a leaf predicate built from an ordinary scalar
// expression, e.g. "objectId = 42" or a QservRestrictor call like
// "qserv_areaspec_box(...)" before it is translated into chunk/sub-chunk
// constraints.
type ValueExprPredicate struct {
	Expr ValueExpr
}

// NewValueExprPredicate wraps expr as a leaf predicate.
func NewValueExprPredicate(expr ValueExpr) *ValueExprPredicate {
	return &ValueExprPredicate{Expr: expr}
}

func (p *ValueExprPredicate) Kind() TermKind { return KindValueExprPredicate }

func (p *ValueExprPredicate) Render(t *Template) { p.Expr.Render(t) }

func (p *ValueExprPredicate) Clone() BoolTerm {
	return &ValueExprPredicate{Expr: p.Expr.Clone()}
}

func (p *ValueExprPredicate) SyntaxCopy() BoolTerm {
	return &ValueExprPredicate{Expr: p.Expr.SyntaxCopy()}
}

func (p *ValueExprPredicate) Equal(other BoolTerm) bool {
	o, ok := other.(*ValueExprPredicate)
	return ok && p.Expr.Equal(o.Expr)
}

func (p *ValueExprPredicate) ValueExprs(out []ValueExpr) []ValueExpr {
	return append(out, p.Expr)
}

func (p *ValueExprPredicate) ColumnRefs(out []*ColumnRef) []*ColumnRef {
	return p.Expr.ColumnRefs(out)
}

// PassTerm is an opaque fragment of SQL the parser recognized syntactically
// but the IR does not otherwise model (e.g. BETWEEN, IN (...), LIKE): it
// passes through rendering verbatim and contributes no ValueExpr/ColumnRef
// of its own beyond what the caller pre-extracted into Refs.
type PassTerm struct {
	Text string
	Refs []*ColumnRef
}

// NewPassTerm constructs a pass-through leaf, recording any column
// references the parser already identified inside text so later passes
// (ScanTable, QservRestrictor) can still see them.
func NewPassTerm(text string, refs ...*ColumnRef) *PassTerm {
	return &PassTerm{Text: text, Refs: refs}
}

func (p *PassTerm) Kind() TermKind { return KindPassTerm }

func (p *PassTerm) Render(t *Template) { t.WriteString(p.Text) }

func (p *PassTerm) Clone() BoolTerm {
	cp := &PassTerm{Text: p.Text, Refs: make([]*ColumnRef, len(p.Refs))}
	for i, r := range p.Refs {
		rc := *r
		cp.Refs[i] = &rc
	}
	return cp
}

func (p *PassTerm) SyntaxCopy() BoolTerm { return p }

func (p *PassTerm) Equal(other BoolTerm) bool {
	o, ok := other.(*PassTerm)
	return ok && p.Text == o.Text
}

func (p *PassTerm) ValueExprs(out []ValueExpr) []ValueExpr { return out }

func (p *PassTerm) ColumnRefs(out []*ColumnRef) []*ColumnRef {
	return append(out, p.Refs...)
}
