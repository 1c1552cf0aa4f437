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

// Package ir is the query intermediate representation: an immutable-on-copy
// tree rooted at SelectStmt, with the boolean term tree (AndTerm, OrTerm,
// BoolFactor, BoolFactorTerm) that WHERE clauses are rewritten into on the
// way to disjunctive normal form (spec §4.1, §4.2 item 3).
package ir

// TermKind tags the concrete variant of a BoolTerm, used by callers that
// need to switch on shape (the DNF pass, structural equality, the post-DNF
// invariant check) without a full type switch at every use site.
type TermKind int

// The boolean term variants.
const (
	KindAnd TermKind = iota
	KindOr
	KindBoolFactor
	KindValueExprPredicate
	KindPassTerm
)

func (k TermKind) String() string {
	switch k {
	case KindAnd:
		return "And"
	case KindOr:
		return "Or"
	case KindBoolFactor:
		return "BoolFactor"
	case KindValueExprPredicate:
		return "ValueExprPredicate"
	case KindPassTerm:
		return "PassTerm"
	default:
		return "Unknown"
	}
}

// BoolTerm is the common interface of every node in the WHERE/HAVING term
// tree: AndTerm, OrTerm, BoolFactor and the BoolFactorTerm variants
// (ValueExprPredicate, PassTerm). Deep clone, syntax copy, template
// rendering, reference enumeration and structural equality (spec §4.1) are
// all required of every variant.
type BoolTerm interface {
	Renderable
	Kind() TermKind
	Clone() BoolTerm
	SyntaxCopy() BoolTerm
	Equal(other BoolTerm) bool
	ValueExprs(out []ValueExpr) []ValueExpr
	ColumnRefs(out []*ColumnRef) []*ColumnRef
}

// AndTerm is a conjunction of child terms.
type AndTerm struct {
	Children []BoolTerm
}

// NewAndTerm constructs an AndTerm over children.
func NewAndTerm(children ...BoolTerm) *AndTerm { return &AndTerm{Children: children} }

func (a *AndTerm) Kind() TermKind { return KindAnd }

func (a *AndTerm) Render(t *Template) {
	renderJoined(t, a.Children, " AND ")
}

func (a *AndTerm) Clone() BoolTerm {
	cp := &AndTerm{Children: make([]BoolTerm, len(a.Children))}
	for i, c := range a.Children {
		cp.Children[i] = c.Clone()
	}
	return cp
}

func (a *AndTerm) SyntaxCopy() BoolTerm {
	cp := &AndTerm{Children: make([]BoolTerm, len(a.Children))}
	for i, c := range a.Children {
		cp.Children[i] = c.SyntaxCopy()
	}
	return cp
}

func (a *AndTerm) Equal(other BoolTerm) bool {
	o, ok := other.(*AndTerm)
	return ok && equalTermSlices(a.Children, o.Children)
}

func (a *AndTerm) ValueExprs(out []ValueExpr) []ValueExpr {
	for _, c := range a.Children {
		out = c.ValueExprs(out)
	}
	return out
}

func (a *AndTerm) ColumnRefs(out []*ColumnRef) []*ColumnRef {
	for _, c := range a.Children {
		out = c.ColumnRefs(out)
	}
	return out
}

// OrTerm is a disjunction of child terms.
type OrTerm struct {
	Children []BoolTerm
}

// NewOrTerm constructs an OrTerm over children.
func NewOrTerm(children ...BoolTerm) *OrTerm { return &OrTerm{Children: children} }

func (o *OrTerm) Kind() TermKind { return KindOr }

func (o *OrTerm) Render(t *Template) {
	renderJoined(t, o.Children, " OR ")
}

func (o *OrTerm) Clone() BoolTerm {
	cp := &OrTerm{Children: make([]BoolTerm, len(o.Children))}
	for i, c := range o.Children {
		cp.Children[i] = c.Clone()
	}
	return cp
}

func (o *OrTerm) SyntaxCopy() BoolTerm {
	cp := &OrTerm{Children: make([]BoolTerm, len(o.Children))}
	for i, c := range o.Children {
		cp.Children[i] = c.SyntaxCopy()
	}
	return cp
}

func (o *OrTerm) Equal(other BoolTerm) bool {
	ot, ok := other.(*OrTerm)
	return ok && equalTermSlices(o.Children, ot.Children)
}

func (o *OrTerm) ValueExprs(out []ValueExpr) []ValueExpr {
	for _, c := range o.Children {
		out = c.ValueExprs(out)
	}
	return out
}

func (o *OrTerm) ColumnRefs(out []*ColumnRef) []*ColumnRef {
	for _, c := range o.Children {
		out = c.ColumnRefs(out)
	}
	return out
}

func renderJoined(t *Template, children []BoolTerm, sep string) {
	multi := len(children) > 1
	for i, c := range children {
		if i > 0 {
			t.WriteString(sep)
		}
		if multi && needsParens(c) {
			t.WriteByte('(')
			c.Render(t)
			t.WriteByte(')')
		} else {
			c.Render(t)
		}
	}
}

// needsParens reports whether c must be parenthesized when rendered as one
// of several children: every nested And or Or term is, whatever the
// parent's kind, which preserves render(clone(s)) == render(s) (spec §8).
func needsParens(c BoolTerm) bool {
	switch c.Kind() {
	case KindAnd, KindOr:
		return true
	default:
		return false
	}
}

func equalTermSlices(a, b []BoolTerm) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
