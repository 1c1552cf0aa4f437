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

import "fmt"

// NoLimit is the sentinel LIMIT value meaning "no limit clause" (spec §3:
// "LIMIT (negative ⇒ none)").
const NoLimit = -1

// SelectStmt is the root of the IR: a single SELECT statement. Every
// sub-tree is exclusively owned by the enclosing SelectStmt; plugins mutate
// it in place under a QueryContext, or return a replacement sub-tree rather
// than reaching into a shared one (spec §9, "shared IR ownership").
type SelectStmt struct {
	SelectList  *SelectList
	FromList    *FromList
	WhereClause BoolTerm
	GroupBy     *GroupBy
	Having      BoolTerm
	OrderBy     *OrderBy
	HasDistinct bool
	Limit       int
}

// NewSelectStmt constructs an empty statement with no LIMIT.
func NewSelectStmt() *SelectStmt {
	return &SelectStmt{Limit: NoLimit}
}

// Render appends the canonical SQL text for the statement to t, in the
// fixed order required by spec §4.1: SELECT [DISTINCT], SelectList, FROM
// FromList, WHERE WhereClause, GROUP BY, HAVING, ORDER BY, LIMIT n,
// omitting any clause whose owner is absent.
func (s *SelectStmt) Render(t *Template) {
	t.WriteString("SELECT ")
	if s.HasDistinct {
		t.WriteString("DISTINCT ")
	}
	if s.SelectList != nil {
		s.SelectList.Render(t)
	}
	if s.FromList != nil && len(s.FromList.Tables) > 0 {
		t.WriteString(" FROM ")
		s.FromList.Render(t)
	}
	if s.WhereClause != nil {
		t.WriteString(" WHERE ")
		s.WhereClause.Render(t)
	}
	if s.GroupBy != nil && len(s.GroupBy.Exprs) > 0 {
		t.WriteString(" GROUP BY ")
		s.GroupBy.Render(t)
	}
	if s.Having != nil {
		t.WriteString(" HAVING ")
		s.Having.Render(t)
	}
	if s.OrderBy != nil && len(s.OrderBy.Terms) > 0 {
		t.WriteString(" ORDER BY ")
		s.OrderBy.Render(t)
	}
	if s.Limit >= 0 {
		t.WriteString(fmt.Sprintf(" LIMIT %d", s.Limit))
	}
}

// Clone returns a deep copy: every owned sub-tree is duplicated, and
// mutating the clone never affects the original (spec §3, §8:
// render(clone(s)) == render(s)).
func (s *SelectStmt) Clone() *SelectStmt {
	cp := &SelectStmt{
		SelectList:  s.SelectList.clone(true),
		FromList:    s.FromList.clone(),
		GroupBy:     s.GroupBy.clone(true),
		OrderBy:     s.OrderBy.clone(true),
		HasDistinct: s.HasDistinct,
		Limit:       s.Limit,
	}
	if s.WhereClause != nil {
		cp.WhereClause = s.WhereClause.Clone()
	}
	if s.Having != nil {
		cp.Having = s.Having.Clone()
	}
	return cp
}

// SyntaxCopy returns a shallow copy that shares immutable syntactic leaves
// (Literal, PassTerm) with the receiver; ColumnRefs and interior nodes are
// copied. This is distinct from Clone's full duplication (spec §3).
func (s *SelectStmt) SyntaxCopy() *SelectStmt {
	cp := &SelectStmt{
		SelectList:  s.SelectList.clone(false),
		FromList:    s.FromList.clone(),
		GroupBy:     s.GroupBy.clone(false),
		OrderBy:     s.OrderBy.clone(false),
		HasDistinct: s.HasDistinct,
		Limit:       s.Limit,
	}
	if s.WhereClause != nil {
		cp.WhereClause = s.WhereClause.SyntaxCopy()
	}
	if s.Having != nil {
		cp.Having = s.Having.SyntaxCopy()
	}
	return cp
}

// String renders the statement with a fresh Template.
func (s *SelectStmt) String() string {
	return Render(s)
}

// ColumnRefs enumerates every ColumnRef reachable from the statement's
// select list, WHERE clause, GROUP BY, HAVING and ORDER BY.
func (s *SelectStmt) ColumnRefs() []*ColumnRef {
	var out []*ColumnRef
	if s.SelectList != nil {
		for _, term := range s.SelectList.Terms {
			out = term.Expr.ColumnRefs(out)
		}
	}
	if s.WhereClause != nil {
		out = s.WhereClause.ColumnRefs(out)
	}
	if s.GroupBy != nil {
		for _, e := range s.GroupBy.Exprs {
			out = e.ColumnRefs(out)
		}
	}
	if s.Having != nil {
		out = s.Having.ColumnRefs(out)
	}
	if s.OrderBy != nil {
		for _, term := range s.OrderBy.Terms {
			out = term.Expr.ColumnRefs(out)
		}
	}
	return out
}
