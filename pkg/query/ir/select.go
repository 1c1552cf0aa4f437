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

// SelectTerm is one projected expression in a SelectList, with an optional
// alias (the Aggregate pass assigns synthetic aliases like "qc0" to the
// parallel form of a split aggregate, spec §4.2 item 4).
type SelectTerm struct {
	Expr  ValueExpr
	Alias string
}

func (s *SelectTerm) clone(deep bool) *SelectTerm {
	var e ValueExpr
	if deep {
		e = s.Expr.Clone()
	} else {
		e = s.Expr.SyntaxCopy()
	}
	return &SelectTerm{Expr: e, Alias: s.Alias}
}

// SelectList is the ordered set of projected expressions.
type SelectList struct {
	Terms []*SelectTerm
}

// NewSelectList constructs a SelectList from terms.
func NewSelectList(terms ...*SelectTerm) *SelectList {
	return &SelectList{Terms: terms}
}

func (l *SelectList) Render(t *Template) {
	for i, term := range l.Terms {
		if i > 0 {
			t.WriteString(", ")
		}
		term.Expr.Render(t)
		if term.Alias != "" {
			t.WriteString(" AS ")
			t.WriteString(term.Alias)
		}
	}
}

// Clone returns a deep copy of the select list.
func (l *SelectList) Clone() *SelectList { return l.clone(true) }

func (l *SelectList) clone(deep bool) *SelectList {
	if l == nil {
		return nil
	}
	cp := &SelectList{Terms: make([]*SelectTerm, len(l.Terms))}
	for i, term := range l.Terms {
		cp.Terms[i] = term.clone(deep)
	}
	return cp
}

// HasAggregate reports whether any projected term is (or contains) an
// aggregate function call.
func (l *SelectList) HasAggregate() bool {
	if l == nil {
		return false
	}
	for _, term := range l.Terms {
		if term.Expr.IsAggregate() {
			return true
		}
	}
	return false
}

// TableRef names one FROM-list entry. IsPartitioned is set by the Table /
// ScanTable passes once the dominant database and scan plan are known; it
// drives whether Render emits ChunkToken/SubChunkToken placeholders.
type TableRef struct {
	Db            string
	Table         string
	Alias         string
	IsPartitioned bool
	IsSubChunked  bool
}

func (r *TableRef) Render(t *Template) {
	if r.Db != "" {
		t.WriteString(r.Db)
		t.WriteByte('.')
	}
	t.WriteString(r.Table)
	if r.IsPartitioned {
		t.WriteString(ChunkToken)
	}
	if r.IsSubChunked {
		t.WriteString(SubChunkToken)
	}
	if r.Alias != "" {
		t.WriteString(" AS ")
		t.WriteString(r.Alias)
	}
}

func (r *TableRef) clone() *TableRef {
	cp := *r
	return &cp
}

// FromList is the ordered set of table references in the FROM clause. Joins
// beyond a plain comma-list are out of this IR's scope (cross-family joins
// are a spec Non-goal; same-family match-table joins are recognized by the
// MatchTable pass as a FromList of exactly two partitioned TableRefs).
type FromList struct {
	Tables []*TableRef
}

// NewFromList constructs a FromList.
func NewFromList(tables ...*TableRef) *FromList { return &FromList{Tables: tables} }

func (f *FromList) Render(t *Template) {
	for i, tbl := range f.Tables {
		if i > 0 {
			t.WriteString(", ")
		}
		tbl.Render(t)
	}
}

func (f *FromList) clone() *FromList {
	if f == nil {
		return nil
	}
	cp := &FromList{Tables: make([]*TableRef, len(f.Tables))}
	for i, tbl := range f.Tables {
		cp.Tables[i] = tbl.clone()
	}
	return cp
}

// OrderByTerm is one ORDER BY key.
type OrderByTerm struct {
	Expr ValueExpr
	Desc bool
}

// OrderBy is the ordered set of ORDER BY keys.
type OrderBy struct {
	Terms []*OrderByTerm
}

// NewOrderBy constructs an OrderBy.
func NewOrderBy(terms ...*OrderByTerm) *OrderBy { return &OrderBy{Terms: terms} }

func (o *OrderBy) Render(t *Template) {
	for i, term := range o.Terms {
		if i > 0 {
			t.WriteString(", ")
		}
		term.Expr.Render(t)
		if term.Desc {
			t.WriteString(" DESC")
		}
	}
}

// Clone returns a deep copy of the ORDER BY list.
func (o *OrderBy) Clone() *OrderBy { return o.clone(true) }

func (o *OrderBy) clone(deep bool) *OrderBy {
	if o == nil {
		return nil
	}
	cp := &OrderBy{Terms: make([]*OrderByTerm, len(o.Terms))}
	for i, term := range o.Terms {
		e := term.Expr
		if deep {
			e = e.Clone()
		} else {
			e = e.SyntaxCopy()
		}
		cp.Terms[i] = &OrderByTerm{Expr: e, Desc: term.Desc}
	}
	return cp
}

// GroupBy is the ordered set of GROUP BY keys.
type GroupBy struct {
	Exprs []ValueExpr
}

// NewGroupBy constructs a GroupBy.
func NewGroupBy(exprs ...ValueExpr) *GroupBy { return &GroupBy{Exprs: exprs} }

func (g *GroupBy) Render(t *Template) {
	for i, e := range g.Exprs {
		if i > 0 {
			t.WriteString(", ")
		}
		e.Render(t)
	}
}

// Clone returns a deep copy of the GROUP BY list.
func (g *GroupBy) Clone() *GroupBy { return g.clone(true) }

func (g *GroupBy) clone(deep bool) *GroupBy {
	if g == nil {
		return nil
	}
	cp := &GroupBy{Exprs: make([]ValueExpr, len(g.Exprs))}
	for i, e := range g.Exprs {
		if deep {
			cp.Exprs[i] = e.Clone()
		} else {
			cp.Exprs[i] = e.SyntaxCopy()
		}
	}
	return cp
}
