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

import (
	"fmt"
	"strings"
)

// ValueExpr is the common interface for scalar expressions: column
// references, literals, function calls and binary operators. It is the
// leaf-and-branch currency of both the select list and the WHERE term tree.
type ValueExpr interface {
	Renderable
	// Clone returns a deep copy; no sub-tree is shared with the receiver.
	Clone() ValueExpr
	// SyntaxCopy returns a copy that may share immutable syntactic leaves
	// (e.g. a ColumnRef's name strings) with the receiver.
	SyntaxCopy() ValueExpr
	// Equal reports structural equality.
	Equal(other ValueExpr) bool
	// ColumnRefs appends every ColumnRef reachable from this expression.
	ColumnRefs(out []*ColumnRef) []*ColumnRef
	// IsAggregate reports whether this expression is (or contains, at the
	// top applicable level) an aggregate function call such as COUNT/SUM.
	IsAggregate() bool
}

// ColumnRef names a (possibly qualified) column.
type ColumnRef struct {
	Db     string
	Table  string
	Column string
}

// NewColumnRef constructs an unqualified-db column reference.
func NewColumnRef(table, column string) *ColumnRef {
	return &ColumnRef{Table: table, Column: column}
}

func (c *ColumnRef) Render(t *Template) {
	if c.Db != "" {
		t.WriteString(c.Db)
		t.WriteByte('.')
	}
	if c.Table != "" {
		t.WriteString(c.Table)
		t.WriteString(ChunkToken)
		t.WriteByte('.')
	}
	t.WriteString(c.Column)
}

func (c *ColumnRef) Clone() ValueExpr { cp := *c; return &cp }

func (c *ColumnRef) SyntaxCopy() ValueExpr { return c.Clone() }

func (c *ColumnRef) Equal(other ValueExpr) bool {
	o, ok := other.(*ColumnRef)
	return ok && *c == *o
}

func (c *ColumnRef) ColumnRefs(out []*ColumnRef) []*ColumnRef {
	return append(out, c)
}

func (c *ColumnRef) IsAggregate() bool { return false }

// String implements fmt.Stringer for debug output.
func (c *ColumnRef) String() string { return Render(c) }

// Literal is a constant value: string, integer, float or NULL.
type Literal struct {
	// Text is the literal's canonical SQL text, already quoted/escaped as
	// needed (e.g. `42`, `'abc'`, `NULL`).
	Text string
}

// NewIntLiteral constructs an integer literal.
func NewIntLiteral(v int64) *Literal { return &Literal{Text: fmt.Sprintf("%d", v)} }

// NewStringLiteral constructs a quoted string literal.
func NewStringLiteral(v string) *Literal {
	return &Literal{Text: "'" + strings.ReplaceAll(v, "'", "''") + "'"}
}

func (l *Literal) Render(t *Template) { t.WriteString(l.Text) }

func (l *Literal) Clone() ValueExpr { cp := *l; return &cp }

func (l *Literal) SyntaxCopy() ValueExpr { return l }

func (l *Literal) Equal(other ValueExpr) bool {
	o, ok := other.(*Literal)
	return ok && l.Text == o.Text
}

func (l *Literal) ColumnRefs(out []*ColumnRef) []*ColumnRef { return out }

func (l *Literal) IsAggregate() bool { return false }

// aggregateFuncs names the functions the Aggregate pass (spec §4.2 item 4)
// recognizes and splits into parallel/merge form.
var aggregateFuncs = map[string]bool{
	"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true,
}

// IsAggregateFuncName reports whether name (case-insensitive match already
// normalized by the caller) is a recognized aggregate.
func IsAggregateFuncName(name string) bool { return aggregateFuncs[name] }

// FuncExpr is a function call, e.g. COUNT(*) or POINT(ra, decl).
type FuncExpr struct {
	Name string
	Args []ValueExpr
	Star bool // true for e.g. COUNT(*)
}

func (f *FuncExpr) Render(t *Template) {
	t.WriteString(f.Name)
	t.WriteByte('(')
	if f.Star {
		t.WriteByte('*')
	} else {
		for i, a := range f.Args {
			if i > 0 {
				t.WriteString(", ")
			}
			a.Render(t)
		}
	}
	t.WriteByte(')')
}

func (f *FuncExpr) Clone() ValueExpr {
	cp := &FuncExpr{Name: f.Name, Star: f.Star}
	for _, a := range f.Args {
		cp.Args = append(cp.Args, a.Clone())
	}
	return cp
}

func (f *FuncExpr) SyntaxCopy() ValueExpr {
	cp := &FuncExpr{Name: f.Name, Star: f.Star}
	for _, a := range f.Args {
		cp.Args = append(cp.Args, a.SyntaxCopy())
	}
	return cp
}

func (f *FuncExpr) Equal(other ValueExpr) bool {
	o, ok := other.(*FuncExpr)
	if !ok || f.Name != o.Name || f.Star != o.Star || len(f.Args) != len(o.Args) {
		return false
	}
	for i := range f.Args {
		if !f.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

func (f *FuncExpr) ColumnRefs(out []*ColumnRef) []*ColumnRef {
	for _, a := range f.Args {
		out = a.ColumnRefs(out)
	}
	return out
}

func (f *FuncExpr) IsAggregate() bool { return IsAggregateFuncName(f.Name) }

// BinaryOp is a binary operator, e.g. "=", "<", "AND" at the expression
// level (the boolean term tree below handles top-level AND/OR; BinaryOp
// covers comparisons and arithmetic within a ValueExprPredicate).
type BinaryOp struct {
	Op    string
	Left  ValueExpr
	Right ValueExpr
}

func (b *BinaryOp) Render(t *Template) {
	b.Left.Render(t)
	t.WriteByte(' ')
	t.WriteString(b.Op)
	t.WriteByte(' ')
	b.Right.Render(t)
}

func (b *BinaryOp) Clone() ValueExpr {
	return &BinaryOp{Op: b.Op, Left: b.Left.Clone(), Right: b.Right.Clone()}
}

func (b *BinaryOp) SyntaxCopy() ValueExpr {
	return &BinaryOp{Op: b.Op, Left: b.Left.SyntaxCopy(), Right: b.Right.SyntaxCopy()}
}

func (b *BinaryOp) Equal(other ValueExpr) bool {
	o, ok := other.(*BinaryOp)
	return ok && b.Op == o.Op && b.Left.Equal(o.Left) && b.Right.Equal(o.Right)
}

func (b *BinaryOp) ColumnRefs(out []*ColumnRef) []*ColumnRef {
	out = b.Left.ColumnRefs(out)
	return b.Right.ColumnRefs(out)
}

func (b *BinaryOp) IsAggregate() bool { return false }
