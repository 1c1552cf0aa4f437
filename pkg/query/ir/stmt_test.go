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
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleStmt() *SelectStmt {
	s := NewSelectStmt()
	s.SelectList = NewSelectList(
		&SelectTerm{Expr: NewColumnRef("Object", "objectId")},
		&SelectTerm{Expr: &FuncExpr{Name: "COUNT", Star: true}, Alias: "n"},
	)
	s.FromList = NewFromList(&TableRef{Table: "Object", IsPartitioned: true})
	s.WhereClause = NewAndTerm(
		NewValueExprPredicate(&BinaryOp{Op: "=", Left: NewColumnRef("Object", "objectId"), Right: NewIntLiteral(42)}),
		NewOrTerm(
			NewValueExprPredicate(&BinaryOp{Op: "<", Left: NewColumnRef("Object", "ra"), Right: NewIntLiteral(10)}),
			NewValueExprPredicate(&BinaryOp{Op: ">", Left: NewColumnRef("Object", "ra"), Right: NewIntLiteral(20)}),
		),
	)
	s.GroupBy = NewGroupBy(NewColumnRef("Object", "objectId"))
	s.OrderBy = NewOrderBy(&OrderByTerm{Expr: NewColumnRef("Object", "objectId"), Desc: true})
	s.Limit = 100
	return s
}

func TestSelectStmtRenderOrder(t *testing.T) {
	s := sampleStmt()
	got := s.String()
	require.Contains(t, got, "SELECT ")
	require.Contains(t, got, " FROM ")
	require.Contains(t, got, " WHERE ")
	require.Contains(t, got, " GROUP BY ")
	require.Contains(t, got, " ORDER BY ")
	require.Contains(t, got, " LIMIT 100")

	require.Less(t, indexOf(got, "SELECT"), indexOf(got, "FROM"))
	require.Less(t, indexOf(got, "FROM"), indexOf(got, "WHERE"))
	require.Less(t, indexOf(got, "WHERE"), indexOf(got, "GROUP BY"))
	require.Less(t, indexOf(got, "GROUP BY"), indexOf(got, "ORDER BY"))
	require.Less(t, indexOf(got, "ORDER BY"), indexOf(got, "LIMIT"))
}

func TestSelectStmtCloneRenderInvariant(t *testing.T) {
	s := sampleStmt()
	clone := s.Clone()
	require.Equal(t, s.String(), clone.String())

	clone.Limit = 1
	require.NotEqual(t, s.Limit, clone.Limit)
	require.Equal(t, 100, s.Limit)
}

func TestSelectStmtSyntaxCopySharesLeaves(t *testing.T) {
	s := sampleStmt()
	cp := s.SyntaxCopy()
	require.Equal(t, s.String(), cp.String())

	origRef := s.FromList.Tables[0]
	cpRef := cp.FromList.Tables[0]
	require.Equal(t, *origRef, *cpRef)

	origLit := s.WhereClause.(*AndTerm).Children[0].(*ValueExprPredicate).Expr.(*BinaryOp).Right
	cpLit := cp.WhereClause.(*AndTerm).Children[0].(*ValueExprPredicate).Expr.(*BinaryOp).Right
	require.Same(t, origLit, cpLit)
}

func TestSelectStmtNoLimitOmitsClause(t *testing.T) {
	s := sampleStmt()
	s.Limit = NoLimit
	require.NotContains(t, s.String(), "LIMIT")
}

func TestSelectStmtColumnRefs(t *testing.T) {
	s := sampleStmt()
	refs := s.ColumnRefs()
	require.NotEmpty(t, refs)
	for _, r := range refs {
		require.Equal(t, "Object", r.Table)
	}
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
