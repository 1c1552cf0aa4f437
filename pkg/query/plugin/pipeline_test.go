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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/provingground-moe/qserv-sub001/pkg/qerrors"
	"github.com/provingground-moe/qserv-sub001/pkg/query/ir"
)

func newTableCtx() *QueryContext {
	return &QueryContext{
		KnownTables: map[string]TableMeta{
			"Object": {Db: "LSST", IsPartitioned: true, IsSubChunked: true},
			"Source": {Db: "LSST", IsPartitioned: true, IsSubChunked: false},
			"Filter": {Db: "LSST", IsPartitioned: false},
		},
	}
}

func TestDuplicateSelectExprRejectsDuplicates(t *testing.T) {
	stmt := ir.NewSelectStmt()
	ref := ir.NewColumnRef("Object", "objectId")
	stmt.SelectList = ir.NewSelectList(
		&ir.SelectTerm{Expr: ref},
		&ir.SelectTerm{Expr: ref.Clone()},
	)
	pass := &DuplicateSelectExprPass{}
	pass.Prepare()
	err := pass.ApplyLogical(stmt, newTableCtx())
	require.Error(t, err)
	require.True(t, qerrors.Is(err, qerrors.KindAnalysisError))
}

func TestWherePassFlattensNesting(t *testing.T) {
	leaf1 := ir.NewValueExprPredicate(&ir.BinaryOp{Op: "=", Left: ir.NewColumnRef("Object", "a"), Right: ir.NewIntLiteral(1)})
	leaf2 := ir.NewValueExprPredicate(&ir.BinaryOp{Op: "=", Left: ir.NewColumnRef("Object", "b"), Right: ir.NewIntLiteral(2)})
	leaf3 := ir.NewValueExprPredicate(&ir.BinaryOp{Op: "=", Left: ir.NewColumnRef("Object", "c"), Right: ir.NewIntLiteral(3)})
	nested := ir.NewAndTerm(leaf1, ir.NewAndTerm(leaf2, leaf3))

	stmt := ir.NewSelectStmt()
	stmt.WhereClause = nested
	pass := &WherePass{}
	pass.Prepare()
	require.NoError(t, pass.ApplyLogical(stmt, newTableCtx()))

	and, ok := stmt.WhereClause.(*ir.AndTerm)
	require.True(t, ok)
	require.Len(t, and.Children, 3)
}

func TestDNFPassShape(t *testing.T) {
	leaf1 := ir.NewValueExprPredicate(&ir.BinaryOp{Op: "=", Left: ir.NewColumnRef("Object", "a"), Right: ir.NewIntLiteral(1)})
	leaf2 := ir.NewValueExprPredicate(&ir.BinaryOp{Op: "=", Left: ir.NewColumnRef("Object", "b"), Right: ir.NewIntLiteral(2)})
	leaf3 := ir.NewValueExprPredicate(&ir.BinaryOp{Op: "=", Left: ir.NewColumnRef("Object", "c"), Right: ir.NewIntLiteral(3)})
	// (a AND (b OR c))
	mixed := ir.NewAndTerm(leaf1, ir.NewOrTerm(leaf2, leaf3))

	stmt := ir.NewSelectStmt()
	stmt.WhereClause = mixed
	pass := &DNFPass{}
	pass.Prepare()
	require.NoError(t, pass.ApplyLogical(stmt, newTableCtx()))

	or, ok := stmt.WhereClause.(*ir.OrTerm)
	require.True(t, ok)
	require.Len(t, or.Children, 2)
	for _, child := range or.Children {
		and, ok := child.(*ir.AndTerm)
		require.True(t, ok)
		for _, grandchild := range and.Children {
			_, ok := grandchild.(*ir.BoolFactor)
			require.True(t, ok)
		}
	}
}

func TestDNFPassWrapsBareLeaf(t *testing.T) {
	leaf := ir.NewValueExprPredicate(&ir.BinaryOp{Op: "=", Left: ir.NewColumnRef("Object", "a"), Right: ir.NewIntLiteral(1)})
	stmt := ir.NewSelectStmt()
	stmt.WhereClause = leaf
	pass := &DNFPass{}
	pass.Prepare()
	require.NoError(t, pass.ApplyLogical(stmt, newTableCtx()))

	or, ok := stmt.WhereClause.(*ir.OrTerm)
	require.True(t, ok)
	require.Len(t, or.Children, 1)
	and, ok := or.Children[0].(*ir.AndTerm)
	require.True(t, ok)
	require.Len(t, and.Children, 1)
}

func TestAggregatePassSplitsAvgAndSetsNeedsMerge(t *testing.T) {
	stmt := ir.NewSelectStmt()
	stmt.SelectList = ir.NewSelectList(&ir.SelectTerm{
		Expr: &ir.FuncExpr{Name: "AVG", Args: []ir.ValueExpr{ir.NewColumnRef("Object", "mag")}},
	})
	ctx := newTableCtx()
	pass := &AggregatePass{}
	pass.Prepare()
	require.NoError(t, pass.ApplyLogical(stmt, ctx))
	require.True(t, ctx.NeedsMerge)
	require.Len(t, stmt.SelectList.Terms, 2)
	require.Equal(t, "qc0", stmt.SelectList.Terms[0].Alias)
	require.Equal(t, "qc1", stmt.SelectList.Terms[1].Alias)
}

func TestTablePassResolvesDominantDb(t *testing.T) {
	stmt := ir.NewSelectStmt()
	stmt.FromList = ir.NewFromList(&ir.TableRef{Table: "Object"}, &ir.TableRef{Table: "Filter"})
	ctx := newTableCtx()
	pass := &TablePass{}
	pass.Prepare()
	require.NoError(t, pass.ApplyLogical(stmt, ctx))
	require.Equal(t, "LSST", ctx.DominantDb)
	require.True(t, stmt.FromList.Tables[0].IsPartitioned)
	require.False(t, stmt.FromList.Tables[1].IsPartitioned)
}

func TestTablePassRejectsUnknownTable(t *testing.T) {
	stmt := ir.NewSelectStmt()
	stmt.FromList = ir.NewFromList(&ir.TableRef{Table: "Nope"})
	pass := &TablePass{}
	pass.Prepare()
	err := pass.ApplyLogical(stmt, newTableCtx())
	require.Error(t, err)
	require.True(t, qerrors.Is(err, qerrors.KindAnalysisError))
}

func TestMatchTablePassRecognizesJoin(t *testing.T) {
	stmt := ir.NewSelectStmt()
	stmt.FromList = ir.NewFromList(
		&ir.TableRef{Db: "LSST", Table: "Object", IsPartitioned: true},
		&ir.TableRef{Db: "LSST", Table: "Source", IsPartitioned: true},
	)
	ctx := newTableCtx()
	pass := &MatchTablePass{}
	pass.Prepare()
	require.NoError(t, pass.ApplyLogical(stmt, ctx))
	require.True(t, ctx.IsMatchQuery)
	require.Equal(t, [2]string{"Object", "Source"}, ctx.MatchTables)
}

func TestQservRestrictorExtractsAndStripsCall(t *testing.T) {
	restrictorCall := ir.NewValueExprPredicate(&ir.FuncExpr{
		Name: "qserv_areaspec_box",
		Args: []ir.ValueExpr{ir.NewIntLiteral(1), ir.NewIntLiteral(2)},
	})
	ordinary := ir.NewValueExprPredicate(&ir.BinaryOp{Op: "=", Left: ir.NewColumnRef("Object", "a"), Right: ir.NewIntLiteral(1)})

	stmt := ir.NewSelectStmt()
	stmt.WhereClause = ir.NewOrTerm(ir.NewAndTerm(ir.NewBoolFactor(restrictorCall, ordinary)))

	ctx := newTableCtx()
	pass := &QservRestrictorPass{}
	pass.Prepare()
	require.NoError(t, pass.ApplyLogical(stmt, ctx))

	require.Len(t, ctx.Restrictors, 1)
	require.Equal(t, "qserv_areaspec_box", ctx.Restrictors[0].Name)

	or := stmt.WhereClause.(*ir.OrTerm)
	and := or.Children[0].(*ir.AndTerm)
	require.Len(t, and.Children, 1)
	bf := and.Children[0].(*ir.BoolFactor)
	require.Len(t, bf.Terms, 1)
}

func TestPostPassOmitsOrderByWithoutLimit(t *testing.T) {
	stmt := ir.NewSelectStmt()
	stmt.OrderBy = ir.NewOrderBy(&ir.OrderByTerm{Expr: ir.NewColumnRef("Object", "objectId")})
	stmt.Limit = ir.NoLimit
	ctx := newTableCtx()
	ctx.NeedsMerge = true

	pass := &PostPass{}
	pass.Prepare()
	require.NoError(t, pass.ApplyLogical(stmt, ctx))
	require.False(t, ctx.RequireMergeOrderBy)

	plan := GenerateConcrete(stmt, ctx)
	require.NoError(t, pass.ApplyPhysical(plan, ctx))
	require.Nil(t, plan.Merge.OrderBy)
}

func TestScanTablePassFlipsInteractiveOnChunkCount(t *testing.T) {
	ctx := newTableCtx()
	ctx.InteractiveChunkThreshold = 10
	stmt := ir.NewSelectStmt()
	stmt.FromList = ir.NewFromList(&ir.TableRef{Table: "Object", IsPartitioned: true})

	pass := &ScanTablePass{}
	pass.Prepare()
	require.NoError(t, pass.ApplyLogical(stmt, ctx))
	require.True(t, ctx.ScanInteractive)

	ctx.ChunkCount = 11
	require.NoError(t, pass.ApplyFinal(ctx))
	require.False(t, ctx.ScanInteractive)
}

func TestDefaultPipelineRunsInOrder(t *testing.T) {
	stmt := ir.NewSelectStmt()
	stmt.SelectList = ir.NewSelectList(&ir.SelectTerm{Expr: ir.NewColumnRef("Object", "objectId")})
	stmt.FromList = ir.NewFromList(&ir.TableRef{Table: "Object"})
	stmt.WhereClause = ir.NewValueExprPredicate(&ir.BinaryOp{
		Op: "=", Left: ir.NewColumnRef("Object", "objectId"), Right: ir.NewIntLiteral(1),
	})

	ctx := newTableCtx()
	p := DefaultPipeline()
	require.NoError(t, p.Run(stmt, ctx))
	require.Equal(t, "LSST", ctx.DominantDb)
	require.True(t, stmt.FromList.Tables[0].IsPartitioned)

	or, ok := stmt.WhereClause.(*ir.OrTerm)
	require.True(t, ok)
	require.Len(t, or.Children, 1)
}
