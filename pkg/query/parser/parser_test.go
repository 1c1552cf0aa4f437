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

package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/provingground-moe/qserv-sub001/pkg/qerrors"
)

func TestParseSimpleSelect(t *testing.T) {
	stmt, err := Parse("SELECT ra, decl FROM Object WHERE objectId=42")
	require.NoError(t, err)
	require.Len(t, stmt.SelectList.Terms, 2)
	require.Equal(t, "Object", stmt.FromList.Tables[0].Table)
	require.NotNil(t, stmt.WhereClause)
	require.Equal(t, -1, stmt.Limit)
}

func TestParseWithAggregateGroupByLimit(t *testing.T) {
	stmt, err := Parse("SELECT objectId, COUNT(*) AS n FROM Source GROUP BY objectId ORDER BY n DESC LIMIT 10")
	require.NoError(t, err)
	require.True(t, stmt.SelectList.HasAggregate())
	require.Equal(t, "n", stmt.SelectList.Terms[1].Alias)
	require.Equal(t, 10, stmt.Limit)
	require.True(t, stmt.OrderBy.Terms[0].Desc)
}

func TestParseRestrictorCall(t *testing.T) {
	stmt, err := Parse("SELECT objectId FROM Object WHERE qserv_areaspec_box(0, 0, 1, 1)")
	require.NoError(t, err)
	require.NotNil(t, stmt.WhereClause)
	require.Contains(t, stmt.String(), "qserv_areaspec_box")
}

func TestParseAndOrNesting(t *testing.T) {
	stmt, err := Parse("SELECT objectId FROM Object WHERE a=1 AND (b=2 OR c=3)")
	require.NoError(t, err)
	require.NotNil(t, stmt.WhereClause)
}

func TestParseBetweenAndIn(t *testing.T) {
	stmt, err := Parse("SELECT objectId FROM Object WHERE mag BETWEEN 10 AND 20 AND flag IN (1, 2, 3)")
	require.NoError(t, err)
	text := stmt.String()
	require.Contains(t, text, "BETWEEN")
	require.Contains(t, text, "IN")
}

func TestParseRejectsOversizedStatement(t *testing.T) {
	huge := "SELECT a FROM t WHERE b = '" + strings.Repeat("x", MaxStatementBytes+1) + "'"
	_, err := Parse(huge)
	require.Error(t, err)
	require.True(t, qerrors.Is(err, qerrors.KindParseError))
}

func TestParseRejectsMalformed(t *testing.T) {
	_, err := Parse("SELECT 1 FROM")
	require.Error(t, err)
	require.True(t, qerrors.Is(err, qerrors.KindParseError))
}

func TestParseJoinTwoTables(t *testing.T) {
	stmt, err := Parse("SELECT o.objectId FROM Object o, Source s WHERE o.objectId = s.objectId")
	require.NoError(t, err)
	require.Len(t, stmt.FromList.Tables, 2)
	require.Equal(t, "o", stmt.FromList.Tables[0].Alias)
}
