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

// MatchTablePass recognizes match-table join patterns: a FromList of
// exactly two partitioned TableRefs sharing a database (spec §4.2 item 6).
// Whether either table is sub-chunked is not checked. A pair in different
// databases is simply not recorded as a match; no pass rejects it.
type MatchTablePass struct{}

// Name implements LogicalPass.
func (p *MatchTablePass) Name() string { return "MatchTable" }

// Prepare implements LogicalPass.
func (p *MatchTablePass) Prepare() {}

// ApplyLogical implements LogicalPass.
func (p *MatchTablePass) ApplyLogical(stmt *ir.SelectStmt, ctx *QueryContext) error {
	if stmt.FromList == nil || len(stmt.FromList.Tables) != 2 {
		return nil
	}
	a, b := stmt.FromList.Tables[0], stmt.FromList.Tables[1]
	if !a.IsPartitioned || !b.IsPartitioned || a.Db != b.Db {
		return nil
	}
	ctx.IsMatchQuery = true
	ctx.MatchTables = [2]string{a.Table, b.Table}
	return nil
}
