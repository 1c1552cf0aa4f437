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

// ScanTablePass compares the eventual chunk count against the interactive
// threshold, flipping ctx.ScanInteractive off when exceeded (spec §4.2 item
// 9), and sets the query-level ctx.ScanShared when the FROM list mixes
// partitioned and non-partitioned tables. It assigns no per-table scan
// rating or in-memory-lock flag.
type ScanTablePass struct{}

// Name implements LogicalPass.
func (p *ScanTablePass) Name() string { return "ScanTable" }

// Prepare implements LogicalPass.
func (p *ScanTablePass) Prepare() {}

// ApplyLogical implements LogicalPass.
func (p *ScanTablePass) ApplyLogical(stmt *ir.SelectStmt, ctx *QueryContext) error {
	ctx.ScanInteractive = true
	if stmt.FromList == nil {
		return nil
	}
	hasPartitioned := false
	hasPlain := false
	for _, ref := range stmt.FromList.Tables {
		if ref.IsPartitioned {
			hasPartitioned = true
		} else {
			hasPlain = true
		}
	}
	ctx.ScanShared = hasPartitioned && hasPlain
	return nil
}

// ApplyFinal implements FinalPass: by the time physical planning has run,
// ctx.ChunkCount reflects the actual chunk set the query will touch, so the
// interactive/batch scan-sharing decision can be finalized here.
func (p *ScanTablePass) ApplyFinal(ctx *QueryContext) error {
	if ctx.ChunkCount > ctx.interactiveThreshold() {
		ctx.ScanInteractive = false
	}
	return nil
}
