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

package jobs

import (
	"context"

	"github.com/provingground-moe/qserv-sub001/pkg/replica/store"
)

// PartitionDropper issues the REPLICA_DELETE-adjacent "drop partition"
// request a worker needs to discard an in-progress ingestion transaction's
// data (spec SUPPLEMENTED FEATURES, from the original's
// AbortTransactionApp.h).
type PartitionDropper interface {
	DropPartition(ctx context.Context, worker, database string) error
}

// AbortTransactionResult reports how many of the participating workers'
// drop-partition requests succeeded.
type AbortTransactionResult struct {
	Dropped int
	Failed  []string
}

// NewAbortTransaction builds the job named in spec §4.8's job list but
// given no dedicated algorithm there: it marks the transaction record
// ABORTED in the store, then issues a drop-partition request per
// participating worker for the transaction's database. A failed request is
// recorded in Failed and the loop goes on to the next worker.
func NewAbortTransaction(
	st *store.Store, txnID int64, database string, workers []string, dropper PartitionDropper,
	onFinish func(*Job),
) *Job {
	run := func(ctx context.Context) (interface{}, error) {
		if err := st.EndTransactionRecord(ctx, txnID, store.TxnAborted); err != nil {
			return nil, err
		}
		result := AbortTransactionResult{}
		for _, worker := range workers {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			if err := dropper.DropPartition(ctx, worker, database); err != nil {
				result.Failed = append(result.Failed, worker)
				continue
			}
			result.Dropped++
		}
		return result, nil
	}
	return New("AbortTransaction", run, onFinish)
}
