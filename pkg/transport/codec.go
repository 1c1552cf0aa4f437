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

package transport

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/provingground-moe/qserv-sub001/pkg/qerrors"
	"github.com/provingground-moe/qserv-sub001/pkg/replica/jobs"
)

// encodeReplicaSummaries and decodeReplicaSummaries (de)serialize a
// REPLICA_FIND_ALL response payload. JSON, not protobuf: the wire message
// is a flat, low-cardinality list and the worker side of this protocol
// (spec's "replica" service) has no generated stub in this tree to target.
func encodeReplicaSummaries(rows []jobs.ReplicaSummary) []byte {
	b, _ := json.Marshal(rows)
	return b
}

func decodeReplicaSummaries(payload []byte) ([]jobs.ReplicaSummary, error) {
	var rows []jobs.ReplicaSummary
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, qerrors.Wrap(qerrors.KindTransportError, errors.Wrap(err, "decoding replica enumeration payload"))
	}
	return rows, nil
}

// QueryResult is the wire shape of a RequestSQL response: a worker's
// result set for one dispatched query fragment (spec §4.7).
type QueryResult struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

func encodeQueryRows(r QueryResult) []byte {
	b, _ := json.Marshal(r)
	return b
}

// DecodeQueryRows parses a RequestSQL response payload, the coordinator
// side of encodeQueryRows. Exported for the czar binary, which decodes
// worker responses outside this package.
func DecodeQueryRows(payload []byte) (QueryResult, error) {
	var r QueryResult
	if err := json.Unmarshal(payload, &r); err != nil {
		return QueryResult{}, qerrors.Wrap(qerrors.KindTransportError, errors.Wrap(err, "decoding query fragment result"))
	}
	return r, nil
}
