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

package main

import (
	"github.com/provingground-moe/qserv-sub001/pkg/config"
	"github.com/provingground-moe/qserv-sub001/pkg/qerrors"
	"github.com/provingground-moe/qserv-sub001/pkg/query/plugin"
)

// geometryEnumerator derives a database's chunk and sub-chunk ids from its
// family's stripe geometry (spec §3: numStripes/numSubStripes). It ignores
// restrictors, visiting every chunk of the dominant database; a real
// deployment would narrow this with the partition map QservRestrictor's
// output indexes into, which this tree has no catalog service to back.
type geometryEnumerator struct {
	cfg *config.Configuration
}

func newGeometryEnumerator(cfg *config.Configuration) *geometryEnumerator {
	return &geometryEnumerator{cfg: cfg}
}

func (e *geometryEnumerator) family(db string) (config.Family, error) {
	f, ok := e.cfg.FamilyForDatabase(db)
	if !ok {
		return config.Family{}, qerrors.Newf(qerrors.KindNoSuchDb, "database %q is not in any configured family", db)
	}
	return f, nil
}

// Chunks implements session.ChunkEnumerator.
func (e *geometryEnumerator) Chunks(db string, restrictors []plugin.Restrictor) ([]int32, error) {
	f, err := e.family(db)
	if err != nil {
		return nil, err
	}
	total := f.NumStripes * f.NumStripes
	chunks := make([]int32, total)
	for i := range chunks {
		chunks[i] = int32(i)
	}
	return chunks, nil
}

// SubChunks implements session.ChunkEnumerator.
func (e *geometryEnumerator) SubChunks(db string, chunk int32, restrictors []plugin.Restrictor) ([]int32, error) {
	f, err := e.family(db)
	if err != nil {
		return nil, err
	}
	subs := make([]int32, f.NumSubStripes)
	for i := range subs {
		subs[i] = int32(i)
	}
	return subs, nil
}
