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

package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const validManifest = `
workers:
  - name: w1
    svcHost: host1
    svcPort: 25002
    isEnabled: true
  - name: w2
    svcHost: host2
    svcPort: 25002
    isEnabled: false
families:
  - name: sky
    replicationLevel: 2
    numStripes: 340
    numSubStripes: 3
databases:
  - name: Object
    family: sky
  - name: Source
    family: sky
general:
  requestBufferSizeBytes: 1048576
  retryTimeoutSec: 5
`

func TestLoadValidManifest(t *testing.T) {
	cfg, err := Load(strings.NewReader(validManifest))
	require.NoError(t, err)
	require.Len(t, cfg.Workers, 2)
	require.Equal(t, []string{"Object", "Source"}, cfg.DatabasesInFamily("sky"))
	require.Len(t, cfg.EnabledWorkers(), 1)
	require.Equal(t, "w1", cfg.EnabledWorkers()[0].Name)
}

func TestLoadRejectsNonPositiveStripeCounts(t *testing.T) {
	bad := strings.Replace(validManifest, "numStripes: 340", "numStripes: 0", 1)
	_, err := Load(strings.NewReader(bad))
	require.Error(t, err)
}

func TestLoadRejectsNonPositiveReplicationLevel(t *testing.T) {
	bad := strings.Replace(validManifest, "replicationLevel: 2", "replicationLevel: 0", 1)
	_, err := Load(strings.NewReader(bad))
	require.Error(t, err)
}

func TestFamilyByNameMissing(t *testing.T) {
	cfg, err := Load(strings.NewReader(validManifest))
	require.NoError(t, err)
	_, ok := cfg.FamilyByName("nonexistent")
	require.False(t, ok)
}

func TestWorkerByName(t *testing.T) {
	cfg, err := Load(strings.NewReader(validManifest))
	require.NoError(t, err)
	w, ok := cfg.WorkerByName("w2")
	require.True(t, ok)
	require.Equal(t, "host2", w.SvcHost)
}

func TestFamilyForDatabase(t *testing.T) {
	cfg, err := Load(strings.NewReader(validManifest))
	require.NoError(t, err)
	f, ok := cfg.FamilyForDatabase("Source")
	require.True(t, ok)
	require.Equal(t, "sky", f.Name)
	require.Equal(t, 340, f.NumStripes)

	_, ok = cfg.FamilyForDatabase("nonexistent")
	require.False(t, ok)
}
