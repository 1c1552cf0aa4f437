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

package admin

import (
	"sync"
	"time"

	"github.com/provingground-moe/qserv-sub001/pkg/config"
)

// replicationLevelTTL is the cache lifetime spec §5 gestures at ("~240s")
// without the distillation ever placing the cache itself.
const replicationLevelTTL = 240 * time.Second

// replicationLevelCache sits in front of Configuration.Families, mapping
// each family name to its replication level. A single mutex guards the
// whole cache, per spec §5's "single mutex" note. No handler in this
// package reads from it; handlePutConfig invalidates it.
type replicationLevelCache struct {
	cfg *config.Configuration

	mu       sync.Mutex
	levels   map[string]int
	loadedAt time.Time
}

func newReplicationLevelCache(cfg *config.Configuration) *replicationLevelCache {
	return &replicationLevelCache{cfg: cfg}
}

// Get returns family's replication level, refreshing the whole cache if it
// is empty or older than replicationLevelTTL.
func (c *replicationLevelCache) Get(family string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stale() {
		c.refreshLocked()
	}
	level, ok := c.levels[family]
	return level, ok
}

func (c *replicationLevelCache) stale() bool {
	return c.levels == nil || time.Since(c.loadedAt) > replicationLevelTTL
}

func (c *replicationLevelCache) refreshLocked() {
	c.levels = make(map[string]int, len(c.cfg.Families))
	for _, f := range c.cfg.Families {
		c.levels[f.Name] = f.ReplicationLevel
	}
	c.loadedAt = time.Now()
}

// invalidate forces the next Get to rebuild the cache, called whenever the
// admin surface accepts a config PUT.
func (c *replicationLevelCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.levels = nil
}
