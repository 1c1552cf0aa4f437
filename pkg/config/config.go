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

// Package config holds the cluster manifest (spec §3, §6): the worker
// fleet, the database families sharing a chunking scheme, and the general
// tuning knobs shared by the czar, worker, and replication controller.
package config

import (
	"io"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/provingground-moe/qserv-sub001/pkg/qerrors"
)

// Worker describes one worker node's service and filesystem endpoints.
type Worker struct {
	Name       string `yaml:"name"`
	SvcHost    string `yaml:"svcHost"`
	SvcPort    int    `yaml:"svcPort"`
	FsHost     string `yaml:"fsHost"`
	FsPort     int    `yaml:"fsPort"`
	DataDir    string `yaml:"dataDir"`
	IsEnabled  bool   `yaml:"isEnabled"`
	IsReadOnly bool   `yaml:"isReadOnly"`
	LoaderHost string `yaml:"loaderHost"`
	LoaderPort int    `yaml:"loaderPort"`
}

// Family describes a database family: the databases sharing it partition
// chunks identically (spec §3).
type Family struct {
	Name             string `yaml:"name"`
	ReplicationLevel int    `yaml:"replicationLevel"`
	NumStripes       int    `yaml:"numStripes"`
	NumSubStripes    int    `yaml:"numSubStripes"`
}

// Database maps one database onto the family it belongs to.
type Database struct {
	Name   string `yaml:"name"`
	Family string `yaml:"family"`
}

// General holds the cluster-wide tuning knobs (spec §3).
type General struct {
	RequestBufferSizeBytes      int `yaml:"requestBufferSizeBytes"`
	RetryTimeoutSec             int `yaml:"retryTimeoutSec"`
	ControllerThreads           int `yaml:"controllerThreads"`
	ControllerHTTPPort          int `yaml:"controllerHttpPort"`
	ControllerRequestTimeoutSec int `yaml:"controllerRequestTimeoutSec"`
	JobTimeoutSec               int `yaml:"jobTimeoutSec"`
	JobHeartbeatTimeoutSec      int `yaml:"jobHeartbeatTimeoutSec"`
	XrootdTimeoutSec            int `yaml:"xrootdTimeoutSec"`
	DatabaseServicesPoolSize    int `yaml:"databaseServicesPoolSize"`
	WorkerNumProcessingThreads  int `yaml:"workerNumProcessingThreads"`
	FsNumProcessingThreads      int `yaml:"fsNumProcessingThreads"`
	WorkerFsBufferSizeBytes     int `yaml:"workerFsBufferSizeBytes"`
}

// Configuration is the whole cluster manifest, loaded once at process
// startup and thereafter read-only except through admin surface PUTs
// (spec §9).
type Configuration struct {
	Workers   []Worker   `yaml:"workers"`
	Families  []Family   `yaml:"families"`
	Databases []Database `yaml:"databases"`
	General   General    `yaml:"general"`
}

// Load decodes a YAML cluster manifest from r and validates it.
func Load(r io.Reader) (*Configuration, error) {
	var cfg Configuration
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, qerrors.Newf(qerrors.KindParseError, "decoding configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile opens path and decodes it as a YAML cluster manifest.
func LoadFile(path string) (*Configuration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, qerrors.Newf(qerrors.KindParseError, "opening configuration %s: %v", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Validate enforces spec §3's invariant: every family must have positive
// stripe counts and a positive replication level.
func (c *Configuration) Validate() error {
	for _, f := range c.Families {
		if f.NumStripes <= 0 {
			return qerrors.Newf(qerrors.KindAnalysisError, "family %q: numStripes must be > 0, got %d", f.Name, f.NumStripes)
		}
		if f.NumSubStripes <= 0 {
			return qerrors.Newf(qerrors.KindAnalysisError, "family %q: numSubStripes must be > 0, got %d", f.Name, f.NumSubStripes)
		}
		if f.ReplicationLevel <= 0 {
			return qerrors.Newf(qerrors.KindAnalysisError, "family %q: replicationLevel must be > 0, got %d", f.Name, f.ReplicationLevel)
		}
	}
	return nil
}

// FamilyByName returns the family with the given name, or false if the
// manifest doesn't name one.
func (c *Configuration) FamilyByName(name string) (Family, bool) {
	for _, f := range c.Families {
		if f.Name == name {
			return f, true
		}
	}
	return Family{}, false
}

// DatabasesInFamily returns the names of every database that belongs to
// family.
func (c *Configuration) DatabasesInFamily(family string) []string {
	var out []string
	for _, d := range c.Databases {
		if d.Family == family {
			out = append(out, d.Name)
		}
	}
	return out
}

// EnabledWorkers returns the subset of Workers with IsEnabled set, in the
// order they appear in the manifest.
func (c *Configuration) EnabledWorkers() []Worker {
	var out []Worker
	for _, w := range c.Workers {
		if w.IsEnabled {
			out = append(out, w)
		}
	}
	return out
}

// FamilyForDatabase resolves database to the family it belongs to.
func (c *Configuration) FamilyForDatabase(database string) (Family, bool) {
	for _, d := range c.Databases {
		if d.Name == database {
			return c.FamilyByName(d.Family)
		}
	}
	return Family{}, false
}

// WorkerByName returns the worker with the given name, or false if none
// matches.
func (c *Configuration) WorkerByName(name string) (Worker, bool) {
	for _, w := range c.Workers {
		if w.Name == name {
			return w, true
		}
	}
	return Worker{}, false
}
