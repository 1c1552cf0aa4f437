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
	"github.com/provingground-moe/qserv-sub001/pkg/config"
	"github.com/provingground-moe/qserv-sub001/pkg/replica/jobs"
)

// familyFromConfig adapts a config.Family plus its resolved member
// databases and worker fleet into the jobs.Family shape the placement
// algorithms operate on.
func familyFromConfig(f config.Family, databases, workers []string) jobs.Family {
	return jobs.Family{
		Name:             f.Name,
		Databases:        databases,
		Workers:          workers,
		ReplicationLevel: f.ReplicationLevel,
	}
}
