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

package store

import "context"

// schemaStatements creates the five logical tables of spec §6 if they do
// not already exist.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS controller (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		host VARCHAR(255) NOT NULL,
		pid INT NOT NULL,
		start_time DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS job (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		controller_id BIGINT NOT NULL,
		type VARCHAR(64) NOT NULL,
		state INT NOT NULL,
		ext_state INT NOT NULL,
		begin_time DATETIME NULL,
		end_time DATETIME NULL
	)`,
	`CREATE TABLE IF NOT EXISTS replica (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		worker VARCHAR(255) NOT NULL,
		database_name VARCHAR(255) NOT NULL,
		chunk INT NOT NULL,
		verify_time DATETIME NULL,
		status INT NOT NULL,
		UNIQUE KEY uq_replica (worker, database_name, chunk)
	)`,
	`CREATE TABLE IF NOT EXISTS replica_file (
		replica_id BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		size BIGINT NOT NULL,
		mtime DATETIME NOT NULL,
		cs VARCHAR(64) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS txn (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		database_name VARCHAR(255) NOT NULL,
		begin_time DATETIME NOT NULL,
		end_time DATETIME NULL,
		state INT NOT NULL
	)`,
}

// EnsureSchema creates the logical tables if they are missing. Called once
// at controller startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return wrapDB(err, "ensure schema")
		}
	}
	return nil
}
