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

// Command czar is the coordinator CLI (§4.1-§4.7): it accepts one SELECT
// statement, plans and dispatches its per-chunk sub-queries across the
// worker fleet, and merges the results.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/provingground-moe/qserv-sub001/pkg/config"
	"github.com/provingground-moe/qserv-sub001/pkg/dispatch"
	"github.com/provingground-moe/qserv-sub001/pkg/merge"
	"github.com/provingground-moe/qserv-sub001/pkg/query/plugin"
	"github.com/provingground-moe/qserv-sub001/pkg/query/session"
	"github.com/provingground-moe/qserv-sub001/pkg/transport"
	"github.com/provingground-moe/qserv-sub001/pkg/util/log"
)

var (
	configPath string
	mysqlDSN   string
	mergeTable string
	table      string
	sqlText    string
)

func main() {
	root := &cobra.Command{
		Use:   "czar",
		Short: "plans and dispatches one query across the worker fleet",
		RunE:  runCzar,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to the cluster manifest YAML")
	flags.StringVar(&mysqlDSN, "mysql-dsn", "", "go-sql-driver/mysql DSN for the merge database")
	flags.StringVar(&mergeTable, "merge-table", "qserv_merge", "scratch table the merger writes chunk results into")
	flags.StringVar(&table, "table", "", "the partitioned table the query selects from (catalog entry)")
	flags.StringVar(&sqlText, "sql", "", "the SELECT statement to dispatch")

	if err := root.Execute(); err != nil {
		log.Errorf(context.Background(), "czar: %v", err)
		os.Exit(1)
	}
}

func runCzar(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if configPath == "" || table == "" || sqlText == "" {
		log.Fatalf(ctx, "--config, --table and --sql are required")
	}
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	merger := merge.NewMerger(db)

	c := &coordinator{
		ctx:    ctx,
		cfg:    cfg,
		merger: merger,
		conns:  make(map[string]*grpc.ClientConn),
	}
	defer c.closeConns()

	catalog := map[string]plugin.TableMeta{
		table: {Db: "", IsPartitioned: true},
	}
	enumerator := newGeometryEnumerator(cfg)
	sess := session.NewQuerySession(catalog, enumerator, nil)
	if err := sess.Analyze(sqlText); err != nil {
		return err
	}

	specs, err := sess.GenerateChunkQuerySpecs()
	if err != nil {
		return err
	}

	pool := dispatch.NewPriorityPool(map[int]int{dispatchPriority: 1}, dispatchPriority)
	executive := dispatch.NewThrottledExecutive(pool, dispatchRequestsPerSecond(cfg), dispatchBurst(cfg))
	c.messenger = transport.NewMessenger(transport.NewGRPCConn(c.dial))

	ingestion, err := merger.BeginIngestion(ctx, mergeTable)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = ingestion.Rollback()
		}
	}()
	c.ingestion = ingestion

	workers := enabledWorkerNames(cfg)
	if len(workers) == 0 {
		return fmt.Errorf("no enabled workers in cluster manifest")
	}

	jobID := int64(0)
	for _, spec := range specs {
		for _, frag := range session.Fragments(spec) {
			for _, query := range frag.Queries {
				jobID++
				worker := workers[int(frag.ChunkID)%len(workers)]
				desc := dispatch.JobDescription{
					ID:         jobID,
					WorkerHint: worker,
					Payload:    []byte(query),
					ResponseHandler: func(resp []byte, err error) {
						if err != nil {
							log.Warningf(ctx, "chunk query failed: %v", err)
						}
					},
				}
				executive.Add(desc, dispatchPriority, c.dispatchOne(executive, sess.Context().DominantDb))
			}
		}
	}

	// Every job was enqueued above before this loop starts, so a
	// non-blocking drain is safe: RunNext(true) would dequeue the last
	// command fine but then block forever in PriorityPool.Dequeue's
	// cond.Wait(), since nothing ever calls PrepareShutdown or enqueues
	// a command to wake it.
	for executive.RunNext(false) {
	}
	if result := executive.Join(); result != dispatch.JoinSuccess {
		for _, msg := range executive.Messages() {
			log.Warningf(ctx, "%s", msg)
		}
		if result == dispatch.JoinError {
			return fmt.Errorf("all chunk queries failed")
		}
	}

	if err := ingestion.Commit(); err != nil {
		return err
	}
	committed = true

	if sess.NeedsMerge() {
		mergeStmt := sess.MergeStmt()
		rows, err := merger.ApplyMergeQuery(ctx, mergeStmt.String())
		if err != nil {
			return err
		}
		defer rows.Close()
	}
	log.Infof(ctx, "query dispatched across %d chunk job(s)", jobID)
	return nil
}

// dispatchPriority is the single priority class this simple CLI dispatches
// everything at; the cluster manifest configures no priority classes.
const dispatchPriority = 0

// dispatchRequestsPerSecond and dispatchBurst turn the cluster manifest's
// worker count into an outbound dispatch cap: four in-flight requests per
// enabled worker per second, so a query with thousands of chunk jobs ramps
// up rather than opening every worker connection at once.
func dispatchRequestsPerSecond(cfg *config.Configuration) float64 {
	n := len(cfg.EnabledWorkers())
	if n == 0 {
		n = 1
	}
	return float64(n) * 4
}

func dispatchBurst(cfg *config.Configuration) int {
	n := len(cfg.EnabledWorkers())
	if n == 0 {
		n = 1
	}
	return n * 4
}

func enabledWorkerNames(cfg *config.Configuration) []string {
	var out []string
	for _, w := range cfg.EnabledWorkers() {
		out = append(out, w.Name)
	}
	return out
}
