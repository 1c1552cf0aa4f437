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

// Command controller runs the replication control core (spec §4.8-§4.10,
// §6): it loads the cluster manifest, opens the MySQL-backed replica
// store, and serves the HTTP admin surface.
package main

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/provingground-moe/qserv-sub001/pkg/admin"
	"github.com/provingground-moe/qserv-sub001/pkg/config"
	"github.com/provingground-moe/qserv-sub001/pkg/replica/jobs"
	"github.com/provingground-moe/qserv-sub001/pkg/replica/store"
	"github.com/provingground-moe/qserv-sub001/pkg/util/log"
	"github.com/provingground-moe/qserv-sub001/pkg/util/stop"
)

var (
	configPath string
	mysqlDSN   string
	httpAddr   string
)

func main() {
	root := &cobra.Command{
		Use:   "controller",
		Short: "runs the replication control core",
		RunE:  runController,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to the cluster manifest YAML")
	flags.StringVar(&mysqlDSN, "mysql-dsn", "", "go-sql-driver/mysql DSN for the replica store")
	flags.StringVar(&httpAddr, "http-addr", ":25081", "address the admin HTTP surface listens on")
	pflag.CommandLine.AddFlagSet(flags)

	if err := root.Execute(); err != nil {
		log.Errorf(context.Background(), "controller: %v", err)
		os.Exit(1)
	}
}

func runController(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if configPath == "" {
		log.Fatalf(ctx, "--config is required")
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

	st := store.New(db)
	if err := st.EnsureSchema(ctx); err != nil {
		return err
	}

	ingestMgr := jobs.NewIngestManager(st)
	server := admin.NewServer(cfg, st, ingestMgr)

	stopper := stop.NewStopper()
	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return err
	}
	httpServer := &http.Server{Handler: server.Router}

	stopper.RunWorker(ctx, func(context.Context) {
		<-stopper.ShouldQuiesce()
		_ = ln.Close()
	})
	stopper.RunWorker(ctx, func(context.Context) {
		log.Infof(ctx, "replication controller admin surface listening on %s", httpAddr)
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Errorf(ctx, "admin HTTP server exited: %v", err)
		}
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Infof(ctx, "replication controller shutting down")
	stopper.Quiesce()
	stopper.Stop(ctx)
	return nil
}
