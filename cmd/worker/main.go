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

// Command worker runs the worker-side RPC server stub implementing the
// wire contract (§4.11, §6): it accepts REPLICA_CREATE/DELETE/FIND_ALL and
// TEST_ECHO requests over WorkerServiceDesc and answers them against the
// shared replica store.
package main

import (
	"context"
	"database/sql"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/provingground-moe/qserv-sub001/pkg/replica/jobs"
	"github.com/provingground-moe/qserv-sub001/pkg/replica/store"
	"github.com/provingground-moe/qserv-sub001/pkg/transport"
	"github.com/provingground-moe/qserv-sub001/pkg/util/log"
	"github.com/provingground-moe/qserv-sub001/pkg/util/stop"
)

var (
	workerName string
	mysqlDSN   string
	grpcAddr   string
)

func main() {
	root := &cobra.Command{
		Use:   "worker",
		Short: "runs a replica-hosting worker's RPC surface",
		RunE:  runWorker,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&workerName, "name", "", "this worker's name, as it appears in the cluster manifest")
	flags.StringVar(&mysqlDSN, "mysql-dsn", "", "go-sql-driver/mysql DSN for the shared replica store")
	flags.StringVar(&grpcAddr, "grpc-addr", ":25040", "address the worker RPC surface listens on")

	if err := root.Execute(); err != nil {
		log.Errorf(context.Background(), "worker: %v", err)
		os.Exit(1)
	}
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if workerName == "" {
		log.Fatalf(ctx, "--name is required")
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

	svc := &storeReplicaService{store: st, worker: workerName}
	workerServer := transport.NewWorkerServer(svc)

	grpcServer := grpc.NewServer()
	transport.RegisterWorkerService(grpcServer, workerServer)

	addr, err := net.ResolveTCPAddr("tcp", grpcAddr)
	if err != nil {
		return err
	}
	stopper := stop.NewStopper()
	if _, err := transport.ListenAndServeGRPC(stopper, grpcServer, addr); err != nil {
		return err
	}
	log.Infof(ctx, "worker %s RPC surface listening on %s", workerName, grpcAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Infof(ctx, "worker %s shutting down", workerName)
	stopper.Quiesce()
	stopper.Stop(ctx)
	grpcServer.GracefulStop()
	return nil
}

// storeReplicaService implements transport.ReplicaService against the
// shared MySQL replica store (spec §6), scoped to this process's own
// worker name.
type storeReplicaService struct {
	store  *store.Store
	worker string
}

func (s *storeReplicaService) CreateReplica(ctx context.Context, database string, chunk int32) error {
	_, err := s.store.UpsertReplica(ctx, store.ReplicaInfo{
		Worker:     s.worker,
		Database:   database,
		Chunk:      chunk,
		VerifyTime: time.Now(),
		Status:     store.ReplicaComplete,
	})
	return err
}

func (s *storeReplicaService) DeleteReplica(ctx context.Context, database string, chunk int32) error {
	return s.store.DeleteReplica(ctx, s.worker, database, chunk)
}

func (s *storeReplicaService) FindAllReplicas(ctx context.Context, database string) ([]jobs.ReplicaSummary, error) {
	rows, err := s.store.ReplicasByWorker(ctx, s.worker)
	if err != nil {
		return nil, err
	}
	out := make([]jobs.ReplicaSummary, 0, len(rows))
	for _, r := range rows {
		if r.Database != database {
			continue
		}
		out = append(out, jobs.ReplicaSummary{
			Worker:   r.Worker,
			Chunk:    r.Chunk,
			Complete: r.Status == store.ReplicaComplete,
		})
	}
	return out, nil
}

var _ transport.ReplicaService = (*storeReplicaService)(nil)
