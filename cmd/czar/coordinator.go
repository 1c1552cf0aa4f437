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
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"

	"github.com/provingground-moe/qserv-sub001/pkg/config"
	"github.com/provingground-moe/qserv-sub001/pkg/dispatch"
	"github.com/provingground-moe/qserv-sub001/pkg/merge"
	"github.com/provingground-moe/qserv-sub001/pkg/qerrors"
	"github.com/provingground-moe/qserv-sub001/pkg/transport"
	"github.com/provingground-moe/qserv-sub001/pkg/util/log"
)

// coordinator holds the state shared by every dispatched chunk job: the
// worker connection cache, the live Messenger, and the in-progress merge
// ingestion the chunk jobs' rows stream into.
type coordinator struct {
	ctx       context.Context
	cfg       *config.Configuration
	merger    *merge.Merger
	messenger *transport.Messenger
	ingestion *merge.Ingestion

	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
}

func (c *coordinator) dial(worker string) (*grpc.ClientConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cc, ok := c.conns[worker]; ok {
		return cc, nil
	}
	w, ok := c.cfg.WorkerByName(worker)
	if !ok {
		return nil, qerrors.Newf(qerrors.KindTransportError, "unknown worker %q", worker)
	}
	cc, err := grpc.Dial(fmt.Sprintf("%s:%d", w.SvcHost, w.SvcPort), grpc.WithInsecure())
	if err != nil {
		return nil, qerrors.Wrap(qerrors.KindConnectTimeout, fmt.Errorf("dialing worker %s: %w", worker, err))
	}
	c.conns[worker] = cc
	return cc, nil
}

func (c *coordinator) closeConns() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cc := range c.conns {
		_ = cc.Close()
	}
}

// requestHandle adapts a cancellable context to dispatch.RequestHandle.
type requestHandle struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (h *requestHandle) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
	}
}

// dispatchOne builds the dispatch function Executive.Add runs for a single
// chunk job: issue the job's SQL fragment to its worker hint, retry on
// retryable failures up to dispatch.MaxRetries, and stream a successful
// result set into the coordinator's open ingestion.
func (c *coordinator) dispatchOne(executive *dispatch.Executive, database string) func(*dispatch.JobQuery) {
	return func(job *dispatch.JobQuery) {
		for {
			handle := &requestHandle{}
			if !job.RunJob(handle) {
				return
			}
			reqCtx, cancel := context.WithCancel(c.ctx)
			handle.cancel = cancel

			resp, err := c.messenger.Submit(reqCtx, job.Description.WorkerHint, transport.QueuedPayload{
				Database: database,
				Chunk:    int32(job.Description.ID),
				Type:     transport.RequestSQL,
				Body:     job.Description.Payload,
			}, true, true)
			cancel()

			if err == nil && resp.Status == transport.StatusSuccess {
				result, decodeErr := transport.DecodeQueryRows(resp.Payload)
				if decodeErr != nil {
					err = decodeErr
				} else {
					rows := make([]merge.Row, len(result.Rows))
					for i, r := range result.Rows {
						rows[i] = merge.Row(r)
					}
					err = c.ingestion.WriteRows(reqCtx, result.Columns, rows)
				}
			} else if err == nil {
				err = qerrors.Newf(transport.StatusKind(resp.Status), "worker %s returned status %d", job.Description.WorkerHint, resp.Status)
			}

			job.Description.ResponseHandler(resp.Payload, err)

			if err == nil {
				job.ResponseReady()
				executive.MarkComplete(job.Description.ID, true)
				return
			}

			state := job.Fail(err)
			if state != dispatch.StateFailed {
				log.Warningf(c.ctx, "chunk job %d terminally failed: %v", job.Description.ID, err)
				executive.MarkComplete(job.Description.ID, false)
				return
			}
			if !job.Reissue(handle) {
				executive.MarkComplete(job.Description.ID, false)
				return
			}
		}
	}
}
