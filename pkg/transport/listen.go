// Copyright 2014 The Cockroach Authors.
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

package transport

import (
	"context"
	"net"
	"net/http"

	"github.com/cockroachdb/cmux"
	"golang.org/x/net/http2"
	"google.golang.org/grpc"

	"github.com/provingground-moe/qserv-sub001/pkg/util/log"
	"github.com/provingground-moe/qserv-sub001/pkg/util/stop"
)

// ListenAndServeGRPC opens addr and serves server on it until the stopper
// quiesces, mirroring how a worker exposes its replica/query RPC surface.
func ListenAndServeGRPC(
	stopper *stop.Stopper, server *grpc.Server, addr net.Addr,
) (net.Listener, error) {
	ln, err := net.Listen(addr.Network(), addr.String())
	if err != nil {
		return nil, err
	}

	ctx := context.Background()

	stopper.RunWorker(ctx, func(context.Context) {
		<-stopper.ShouldQuiesce()
		if err := ln.Close(); err != nil && !isUseOfClosedConn(err) {
			log.Warningf(ctx, "closing worker listener: %v", err)
		}
	})

	stopper.RunWorker(ctx, func(context.Context) {
		if err := server.Serve(ln); err != nil && !isUseOfClosedConn(err) {
			log.Errorf(ctx, "worker RPC server exited: %v", err)
		}
	})
	return ln, nil
}

func isUseOfClosedConn(err error) bool {
	return err != nil && err.Error() == "use of closed network connection"
}

// Mux splits a single listener between gRPC (replica/query RPC) and plain
// HTTP (the admin surface, spec §6), the way the teacher's net.go shares one
// port between SQL and RPC traffic via cmux.
type Mux struct {
	root cmux.CMux
	GRPC net.Listener
	HTTP net.Listener
}

// NewMux wraps ln in a cmux splitter. GRPC gets any connection that
// negotiates HTTP/2 with the grpc content-type; everything else falls to
// HTTP.
func NewMux(ln net.Listener) *Mux {
	root := cmux.New(ln)
	return &Mux{
		root: root,
		GRPC: root.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc")),
		HTTP: root.Match(cmux.Any()),
	}
}

// Serve starts demultiplexing connections. It blocks until the underlying
// listener is closed.
func (m *Mux) Serve() error {
	return m.root.Serve()
}

// ConfigureH2C arranges for srv to accept prior-knowledge HTTP/2 (h2c)
// connections for the admin HTTP surface sharing the cmux-split listener
// with the gRPC worker surface.
func ConfigureH2C(srv *http.Server) error {
	return http2.ConfigureServer(srv, nil)
}
