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

package transport

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/provingground-moe/qserv-sub001/pkg/qerrors"
)

// jsonCodec is a grpc wire codec for this tree's hand-authored wire structs.
// There is no protoc step available here to generate the usual
// proto.Message marshalers for QueuedPayload/Response, so the worker RPC
// surface runs over grpc's connection/multiplexing machinery with JSON as
// the on-wire encoding instead of real protobuf, registered under the
// "json" content-subtype (spec §4.11, §6: "WorkerService").
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string { return "json" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// callOpts forces every WorkerService RPC onto the json codec above.
var callOpts = []grpc.CallOption{grpc.CallContentSubtype("json")}

const (
	workerServiceName = "qserv.transport.WorkerService"
	sendMethod        = "/" + workerServiceName + "/Send"
	statusMethod      = "/" + workerServiceName + "/Status"
)

// statusRequest is the wire request for the Status RPC.
type statusRequest struct {
	RequestID string `json:"requestId"`
}

// workerRPCServer is the interface grpc's reflection-based RegisterService
// check requires the registered server to satisfy; WorkerServer implements
// it with its existing Handle/Status methods.
type workerRPCServer interface {
	Handle(ctx context.Context, requestID string, payload QueuedPayload) Response
	Status(requestID string) (Response, bool)
}

// WorkerServiceDesc is the hand-authored grpc.ServiceDesc a worker process
// registers on its grpc.Server (in place of protoc-generated
// _grpc.pb.go registration code).
var WorkerServiceDesc = grpc.ServiceDesc{
	ServiceName: workerServiceName,
	HandlerType: (*workerRPCServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Send", Handler: sendHandler},
		{MethodName: "Status", Handler: statusHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pkg/transport/grpcwire.go",
}

// RegisterWorkerService attaches ws's Handle/Status methods to s under the
// WorkerService ServiceDesc above.
func RegisterWorkerService(s *grpc.Server, ws *WorkerServer) {
	s.RegisterService(&WorkerServiceDesc, ws)
}

func sendHandler(
	srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor,
) (interface{}, error) {
	var payload QueuedPayload
	if err := dec(&payload); err != nil {
		return nil, err
	}
	ws := srv.(*WorkerServer)
	if interceptor == nil {
		return sendWorkerRequest(ctx, ws, payload)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: sendMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return sendWorkerRequest(ctx, ws, *req.(*QueuedPayload))
	}
	return interceptor(ctx, &payload, info, handler)
}

func sendWorkerRequest(ctx context.Context, ws *WorkerServer, payload QueuedPayload) (interface{}, error) {
	resp := ws.Handle(ctx, payload.RequestID, payload)
	return &resp, nil
}

func statusHandler(
	srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor,
) (interface{}, error) {
	var req statusRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	ws := srv.(*WorkerServer)
	if interceptor == nil {
		return statusWorkerRequest(ws, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: statusMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return statusWorkerRequest(ws, *req.(*statusRequest))
	}
	return interceptor(ctx, &req, info, handler)
}

func statusWorkerRequest(ws *WorkerServer, req statusRequest) (interface{}, error) {
	resp, ok := ws.Status(req.RequestID)
	if !ok {
		return nil, qerrors.New(qerrors.KindTransportError, "unknown request id: "+req.RequestID)
	}
	return &resp, nil
}

// GRPCConn is the production WorkerConn: one grpc.ClientConn per worker,
// invoked through the json-coded WorkerService above.
type GRPCConn struct {
	dial func(worker string) (*grpc.ClientConn, error)
}

// NewGRPCConn builds a WorkerConn that dials workers lazily through dial,
// which callers supply from their resolved worker address table (spec §3:
// Worker.svcHost/svcPort).
func NewGRPCConn(dial func(worker string) (*grpc.ClientConn, error)) *GRPCConn {
	return &GRPCConn{dial: dial}
}

func (c *GRPCConn) Send(ctx context.Context, worker string, payload QueuedPayload) (Response, error) {
	cc, err := c.dial(worker)
	if err != nil {
		return Response{}, qerrors.Wrap(qerrors.KindTransportError, errors.Wrap(err, "dial worker"))
	}
	var resp Response
	if err := cc.Invoke(ctx, sendMethod, &payload, &resp, callOpts...); err != nil {
		return Response{}, qerrors.Wrap(qerrors.KindTransportError, errors.Wrap(err, "send"))
	}
	return resp, nil
}

func (c *GRPCConn) Status(ctx context.Context, worker, requestID string) (Response, error) {
	cc, err := c.dial(worker)
	if err != nil {
		return Response{}, qerrors.Wrap(qerrors.KindTransportError, errors.Wrap(err, "dial worker"))
	}
	var resp Response
	req := statusRequest{RequestID: requestID}
	if err := cc.Invoke(ctx, statusMethod, &req, &resp, callOpts...); err != nil {
		return Response{}, qerrors.Wrap(qerrors.KindTransportError, errors.Wrap(err, "status"))
	}
	return resp, nil
}

var _ WorkerConn = (*GRPCConn)(nil)
