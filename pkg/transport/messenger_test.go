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
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/provingground-moe/qserv-sub001/pkg/replica/jobs"
)

// fakeConn drives a scripted sequence of statuses per request ID: the
// first Send returns statuses[0], and each subsequent Status call advances
// through the remaining entries, repeating the last one once exhausted.
type fakeConn struct {
	mu        sync.Mutex
	sequences map[string][]Response
	sendErr   error
	calls     int
}

func (c *fakeConn) Send(ctx context.Context, worker string, payload QueuedPayload) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.sendErr != nil {
		return Response{}, c.sendErr
	}
	seq := c.sequences[worker]
	if len(seq) == 0 {
		return Response{Status: StatusSuccess}, nil
	}
	return seq[0], nil
}

func (c *fakeConn) Status(ctx context.Context, worker, requestID string) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	seq := c.sequences[worker]
	if len(seq) <= 1 {
		if len(seq) == 1 {
			return seq[0], nil
		}
		return Response{Status: StatusSuccess}, nil
	}
	c.sequences[worker] = seq[1:]
	return seq[1], nil
}

func TestSubmitReturnsImmediateTerminalResponse(t *testing.T) {
	conn := &fakeConn{sequences: map[string][]Response{
		"w1": {{Status: StatusSuccess, Payload: []byte("ok")}},
	}}
	m := NewMessenger(conn)

	resp, err := m.Submit(context.Background(), "w1", QueuedPayload{Type: RequestTestEcho}, false, false)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, resp.Status)
	require.Equal(t, "ok", string(resp.Payload))
}

func TestSubmitPollsThroughQueuedUntilTerminal(t *testing.T) {
	conn := &fakeConn{sequences: map[string][]Response{
		"w1": {
			{Status: StatusQueued},
			{Status: StatusInProgress},
			{Status: StatusSuccess, Payload: []byte("done")},
		},
	}}
	m := NewMessenger(conn)

	resp, err := m.Submit(context.Background(), "w1", QueuedPayload{Type: RequestReplicaCreate}, true, false)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, resp.Status)
	require.Equal(t, "done", string(resp.Payload))
}

func TestCreateReplicaSurfacesNonSuccessStatusAsError(t *testing.T) {
	conn := &fakeConn{sequences: map[string][]Response{
		"w1": {{Status: StatusFailed}},
	}}
	m := NewMessenger(conn)

	err := m.CreateReplica(context.Background(), "w1", "Object", 1234)
	require.Error(t, err)
}

func TestEnumerateReplicasDecodesPayload(t *testing.T) {
	payload := encodeReplicaSummaries([]jobs.ReplicaSummary{
		{Chunk: 1234, Worker: "w1", Complete: true},
	})
	conn := &fakeConn{sequences: map[string][]Response{
		"w1": {{Status: StatusSuccess, Payload: payload}},
	}}
	m := NewMessenger(conn)

	rows, err := m.EnumerateReplicas(context.Background(), "w1", "Object")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int32(1234), rows[0].Chunk)
	require.True(t, rows[0].Complete)
}

func TestSubmitWithAllowDuplicateSwitchesToTrackingInsteadOfFinishing(t *testing.T) {
	conn := &fakeConn{sequences: map[string][]Response{
		"w1": {
			{Status: StatusSuccess, AllowDuplicate: true},
			{Status: StatusSuccess, Payload: []byte("settled")},
		},
	}}
	m := NewMessenger(conn)

	resp, err := m.Submit(context.Background(), "w1", QueuedPayload{Type: RequestReplicaCreate}, false, true)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, resp.Status)
	require.Equal(t, "settled", string(resp.Payload))
}

func TestSubmitIgnoresAllowDuplicateWhenNotRequested(t *testing.T) {
	conn := &fakeConn{sequences: map[string][]Response{
		"w1": {{Status: StatusSuccess, AllowDuplicate: true, Payload: []byte("first")}},
	}}
	m := NewMessenger(conn)

	resp, err := m.Submit(context.Background(), "w1", QueuedPayload{Type: RequestReplicaCreate}, false, false)
	require.NoError(t, err)
	require.Equal(t, "first", string(resp.Payload))
}

func TestOneWorkerFailureDoesNotAffectAnother(t *testing.T) {
	conn := &fakeConn{sequences: map[string][]Response{
		"bad":  {{Status: StatusFailed}},
		"good": {{Status: StatusSuccess}},
	}}
	m := NewMessenger(conn)

	require.Error(t, m.CreateReplica(context.Background(), "bad", "Object", 1))
	require.NoError(t, m.CreateReplica(context.Background(), "good", "Object", 2))
}

var _ WorkerConn = (*fakeConn)(nil)
