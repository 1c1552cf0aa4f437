// Copyright 2016 The Cockroach Authors.
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

package log

import (
	"context"
	"testing"

	"github.com/cockroachdb/logtags"
	"github.com/stretchr/testify/require"
)

func TestAnnotateCtxTags(t *testing.T) {
	var ac AmbientContext
	ac.AddLogTag("job", 3)
	ac.AddLogTag("worker", "w2")

	ctx := ac.AnnotateCtx(context.Background())
	msg := MakeMessage(ctx, "retrying request", nil)
	require.Contains(t, msg, "retrying request")
	require.Contains(t, msg, "job")
	require.Contains(t, msg, "worker")
}

func TestAnnotateCtxPreservesExistingTags(t *testing.T) {
	ctx := logtags.AddTag(context.Background(), "outer", nil)

	var ac AmbientContext
	ac.AddLogTag("inner", 1)
	ctx = ac.AnnotateCtx(ctx)

	msg := MakeMessage(ctx, "hello", nil)
	require.Contains(t, msg, "outer")
	require.Contains(t, msg, "inner")
}

func TestAnnotateCtxContinuallyReannotated(t *testing.T) {
	// A context re-annotated as it is passed down a call stack (QuerySession
	// -> QueryContext -> per-chunk job) should carry every ancestor's tags.
	var qs AmbientContext
	qs.AddLogTag("session", 1)
	job := qs
	job.AddLogTag("job", 2)

	ctx := qs.AnnotateCtx(context.Background())
	ctx = job.AnnotateCtx(ctx)

	msg := MakeMessage(ctx, "dispatched", nil)
	require.Contains(t, msg, "session")
	require.Contains(t, msg, "job")
}

func TestMakeMessageFormatsArgs(t *testing.T) {
	msg := MakeMessage(context.Background(), "chunk %d fragment %d", []interface{}{5678, 2})
	require.Equal(t, "chunk 5678 fragment 2", msg)
}
