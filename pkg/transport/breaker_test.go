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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBreakersAreIndependentPerWorker(t *testing.T) {
	b := NewBreakers()
	ctx := context.Background()

	err := b.Call(ctx, "w1", func() error { return context.DeadlineExceeded })
	require.Error(t, err)

	// w1's breaker is now open; a second call short-circuits without
	// invoking fn.
	called := false
	_ = b.Call(ctx, "w1", func() error { called = true; return nil })
	require.False(t, called, "tripped breaker must not invoke the wrapped call")

	// w2 is unaffected by w1's trip.
	called = false
	err = b.Call(ctx, "w2", func() error { called = true; return nil })
	require.NoError(t, err)
	require.True(t, called)
}

func TestBreakersForReturnsSameInstancePerWorker(t *testing.T) {
	b := NewBreakers()
	ctx := context.Background()
	require.Same(t, b.For(ctx, "w1"), b.For(ctx, "w1"))
}
