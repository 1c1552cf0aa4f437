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

package qerrors

import (
	goerrors "errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRetryEligibility(t *testing.T) {
	cases := []struct {
		kind      Kind
		retryable bool
	}{
		{KindTransportError, true},
		{KindServerError, true},
		{KindMaxReconnectsExceeded, true},
		{KindConnectTimeout, true},
		{KindParseError, false},
		{KindAnalysisError, false},
		{KindServerBad, false},
		{KindServerCancelled, false},
		{KindQueryProcessingBug, false},
	}
	for _, c := range cases {
		err := New(c.kind, "boom")
		require.Equal(t, c.retryable, IsRetryable(err), c.kind.String())
		require.True(t, Is(err, c.kind))
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := New(KindDatabaseError, "connection refused")
	wrapped := Wrap(KindTransportError, cause)
	k, ok := KindOf(wrapped)
	require.True(t, ok)
	require.Equal(t, KindTransportError, k)
	require.ErrorIs(t, wrapped, cause)
}

func TestKindOfUntagged(t *testing.T) {
	_, ok := KindOf(goerrors.New("plain error"))
	require.False(t, ok)
}
