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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/provingground-moe/qserv-sub001/pkg/qerrors"
)

func TestStatusKindMapsTerminalFailuresToNonRetryableKinds(t *testing.T) {
	require.Equal(t, qerrors.KindServerBad, StatusKind(StatusBad))
	require.False(t, qerrors.KindServerBad.Retryable())

	require.Equal(t, qerrors.KindServerCancelled, StatusKind(StatusCancelled))
	require.False(t, qerrors.KindServerCancelled.Retryable())
}

func TestStatusKindMapsFailedToRetryableServerError(t *testing.T) {
	require.Equal(t, qerrors.KindServerError, StatusKind(StatusFailed))
	require.True(t, qerrors.KindServerError.Retryable())
}
