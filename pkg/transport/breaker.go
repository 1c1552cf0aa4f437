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

package transport

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	circuit "github.com/cockroachdb/circuitbreaker"
	"github.com/facebookgo/clock"

	"github.com/provingground-moe/qserv-sub001/pkg/util/log"
)

const maxBackoff = time.Second

// newBackOff creates the exponential backoff used between successive
// attempts to reach a worker once its breaker has tripped.
func newBackOff(c backoff.Clock) backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     500 * time.Millisecond,
		RandomizationFactor: 0.5,
		Multiplier:          1.5,
		MaxInterval:         maxBackoff,
		MaxElapsedTime:      0,
		Clock:               c,
	}
	b.Reset()
	return b
}

// newBreaker returns a per-worker circuit breaker that trips on the first
// failure and backs off exponentially up to maxBackoff between probes.
func newBreaker(ctx context.Context, worker string, c clock.Clock) *circuit.Breaker {
	return circuit.NewBreakerWithOptions(&circuit.Options{
		Name:       worker,
		BackOff:    newBackOff(c),
		Clock:      c,
		ShouldTrip: circuit.ThresholdTripFunc(1),
		Logger:     breakerLogger{ctx},
	})
}

// breakerLogger adapts circuit.Logger to this repository's logging
// package. The circuitbreaker package's Debugf calls are comparatively
// chatty (one per trip/reset), so they go out at VEventf level 2 rather
// than at Infof.
type breakerLogger struct {
	ctx context.Context
}

func (r breakerLogger) Debugf(format string, v ...interface{}) {
	log.VEventf(r.ctx, 2, format, v...)
}

func (r breakerLogger) Infof(format string, v ...interface{}) {
	log.Infof(r.ctx, format, v...)
}

var _ circuit.Logger = breakerLogger{}

// Breakers manages one circuit breaker per worker name, created lazily on
// first use.
type Breakers struct {
	clock clock.Clock

	mu       sync.Mutex
	breakers map[string]*circuit.Breaker
}

// NewBreakers constructs a Breakers registry backed by the system clock.
func NewBreakers() *Breakers {
	return &Breakers{
		clock:    clock.New(),
		breakers: make(map[string]*circuit.Breaker),
	}
}

// For returns the breaker for worker, creating it on first use.
func (b *Breakers) For(ctx context.Context, worker string) *circuit.Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if br, ok := b.breakers[worker]; ok {
		return br
	}
	br := newBreaker(ctx, worker, b.clock)
	b.breakers[worker] = br
	return br
}

// Call runs fn through worker's breaker, short-circuiting with
// circuit.ErrBreakerOpen when the worker is considered down.
func (b *Breakers) Call(ctx context.Context, worker string, fn func() error) error {
	return b.For(ctx, worker).Call(fn, 0)
}
