// SPDX-License-Identifier: Apache-2.0
// Package resilience provides the blocking-call bridge and the provider fallback used by the pipeline.
package resilience

import (
	"context"
	"fmt"

	"github.com/jllopis/fincrew/pkg/errors"
)

// Offload runs fn on its own goroutine and waits for it or for ctx, whichever comes first.
//
// Blocking work (file reads, PDF parsing, provider calls) goes through here so a stage only
// parks on a channel. When ctx ends first the caller gets CodeContextLost and fn keeps running
// to completion on its goroutine; its result is dropped. A panic in fn becomes CodeInternal.
func Offload[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}

	done := make(chan result, 1)
	go func() {
		var res result
		defer func() {
			if r := recover(); r != nil {
				res = result{err: errors.New(errors.CodeInternal, "blocking call panicked", fmt.Errorf("%v", r))}
			}
			done <- res
		}()
		res.value, res.err = fn()
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, errors.New(errors.CodeContextLost, "caller stopped waiting for blocking call", ctx.Err()).
			WithRecoverable(false)
	case res := <-done:
		return res.value, res.err
	}
}
