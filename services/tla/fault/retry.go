// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fault

import (
	"context"
	"errors"
	"math"
	"time"
)

// ErrInvalidPolicy indicates a Policy failed validation.
var ErrInvalidPolicy = errors.New("invalid retry policy")

// Policy configures retry behavior with exponential backoff.
type Policy struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int `yaml:"max_attempts" validate:"min=1"`

	// InitialDelay is the wait before the second attempt.
	// Default: 100ms
	InitialDelay time.Duration `yaml:"initial_delay" validate:"gt=0"`

	// MaxDelay caps the wait between attempts.
	// Default: 10s
	MaxDelay time.Duration `yaml:"max_delay" validate:"gtefield=InitialDelay"`

	// BackoffFactor multiplies the delay after each attempt.
	// Default: 10
	BackoffFactor float64 `yaml:"backoff_factor" validate:"gte=1"`

	// ShouldRetry decides whether a kind is retried. nil means IsRetryable.
	ShouldRetry func(Kind) bool `yaml:"-"`

	// OnRetry is called before each sleep. Optional.
	OnRetry func(attempt int, err *Error, delay time.Duration) `yaml:"-"`
}

// DefaultPolicy returns the adapter-wide default: 3 attempts spaced at
// roughly 0, 100ms and 1s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 10,
	}
}

// Only returns a copy of p that retries just the listed kinds.
func (p Policy) Only(kinds ...Kind) Policy {
	set := make(map[Kind]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	p.ShouldRetry = func(k Kind) bool {
		_, ok := set[k]
		return ok
	}
	return p
}

// Validate checks the numeric fields.
func (p Policy) Validate() error {
	switch {
	case p.MaxAttempts < 1:
		return ErrInvalidPolicy
	case p.InitialDelay <= 0:
		return ErrInvalidPolicy
	case p.MaxDelay < p.InitialDelay:
		return ErrInvalidPolicy
	case p.BackoffFactor < 1.0:
		return ErrInvalidPolicy
	}
	return nil
}

// Delay returns the wait after the given (1-based) failed attempt:
// min(InitialDelay × BackoffFactor^(attempt-1), MaxDelay).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.InitialDelay) * math.Pow(p.BackoffFactor, float64(attempt-1))
	if d > float64(p.MaxDelay) || math.IsInf(d, 1) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

func (p Policy) shouldRetry(k Kind) bool {
	if p.ShouldRetry != nil {
		return p.ShouldRetry(k)
	}
	return IsRetryable(k)
}

// Result contains the outcome of a retry loop.
type Result struct {
	// Attempts is the number of attempts made.
	Attempts int

	// TotalDuration is the time spent including waits.
	TotalDuration time.Duration

	// LastError is the error from the last attempt (nil if successful).
	LastError error
}

// RetryableFunc is one attempt of a retried operation. attempt is 1-based.
type RetryableFunc func(ctx context.Context, attempt int) error

// Retry executes fn under policy p.
//
// # Description
//
// A failed attempt is classified. Permanent kinds return immediately.
// Retryable kinds sleep for p.Delay(attempt) and try again until
// MaxAttempts is reached. The sleep observes ctx so it never blocks a
// cancelled caller.
//
// # Inputs
//
//   - ctx: Cancellation for the whole loop.
//   - p: Retry policy. A zero MaxAttempts is treated as 1.
//   - fn: The attempt.
//
// # Outputs
//
//   - Result: Attempt statistics.
//   - error: nil on success. Otherwise an *Error carrying Attempt and
//     RetriesExhausted, or ctx.Err() if the context ended first.
func Retry(ctx context.Context, p Policy, fn RetryableFunc) (Result, error) {
	start := time.Now()
	res := Result{}

	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res.Attempts = attempt

		if err := ctx.Err(); err != nil {
			res.LastError = err
			res.TotalDuration = time.Since(start)
			return res, err
		}

		err := fn(ctx, attempt)
		if err == nil {
			res.LastError = nil
			res.TotalDuration = time.Since(start)
			return res, nil
		}

		fe := Enhance(err, nil)
		if !p.shouldRetry(fe.Kind) {
			res.LastError = fe.withAttempt(attempt, false)
			res.TotalDuration = time.Since(start)
			return res, res.LastError
		}
		if attempt == maxAttempts {
			res.LastError = fe.withAttempt(attempt, true)
			break
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, fe, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			res.LastError = ctx.Err()
			res.TotalDuration = time.Since(start)
			return res, ctx.Err()
		case <-timer.C:
		}
	}

	res.TotalDuration = time.Since(start)
	return res, res.LastError
}

// Do is Retry for operations that produce a value.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var out T
	_, err := Retry(ctx, p, func(ctx context.Context, attempt int) error {
		v, err := fn(ctx, attempt)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
