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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{"default policy is valid", DefaultPolicy(), false},
		{"zero attempts", Policy{MaxAttempts: 0, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 2}, true},
		{"negative delay", Policy{MaxAttempts: 1, InitialDelay: -time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 2}, true},
		{"max below initial", Policy{MaxAttempts: 1, InitialDelay: time.Second, MaxDelay: time.Millisecond, BackoffFactor: 2}, true},
		{"factor below one", Policy{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Second, BackoffFactor: 0.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPolicy)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPolicy_Delay(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 100*time.Millisecond, p.Delay(1))
	assert.Equal(t, time.Second, p.Delay(2))
	assert.Equal(t, 10*time.Second, p.Delay(3))
	assert.Equal(t, 10*time.Second, p.Delay(4), "capped at MaxDelay")
	assert.Equal(t, 100*time.Millisecond, p.Delay(0), "attempt below one treated as first")
}

func TestRetry_SucceedsOnThirdAttempt(t *testing.T) {
	var calls int32
	res, err := Retry(context.Background(), fastPolicy(), func(ctx context.Context, attempt int) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return New(KindFileBusy, "busy")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.NoError(t, res.LastError)
}

func TestDo_ReturnsValue(t *testing.T) {
	var calls int32
	v, err := Do(context.Background(), fastPolicy(), func(ctx context.Context, attempt int) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return "", New(KindJavaSpawnFailed, "failed to launch java process")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, int32(2), calls)
}

func TestRetry_PermanentKindAttemptedOnce(t *testing.T) {
	var calls int32
	res, err := Retry(context.Background(), fastPolicy(), func(ctx context.Context, attempt int) error {
		atomic.AddInt32(&calls, 1)
		return New(KindFileNotFound, "missing")
	})

	require.Error(t, err)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, int32(1), calls)

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindFileNotFound, fe.Kind)
	assert.Equal(t, 1, fe.Attempt)
	assert.False(t, fe.RetriesExhausted)
}

func TestRetry_ExhaustedCarriesMetadata(t *testing.T) {
	var delays []time.Duration
	p := fastPolicy()
	p.OnRetry = func(attempt int, err *Error, delay time.Duration) {
		delays = append(delays, delay)
	}

	res, err := Retry(context.Background(), p, func(ctx context.Context, attempt int) error {
		return New(KindArchiveLocked, "locked")
	})

	require.Error(t, err)
	assert.Equal(t, 3, res.Attempts)

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.True(t, fe.RetriesExhausted)
	assert.Equal(t, 3, fe.Attempt)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, delays)
}

func TestRetry_OnlyRestrictsKinds(t *testing.T) {
	var calls int32
	p := fastPolicy().Only(KindJavaSpawnFailed)
	_, err := Retry(context.Background(), p, func(ctx context.Context, attempt int) error {
		atomic.AddInt32(&calls, 1)
		return New(KindFileBusy, "busy")
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls, "FILE_BUSY is retryable in general but excluded here")
}

func TestRetry_ClassifiesPlainErrors(t *testing.T) {
	var calls int32
	_, err := Retry(context.Background(), fastPolicy(), func(ctx context.Context, attempt int) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("disk hiccup")
	})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls, "unclassified errors fall back to FILE_IO_ERROR which is retryable")
	assert.Equal(t, KindIOError, Classify(err))
}

func TestRetry_ContextCancelledDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, BackoffFactor: 1}

	done := make(chan error, 1)
	go func() {
		_, err := Retry(ctx, p, func(ctx context.Context, attempt int) error {
			return New(KindFileBusy, "busy")
		})
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}

func TestRetry_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	res, err := Retry(ctx, fastPolicy(), func(ctx context.Context, attempt int) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), calls)
	assert.Equal(t, 1, res.Attempts)
}
