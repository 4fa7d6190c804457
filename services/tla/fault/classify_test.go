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
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindIOError},
		{"existing kind wins", New(KindArchiveLocked, "file not found"), KindArchiveLocked},
		{"wrapped existing kind", fmt.Errorf("outer: %w", New(KindInvalidURI, "x")), KindInvalidURI},
		{"enoent", &fs.PathError{Op: "open", Path: "/x", Err: syscall.ENOENT}, KindFileNotFound},
		{"eacces", &fs.PathError{Op: "open", Path: "/x", Err: syscall.EACCES}, KindAccessDenied},
		{"eperm", &fs.PathError{Op: "open", Path: "/x", Err: syscall.EPERM}, KindAccessDenied},
		{"ebusy", &fs.PathError{Op: "open", Path: "/x", Err: syscall.EBUSY}, KindFileBusy},
		{"deadline", fmt.Errorf("run: %w", context.DeadlineExceeded), KindProcessTimeout},
		{"java not found message", errors.New(`Java executable not found in "/opt/jdk"`), KindJavaNotFound},
		{"spawn message", errors.New("Failed to launch Java process using java"), KindJavaSpawnFailed},
		{"traversal message", errors.New("path traversal detected"), KindPathTraversal},
		{"working dir message", errors.New("Access denied: Path x is outside the working directory /w"), KindPathTraversal},
		{"uri message", errors.New("Invalid jarfile URI: foo"), KindInvalidURI},
		{"entry message", errors.New("Naturals.tla not found in JAR"), KindEntryNotFound},
		{"fallback", errors.New("something odd"), KindIOError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassify_RealFilesystemError(t *testing.T) {
	_, err := os.Open(filepath.Join(t.TempDir(), "missing.tla"))
	require.Error(t, err)
	assert.Equal(t, KindFileNotFound, Classify(err))
}

func TestIsRetryable_EveryKindHasEntry(t *testing.T) {
	want := map[Kind]bool{
		KindJavaSpawnFailed:  true,
		KindFileBusy:         true,
		KindIOError:          true,
		KindArchiveLocked:    true,
		KindExtractionFailed: true,
		KindProcessSpawn:     true,
	}
	for _, k := range Kinds() {
		t.Run(string(k), func(t *testing.T) {
			require.True(t, k.Valid())
			assert.Equal(t, want[k], IsRetryable(k))
		})
	}
	assert.Len(t, Kinds(), len(retryable))
	assert.False(t, IsRetryable(Kind("NOT_A_KIND")))
}

func TestEnhance(t *testing.T) {
	t.Run("plain error is classified and wrapped", func(t *testing.T) {
		cause := &fs.PathError{Op: "open", Path: "/x", Err: syscall.ENOENT}
		fe := Enhance(cause, map[string]any{"path": "/x"})
		require.NotNil(t, fe)
		assert.Equal(t, KindFileNotFound, fe.Kind)
		assert.Equal(t, "/x", fe.Context["path"])
		assert.ErrorIs(t, fe, fs.ErrNotExist)
		assert.False(t, fe.Timestamp.IsZero())
	})

	t.Run("existing error is copied not mutated", func(t *testing.T) {
		orig := New(KindFileBusy, "busy")
		fe := Enhance(orig, map[string]any{"k": 1})
		assert.Nil(t, orig.Context)
		assert.Equal(t, 1, fe.Context["k"])
		assert.Equal(t, KindFileBusy, fe.Kind)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, Enhance(nil, nil))
	})
}

func TestError_IsByKind(t *testing.T) {
	err := fmt.Errorf("resolve: %w", Newf(KindEntryNotFound, "%s not found in jar", "A.tla"))
	assert.ErrorIs(t, err, New(KindEntryNotFound, ""))
	assert.NotErrorIs(t, err, New(KindFileNotFound, ""))
}

func TestFormat(t *testing.T) {
	err := New(KindJavaNotFound, "Java executable not found").withAttempt(3, true)
	out := Format(err, false)

	assert.True(t, strings.HasPrefix(out, "Error [JAVA_NOT_FOUND]: Java executable not found"))
	assert.Contains(t, out, "- Install Java 17 or later")
	assert.Contains(t, out, "Failed after 3 retry attempts.")
	assert.NotContains(t, out, "Context:")

	verbose := Format(err.WithContext("javaHome", "/opt/jdk"), true)
	assert.Contains(t, verbose, "javaHome: /opt/jdk")
}

func TestSuggestions_DefaultAndCopy(t *testing.T) {
	assert.Equal(t, []string{"Check error message for details"}, Suggestions(KindSyntaxError))

	s := Suggestions(KindFileNotFound)
	s[0] = "mutated"
	assert.NotEqual(t, "mutated", Suggestions(KindFileNotFound)[0])
}
