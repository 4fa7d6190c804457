// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package archive

import (
	"errors"
	"os"

	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
)

// errLockHeld is returned by a FileLocker when another process owns the lock.
var errLockHeld = errors.New("lock held by another process")

// FileLocker takes non-blocking exclusive locks on open files.
type FileLocker interface {
	// Lock fails with errLockHeld when the lock is owned elsewhere.
	Lock(f *os.File) error

	// Unlock releases a lock taken by Lock.
	Unlock(f *os.File) error
}

// keyLock is an acquired extraction lock.
type keyLock struct {
	f      *os.File
	locker FileLocker
}

// acquireKeyLock opens path and locks it.
//
// Errors:
//
//	fault.KindArchiveLocked - another process is extracting the same key.
//	fault.KindExtractionFailed - the lock file could not be opened or locked.
func acquireKeyLock(locker FileLocker, path string) (*keyLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fault.Wrap(fault.KindExtractionFailed, err,
			"Failed to open extraction lock "+path)
	}
	if err := locker.Lock(f); err != nil {
		f.Close()
		if errors.Is(err, errLockHeld) {
			return nil, fault.Wrap(fault.KindArchiveLocked, err,
				"Archive extraction in progress by another process").
				WithContext("lockFile", path)
		}
		return nil, fault.Wrap(fault.KindExtractionFailed, err,
			"Failed to lock "+path)
	}
	return &keyLock{f: f, locker: locker}, nil
}

func (l *keyLock) release() error {
	uerr := l.locker.Unlock(l.f)
	cerr := l.f.Close()
	return errors.Join(uerr, cerr)
}
