// Package anchor implements the host-unique anchor file that substrate
// keys are deterministically derived from (spec.md §6: "Keys are derived
// deterministically from a host-unique anchor file at a fixed absolute
// path"), and the mutual-exclusion lock that guards against a second
// supervisor corrupting a running simulation — a feature present in the
// original source (ipcutils.h's IPC_LOCK_FILE) but left implicit by the
// distilled spec; supplemented per SPEC_FULL.md §8.
package anchor

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// DefaultPath is the default anchor location: a fixed absolute path under
// /tmp, like the original's IPC_LOCK_FILE, under this module's own name.
const DefaultPath = "/tmp/officesim.lock"

// Anchor is a held advisory lock on the anchor file, tagging the run with a
// UUID so substrate object names (report/log files) can be namespaced per
// invocation if more than one simulation is ever run against the same
// anchor directory.
type Anchor struct {
	Tag string
	f   *os.File
}

// Acquire opens (creating if absent) the anchor file at path and takes an
// exclusive, non-blocking advisory lock on it, retrying with backoff per
// §7(b) ("substrate-busy — retried by supervisor's create-or-replace
// primitive") before giving up. A process that successfully acquires the
// lock writes a fresh UUID tag and its pid; a process that cannot acquire
// it within the retry budget returns an error, which the caller surfaces as
// exit code 1 (§6, §7(a)).
func Acquire(path string) (*Anchor, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, errors.Wrapf(err, "create anchor dir %s", dir)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open anchor %s", path)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = backoff.DefaultMaxElapsedTime

	lockErr := backoff.Retry(func() error {
		err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err != nil {
			return errors.Wrapf(err, "anchor %s busy", path)
		}
		return nil
	}, bo)
	if lockErr != nil {
		f.Close()
		return nil, lockErr
	}

	tag := uuid.NewString()
	if err := f.Truncate(0); err == nil {
		_, _ = f.Seek(0, 0)
		_, _ = fmt.Fprintf(f, "%s %d\n", tag, os.Getpid())
	}

	return &Anchor{Tag: tag, f: f}, nil
}

// Release drops the advisory lock and closes the anchor file. It does not
// remove the file: the next Acquire reuses and retags it, matching the
// original's create-or-replace idempotence requirement (§8 "Create-or-
// replace of each substrate object is idempotent modulo the object id").
func (a *Anchor) Release() error {
	if a == nil || a.f == nil {
		return nil
	}
	_ = syscall.Flock(int(a.f.Fd()), syscall.LOCK_UN)
	return a.f.Close()
}

// RemoveFile deletes the anchor file entirely; only the Supervisor calls
// this, and only after Release, as the final step of shutdown (§4.1
// "destroy substrate ... and lock file").
func RemoveFile(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
