package substrate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/kurtskinny/officesim/internal/domain"
	"github.com/kurtskinny/officesim/internal/infra/logger"
)

// Report is the append-only per-day artifact of §3/§6: unserved cases
// drained from department channels after close, redirects SA dropped
// because the target's quota was exhausted, and synthetic markers for
// clerks that exit idle.
// Report lines use O_APPEND so the kernel guarantees each Write is atomic
// with respect to other writers to the same file; the mutex additionally
// serializes the read-modify-write of building each line, standing in for
// the original's exclusive advisory file lock (§5) now that all writers
// live in one process rather than several.
type Report struct {
	mu  sync.Mutex
	dir string
	day int64
	f   *os.File
}

// OpenReport opens (creating if needed) the report file for the given
// simulated day under dir, named by day index per §6.
func OpenReport(dir string, day int64) (*Report, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "create report dir %s", dir)
	}
	path := filepath.Join(dir, fmt.Sprintf("day-%04d.report", day))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open report %s", path)
	}
	return &Report{dir: dir, day: day, f: f}, nil
}

func (r *Report) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.f.Close()
}

func (r *Report) writeLine(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = r.f.WriteString(line + "\n")
}

// UnservedAfterClose records a ticket still sitting on a department channel
// when the office closed and the grace period elapsed:
// "<client_id> - sprawa do <DEPT> - nr biletu <N>".
func (r *Report) UnservedAfterClose(t domain.TicketIssued) {
	r.writeLine(fmt.Sprintf("%d - sprawa do %s - nr biletu %d", t.ClientID, t.Department, t.TicketNumber))
}

// UnservedRedirect records a petitioner SA tried to redirect while the
// office was open, whose target quota was exhausted:
// "<client_id> - skierowanie do <DEPT> - wystawil <ISSUER>".
func (r *Report) UnservedRedirect(clientID int64, target domain.Department, issuer domain.Department) {
	r.writeLine(fmt.Sprintf("%d - skierowanie do %s - wystawil %s", clientID, target, issuer))
}

// SyntheticMarker attributes an unserved slot to the supervisor when a
// clerk exits on finish-after-current with nothing drained (§4.3).
func (r *Report) SyntheticMarker(dept domain.Department) {
	r.writeLine(fmt.Sprintf("0 - sprawa do %s - wystawil supervisor", dept))
}

// WriteDaySummary snapshots the final per-department ticket counts for a
// closed day to a small sidecar file, separate from the append-only report
// above. Unlike the report's O_APPEND line writes, the summary is a single
// whole-file artifact overwritten once per day, so a reader polling the
// directory (the supervisor's own CLI, or an operator's `tail`) must never
// observe a half-written one; writeSummaryFile swaps it in with a
// same-directory rename rather than a lock-serialized append.
func WriteDaySummary(dir string, day int64, state *AdmissionState) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrapf(err, "create summary dir %s", dir)
	}
	path := filepath.Join(dir, fmt.Sprintf("day-%04d.summary", day))

	var b strings.Builder
	fmt.Fprintf(&b, "day %d\n", day)
	for d := 0; d < domain.NumDepartments; d++ {
		dept := domain.Department(d)
		fmt.Fprintf(&b, "%s issued=%d quota=%d\n", dept, state.TicketCounter(d), state.Quotas[d])
	}

	return writeSummaryFile(path, b.String())
}

// writeSummaryFile replaces path's contents by writing to a sibling temp
// file, fsyncing it, and renaming it over path: os.Rename is atomic only
// within one filesystem volume, which is why the temp file lives alongside
// its destination rather than under os.TempDir.
func writeSummaryFile(path, contents string) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "day-summary-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp summary file")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.WriteString(contents); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write temp summary file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "fsync temp summary file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp summary file")
	}

	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, "rename temp summary file")
	}

	// Best-effort: on filesystems that journal directory metadata
	// separately from file data, the rename itself can survive a crash
	// without the directory entry pointing at it yet.
	if dirFile, err := os.Open(dir); err == nil {
		if err := dirFile.Sync(); err != nil {
			logger.Warnf("WriteDaySummary: directory sync failed: %v", err)
		}
		_ = dirFile.Close()
	}
	return nil
}
