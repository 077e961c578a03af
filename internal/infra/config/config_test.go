package config

import (
	"path/filepath"
	"testing"

	"github.com/kurtskinny/officesim/internal/domain"
)

func baseSupervisorArgs(t *testing.T) []string {
	t.Helper()
	return []string{
		"--role", "supervisor",
		"--env", filepath.Join(t.TempDir(), "nonexistent.env"),
		"--anchor", filepath.Join(t.TempDir(), "anchor.lock"),
		"--report-dir", t.TempDir(),
		"--log-dir", t.TempDir(),
	}
}

func TestLoadSupervisorHappyPath(t *testing.T) {
	cfg, err := Load(append(baseSupervisorArgs(t), "--Tp", "8", "--Tk", "16", "--N", "20"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Role != domain.RoleSupervisor {
		t.Fatalf("Role = %v", cfg.Role)
	}
	if cfg.OpenHour != 8 || cfg.CloseHour != 16 || cfg.Capacity != 20 {
		t.Fatalf("unexpected supervisor fields: %+v", cfg)
	}
}

func TestLoadRejectsOpenEqualsClose(t *testing.T) {
	_, err := Load(append(baseSupervisorArgs(t), "--Tp", "9", "--Tk", "9"))
	if err == nil {
		t.Fatal("Tp == Tk must be rejected at config parse (§8 boundary)")
	}
}

func TestLoadRejectsOpenAfterClose(t *testing.T) {
	_, err := Load(append(baseSupervisorArgs(t), "--Tp", "18", "--Tk", "8"))
	if err == nil {
		t.Fatal("Tp > Tk must be rejected")
	}
}

func TestLoadRejectsHourOutOfRange(t *testing.T) {
	_, err := Load(append(baseSupervisorArgs(t), "--Tp", "24", "--Tk", "25"))
	if err == nil {
		t.Fatal("hours outside [0,23] must be rejected")
	}
}

func TestLoadRejectsZeroCapacity(t *testing.T) {
	_, err := Load(append(baseSupervisorArgs(t), "--N", "0"))
	if err == nil {
		t.Fatal("N=0 must be rejected (N must be >= 1)")
	}
}

func TestLoadAcceptsN1(t *testing.T) {
	cfg, err := Load(append(baseSupervisorArgs(t), "--N", "1"))
	if err != nil {
		t.Fatalf("N=1 is a valid boundary case, got error: %v", err)
	}
	if cfg.Capacity != 1 {
		t.Fatalf("Capacity = %d, want 1", cfg.Capacity)
	}
}

func TestLoadRejectsNegativeQuota(t *testing.T) {
	_, err := Load(append(baseSupervisorArgs(t), "--X2", "-1"))
	if err == nil {
		t.Fatal("negative quota must be rejected")
	}
}

func TestLoadAcceptsZeroQuota(t *testing.T) {
	if _, err := Load(append(baseSupervisorArgs(t), "--X3", "0")); err != nil {
		t.Fatalf("quota 0 must be accepted (treated as unlimited): %v", err)
	}
}

func TestLoadRejectsNonPositiveTimeMul(t *testing.T) {
	_, err := Load(append(baseSupervisorArgs(t), "--time-mul", "0"))
	if err == nil {
		t.Fatal("time-mul must be > 0")
	}
}

func TestLoadValidationSkippedForNonSupervisorRoles(t *testing.T) {
	// A clerk/client invocation never supplies Tp/Tk/N, so validate() must
	// not apply the supervisor-only numeric constraints to it.
	cfg, err := Load([]string{
		"--role", "client",
		"--dept", "SC",
		"--env", filepath.Join(t.TempDir(), "nonexistent.env"),
	})
	if err != nil {
		t.Fatalf("Load(client): %v", err)
	}
	if cfg.Department != domain.DeptSC {
		t.Fatalf("Department = %v, want SC", cfg.Department)
	}
}

func TestLoadCoercesUnknownDepartmentToSAWithWarning(t *testing.T) {
	cfg, err := Load([]string{
		"--role", "clerk",
		"--dept", "ZZ",
		"--env", filepath.Join(t.TempDir(), "nonexistent.env"),
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Department != domain.DeptSA {
		t.Fatalf("Department = %v, want SA after coercion", cfg.Department)
	}
	if len(cfg.Warnings) == 0 {
		t.Fatal("expected a warning about the unrecognized department")
	}
}

func TestLoadRejectsUnknownRole(t *testing.T) {
	if _, err := Load([]string{"--role", "bogus"}); err == nil {
		t.Fatal("unknown --role must be rejected")
	}
}
