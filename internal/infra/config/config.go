// Package config collects and validates the CLI surface of spec.md §6,
// adapted from the teacher project's config package: a flag set parsed
// into a plain struct, a sanitize-with-warnings pattern for optional
// values, and an optional .env file (github.com/joho/godotenv) loaded into
// the process environment. No Config field is read from that environment;
// every value comes from the flags or their defaults.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/kurtskinny/officesim/internal/domain"
	"github.com/kurtskinny/officesim/internal/infra/anchor"
)

// Config holds every flag defined in spec.md §6 plus the ambient knobs
// (anchor path, report/log locations) that every role needs regardless of
// which role it plays.
type Config struct {
	Role domain.Role

	// Supervisor-only.
	OpenHour        int // --Tp
	CloseHour       int // --Tk
	Capacity        int // --N
	Quotas          [domain.NumDepartments]int
	TimeMul         int // --time-mul
	GenFromDirector bool
	OneDay          bool
	GenMinDelay     int
	GenMaxDelay     int
	GenMaxCount     int // 0 means unbounded
	MaxRuntimeSec   int // 0 means unbounded wall-clock watchdog

	// Clerk/client.
	Department    domain.Department
	DepartmentSet bool
	VIP           bool
	Child         bool

	// Ambient, shared by every role.
	AnchorPath string
	ReportDir  string
	LogDir     string
	LogLevel   string
	EnvPath    string

	Warnings []string
}

const (
	defaultOpenHour    = 8
	defaultCloseHour   = 16
	defaultCapacity    = 20
	defaultQuota       = 10
	defaultTimeMul     = 60
	defaultGenMinDelay = 2
	defaultGenMaxDelay = 8
	defaultAnchorPath  = anchor.DefaultPath
	defaultReportDir   = "data/reports"
	defaultLogDir      = "data/logs"
	defaultLogLevel    = "info"
)

// Load parses args (normally os.Args[1:]) into a validated Config. It
// also loads an optional .env file (selected with --env, default
// "officesim.env"; silently skipped if absent, matching the teacher's
// tolerant godotenv.Load usage) into the process environment. The
// variables it sets do not change any Config field: flags and their
// defaults are the only source of the values below.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("officesim", flag.ContinueOnError)

	role := fs.String("role", "", "actor role: supervisor|client|registration|clerk|generator|cashier (required)")
	envPath := fs.String("env", "officesim.env", "optional .env file with operational defaults")

	tp := fs.Int("Tp", defaultOpenHour, "opening hour (0-23), supervisor only")
	tk := fs.Int("Tk", defaultCloseHour, "closing hour (0-23), supervisor only; must be > Tp")
	n := fs.Int("N", defaultCapacity, "building capacity, supervisor only")
	x1 := fs.Int("X1", defaultQuota, "SA daily ticket quota (0 = unlimited)")
	x2 := fs.Int("X2", defaultQuota, "SC daily ticket quota (0 = unlimited)")
	x3 := fs.Int("X3", defaultQuota, "KM daily ticket quota (0 = unlimited)")
	x4 := fs.Int("X4", defaultQuota, "ML daily ticket quota (0 = unlimited)")
	x5 := fs.Int("X5", defaultQuota, "PD daily ticket quota (0 = unlimited)")
	timeMul := fs.Int("time-mul", defaultTimeMul, "simulated-seconds-per-real-second multiplier")
	genFromDirector := fs.Bool("gen-from-dyrektor", true, "supervisor spawns the client generator")
	oneDay := fs.Bool("one-day", false, "stop the simulation after a single day")
	genMinDelay := fs.Int("gen-min-delay", defaultGenMinDelay, "minimum seconds between generated clients")
	genMaxDelay := fs.Int("gen-max-delay", defaultGenMaxDelay, "maximum seconds between generated clients")
	genMaxCount := fs.Int("gen-max-count", 0, "cap on clients spawned by the generator (0 = unbounded)")
	maxRuntimeSec := fs.Int("max-runtime-seconds", 0, "supervisor only: wall-clock watchdog that forces evacuation after N seconds (0 = unbounded)")

	dept := fs.String("dept", "SA", "department for --role clerk|client: SA|SC|KM|ML|PD")
	vip := fs.Bool("vip", false, "client only: request VIP priority")
	child := fs.Bool("child", false, "client only: bring a child companion")

	anchorPath := fs.String("anchor", defaultAnchorPath, "path to the host-unique anchor/lock file")
	reportDir := fs.String("report-dir", defaultReportDir, "directory for daily unserved-case reports")
	logDir := fs.String("log-dir", defaultLogDir, "directory for the persisted rotating log file")
	logLevel := fs.String("log-level", defaultLogLevel, "debug|info|warn|error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := godotenv.Load(*envPath); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "load env overlay %s", *envPath)
	}

	r, err := domain.ParseRole(*role)
	if err != nil {
		return nil, errors.Wrap(err, "--role")
	}

	var warnings []string
	department, ok := domain.ParseDepartment(strings.ToUpper(*dept))
	if !ok && (r == domain.RoleClerk || r == domain.RoleClient) {
		warnings = append(warnings, fmt.Sprintf("--dept %q not recognized, coerced to SA", *dept))
	}

	cfg := &Config{
		Role:            r,
		OpenHour:        *tp,
		CloseHour:       *tk,
		Capacity:        *n,
		Quotas:          [domain.NumDepartments]int{*x1, *x2, *x3, *x4, *x5},
		TimeMul:         *timeMul,
		GenFromDirector: *genFromDirector,
		OneDay:          *oneDay,
		GenMinDelay:     *genMinDelay,
		GenMaxDelay:     *genMaxDelay,
		GenMaxCount:     *genMaxCount,
		MaxRuntimeSec:   *maxRuntimeSec,
		Department:      department,
		DepartmentSet:   true,
		VIP:             *vip,
		Child:           *child,
		AnchorPath:      *anchorPath,
		ReportDir:       *reportDir,
		LogDir:          *logDir,
		LogLevel:        *logLevel,
		EnvPath:         *envPath,
		Warnings:        dedupWarnings(warnings),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// dedupWarnings drops repeated warning strings while keeping the order
// they were first appended, the same inline seen-map shape the teacher
// uses in its own config sanitizers (e.g. its schedule-dedup pass) rather
// than a generic slice-dedup helper pulled in from elsewhere for this one
// call site.
func dedupWarnings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, w := range in {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// validate enforces the boundary behaviors of §8: "Opening equal to
// closing is rejected at config parse", plus the other supervisor-only
// numeric constraints.
func (c *Config) validate() error {
	if c.Role != domain.RoleSupervisor {
		return nil
	}
	if c.OpenHour < 0 || c.OpenHour > 23 || c.CloseHour < 0 || c.CloseHour > 23 {
		return errors.New("Tp and Tk must be in [0,23]")
	}
	if c.OpenHour >= c.CloseHour {
		return errors.New("Tp must be strictly less than Tk")
	}
	if c.Capacity < 1 {
		return errors.New("N must be >= 1")
	}
	if c.TimeMul <= 0 {
		return errors.New("time-mul must be > 0")
	}
	for i, q := range c.Quotas {
		if q < 0 {
			return fmt.Errorf("X%d must be >= 0", i+1)
		}
	}
	if c.GenMinDelay <= 0 || c.GenMaxDelay <= 0 || c.GenMinDelay > c.GenMaxDelay {
		return errors.New("gen-min-delay and gen-max-delay must be positive, with min <= max")
	}
	if c.MaxRuntimeSec < 0 {
		return errors.New("max-runtime-seconds must be >= 0")
	}
	return nil
}
