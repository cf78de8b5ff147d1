// Package config parses the gravity simulator's runtime configuration:
// command-line flags, following the shape of the original simulator's
// runtime_config, layered over an optional gcfg INI-style config file.
// Flags always win over the file when both set the same value.
package config

import (
	"flag"
	"fmt"
	"math"
	"runtime"

	"gopkg.in/gcfg.v1"

	"github.com/sandeepkv93/gravity/internal/engine"
)

// Config holds the fully resolved runtime configuration: parsed
// flags, merged with any --config file, with all derived fields
// (ReportEveryIterations, MaxIterations) computed.
type Config struct {
	InputFile  string
	OutputFile string
	ConfigFile string

	ReportCentre string
	TimeDelta    float64

	// ReportEverySeconds and DurationSeconds are the user-facing units;
	// ReportEveryIterations and MaxIterations are their TimeDelta-scaled
	// equivalents, computed by resolve().
	ReportEverySeconds   float64
	DurationSeconds      float64
	ReportEveryIterations uint64
	MaxIterations         uint64

	AutoStart bool
	Method    engine.Method
	Workers   int

	TelemetryAddr string
}

// fileSection mirrors the [gravity] section of a --config file. Its
// keys are the command-line flag names (time-delta, report-every, ...),
// matched case-insensitively; fields whose flag name contains a dash
// carry a gcfg tag naming that key.
type fileSection struct {
	Gravity struct {
		Input          string
		Output         string
		ReportCentre   string  `gcfg:"report-centre"`
		TimeDelta      float64 `gcfg:"time-delta"`
		ReportEvery    float64 `gcfg:"report-every"`
		Duration       float64
		AutoStart      bool    `gcfg:"auto-start"`
		Method         int
		Workers        int
		TelemetryAddr  string  `gcfg:"telemetry-addr"`
	}
}

// Parse parses args (typically os.Args[1:]) into a Config. It applies
// defaults, then an optional --config INI file if named, then the
// explicitly-set flags on top (flags always win), then computes the
// derived iteration-count fields.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("gravity", flag.ContinueOnError)

	cfg := &Config{}
	fs.StringVar(&cfg.InputFile, "input", "", "input CSV file to seed the simulation from (default: built-in solar system)")
	fs.StringVar(&cfg.OutputFile, "output", "", "output CSV file to append periodic reports to")
	fs.StringVar(&cfg.ConfigFile, "config", "", "optional gcfg INI file providing defaults for any flag below")
	fs.StringVar(&cfg.ReportCentre, "report-centre", "", "body label to use as the report coordinate system origin")
	fs.Float64Var(&cfg.TimeDelta, "time-delta", 1.0, "integration step, in simulated seconds")
	fs.Float64Var(&cfg.ReportEverySeconds, "report-every", 1000, "report period, in simulated seconds (0 disables periodic reporting)")
	fs.Float64Var(&cfg.DurationSeconds, "duration", 0, "stop after simulating this many seconds (0 means unbounded)")
	fs.BoolVar(&cfg.AutoStart, "auto-start", false, "start the controller unpaused")
	method := fs.Int("method", int(engine.DefaultMethod), "integration method: 0 linear, 1 linear_kahan, 2 quadratic, 3 quadratic_kahan, 4 cubic, 5 cubic_kahan")
	fs.IntVar(&cfg.Workers, "workers", runtime.NumCPU(), "worker count for the parallel force-evaluation pool")
	fs.StringVar(&cfg.TelemetryAddr, "telemetry-addr", "", "if set, serve a telemetry snapshot/websocket endpoint on this address")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.ConfigFile != "" {
		if err := applyConfigFile(cfg, method, fs, cfg.ConfigFile); err != nil {
			return nil, fmt.Errorf("gravity: reading config file: %w", err)
		}
	}

	m, err := engine.ParseMethod(*method)
	if err != nil {
		return nil, err
	}
	cfg.Method = m

	cfg.resolve()
	return cfg, nil
}

// applyConfigFile reads an INI file into fileSection and copies over
// any value not already set explicitly on the command line, so flags
// always take precedence over the file.
func applyConfigFile(cfg *Config, method *int, fs *flag.FlagSet, path string) error {
	var fc fileSection
	if err := gcfg.ReadFileInto(&fc, path); err != nil {
		return err
	}

	explicit := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	g := fc.Gravity
	if !explicit["input"] && g.Input != "" {
		cfg.InputFile = g.Input
	}
	if !explicit["output"] && g.Output != "" {
		cfg.OutputFile = g.Output
	}
	if !explicit["report-centre"] && g.ReportCentre != "" {
		cfg.ReportCentre = g.ReportCentre
	}
	if !explicit["time-delta"] && g.TimeDelta != 0 {
		cfg.TimeDelta = g.TimeDelta
	}
	if !explicit["report-every"] && g.ReportEvery != 0 {
		cfg.ReportEverySeconds = g.ReportEvery
	}
	if !explicit["duration"] && g.Duration != 0 {
		cfg.DurationSeconds = g.Duration
	}
	if !explicit["auto-start"] && g.AutoStart {
		cfg.AutoStart = g.AutoStart
	}
	if !explicit["method"] && g.Method != 0 {
		*method = g.Method
	}
	if !explicit["workers"] && g.Workers != 0 {
		cfg.Workers = g.Workers
	}
	if !explicit["telemetry-addr"] && g.TelemetryAddr != "" {
		cfg.TelemetryAddr = g.TelemetryAddr
	}
	return nil
}

// resolve computes ReportEveryIterations and MaxIterations from their
// simulated-seconds counterparts and TimeDelta, matching the original
// simulator's post-processing of --report-every and --duration.
func (c *Config) resolve() {
	if c.ReportEverySeconds > 0 && c.TimeDelta > 0 {
		c.ReportEveryIterations = uint64(math.Round(c.ReportEverySeconds / c.TimeDelta))
	}
	if c.DurationSeconds > 0 && c.TimeDelta > 0 {
		c.MaxIterations = uint64(math.Round(c.DurationSeconds / c.TimeDelta))
	}
}
