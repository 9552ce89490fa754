package numsolve

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"golang.org/x/exp/slices"
)

// ErrConfigValidation is returned when configuration validation fails
var ErrConfigValidation = errors.New("configuration validation failed")

// Output formats understood by the CLI and the server.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCBOR = "cbor"
)

// Config holds the solver defaults, per-method presets and the settings of
// the CLI and server front ends.
type Config struct {
	Defaults SolverDefaults `yaml:"defaults" toml:"defaults"`
	Presets  Presets        `yaml:"presets" toml:"presets"`
	Output   OutputConfig   `yaml:"output" toml:"output"`
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Log      LogConfig      `yaml:"log" toml:"log"`
}

// SolverDefaults apply to root finders when a call leaves them unset.
type SolverDefaults struct {
	Tolerance     float64 `yaml:"tolerance" toml:"tolerance"`
	MaxIterations int     `yaml:"max_iterations" toml:"max_iterations"`
}

type Presets struct {
	Bisection     BisectionPreset `yaml:"bisection" toml:"bisection"`
	NewtonRaphson NewtonPreset    `yaml:"newton_raphson" toml:"newton_raphson"`
	Euler         ODEPreset       `yaml:"euler" toml:"euler"`
	RungeKutta4   ODEPreset       `yaml:"runge_kutta4" toml:"runge_kutta4"`
}

type BisectionPreset struct {
	Expr string  `yaml:"expr" toml:"expr"`
	A    float64 `yaml:"a" toml:"a"`
	B    float64 `yaml:"b" toml:"b"`
}

type NewtonPreset struct {
	Expr       string  `yaml:"expr" toml:"expr"`
	Derivative string  `yaml:"derivative" toml:"derivative"`
	X0         float64 `yaml:"x0" toml:"x0"`
}

type ODEPreset struct {
	Expr   string  `yaml:"expr" toml:"expr"`
	X0     float64 `yaml:"x0" toml:"x0"`
	Y0     float64 `yaml:"y0" toml:"y0"`
	H      float64 `yaml:"h" toml:"h"`
	XFinal float64 `yaml:"x_final" toml:"x_final"`
}

// OutputConfig controls how results are printed.
type OutputConfig struct {
	Format    string `yaml:"format" toml:"format"`
	Precision int    `yaml:"precision" toml:"precision"`
	NoColor   bool   `yaml:"no_color" toml:"no_color"`
	// MaxRows truncates long traces in text output; 0 prints every row.
	MaxRows int `yaml:"max_rows" toml:"max_rows"`
}

// ServerConfig configures numsolve-server. Durations use Go syntax ("15s").
type ServerConfig struct {
	Addr              string `yaml:"addr" toml:"addr"`
	MaxBodyBytes      int64  `yaml:"max_body_bytes" toml:"max_body_bytes"`
	ReadHeaderTimeout string `yaml:"read_header_timeout" toml:"read_header_timeout"`
	ReadTimeout       string `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout      string `yaml:"write_timeout" toml:"write_timeout"`
	IdleTimeout       string `yaml:"idle_timeout" toml:"idle_timeout"`
}

type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
}

// DefaultConfig returns the built-in configuration. The presets are the
// worked examples each method starts from.
func DefaultConfig() *Config {
	return &Config{
		Defaults: SolverDefaults{Tolerance: DefaultTolerance, MaxIterations: DefaultMaxIterations},
		Presets: Presets{
			Bisection:     BisectionPreset{Expr: "x**2 - 4", A: 0, B: 3},
			NewtonRaphson: NewtonPreset{Expr: "x**2 - 4", Derivative: "2*x", X0: 3},
			Euler:         ODEPreset{Expr: "x + y", X0: 0, Y0: 1, H: 0.1, XFinal: 1},
			RungeKutta4:   ODEPreset{Expr: "x + y", X0: 0, Y0: 1, H: 0.1, XFinal: 1},
		},
		Output: OutputConfig{Format: FormatText, Precision: 8},
		Server: ServerConfig{
			Addr:              ":8080",
			MaxBodyBytes:      1 << 20,
			ReadHeaderTimeout: "5s",
			ReadTimeout:       "15s",
			WriteTimeout:      "15s",
			IdleTimeout:       "60s",
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig loads configuration from the specified file. A missing file
// yields the defaults. Files ending in .toml are read as TOML, anything else
// as YAML; unknown keys are rejected in both.
func LoadConfig(configPath string) (*Config, error) {
	// Load .env files first
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("failed to load environment files: %w", err)
	}

	config := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
			// keep defaults
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := decodeConfig(configPath, data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func decodeConfig(path string, data []byte, config *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		md, err := toml.Decode(string(data), config)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown field %q", undecoded[0].String())
		}
		return nil
	}
	return yaml.UnmarshalWithOptions(data, config, yaml.Strict())
}

// loadEnvFiles loads .env from the working directory when present.
func loadEnvFiles() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	return godotenv.Load(".env")
}

func applyEnvOverrides(config *Config) {
	config.Server.Addr = os.ExpandEnv(config.Server.Addr)
	config.Log.Level = os.ExpandEnv(config.Log.Level)
	if v := os.Getenv("NUMSOLVE_LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}
	if v := os.Getenv("NUMSOLVE_ADDR"); v != "" {
		config.Server.Addr = v
	}
}

// Validate checks the configuration for values the solvers or front ends
// would reject later.
func (c *Config) Validate() error {
	if c.Defaults.Tolerance <= 0 {
		return fmt.Errorf("%w: defaults.tolerance must be positive", ErrConfigValidation)
	}
	if c.Defaults.MaxIterations <= 0 || c.Defaults.MaxIterations > MaxIterationsLimit {
		return fmt.Errorf("%w: defaults.max_iterations must be in [1, %d]", ErrConfigValidation, MaxIterationsLimit)
	}
	if !slices.Contains([]string{FormatText, FormatJSON, FormatCBOR}, c.Output.Format) {
		return fmt.Errorf("%w: invalid output.format '%s': must be one of text, json, cbor", ErrConfigValidation, c.Output.Format)
	}
	if c.Output.Precision < 1 || c.Output.Precision > 17 {
		return fmt.Errorf("%w: output.precision must be between 1 and 17", ErrConfigValidation)
	}
	if c.Output.MaxRows < 0 {
		return fmt.Errorf("%w: output.max_rows must not be negative", ErrConfigValidation)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: server.max_body_bytes must be positive", ErrConfigValidation)
	}
	for name, v := range map[string]string{
		"read_header_timeout": c.Server.ReadHeaderTimeout,
		"read_timeout":        c.Server.ReadTimeout,
		"write_timeout":       c.Server.WriteTimeout,
		"idle_timeout":        c.Server.IdleTimeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%w: server.%s: %v", ErrConfigValidation, name, err)
		}
	}

	p := c.Presets
	if p.Bisection.A >= p.Bisection.B {
		return fmt.Errorf("%w: presets.bisection: a must be less than b", ErrConfigValidation)
	}
	for name, ode := range map[string]ODEPreset{"euler": p.Euler, "runge_kutta4": p.RungeKutta4} {
		if err := validateODE(ode.X0, ode.Y0, ode.H, ode.XFinal); err != nil {
			return fmt.Errorf("%w: presets.%s: %v", ErrConfigValidation, name, err)
		}
	}
	for name, src := range map[string]string{
		"bisection":      p.Bisection.Expr,
		"newton_raphson": p.NewtonRaphson.Expr,
		"euler":          p.Euler.Expr,
		"runge_kutta4":   p.RungeKutta4.Expr,
	} {
		if _, err := Compile(src); err != nil {
			return fmt.Errorf("%w: presets.%s: %v", ErrConfigValidation, name, err)
		}
	}
	return nil
}

// Durations returns the parsed server timeouts in the order read header,
// read, write, idle. Validate guarantees they parse.
func (s ServerConfig) Durations() (readHeader, read, write, idle time.Duration) {
	readHeader, _ = time.ParseDuration(s.ReadHeaderTimeout)
	read, _ = time.ParseDuration(s.ReadTimeout)
	write, _ = time.ParseDuration(s.WriteTimeout)
	idle, _ = time.ParseDuration(s.IdleTimeout)
	return readHeader, read, write, idle
}
