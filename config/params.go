package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Limits of the topology size. Every address field is a single byte.
const (
	MaxNodes    = 256
	MaxNetworks = 255
)

// EnvPrefix starts the names of the environment variables that override
// parameters.
const EnvPrefix = "BRIDGESIM_"

// Params are the knobs of a simulation run.
type Params struct {
	Nodes    int `yaml:"nodes"`
	Networks int `yaml:"networks"`

	Heartbeat   time.Duration `yaml:"heartbeat"`
	NodeTimeout time.Duration `yaml:"node_timeout"`
	TableExpiry time.Duration `yaml:"table_expiry"`

	DropProbability    float64 `yaml:"drop_probability"`
	CorruptProbability float64 `yaml:"corrupt_probability"`
	IgnoreProbability  float64 `yaml:"ignore_probability"`

	OutputDir   string `yaml:"output_dir"`
	RecordPath  string `yaml:"record_path"`
	MonitorPort int    `yaml:"monitor_port"`
}

// DefaultParams returns the parameters used when nothing is configured.
func DefaultParams() Params {
	return Params{
		Nodes:              2,
		Networks:           2,
		Heartbeat:          100 * time.Millisecond,
		NodeTimeout:        3 * time.Second,
		TableExpiry:        3 * time.Second,
		DropProbability:    0.05,
		CorruptProbability: 0.05,
		IgnoreProbability:  0.05,
		OutputDir:          ".",
	}
}

// LoadParams reads a YAML file on top of the default parameters.
func LoadParams(path string) (Params, error) {
	p := DefaultParams()

	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}

	err = yaml.Unmarshal(data, &p)
	if err != nil {
		return p, fmt.Errorf("%w: %s: %w", ErrMalformedConfig, path, err)
	}

	return p, nil
}

// LoadEnv loads variables from .env files into the environment. Files that
// do not exist are skipped. With no argument, ".env" is tried.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, path := range paths {
		_, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMalformedConfig, path, err)
		}
	}

	return nil
}

// ApplyEnv overrides the parameters with the BRIDGESIM_* environment
// variables that are set.
func (p *Params) ApplyEnv() error {
	ints := map[string]*int{
		"NODES":        &p.Nodes,
		"NETWORKS":     &p.Networks,
		"MONITOR_PORT": &p.MonitorPort,
	}
	durations := map[string]*time.Duration{
		"HEARTBEAT":    &p.Heartbeat,
		"NODE_TIMEOUT": &p.NodeTimeout,
		"TABLE_EXPIRY": &p.TableExpiry,
	}
	floats := map[string]*float64{
		"DROP_PROBABILITY":    &p.DropProbability,
		"CORRUPT_PROBABILITY": &p.CorruptProbability,
		"IGNORE_PROBABILITY":  &p.IgnoreProbability,
	}
	strs := map[string]*string{
		"OUTPUT_DIR":  &p.OutputDir,
		"RECORD_PATH": &p.RecordPath,
	}

	for name, dst := range ints {
		if err := applyEnvValue(name, dst, strconv.Atoi); err != nil {
			return err
		}
	}

	for name, dst := range durations {
		if err := applyEnvValue(name, dst, time.ParseDuration); err != nil {
			return err
		}
	}

	for name, dst := range floats {
		err := applyEnvValue(name, dst, func(s string) (float64, error) {
			return strconv.ParseFloat(s, 64)
		})
		if err != nil {
			return err
		}
	}

	for name, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}

	return nil
}

func applyEnvValue[T any](
	name string,
	dst *T,
	parse func(string) (T, error),
) error {
	s, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return nil
	}

	v, err := parse(s)
	if err != nil {
		return fmt.Errorf("%w: %s%s=%q: %w",
			ErrMalformedConfig, EnvPrefix, name, s, err)
	}

	*dst = v

	return nil
}

// Validate reports the first parameter that is out of range.
func (p Params) Validate() error {
	if p.Nodes < 1 || p.Nodes > MaxNodes {
		return fmt.Errorf("%w: node count %d not in 1..%d",
			ErrMalformedConfig, p.Nodes, MaxNodes)
	}

	if p.Networks < 1 || p.Networks > MaxNetworks {
		return fmt.Errorf("%w: network count %d not in 1..%d",
			ErrMalformedConfig, p.Networks, MaxNetworks)
	}

	for name, d := range map[string]time.Duration{
		"heartbeat":    p.Heartbeat,
		"node timeout": p.NodeTimeout,
		"table expiry": p.TableExpiry,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive",
				ErrMalformedConfig, name)
		}
	}

	for name, prob := range map[string]float64{
		"drop probability":    p.DropProbability,
		"corrupt probability": p.CorruptProbability,
		"ignore probability":  p.IgnoreProbability,
	} {
		if prob < 0 || prob > 1 {
			return fmt.Errorf("%w: %s %v not in 0..1",
				ErrMalformedConfig, name, prob)
		}
	}

	return nil
}
