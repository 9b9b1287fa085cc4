package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/coastalkit/nestor/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// JobConfig is the on-disk description of one two-domain job: the case
// directories, solver settings and extraction-region geometry. It is YAML
// so operators can keep job files next to their case directories.
type JobConfig struct {
	FulldomainDir string `mapstructure:"fulldomain_dir"`
	SubdomainDir  string `mapstructure:"subdomain_dir"`
	ExeDir        string `mapstructure:"exe_dir"`

	NumProcs int     `mapstructure:"num_procs"`
	H0       float64 `mapstructure:"h0"`
	NOutGS   int     `mapstructure:"noutgs"`
	NSpoolGS int     `mapstructure:"nspoolgs"`

	// TimeseriesVars and ExtremaVars select the comparison outputs.
	TimeseriesVars []string `mapstructure:"timeseries_vars"`
	ExtremaVars    []string `mapstructure:"extrema_vars"`

	Shape ShapeConfig `mapstructure:"shape"`
	Store StoreConfig `mapstructure:"store"`
}

// ShapeConfig describes the extraction-region geometry. It is only consulted
// when no shape artifact exists in the subdomain directory yet.
type ShapeConfig struct {
	Kind    string  `mapstructure:"kind"` // "ellipse" or "circle"
	CenterX float64 `mapstructure:"center_x"`
	CenterY float64 `mapstructure:"center_y"`
	SemiX   float64 `mapstructure:"semi_x"`
	SemiY   float64 `mapstructure:"semi_y"`
	Radius  float64 `mapstructure:"radius"`
	Scale   float64 `mapstructure:"scale"`
}

// StoreConfig selects the phase persistence backend.
type StoreConfig struct {
	// Backend is "file" (default) or "redis".
	Backend string `mapstructure:"backend"`
	// Path is the state directory for the file backend.
	Path string `mapstructure:"path"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	// LockTTL bounds how long a crashed run holds the case lock,
	// e.g. "30m".
	LockTTL string `mapstructure:"lock_ttl"`
}

// LoadJobConfig reads and decodes a YAML job file. Decoding is weakly typed
// so that "4" and 4 both work for numeric fields, matching how operators
// tend to write these files.
func LoadJobConfig(path string) (*JobConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job config: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse job config: %w", err)
	}

	cfg := &JobConfig{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid job config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields that have no workable default.
func (c *JobConfig) Validate() error {
	if c.FulldomainDir == "" {
		return fmt.Errorf("fulldomain_dir is required")
	}
	if c.SubdomainDir == "" {
		return fmt.Errorf("subdomain_dir is required")
	}
	if c.NumProcs < 0 {
		return fmt.Errorf("num_procs cannot be negative")
	}
	switch c.Shape.Kind {
	case "", "ellipse", "circle":
	default:
		return fmt.Errorf("unknown shape kind %q", c.Shape.Kind)
	}
	switch c.Store.Backend {
	case "", "file", "redis":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	return nil
}

// ExtractionShape converts the shape section to a domain shape, or nil when
// no geometry is configured.
func (c *JobConfig) ExtractionShape() (*domain.Shape, error) {
	center := domain.Point{X: c.Shape.CenterX, Y: c.Shape.CenterY}
	switch c.Shape.Kind {
	case "":
		return nil, nil
	case "ellipse":
		s := domain.Ellipse(center, c.Shape.SemiX, c.Shape.SemiY, c.Shape.Scale)
		if err := s.Validate(); err != nil {
			return nil, err
		}
		return &s, nil
	case "circle":
		s := domain.Circle(center, c.Shape.Radius)
		if err := s.Validate(); err != nil {
			return nil, err
		}
		return &s, nil
	default:
		return nil, fmt.Errorf("unknown shape kind %q", c.Shape.Kind)
	}
}

// LockTTL parses the configured TTL, defaulting to 30 minutes.
func (c *JobConfig) LockTTL() (time.Duration, error) {
	if c.Store.LockTTL == "" {
		return 30 * time.Minute, nil
	}
	d, err := time.ParseDuration(c.Store.LockTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid lock_ttl: %w", err)
	}
	return d, nil
}
