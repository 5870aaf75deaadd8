package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Profile holds the tunable parameters of one analysis run.
type Profile struct {
	Name string `yaml:"name" json:"name" default:"default"`

	// Regime model
	States          int     `yaml:"states" json:"states" default:"3" validate:"min=2,max=8"`
	CandidateStates []int   `yaml:"candidate_states" json:"candidate_states" default:"[2,3,4,5]" validate:"min=1,dive,min=2,max=8"`
	Seed            uint64  `yaml:"seed" json:"seed" default:"42"`
	MaxIterations   int     `yaml:"max_iterations" json:"max_iterations" default:"100" validate:"min=1"`
	Tolerance       float64 `yaml:"tolerance" json:"tolerance" default:"0.01" validate:"gt=0"`
	MinVariance     float64 `yaml:"min_variance" json:"min_variance" default:"0.001" validate:"gt=0"`
	Signal          string  `yaml:"signal" json:"signal" default:"VIX" validate:"required"`

	// Backtest
	LagDays        int      `yaml:"lag_days" json:"lag_days" default:"1" validate:"gte=0"`
	PeriodsPerYear int      `yaml:"periods_per_year" json:"periods_per_year" default:"252" validate:"min=1"`
	Instruments    []string `yaml:"instruments" json:"instruments" default:"[\"TLT\",\"GLD\",\"SPY\"]" validate:"min=1,unique,dive,required"`
	Benchmark      string   `yaml:"benchmark" json:"benchmark" default:"SPY"`
}

// DefaultProfile returns the profile used when no file is configured.
func DefaultProfile() *Profile {
	p := &Profile{}
	// Tags are static; Set only fails on malformed tags.
	if err := defaults.Set(p); err != nil {
		panic(fmt.Sprintf("invalid profile defaults: %v", err))
	}
	return p
}

// ParseProfile decodes a YAML profile. Defaults are applied first so keys
// set explicitly to zero (lag_days: 0, seed: 0) keep their value.
func ParseProfile(data []byte) (*Profile, error) {
	p := DefaultProfile()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadProfile reads a YAML profile from disk. An empty path returns
// DefaultProfile.
func LoadProfile(path string) (*Profile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	p, err := ParseProfile(data)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

// UnmarshalJSON applies defaults before decoding, so API requests may send
// only the keys they override.
func (p *Profile) UnmarshalJSON(data []byte) error {
	type plain Profile
	decoded := plain(*DefaultProfile())
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*p = Profile(decoded)
	return nil
}

// Validate checks the profile's ranges.
func (p *Profile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	return nil
}

// Columns returns the instruments to load: the candidate instruments in
// priority order, then the benchmark if it is not one of them.
func (p *Profile) Columns() []string {
	cols := append([]string(nil), p.Instruments...)
	if p.Benchmark == "" {
		return cols
	}
	for _, inst := range cols {
		if inst == p.Benchmark {
			return cols
		}
	}
	return append(cols, p.Benchmark)
}
