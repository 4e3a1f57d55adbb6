package scenario

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wonny/tailrisk/internal/risk"
)

// Load reads a YAML file and returns the validated Config with raw bytes
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, data, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, data, nil
}

// Parse decodes YAML (or JSON, a YAML subset), applies defaults and validates
// KnownFields(true)로 오타/미사용 필드 즉시 실패
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDir loads every *.yaml / *.yml file in dir (이름 순)
func LoadDir(dir string) ([]Loaded, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	out := make([]Loaded, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		cfg, _, err := Load(p)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[cfg.Meta.ScenarioID]; dup {
			return nil, ValidationError{"meta.scenario_id", fmt.Sprintf("%q defined in both %s and %s", cfg.Meta.ScenarioID, prev, p)}
		}
		seen[cfg.Meta.ScenarioID] = p

		hash, err := Hash(cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, Loaded{Path: p, Config: cfg, Hash: hash, LoadedAt: time.Now()})
	}
	return out, nil
}

// ApplyDefaults fills zero values
func ApplyDefaults(cfg *Config) {
	if cfg.Simulation.Process == "" {
		cfg.Simulation.Process = risk.ProcessGeometric
	}

	if cfg.Summary.Confidence == 0 {
		cfg.Summary.Confidence = 0.95
	}
	if len(cfg.Summary.Ranks) == 0 {
		cfg.Summary.Ranks = append([]float64(nil), risk.DefaultPercentileRanks...)
	}
	if len(cfg.Summary.ConeRanks) == 0 {
		cfg.Summary.ConeRanks = []float64{5, 50, 95}
	}

	e := &cfg.EVT
	if e.Source == "" {
		e.Source = SourceSimulated
	}
	if e.ThresholdPct == 0 {
		e.ThresholdPct = risk.DefaultThresholdPercentile
	}
	if e.MinExceedances == 0 {
		e.MinExceedances = risk.DefaultMinExceedances
	}
	if e.Confidence == 0 {
		e.Confidence = risk.DefaultTailConfidence
	}

	l := &cfg.Lethality
	if l.TailPct == 0 {
		l.TailPct = 95
	}
	if l.Enabled && l.N == 0 {
		l.N = 10000
	}
	if l.Enabled && len(l.Factors) == 0 {
		l.Factors = risk.DefaultLethalityFactors()
	}
}

// Hash generates SHA256 hash from Config (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
