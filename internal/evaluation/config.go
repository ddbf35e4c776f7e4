// Package evaluation scores tutor replies against a fixed set of test
// conversations: keyword match, tool trajectory and Socratic style,
// weighted into one overall score per case.
package evaluation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/algotutor/internal/logging"
)

// Metric names used as weight keys.
const (
	MetricResponseMatch  = "response_match_score"
	MetricToolTrajectory = "tool_trajectory_score"
	MetricSocratic       = "socratic_method_score"
)

// DefaultPassThreshold is the overall score a case needs to pass.
const DefaultPassThreshold = 0.7

var defaultWeights = map[string]float64{
	MetricResponseMatch:  0.4,
	MetricToolTrajectory: 0.3,
	MetricSocratic:       0.3,
}

// MetricWeight assigns a weight to a named metric.
type MetricWeight struct {
	Name   string  `json:"name" yaml:"name"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// Config describes an evaluation run.
type Config struct {
	TestSuite     string         `json:"test_suite" yaml:"test_suite"`
	Metrics       []MetricWeight `json:"metrics" yaml:"metrics"`
	PassThreshold float64        `json:"pass_threshold,omitempty" yaml:"pass_threshold,omitempty"`

	// LogLevel, when set, replaces the process log level for the run
	// unless --log-level was given.
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
}

// DefaultConfig returns the standard weights and threshold.
func DefaultConfig() Config {
	return Config{
		TestSuite: "algotutor",
		Metrics: []MetricWeight{
			{Name: MetricResponseMatch, Weight: 0.4},
			{Name: MetricToolTrajectory, Weight: 0.3},
			{Name: MetricSocratic, Weight: 0.3},
		},
		PassThreshold: DefaultPassThreshold,
	}
}

// Weights returns the weight per metric. Metrics not listed in the config
// keep their default weight.
func (c Config) Weights() map[string]float64 {
	w := make(map[string]float64, len(defaultWeights))
	for k, v := range defaultWeights {
		w[k] = v
	}
	for _, m := range c.Metrics {
		w[m.Name] = m.Weight
	}
	return w
}

func (c Config) threshold() float64 {
	if c.PassThreshold <= 0 {
		return DefaultPassThreshold
	}
	return c.PassThreshold
}

// TestCase is one scripted user message and what a good reply looks like.
type TestCase struct {
	ID               string   `json:"id" yaml:"id"`
	Name             string   `json:"name" yaml:"name"`
	Input            string   `json:"input" yaml:"input"`
	ExpectedKeywords []string `json:"expected_keywords,omitempty" yaml:"expected_keywords,omitempty"`
	AntiPatterns     []string `json:"anti_patterns,omitempty" yaml:"anti_patterns,omitempty"`
	ExpectedTools    []string `json:"expected_tools,omitempty" yaml:"expected_tools,omitempty"`
	ExpectedBehavior string   `json:"expected_behavior,omitempty" yaml:"expected_behavior,omitempty"`
	Difficulty       string   `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
}

// EvalSet is an ordered list of test cases run within one session.
type EvalSet struct {
	TestCases []TestCase `json:"test_cases" yaml:"test_cases"`
}

// LoadConfig reads a Config from a JSON or YAML file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	cfg.Metrics = nil
	if err := decodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	if cfg.TestSuite == "" {
		return Config{}, fmt.Errorf("%s: test_suite is required", path)
	}
	if cfg.LogLevel != "" {
		if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	return cfg, nil
}

// LoadEvalSet reads an EvalSet from a JSON or YAML file.
func LoadEvalSet(path string) (EvalSet, error) {
	var set EvalSet
	if err := decodeFile(path, &set); err != nil {
		return EvalSet{}, err
	}
	for i, tc := range set.TestCases {
		if tc.ID == "" || tc.Input == "" {
			return EvalSet{}, fmt.Errorf("%s: test case %d needs an id and an input", path, i)
		}
	}
	return set, nil
}

func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	default:
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
