// Package config centralizes the tunable limits and policies for a
// conversation run. Values come from code, from the environment, or from a
// .env file loaded with godotenv; environment variables win over defaults,
// explicit code wins over both.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Selection policy names accepted by Config.SelectionPolicy.
const (
	PolicyRoundRobin  = "round_robin"
	PolicyRuleBased   = "rule_based"
	PolicyModelDriven = "model_driven"
)

// Config holds the orchestration limits and policies for a run.
type Config struct {
	// MaxRounds caps the number of agent-authored messages per
	// conversation.
	MaxRounds int

	// PerSessionCostLimit stops a conversation whose accumulated dollar
	// cost reaches the limit. Zero disables the check.
	PerSessionCostLimit float64

	// DailyCostThreshold stops conversations once the day's accumulated
	// cost across all sessions reaches the threshold. Zero disables it.
	DailyCostThreshold float64

	// CacheEnabled turns the result cache on.
	CacheEnabled bool

	// CacheTTL expires cached results; zero keeps them until invalidated.
	CacheTTL time.Duration

	// SelectionPolicy names the speaker selection strategy.
	SelectionPolicy string

	// AgentTimeout bounds a single agent invocation.
	AgentTimeout time.Duration

	// RetryBudget is the number of retries after a transient failure.
	RetryBudget int

	// RetryBackoff is the base delay between retries, doubled per attempt.
	RetryBackoff time.Duration

	// MaxConsecutiveFailures stops a conversation after this many failed
	// agent messages in a row.
	MaxConsecutiveFailures int

	// TerminationMarker is the literal an agent emits to declare the goal
	// satisfied.
	TerminationMarker string

	// WaitForInflight makes a second request for an identical query wait
	// for the in-flight run instead of starting its own.
	WaitForInflight bool
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		MaxRounds:              15,
		PerSessionCostLimit:    0,
		DailyCostThreshold:     0,
		CacheEnabled:           true,
		CacheTTL:               0,
		SelectionPolicy:        PolicyRuleBased,
		AgentTimeout:           120 * time.Second,
		RetryBudget:            3,
		RetryBackoff:           500 * time.Millisecond,
		MaxConsecutiveFailures: 3,
		TerminationMarker:      "TERMINATE",
		WaitForInflight:        true,
	}
}

// FromEnv builds a Config from Default overlaid with environment variables.
// A .env file in the working directory is loaded first if present; real
// environment variables take precedence over the file.
func FromEnv() (*Config, error) {
	// godotenv never overrides variables already set in the environment.
	_ = godotenv.Load()

	cfg := Default()

	var err error
	if cfg.MaxRounds, err = intEnv("MAX_ROUNDS", cfg.MaxRounds); err != nil {
		return nil, err
	}
	if cfg.RetryBudget, err = intEnv("MAX_RETRIES", cfg.RetryBudget); err != nil {
		return nil, err
	}
	if cfg.MaxConsecutiveFailures, err = intEnv("MAX_CONSECUTIVE_FAILURES", cfg.MaxConsecutiveFailures); err != nil {
		return nil, err
	}
	if cfg.AgentTimeout, err = secondsEnv("AGENT_TIMEOUT", cfg.AgentTimeout); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = secondsEnv("CACHE_TTL", cfg.CacheTTL); err != nil {
		return nil, err
	}
	if cfg.PerSessionCostLimit, err = floatEnv("PER_SESSION_COST_LIMIT", cfg.PerSessionCostLimit); err != nil {
		return nil, err
	}
	if cfg.DailyCostThreshold, err = floatEnv("DAILY_COST_THRESHOLD", cfg.DailyCostThreshold); err != nil {
		return nil, err
	}
	if cfg.CacheEnabled, err = boolEnv("ENABLE_CACHE", cfg.CacheEnabled); err != nil {
		return nil, err
	}
	if cfg.WaitForInflight, err = boolEnv("WAIT_FOR_INFLIGHT", cfg.WaitForInflight); err != nil {
		return nil, err
	}
	if v := os.Getenv("SELECTION_POLICY"); v != "" {
		cfg.SelectionPolicy = v
	}
	if v := os.Getenv("TERMINATION_MSG"); v != "" {
		cfg.TerminationMarker = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first configuration error found.
func (c *Config) Validate() error {
	if c.MaxRounds < 1 {
		return fmt.Errorf("config: MaxRounds must be at least 1, got %d", c.MaxRounds)
	}
	if c.PerSessionCostLimit < 0 {
		return fmt.Errorf("config: PerSessionCostLimit must not be negative, got %g", c.PerSessionCostLimit)
	}
	if c.DailyCostThreshold < 0 {
		return fmt.Errorf("config: DailyCostThreshold must not be negative, got %g", c.DailyCostThreshold)
	}
	if c.RetryBudget < 0 {
		return fmt.Errorf("config: RetryBudget must not be negative, got %d", c.RetryBudget)
	}
	if c.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("config: MaxConsecutiveFailures must be at least 1, got %d", c.MaxConsecutiveFailures)
	}
	if c.AgentTimeout <= 0 {
		return fmt.Errorf("config: AgentTimeout must be positive, got %s", c.AgentTimeout)
	}
	if c.TerminationMarker == "" {
		return fmt.Errorf("config: TerminationMarker must not be empty")
	}
	switch c.SelectionPolicy {
	case PolicyRoundRobin, PolicyRuleBased, PolicyModelDriven:
	default:
		return fmt.Errorf("config: unknown SelectionPolicy %q", c.SelectionPolicy)
	}
	return nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return f, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}

func secondsEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	// Accept either a bare number of seconds or a Go duration string.
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
