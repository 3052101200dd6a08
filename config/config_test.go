package config

import (
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration must validate: %v", err)
	}
	if cfg.MaxRounds != 15 {
		t.Errorf("MaxRounds = %d, want 15", cfg.MaxRounds)
	}
	if cfg.RetryBudget != 3 {
		t.Errorf("RetryBudget = %d, want 3", cfg.RetryBudget)
	}
	if cfg.AgentTimeout != 120*time.Second {
		t.Errorf("AgentTimeout = %s, want 120s", cfg.AgentTimeout)
	}
	if cfg.TerminationMarker != "TERMINATE" {
		t.Errorf("TerminationMarker = %q", cfg.TerminationMarker)
	}
	if !cfg.CacheEnabled {
		t.Error("cache should be enabled by default")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("MAX_ROUNDS", "7")
	t.Setenv("MAX_RETRIES", "1")
	t.Setenv("AGENT_TIMEOUT", "30")
	t.Setenv("ENABLE_CACHE", "false")
	t.Setenv("DAILY_COST_THRESHOLD", "12.5")
	t.Setenv("SELECTION_POLICY", PolicyRoundRobin)
	t.Setenv("TERMINATION_MSG", "DONE")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.MaxRounds != 7 {
		t.Errorf("MaxRounds = %d, want 7", cfg.MaxRounds)
	}
	if cfg.RetryBudget != 1 {
		t.Errorf("RetryBudget = %d, want 1", cfg.RetryBudget)
	}
	if cfg.AgentTimeout != 30*time.Second {
		t.Errorf("AgentTimeout = %s, want 30s (bare seconds accepted)", cfg.AgentTimeout)
	}
	if cfg.CacheEnabled {
		t.Error("ENABLE_CACHE=false not applied")
	}
	if cfg.DailyCostThreshold != 12.5 {
		t.Errorf("DailyCostThreshold = %g, want 12.5", cfg.DailyCostThreshold)
	}
	if cfg.SelectionPolicy != PolicyRoundRobin {
		t.Errorf("SelectionPolicy = %q", cfg.SelectionPolicy)
	}
	if cfg.TerminationMarker != "DONE" {
		t.Errorf("TerminationMarker = %q", cfg.TerminationMarker)
	}
}

func TestFromEnv_DurationString(t *testing.T) {
	t.Setenv("AGENT_TIMEOUT", "90s")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.AgentTimeout != 90*time.Second {
		t.Errorf("AgentTimeout = %s, want 90s", cfg.AgentTimeout)
	}
}

func TestFromEnv_InvalidValue(t *testing.T) {
	t.Setenv("MAX_ROUNDS", "lots")
	if _, err := FromEnv(); err == nil {
		t.Error("unparseable MAX_ROUNDS should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero rounds", func(c *Config) { c.MaxRounds = 0 }},
		{"negative session limit", func(c *Config) { c.PerSessionCostLimit = -1 }},
		{"negative retries", func(c *Config) { c.RetryBudget = -1 }},
		{"zero timeout", func(c *Config) { c.AgentTimeout = 0 }},
		{"empty marker", func(c *Config) { c.TerminationMarker = "" }},
		{"unknown policy", func(c *Config) { c.SelectionPolicy = "coin_flip" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
