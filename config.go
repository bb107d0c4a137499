package ability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// ============================================================================
// CONFIGURATION
// ============================================================================

// Config declares a full rule set plus cache settings, loadable from YAML or
// JSON. It is the authoring surface for static deployments and the config CLI.
type Config struct {
	Version      uint16      `json:"version" yaml:"version"`
	CacheTTLSecs int64       `json:"cache_ttl_seconds" yaml:"cache_ttl_seconds"`
	Rules        []RuleInput `json:"rules" yaml:"rules"`
}

// ConfigLoader loads configuration from various formats
type ConfigLoader struct{}

func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{}
}

func (l *ConfigLoader) LoadYAML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *ConfigLoader) LoadJSON(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ToYAML exports config to YAML
func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// ToJSON exports config to JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// Validate compiles every declared rule, surfacing InvalidRuleError for
// unknown operators, malformed conditions or empty actions/subjects.
func (c *Config) Validate() error {
	if _, err := Compile(c.Rules); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// TTL returns the configured cache TTL, or DefaultTTL when unset.
func (c *Config) TTL() time.Duration {
	if c.CacheTTLSecs > 0 {
		return time.Duration(c.CacheTTLSecs) * time.Second
	}
	return DefaultTTL
}

// Source returns a read-only RuleSource over the declared rules, grouped by
// role. Useful for tests, the CLI and deployments without a rule database.
func (c *Config) Source() RuleSource {
	byRole := make(map[int64][]RuleInput)
	for _, r := range c.Rules {
		byRole[r.RoleID] = append(byRole[r.RoleID], r)
	}
	return RuleSourceFunc(func(_ context.Context, roleID int64) ([]RuleInput, error) {
		rows := byRole[roleID]
		out := make([]RuleInput, len(rows))
		copy(out, rows)
		return out, nil
	})
}

// Checker builds a ready-to-use Checker backed by the config's static rules
// and an in-memory cache store.
func (c *Config) Checker(opts ...CheckerOption) (*Checker, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cache := NewCache(c.Source(), WithTTL(c.TTL()))
	return NewChecker(cache, opts...), nil
}
