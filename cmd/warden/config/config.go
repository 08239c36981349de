// Package config provides configuration structures for the query warden.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Resource kinds recognized in the resource map.
const (
	KindScopedProcedure = "scoped_procedure"
	KindFixedProcedure  = "fixed_procedure"
	KindOrderLookup     = "order_lookup"
)

// Unknown-resource policies.
const (
	UnknownReject      = "reject"
	UnknownPassthrough = "passthrough"
)

// Config represents the warden configuration.
type Config struct {
	// AllowListPath is the operator-editable table/column allow-list.
	AllowListPath string `yaml:"allow_list_path" json:"allow_list_path"`

	// ScopeColumn is the identity column that marks a table as row-scoped.
	ScopeColumn string `yaml:"scope_column" json:"scope_column"`

	// LogLevel controls zerolog output (debug, info, warn, error).
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Policy holds the authorization policy knobs.
	Policy PolicyConfig `yaml:"policy" json:"policy"`

	// Resources maps logical resource ids to their kind and parameters.
	// Resolved once at startup; requests never consult raw strings.
	Resources []ResourceRule `yaml:"resources" json:"resources"`

	// Metrics configuration
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// PolicyConfig represents the explicit, configurable authorization policies.
type PolicyConfig struct {
	// AdminBypass lets admin callers read row-scoped tables without a
	// per-caller filter.
	AdminBypass bool `yaml:"admin_bypass" json:"admin_bypass"`

	// ScopedDashboards lists logical ids where row scoping applies even to
	// admins, overriding AdminBypass per dashboard.
	ScopedDashboards []string `yaml:"scoped_dashboards" json:"scoped_dashboards"`

	// UnknownResource decides what happens to an unrecognized logical id:
	// "reject" or "passthrough". Passthrough still gates the text through
	// the read-only classifier.
	UnknownResource string `yaml:"unknown_resource" json:"unknown_resource"`
}

// ResourceRule maps one logical resource id to its kind and parameters.
type ResourceRule struct {
	ID        string `yaml:"id" json:"id"`
	Kind      string `yaml:"kind" json:"kind"`
	Procedure string `yaml:"procedure,omitempty" json:"procedure,omitempty"`
	Table     string `yaml:"table,omitempty" json:"table,omitempty"`
	KeyColumn string `yaml:"key_column,omitempty" json:"key_column,omitempty"`
}

// MetricsConfig represents metrics configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
	Path    string `yaml:"path" json:"path"`
}

// Validate validates the configuration and applies defaults.
func (c *Config) Validate() error {
	if c.AllowListPath == "" {
		return fmt.Errorf("allow_list_path is required")
	}

	if c.ScopeColumn == "" {
		c.ScopeColumn = "CustomerID"
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	switch c.Policy.UnknownResource {
	case "":
		// Passthrough must be opted into; the safe default is reject.
		c.Policy.UnknownResource = UnknownReject
	case UnknownReject, UnknownPassthrough:
	default:
		return fmt.Errorf("unsupported unknown_resource policy: %s", c.Policy.UnknownResource)
	}

	seen := make(map[string]struct{}, len(c.Resources))
	for i, rule := range c.Resources {
		if rule.ID == "" {
			return fmt.Errorf("resource %d: id is required", i)
		}
		if _, dup := seen[rule.ID]; dup {
			return fmt.Errorf("resource %q: duplicate id", rule.ID)
		}
		seen[rule.ID] = struct{}{}

		switch rule.Kind {
		case KindScopedProcedure, KindFixedProcedure:
			if rule.Procedure == "" {
				c.Resources[i].Procedure = rule.ID
			}
		case KindOrderLookup:
			if rule.Table == "" {
				return fmt.Errorf("resource %q: order_lookup requires a table", rule.ID)
			}
			if rule.KeyColumn == "" {
				c.Resources[i].KeyColumn = "OrderID"
			}
		default:
			return fmt.Errorf("resource %q: unsupported kind: %s", rule.ID, rule.Kind)
		}
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		AllowListPath: "allowlist.yaml",
		ScopeColumn:   "CustomerID",
		LogLevel:      "info",
		Policy: PolicyConfig{
			AdminBypass:     true,
			UnknownResource: UnknownReject,
		},
		Resources: []ResourceRule{
			{
				ID:        "CustOrderHist",
				Kind:      KindScopedProcedure,
				Procedure: "CustOrderHist",
			},
			{
				ID:        "TenMostExpensiveProducts",
				Kind:      KindFixedProcedure,
				Procedure: "Ten Most Expensive Products",
			},
			{
				ID:        "OrderDetails",
				Kind:      KindOrderLookup,
				Table:     "Order Details",
				KeyColumn: "OrderID",
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: ":9090",
			Path:    "/metrics",
		},
	}
}
