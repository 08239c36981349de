package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate_Defaults(t *testing.T) {
	cfg := &Config{AllowListPath: "allowlist.yaml"}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "CustomerID", cfg.ScopeColumn)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, UnknownReject, cfg.Policy.UnknownResource)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, ":9090", cfg.Metrics.Address)
}

func TestConfig_Validate_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing allow-list path", Config{}},
		{
			"bad unknown-resource policy",
			Config{AllowListPath: "a.yaml", Policy: PolicyConfig{UnknownResource: "allow-everything"}},
		},
		{
			"resource without id",
			Config{AllowListPath: "a.yaml", Resources: []ResourceRule{{Kind: KindFixedProcedure}}},
		},
		{
			"duplicate resource id",
			Config{AllowListPath: "a.yaml", Resources: []ResourceRule{
				{ID: "X", Kind: KindFixedProcedure},
				{ID: "X", Kind: KindFixedProcedure},
			}},
		},
		{
			"unsupported resource kind",
			Config{AllowListPath: "a.yaml", Resources: []ResourceRule{{ID: "X", Kind: "mystery"}}},
		},
		{
			"order lookup without table",
			Config{AllowListPath: "a.yaml", Resources: []ResourceRule{{ID: "X", Kind: KindOrderLookup}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}

func TestConfig_Validate_RuleDefaults(t *testing.T) {
	cfg := &Config{
		AllowListPath: "a.yaml",
		Resources: []ResourceRule{
			{ID: "CustOrderHist", Kind: KindScopedProcedure},
			{ID: "OrderDetails", Kind: KindOrderLookup, Table: "Order Details"},
		},
	}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "CustOrderHist", cfg.Resources[0].Procedure)
	assert.Equal(t, "OrderID", cfg.Resources[1].KeyColumn)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.Policy.AdminBypass)
	assert.Equal(t, UnknownReject, cfg.Policy.UnknownResource)
	assert.Len(t, cfg.Resources, 3)
}

func TestLoadFromFile(t *testing.T) {
	content := `allow_list_path: /etc/warden/allowlist.yaml
scope_column: CustomerID
log_level: debug
policy:
  admin_bypass: false
  unknown_resource: passthrough
resources:
  - id: CustOrderHist
    kind: scoped_procedure
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/etc/warden/allowlist.yaml", cfg.AllowListPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.Policy.AdminBypass)
	assert.Equal(t, UnknownPassthrough, cfg.Policy.UnknownResource)
	assert.Len(t, cfg.Resources, 1)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
