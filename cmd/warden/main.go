// Package main provides the entry point for the Warden query validator.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TFMV/warden/cmd/warden/config"
	"github.com/TFMV/warden/pkg/classifier"
	"github.com/TFMV/warden/pkg/errors"
	"github.com/TFMV/warden/pkg/infrastructure/metrics"
	"github.com/TFMV/warden/pkg/models"
	"github.com/TFMV/warden/pkg/registry"
	"github.com/TFMV/warden/pkg/services"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Warden SQL authorization validator",
	Long: `A SQL safety and row-scope authorization validator for dashboard data requests.

Warden decides, per request, whether the SQL that will be executed is a
single read-only query authorized for the requesting caller's row scope.`,
}

var checkCmd = &cobra.Command{
	Use:   "check [sql]",
	Short: "Classify a SQL fragment as read-only or not",
	Long: `Classify a SQL fragment. The text is read from the argument, or from
stdin when no argument is given.

Example:
  warden check "SELECT * FROM Orders"
  echo "SELECT 1; DELETE FROM Orders" | warden check`,
	RunE: runCheck,
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run the full authorization decision for one request",
	Long: `Build a validated query for a caller identity and a logical resource.

Example:
  warden build --customer AROUT --role user --resource Orders
  warden build --customer AROUT --role user --resource OrderDetails --order 10248`,
	RunE: runBuild,
}

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "Print the row-scoped table set from the allow-list",
	RunE:  runResources,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(resourcesCmd)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("allow-list", "", "allow-list file path (overrides config)")

	buildCmd.Flags().String("customer", "", "caller customer id")
	buildCmd.Flags().String("role", "user", "caller role (user, admin)")
	buildCmd.Flags().String("resource", "", "logical resource id")
	buildCmd.Flags().String("order", "", "order id scope value")
	buildCmd.Flags().String("table", "", "physical table override")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(fmt.Errorf("failed to bind flags: %w", err))
	}
	viper.SetEnvPrefix("WARDEN")
	viper.AutomaticEnv()

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Warden SQL Authorization Validator\n")
			fmt.Printf("Version:    %s\n", version)
			fmt.Printf("Commit:     %s\n", commit)
			fmt.Printf("Build Date: %s\n", buildDate)
		},
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	var sql string
	if len(args) > 0 {
		sql = strings.Join(args, " ")
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sql = string(data)
	}

	result, err := classifier.New().Classify(sql)
	if err != nil {
		return err
	}
	if !result.ReadOnly {
		return errors.New(errors.CodeUnsafeQuery, "query is not read-only").
			WithDetail("offending", strings.Join(result.Offending, ","))
	}

	fmt.Printf("read-only: %d statement(s)\n", result.Statements)
	return nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := setupLogging(cfg.LogLevel)

	roleName, _ := cmd.Flags().GetString("role")
	role, err := models.ParseRole(roleName)
	if err != nil {
		return err
	}

	customer, _ := cmd.Flags().GetString("customer")
	order, _ := cmd.Flags().GetString("order")
	resource, _ := cmd.Flags().GetString("resource")
	table, _ := cmd.Flags().GetString("table")
	if resource == "" {
		return fmt.Errorf("--resource is required")
	}

	collector := newCollector(cfg)
	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewMetricsServer(cfg.Metrics.Address, cfg.Metrics.Path)
		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Str("address", cfg.Metrics.Address).Msg("Metrics server failed")
			}
		}()
		defer func() {
			if err := metricsServer.Stop(); err != nil {
				logger.Warn().Err(err).Msg("Failed to stop metrics server")
			}
		}()
	}

	reg := registry.New(cfg.AllowListPath, logger)
	builder, err := services.NewQueryBuilder(cfg, reg, logger, collector)
	if err != nil {
		return err
	}

	query, err := builder.BuildQuery(
		models.CallerIdentity{ID: customer, Role: role, ScopeKey: order},
		models.ResourceRequest{LogicalID: resource, Table: table},
	)
	if err != nil {
		return err
	}

	return printQuery(query)
}

func runResources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := setupLogging(cfg.LogLevel)

	reg := registry.New(cfg.AllowListPath, logger)
	tables, err := reg.TablesWithColumn(cfg.ScopeColumn)
	if err != nil {
		return err
	}

	for table := range tables {
		fmt.Println(table)
	}
	return nil
}

// printQuery writes the decided query to stdout.
func printQuery(query models.Query) error {
	switch q := query.(type) {
	case models.Procedure:
		out, err := json.MarshalIndent(q, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("procedure: %s\n", out)
	case models.AdHoc:
		fmt.Printf("ad-hoc: %s\n", q.SQL)
	default:
		return fmt.Errorf("unexpected query variant: %T", query)
	}
	return nil
}

// newCollector picks the metrics backend for the configured mode.
func newCollector(cfg *config.Config) metrics.Collector {
	if cfg.Metrics.Enabled {
		return metrics.NewPrometheusCollector()
	}
	return metrics.NewNoOpCollector()
}

// loadConfig loads configuration from file and flags.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if configFile := viper.GetString("config"); configFile != "" {
		loaded, err := config.LoadFromFile(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.DefaultConfig()
	}

	if level := viper.GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if path := viper.GetString("allow-list"); path != "" {
		cfg.AllowListPath = path
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging configures zerolog.
func setupLogging(level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	return zerolog.New(os.Stderr).
		Level(logLevel).
		With().
		Timestamp().
		Logger()
}
