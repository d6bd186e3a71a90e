package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hexborne/vulndetective/api/schemas"
	"github.com/hexborne/vulndetective/internal/acquire"
	"github.com/hexborne/vulndetective/internal/config"
	"github.com/hexborne/vulndetective/internal/engine"
	"github.com/hexborne/vulndetective/internal/observability"
	"github.com/hexborne/vulndetective/internal/provider"
	"github.com/hexborne/vulndetective/internal/reporting"
	"github.com/hexborne/vulndetective/internal/store"
)

// newScanCmd creates and configures the `scan` command.
func newScanCmd() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan [targets...]",
		Short: "Scans source files, directories, or URLs for vulnerabilities",
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their Viper keys so command line flags correctly
			// override values from the config file and environment variables.
			if err := viper.BindPFlag("engine.max_concurrent_units", cmd.Flags().Lookup("concurrency")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			outputPath := viper.GetString("output")
			format := viper.GetString("format")

			logger.Info("Starting scan",
				zap.Strings("targets", args),
				zap.Int("concurrency", cfg.Engine.MaxConcurrentUnits),
				zap.String("format", format),
			)

			units, err := acquireTargets(ctx, cfg, args)
			if err != nil {
				return err
			}

			modelProvider, err := provider.New(cfg.LLM)
			if err != nil {
				return fmt.Errorf("failed to initialize model provider: %w", err)
			}

			set, err := engine.New(cfg, modelProvider).AnalyzeBatch(ctx, units)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("Scan aborted by user signal")
					return fmt.Errorf("scan aborted")
				}
				return fmt.Errorf("scan failed: %w", err)
			}

			if cfg.Database.URL != "" {
				if err := persistResults(ctx, cfg.Database.URL, set); err != nil {
					return err
				}
			}

			if err := writeReport(ctx, set, format, outputPath); err != nil {
				return err
			}

			logger.Info("Scan complete",
				zap.String("scanID", set.ScanID),
				zap.Int("findings", set.Summary["total_findings"]),
				zap.Int("degraded_units", set.Summary["degraded_units"]),
			)
			return nil
		},
	}

	scanCmd.Flags().StringP("output", "o", "", "Output file path for the report. If unset, the report goes to stdout.")
	scanCmd.Flags().StringP("format", "f", "text", "Report format: 'text', 'json' or 'sarif'.")
	scanCmd.Flags().IntP("concurrency", "j", 0, "Number of source units analyzed concurrently. (Overrides config/env)")

	return scanCmd
}

// acquireTargets resolves every target argument into source units.
func acquireTargets(ctx context.Context, cfg *config.Config, targets []string) ([]*schemas.SourceUnit, error) {
	acquirer := acquire.New(cfg.Acquire)

	var units []*schemas.SourceUnit
	for _, target := range targets {
		acquired, err := acquirer.Acquire(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire %q: %w", target, err)
		}
		units = append(units, acquired...)
	}
	return units, nil
}

// persistResults stores the scan outcome when a database URL is configured.
func persistResults(ctx context.Context, databaseURL string, set *schemas.ResultSet) error {
	logger := observability.GetLogger()

	dbPool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbPool.Close()

	dbStore, err := store.New(ctx, dbPool)
	if err != nil {
		return fmt.Errorf("failed to initialize finding store: %w", err)
	}
	if err := dbStore.PersistResults(ctx, set); err != nil {
		return fmt.Errorf("failed to persist scan results: %w", err)
	}
	logger.Info("Scan results persisted", zap.String("scanID", set.ScanID))
	return nil
}

func writeReport(ctx context.Context, set *schemas.ResultSet, format, outputPath string) error {
	reporter, err := reporting.New(format, outputPath, Version)
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}
	defer func() {
		if err := reporter.Close(); err != nil {
			observability.GetLogger().Error("Failed to close reporter", zap.Error(err))
		}
	}()

	if err := reporter.Write(ctx, set); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
