package cmd

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/namelens/handlescan/internal/errors"
	"github.com/namelens/handlescan/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Verify that config, the site registry, and the rate limit store are usable.",
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		if logger == nil {
			ExitWithCodeStderr(foundry.ExitConfigInvalid, "Logger not initialized", errwrap.NewConfigInvalidError("Logger not initialized"))
			return
		}
		logger.Info("Running health check...")

		if versionInfo.Version == "" {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		logger.Info("✅ Version information available", zap.String("version", versionInfo.Version))

		cfg, err := loadConfig()
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Configuration invalid", err)
			return
		}
		logger.Info("✅ Configuration valid")

		reg, ranks, err := loadCatalog(cfg)
		if err != nil {
			ExitWithCode(logger, foundry.ExitFileNotFound, "Registry unavailable", err)
			return
		}
		logger.Info("✅ Registry loaded",
			zap.String("version", reg.Version()),
			zap.Int("sites", reg.Len()),
			zap.Int("ranked", ranks.Len()))

		if cfg.Store.Disabled {
			logger.Info("✅ Store disabled; per-host backoff off")
		} else {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			db, err := openStore(ctx, cfg.Store)
			if err != nil {
				ExitWithCode(logger, foundry.ExitFailure, "Store unavailable", err)
				return
			}
			_ = db.Close()
			logger.Info("✅ Store reachable", zap.String("driver", db.Driver()))
		}

		logger.Info("")
		logger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
