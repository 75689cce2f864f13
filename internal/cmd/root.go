package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/namelens/handlescan/internal/appid"
	"github.com/namelens/handlescan/internal/config"
	"github.com/namelens/handlescan/internal/observability"
)

var (
	cfgFile string
	verbose bool

	appIdentity *appidentity.Identity

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// GetAppIdentity returns the loaded app identity (only valid after initConfig)
func GetAppIdentity() *appidentity.Identity {
	return appIdentity
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	// NOTE: init() overwrites these from app identity.
	Use:   filepath.Base(os.Args[0]),
	Short: "Username availability prober",
	Long: `Check whether a username is free on hundreds of web services.

Use the subcommands to perform specific operations.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Disable global telemetry early to prevent probe metrics from going to
	// stdout. Server mode initializes the Prometheus exporter later.
	disabledConfig := &telemetry.Config{Enabled: false}
	if sys, err := telemetry.NewSystem(disabledConfig); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	if identity, err := appid.Get(context.Background()); err == nil && identity != nil {
		appIdentity = identity
		if identity.BinaryName != "" {
			rootCmd.Use = identity.BinaryName
		}
		if identity.Description != "" {
			rootCmd.Short = identity.Description
			rootCmd.Long = fmt.Sprintf("%s - %s\n\nUse the subcommands to perform specific operations.", identity.BinaryName, identity.Description)
		}
	}

	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/handlescan/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	identity, err := appid.Get(context.Background())
	if err != nil {
		ExitWithCodeStderr(foundry.ExitFileNotFound, "Failed to resolve app identity", err)
	}
	appIdentity = identity

	observability.InitCLILogger(appIdentity.BinaryName, verbose)

	if err := configureViper(viper.GetViper(), cfgFile, appIdentity); err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitFileNotFound, "Could not resolve config location", err)
	}

	if err := viper.ReadInConfig(); err == nil {
		observability.CLILogger.Debug("Using config file", zap.String("path", viper.ConfigFileUsed()))
	} else {
		// It's OK if config file doesn't exist, we have defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			observability.CLILogger.Debug("No config file found, using defaults and environment variables")
		} else if cfgFile != "" {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Error reading config file", err)
		} else {
			observability.CLILogger.Warn("Error reading config file", zap.Error(err))
		}
	}
}

// configureViper wires config search paths, env binding and defaults.
func configureViper(v *viper.Viper, explicit string, identity *appidentity.Identity) error {
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		configName := config.AppName
		if identity != nil && identity.ConfigName != "" {
			configName = identity.ConfigName
		}

		appConfigDir := gfconfig.GetAppConfigDir(configName)
		if appConfigDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			v.AddConfigPath(home)
			v.SetConfigName("." + configName)
		} else {
			v.AddConfigPath(appConfigDir)
			v.SetConfigName("config")
		}

		// Also search in current directory
		v.AddConfigPath("./config")
		v.SetConfigType("yaml")
	}

	envPrefix := config.EnvPrefix
	if identity != nil && identity.EnvPrefix != "" {
		envPrefix = identity.EnvPrefix
	}
	v.SetEnvPrefix(strings.TrimSuffix(envPrefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	config.SetDefaults(v)
	return nil
}

// loadConfig decodes the merged viper settings into a validated Config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
