// Package cmd provides the tabi command-line interface.
//
// Configuration is read, highest priority first, from command-line flags,
// TABI_* environment variables (TABI_SERVER_PORT, TABI_NAV_FILE, ...), and
// a .tabi.yml file. TABI_CONFIG_FILE or --config names a different file.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/conneroisu/tabi/internal/config"
	"github.com/conneroisu/tabi/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "tabi",
	Short: "Docs page chrome: navigation drawer and live table of contents",
	Long: `tabi serves documentation articles with a navigation drawer and an
"On this page" table of contents that tracks the heading being read.

Quick Start:
  tabi outline content/guide.md   Print the heading outline of an article
  tabi nav                        Validate and print the navigation tree
  tabi serve                      Serve the content directory with live pages
  tabi watch                      Rebuild outlines as articles change`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .tabi.yml, can also use TABI_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig points viper at the config file and enables TABI_ overrides.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("TABI_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".tabi")
	}

	viper.SetEnvPrefix("TABI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadRuntime loads the configuration and builds the logger, which writes
// to the command's error stream.
func loadRuntime(cmd *cobra.Command) (*config.Config, logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	lc := cfg.LoggerConfig()
	lc.Output = cmd.ErrOrStderr()
	return cfg, logging.NewLogger(lc), nil
}
