// Package config provides configuration management for tabi using Viper
// for loading from files, environment variables, and command-line flags.
//
// Settings live in .tabi.yml with TABI_ environment overrides
// (TABI_SERVER_PORT, TABI_ARTICLE_CONTAINER_ID, ...). They cover the article
// container and its visibility trigger region, the navigation file and
// breakpoint, the live page server, and logging.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/conneroisu/tabi/internal/browser"
	tabierrors "github.com/conneroisu/tabi/internal/errors"
	"github.com/conneroisu/tabi/internal/headings"
	"github.com/conneroisu/tabi/internal/logging"
	"github.com/conneroisu/tabi/internal/viewport"
	"github.com/spf13/viper"
)

type Config struct {
	Article ArticleConfig `mapstructure:"article"`
	Nav     NavConfig     `mapstructure:"nav"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
}

type ArticleConfig struct {
	ContainerID         string  `mapstructure:"container_id"`
	HeaderOffsetPx      int     `mapstructure:"header_offset_px"`
	BottomMarginPercent int     `mapstructure:"bottom_margin_percent"`
	Threshold           float64 `mapstructure:"threshold"`
}

type NavConfig struct {
	File         string `mapstructure:"file"`
	BreakpointPx int    `mapstructure:"breakpoint_px"`
}

type ServerConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	ContentDir string `mapstructure:"content_dir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	obs := headings.DefaultObserverOptions()
	v.SetDefault("article.container_id", headings.DefaultContainerID)
	v.SetDefault("article.header_offset_px", obs.TopMarginPx)
	v.SetDefault("article.bottom_margin_percent", obs.BottomMarginPercent)
	v.SetDefault("article.threshold", obs.Threshold)
	v.SetDefault("nav.file", "nav.yml")
	v.SetDefault("nav.breakpoint_px", viewport.DefaultMinWidth)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.content_dir", "content")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom unmarshals and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, tabierrors.NewConfigError(tabierrors.ErrCodeConfigInvalid, err.Error())
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// ObserverOptions returns the heading trigger region.
func (c *Config) ObserverOptions() browser.ObserverOptions {
	return browser.ObserverOptions{
		TopMarginPx:         c.Article.HeaderOffsetPx,
		BottomMarginPercent: c.Article.BottomMarginPercent,
		Threshold:           c.Article.Threshold,
	}
}

// Addr is the server's listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// LoggerConfig builds the logger configuration. Level and format were
// validated on load.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	lc := logging.DefaultConfig()
	lc.Level, _ = logging.ParseLevel(c.Log.Level)
	lc.Format = c.Log.Format
	return lc
}

// validateConfig validates configuration values for correctness
func validateConfig(config *Config) error {
	var vec tabierrors.ValidationErrorCollection

	a := config.Article
	if strings.TrimSpace(a.ContainerID) == "" || strings.ContainsAny(a.ContainerID, " \t\n\"'<>") {
		vec.AddField("article.container_id", a.ContainerID, "must be a non-empty element id without whitespace or quotes")
	}
	if a.HeaderOffsetPx < 0 {
		vec.AddField("article.header_offset_px", a.HeaderOffsetPx, "must not be negative")
	}
	if a.BottomMarginPercent < 0 || a.BottomMarginPercent >= 100 {
		vec.AddField("article.bottom_margin_percent", a.BottomMarginPercent, "must be in 0-99")
	}
	if a.Threshold <= 0 || a.Threshold > 1 {
		vec.AddField("article.threshold", a.Threshold, "must be in (0, 1]")
	}

	if config.Nav.BreakpointPx <= 0 {
		vec.AddField("nav.breakpoint_px", config.Nav.BreakpointPx, "must be positive")
	}
	if config.Nav.File != "" {
		if err := validatePath(config.Nav.File); err != nil {
			vec.AddField("nav.file", config.Nav.File, err.Error())
		}
	}

	if config.Server.Port < 0 || config.Server.Port > 65535 {
		vec.AddField("server.port", config.Server.Port, "not in valid range 0-65535")
	}
	if strings.ContainsAny(config.Server.Host, ";&|$`()<>\"'\\ ") {
		vec.AddField("server.host", config.Server.Host, "contains invalid characters")
	}
	if err := validatePath(config.Server.ContentDir); err != nil {
		vec.AddField("server.content_dir", config.Server.ContentDir, err.Error())
	}

	if _, err := logging.ParseLevel(config.Log.Level); err != nil {
		vec.AddField("log.level", config.Log.Level, err.Error())
	}
	if config.Log.Format != "text" && config.Log.Format != "json" {
		vec.AddField("log.format", config.Log.Format, "must be text or json")
	}

	return vec.Err(tabierrors.ErrCodeConfigInvalid)
}

// validatePath rejects empty paths and parent traversal.
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)
	for _, part := range strings.Split(filepath.ToSlash(cleanPath), "/") {
		if part == ".." {
			return fmt.Errorf("path contains traversal: %s", path)
		}
	}

	return nil
}
