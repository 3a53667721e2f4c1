package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFormula(); err != nil {
		return err
	}
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateBuild(); err != nil {
		return err
	}
	if err := c.validateSmokeTest(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateFormula() error {
	if strings.ContainsAny(c.Formula.Name, "/\\ \x00") {
		return fmt.Errorf("formula.name %q must be a bare binary name", c.Formula.Name)
	}
	if c.Formula.Revision < 0 {
		return errors.New("formula.revision must be >= 0")
	}
	switch c.Formula.Source {
	case SourceArchive:
		if c.Formula.ArchiveURL == "" {
			return errors.New("formula.archive_url must be set when formula.source is archive")
		}
		parsed, err := url.Parse(c.Formula.ArchiveURL)
		if err != nil || (parsed.Scheme != "https" && parsed.Scheme != "http" && parsed.Scheme != "file") {
			return fmt.Errorf("formula.archive_url %q must be an http(s) or file URL", c.Formula.ArchiveURL)
		}
		if c.Formula.ArchiveSHA256 == "" {
			return errors.New("formula.archive_sha256 must be set when formula.source is archive")
		}
		if decoded, err := hex.DecodeString(c.Formula.ArchiveSHA256); err != nil || len(decoded) != 32 {
			return fmt.Errorf("formula.archive_sha256 %q must be 64 hex characters", c.Formula.ArchiveSHA256)
		}
	case SourceHead:
		if c.Formula.HeadURL == "" {
			return errors.New("formula.head_url must be set when formula.source is head")
		}
	case SourceLocal:
		if c.Formula.SourceDir == "" {
			return errors.New("formula.source_dir must be set when formula.source is local")
		}
	default:
		return fmt.Errorf("formula.source %q must be one of archive, head, local", c.Formula.Source)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.Prefix == "" {
		return errors.New("paths.prefix must be set")
	}
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	return nil
}

func (c *Config) validateBuild() error {
	switch c.Build.BuildType {
	case BuildRelease, BuildDebug:
	default:
		return fmt.Errorf("build.build_type %q must be release or debug", c.Build.BuildType)
	}
	if c.Build.Jobs < 0 {
		return errors.New("build.jobs must be >= 0")
	}
	switch c.Build.Python {
	case ToggleEnabled, ToggleDisabled:
	default:
		return fmt.Errorf("build.python %q must be enabled or disabled", c.Build.Python)
	}
	return nil
}

func (c *Config) validateSmokeTest() error {
	if c.SmokeTest.TimeoutSeconds < 0 {
		return errors.New("smoke_test.timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	return nil
}
