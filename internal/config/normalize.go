package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeFormula()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBuild()
	c.normalizeService()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeFormula() {
	c.Formula.Name = strings.TrimSpace(c.Formula.Name)
	if c.Formula.Name == "" {
		c.Formula.Name = defaultFormulaName
	}
	c.Formula.Source = strings.ToLower(strings.TrimSpace(c.Formula.Source))
	if c.Formula.Source == "" {
		c.Formula.Source = SourceHead
	}
	c.Formula.ArchiveURL = strings.TrimSpace(c.Formula.ArchiveURL)
	c.Formula.ArchiveSHA256 = strings.ToLower(strings.TrimSpace(c.Formula.ArchiveSHA256))
	c.Formula.Version = strings.TrimSpace(c.Formula.Version)
	c.Formula.HeadURL = strings.TrimSpace(c.Formula.HeadURL)
	if c.Formula.HeadURL == "" {
		c.Formula.HeadURL = defaultHeadURL
	}
	c.Formula.HeadRef = strings.TrimSpace(c.Formula.HeadRef)
}

func (c *Config) normalizePaths() error {
	var err error
	// The prefix is kept verbatim apart from trimming and cleaning: a relative
	// prefix is a configuration error the layout resolver reports, not
	// something to silently resolve against the working directory.
	c.Paths.Prefix = strings.TrimSpace(c.Paths.Prefix)
	if c.Paths.Prefix == "" {
		if value, ok := os.LookupEnv("HOMEBREW_PREFIX"); ok && strings.TrimSpace(value) != "" {
			c.Paths.Prefix = strings.TrimSpace(value)
		} else {
			c.Paths.Prefix = defaultPrefix
		}
	}
	if strings.HasPrefix(c.Paths.Prefix, "~") {
		if c.Paths.Prefix, err = expandPath(c.Paths.Prefix); err != nil {
			return fmt.Errorf("paths.prefix: %w", err)
		}
	} else if filepath.IsAbs(c.Paths.Prefix) {
		c.Paths.Prefix = filepath.Clean(c.Paths.Prefix)
	}

	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir()
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ReceiptsDB) == "" {
		c.Paths.ReceiptsDB = filepath.Join(c.Paths.WorkDir, defaultReceiptsDB)
	}
	if c.Paths.ReceiptsDB, err = expandPath(c.Paths.ReceiptsDB); err != nil {
		return fmt.Errorf("paths.receipts_db: %w", err)
	}

	if c.Formula.SourceDir != "" {
		if c.Formula.SourceDir, err = expandPath(strings.TrimSpace(c.Formula.SourceDir)); err != nil {
			return fmt.Errorf("formula.source_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeBuild() {
	c.Build.BuildType = strings.ToLower(strings.TrimSpace(c.Build.BuildType))
	if c.Build.BuildType == "" {
		c.Build.BuildType = BuildRelease
	}
	c.Build.CMake = strings.TrimSpace(c.Build.CMake)
	if c.Build.CMake == "" {
		c.Build.CMake = defaultCMakeBinary
	}
	c.Build.Make = strings.TrimSpace(c.Build.Make)
	if c.Build.Make == "" {
		c.Build.Make = defaultMakeBinary
	}
	c.Build.HostArgs = trimList(c.Build.HostArgs)
	c.Build.ExtraCFlags = trimList(c.Build.ExtraCFlags)
	c.Build.PathPrefix = trimList(c.Build.PathPrefix)
	if len(c.Build.PathPrefix) == 0 {
		c.Build.PathPrefix = []string{defaultPathPrefix}
	}
	c.Build.Python = strings.ToLower(strings.TrimSpace(c.Build.Python))
	if c.Build.Python == "" {
		c.Build.Python = ToggleDisabled
	}
}

func (c *Config) normalizeService() {
	c.Service.Label = strings.TrimSpace(c.Service.Label)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		out = append(out, value)
	}
	return out
}
