package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"lightsd-formula/internal/config"
	"lightsd-formula/internal/logging"
	"lightsd-formula/internal/receipts"
	"lightsd-formula/internal/recipe"
)

type commandContext struct {
	configFlag *string
	prefixFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, prefixFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		prefixFlag: prefixFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.prefixFlag != nil {
			if prefix := strings.TrimSpace(*c.prefixFlag); prefix != "" {
				if err := setPrefix(cfg, prefix); err != nil {
					c.configErr = err
					return
				}
			}
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) plan() (recipe.Plan, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return recipe.Plan{}, err
	}
	return recipe.BuildPlan(cfg)
}

func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

func (c *commandContext) withStore(fn func(*receipts.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := receipts.Open(cfg.Paths.ReceiptsDB)
	if err != nil {
		return fmt.Errorf("open receipts: %w", err)
	}
	defer store.Close()
	return fn(store)
}

// setPrefix keeps relative prefixes verbatim so layout resolution rejects them.
func setPrefix(cfg *config.Config, prefix string) error {
	if strings.HasPrefix(prefix, "~") {
		expanded, err := config.ExpandPath(prefix)
		if err != nil {
			return fmt.Errorf("resolve prefix: %w", err)
		}
		prefix = expanded
	}
	cfg.Paths.Prefix = prefix
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
