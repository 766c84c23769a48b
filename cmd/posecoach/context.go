package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"posecoach/internal/api"
	"posecoach/internal/config"
	"posecoach/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) logLevel() string {
	if c.logLevelFlag != nil {
		if level := strings.TrimSpace(*c.logLevelFlag); level != "" {
			return level
		}
	}
	if cfg := c.configValue(); cfg != nil {
		return cfg.Logging.Level
	}
	return "info"
}

// newLogger builds the CLI logger: stderr plus the configured log file. Records
// carry cfg's pose source and joint set, and sessionID when non-empty.
func (c *commandContext) newLogger(cfg *config.Config, sessionID string) (*slog.Logger, error) {
	local := *cfg
	local.Logging.Level = c.logLevel()
	return logging.NewFromConfig(&local, sessionID)
}

func (c *commandContext) apiClient() (*api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	client, err := api.NewClient(cfg.Paths.APIBind, cfg.Paths.APIToken)
	if err != nil {
		return nil, fmt.Errorf("api client: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("paths.api_bind is empty; enable the daemon API to use this command")
	}
	return client, nil
}

func (c *commandContext) wrapAPIError(err error) error {
	if err == nil {
		return nil
	}
	bind := ""
	if cfg := c.configValue(); cfg != nil {
		bind = cfg.Paths.APIBind
	}
	var se *api.StatusError
	switch {
	case errors.As(err, &se) && se.Code == 401:
		return fmt.Errorf("daemon at %s rejected the request; check paths.api_token", bind)
	case api.IsAPIUnavailable(err):
		return fmt.Errorf("connect to daemon: %s is not reachable; start the daemon with `posecoach serve`", bind)
	default:
		return err
	}
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
