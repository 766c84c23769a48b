package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizePose(); err != nil {
		return err
	}
	c.normalizeScoring()
	c.normalizeRibbon()
	c.normalizeCapture()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if value, ok := os.LookupEnv("POSECOACH_API_BIND"); ok && strings.TrimSpace(value) != "" {
		c.Paths.APIBind = value
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("POSECOACH_API_TOKEN"); ok {
			c.Paths.APIToken = value
		}
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizePose() error {
	c.Pose.Source = strings.ToLower(strings.TrimSpace(c.Pose.Source))
	if c.Pose.Source == "" {
		c.Pose.Source = defaultPoseSource
	}
	if c.Pose.Command == "" {
		if value, ok := os.LookupEnv("POSECOACH_POSE_COMMAND"); ok {
			c.Pose.Command = value
		}
	}
	c.Pose.Command = strings.TrimSpace(c.Pose.Command)
	if c.Pose.Path != "" {
		var err error
		if c.Pose.Path, err = expandPath(strings.TrimSpace(c.Pose.Path)); err != nil {
			return fmt.Errorf("pose.path: %w", err)
		}
	}
	if c.Pose.RetryDelayMS == 0 {
		c.Pose.RetryDelayMS = defaultRetryDelayMS
	}
	if c.Pose.RestartDelayMS == 0 {
		c.Pose.RestartDelayMS = defaultRestartDelayMS
	}
	return nil
}

func (c *Config) normalizeScoring() {
	c.Scoring.JointSet = strings.ToLower(strings.TrimSpace(c.Scoring.JointSet))
	if c.Scoring.JointSet == "" {
		c.Scoring.JointSet = defaultJointSet
	}
}

func (c *Config) normalizeRibbon() {
	c.Ribbon.StableColor = strings.TrimSpace(c.Ribbon.StableColor)
	if c.Ribbon.StableColor == "" {
		c.Ribbon.StableColor = defaultStableColor
	}
	c.Ribbon.DriftColor = strings.TrimSpace(c.Ribbon.DriftColor)
	if c.Ribbon.DriftColor == "" {
		c.Ribbon.DriftColor = defaultDriftColor
	}
}

func (c *Config) normalizeCapture() {
	if c.Capture.Scale == 0 {
		c.Capture.Scale = defaultCaptureScale
	}
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("POSECOACH_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}
