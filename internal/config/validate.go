package config

import (
	"errors"
	"fmt"
	"net"

	"posecoach/internal/heatcolor"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePose(); err != nil {
		return err
	}
	if err := c.validateScoring(); err != nil {
		return err
	}
	if err := c.validateRibbon(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateMetronome(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Paths.APIBind == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind %q: %w", c.Paths.APIBind, err)
	}
	return nil
}

func (c *Config) validatePose() error {
	switch c.Pose.Source {
	case SourceSynthetic, SourceStdin:
	case SourceFile:
		if c.Pose.Path == "" {
			return errors.New("pose.path must be set when pose.source is file")
		}
	case SourceCommand:
		if c.Pose.Command == "" {
			return errors.New("pose.command must be set when pose.source is command (or set POSECOACH_POSE_COMMAND)")
		}
	default:
		return fmt.Errorf("pose.source: unsupported value %q (want synthetic, stdin, file, or command)", c.Pose.Source)
	}
	if err := ensureNonNegativeMap(map[string]int{
		"pose.retry_delay_ms":    c.Pose.RetryDelayMS,
		"pose.frame_interval_ms": c.Pose.FrameIntervalMS,
		"pose.restart_delay_ms":  c.Pose.RestartDelayMS,
	}); err != nil {
		return err
	}
	if c.Pose.ReplayFPS < 0 {
		return errors.New("pose.replay_fps must not be negative")
	}
	return nil
}

func (c *Config) validateScoring() error {
	if c.Scoring.Window < 1 {
		return errors.New("scoring.window must be positive")
	}
	if c.Scoring.VarianceMax <= 0 {
		return errors.New("scoring.variance_max must be positive")
	}
	switch c.Scoring.JointSet {
	case "knee", "elbow", "hip":
	default:
		return fmt.Errorf("scoring.joint_set: unsupported value %q (want knee, elbow, or hip)", c.Scoring.JointSet)
	}
	return nil
}

func (c *Config) validateRibbon() error {
	if err := ensurePositiveMap(map[string]int{
		"ribbon.width":        c.Ribbon.Width,
		"ribbon.height":       c.Ribbon.Height,
		"ribbon.stripe_width": c.Ribbon.StripeWidth,
	}); err != nil {
		return err
	}
	if c.Ribbon.StripeWidth > c.Ribbon.Width {
		return errors.New("ribbon.stripe_width must not exceed ribbon.width")
	}
	if _, err := heatcolor.FromHex(c.Ribbon.StableColor, c.Ribbon.DriftColor); err != nil {
		return fmt.Errorf("ribbon: %w", err)
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.Seconds <= 0 {
		return errors.New("capture.seconds must be positive")
	}
	if c.Capture.FPS <= 0 {
		return errors.New("capture.fps must be positive")
	}
	if c.Capture.Seconds*c.Capture.FPS < 1 {
		return errors.New("capture.seconds * capture.fps must yield at least one frame")
	}
	if c.Capture.Scale < 1 || c.Capture.Scale > MaxCaptureScale {
		return fmt.Errorf("capture.scale must be between 1 and %d", MaxCaptureScale)
	}
	return nil
}

func (c *Config) validateMetronome() error {
	if c.Metronome.BPM < MinBPM || c.Metronome.BPM > MaxBPM {
		return fmt.Errorf("metronome.bpm must be between %d and %d", MinBPM, MaxBPM)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func ensureNonNegativeMap(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}
	return nil
}
