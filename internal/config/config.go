package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
	OutputDir string `toml:"output_dir"`
	APIBind   string `toml:"api_bind"`
	APIToken  string `toml:"api_token"`
}

// Pose selects and tunes the pose source.
type Pose struct {
	// Source is one of synthetic, stdin, file, or command.
	Source          string   `toml:"source"`
	Path            string   `toml:"path"`
	Command         string   `toml:"command"`
	Args            []string `toml:"args"`
	ReplayFPS       float64  `toml:"replay_fps"`
	RetryDelayMS    int      `toml:"retry_delay_ms"`
	FrameIntervalMS int      `toml:"frame_interval_ms"`
	RestartDelayMS  int      `toml:"restart_delay_ms"`
}

// Scoring holds the stability calibration.
type Scoring struct {
	Window      int     `toml:"window"`
	VarianceMax float64 `toml:"variance_max"`
	JointSet    string  `toml:"joint_set"`
}

// Ribbon holds the ribbon surface geometry and palette.
type Ribbon struct {
	Width       int    `toml:"width"`
	Height      int    `toml:"height"`
	StripeWidth int    `toml:"stripe_width"`
	StableColor string `toml:"stable_color"`
	DriftColor  string `toml:"drift_color"`
}

// Capture holds GIF export defaults.
type Capture struct {
	Seconds float64 `toml:"seconds"`
	FPS     float64 `toml:"fps"`
	Scale   int     `toml:"scale"`
}

// Metronome holds the pacing beat default.
type Metronome struct {
	BPM int `toml:"bpm"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for posecoach.
//
// Configuration sections by subsystem:
//   - Paths: state, log and output directories plus the API bind address
//   - Pose: where keypoints come from and how the frame loop paces itself
//   - Scoring: variance window, ceiling and tracked joints
//   - Ribbon: surface geometry and colors
//   - Capture: GIF export defaults
//   - Metronome: beat default
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Pose      Pose      `toml:"pose"`
	Scoring   Scoring   `toml:"scoring"`
	Ribbon    Ribbon    `toml:"ribbon"`
	Capture   Capture   `toml:"capture"`
	Metronome Metronome `toml:"metronome"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	loadDotEnv()
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv reads ./.env into the process environment without overriding
// variables that are already set.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("posecoach.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state, log and output directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.Paths.OutputDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RetryDelay is the wait after a failed or not-ready estimate.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Pose.RetryDelayMS) * time.Millisecond
}

// FrameInterval is the minimum spacing between frame loop iterations.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.Pose.FrameIntervalMS) * time.Millisecond
}

// RestartDelay is the wait before relaunching a crashed estimator command.
func (c *Config) RestartDelay() time.Duration {
	return time.Duration(c.Pose.RestartDelayMS) * time.Millisecond
}

// LockPath is the single-instance lock held by a running daemon.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "posecoach.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
