package config

const (
	defaultConfigPath     = "~/.config/posecoach/config.toml"
	defaultStateDir       = "~/.local/share/posecoach"
	defaultLogDir         = "~/.local/share/posecoach/logs"
	defaultOutputDir      = "~/posecoach"
	defaultAPIBind        = "127.0.0.1:7491"
	defaultPoseSource     = SourceSynthetic
	defaultReplayFPS      = 30
	defaultRetryDelayMS   = 250
	defaultRestartDelayMS = 2000
	defaultScoringWindow  = 30
	defaultVarianceMax    = 400
	defaultJointSet       = "knee"
	defaultRibbonWidth    = 400
	defaultRibbonHeight   = 40
	defaultStripeWidth    = 2
	defaultStableColor    = "#22c55e"
	defaultDriftColor     = "#dc2626"
	defaultCaptureSeconds = 4
	defaultCaptureFPS     = 12
	defaultCaptureScale   = 1
	defaultMetronomeBPM   = 40
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Pose source kinds.
const (
	SourceSynthetic = "synthetic"
	SourceStdin     = "stdin"
	SourceFile      = "file"
	SourceCommand   = "command"
)

// Metronome tempo bounds.
const (
	MinBPM = 20
	MaxBPM = 120
)

// MaxCaptureScale bounds capture.scale.
const MaxCaptureScale = 8

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
			OutputDir: defaultOutputDir,
			APIBind:   defaultAPIBind,
		},
		Pose: Pose{
			Source:         defaultPoseSource,
			ReplayFPS:      defaultReplayFPS,
			RetryDelayMS:   defaultRetryDelayMS,
			RestartDelayMS: defaultRestartDelayMS,
		},
		Scoring: Scoring{
			Window:      defaultScoringWindow,
			VarianceMax: defaultVarianceMax,
			JointSet:    defaultJointSet,
		},
		Ribbon: Ribbon{
			Width:       defaultRibbonWidth,
			Height:      defaultRibbonHeight,
			StripeWidth: defaultStripeWidth,
			StableColor: defaultStableColor,
			DriftColor:  defaultDriftColor,
		},
		Capture: Capture{
			Seconds: defaultCaptureSeconds,
			FPS:     defaultCaptureFPS,
			Scale:   defaultCaptureScale,
		},
		Metronome: Metronome{
			BPM: defaultMetronomeBPM,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
