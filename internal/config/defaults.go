package config

const (
	defaultConfigPath        = "~/.config/mantra/config.toml"
	defaultStagingDir        = "~/.local/share/mantra/staging"
	defaultOutputDir         = "~/.local/share/mantra/renders"
	defaultLogDir            = "~/.local/share/mantra/logs"
	defaultLibraryDB         = "~/.local/share/mantra/library.db"
	defaultStaleStagingHours = 24
	defaultDelayMS           = 100
	defaultDecay             = 0.4
	defaultMix               = 0.25
	defaultVoiceVolume       = 1.0
	defaultBinauralVolume    = 0.5
	defaultPreviewVolume     = 0.4
	defaultPreviewSampleRate = 44100
	defaultPreviewBufferMS   = 100
	defaultTTSBaseURL        = "https://api.elevenlabs.io"
	defaultTTSModelID        = "eleven_monolingual_v1"
	defaultTTSVoiceID        = "21m00Tcm4TlvDq8ikWAM"
	defaultTTSStability      = 0.5
	defaultTTSSimilarity     = 0.5
	defaultTTSTimeoutSeconds = 120
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
			LibraryDB:  defaultLibraryDB,
		},
		Engine: Engine{
			StaleStagingHours: defaultStaleStagingHours,
		},
		Mixdown: Mixdown{
			DelayMS:  defaultDelayMS,
			Decay:    defaultDecay,
			Mix:      defaultMix,
			Voice:    defaultVoiceVolume,
			Binaural: defaultBinauralVolume,
		},
		Preview: Preview{
			Volume:     defaultPreviewVolume,
			SampleRate: defaultPreviewSampleRate,
			BufferMS:   defaultPreviewBufferMS,
		},
		TTS: TTS{
			BaseURL:         defaultTTSBaseURL,
			ModelID:         defaultTTSModelID,
			VoiceID:         defaultTTSVoiceID,
			Stability:       defaultTTSStability,
			SimilarityBoost: defaultTTSSimilarity,
			TimeoutSeconds:  defaultTTSTimeoutSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
