package config

const (
	defaultDataDir                = "~/.local/share/kinetic"
	defaultLogDir                 = "~/.local/share/kinetic/logs"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultFFmpegTimeoutSeconds   = 600
	defaultInferenceTimeout       = 120
	defaultDownloadTimeoutSeconds = 120
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		FFmpeg: FFmpeg{
			TimeoutSeconds: defaultFFmpegTimeoutSeconds,
		},
		Inference: Inference{
			TimeoutSeconds: defaultInferenceTimeout,
		},
		Ingest: Ingest{
			DownloadTimeoutSeconds: defaultDownloadTimeoutSeconds,
		},
	}
}
