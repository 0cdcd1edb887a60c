package config

const (
	defaultOutputDir              = "analysis_reports2"
	defaultDownloadDir            = "downloads"
	defaultStateDir               = "~/.local/share/notebrief"
	defaultManifest               = "video_urls.json"
	defaultExportFile             = "all_notebook_data.json"
	defaultBackendKind            = "notebook"
	defaultBackendTimeoutSeconds  = 300
	defaultBackendRetryAttempts   = 3
	defaultBackendPollSeconds     = 2
	defaultLLMBaseURL             = "https://api.openai.com/v1"
	defaultLLMModel               = "gpt-4o-mini"
	defaultLLMMaxSourceBytes      = 400_000
	defaultURLWaitSeconds         = 5
	defaultDocumentWaitSeconds    = 10
	defaultMediaWaitSeconds       = 15
	defaultDigestWaitSeconds      = 10
	defaultUploadTimeoutSeconds   = 120
	defaultPacingSeconds          = 2
	defaultPlaylistLimit          = 240
	defaultDownloadLimit          = 10
	defaultDigestTitle            = "YouTube Playlist Analysis"
	defaultDigestReport           = "analysis_results.md"
	defaultAPIBind                = "0.0.0.0:52501"
	defaultMCPBind                = "0.0.0.0:52500"
	defaultStagingMaxAgeHours     = 24
	defaultShutdownTimeoutSeconds = 10
	defaultReportEncoding         = "utf-8"
	defaultScraperBinary          = "yt-dlp"
	defaultAudioFormat            = "mp3"
	defaultAudioQuality           = "192"
	defaultScraperSleepInterval   = 1
	defaultNtfyTimeoutSeconds     = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:   defaultOutputDir,
			DownloadDir: defaultDownloadDir,
			StateDir:    defaultStateDir,
			Manifest:    defaultManifest,
			ExportFile:  defaultExportFile,
		},
		Backend: Backend{
			Kind:                defaultBackendKind,
			TimeoutSeconds:      defaultBackendTimeoutSeconds,
			RetryAttempts:       defaultBackendRetryAttempts,
			PollIntervalSeconds: defaultBackendPollSeconds,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			MaxSourceBytes: defaultLLMMaxSourceBytes,
		},
		Readiness: Readiness{
			URLWaitSeconds:       defaultURLWaitSeconds,
			DocumentWaitSeconds:  defaultDocumentWaitSeconds,
			MediaWaitSeconds:     defaultMediaWaitSeconds,
			DigestWaitSeconds:    defaultDigestWaitSeconds,
			UploadTimeoutSeconds: defaultUploadTimeoutSeconds,
		},
		Batch: Batch{
			PacingSeconds: defaultPacingSeconds,
			PlaylistLimit: defaultPlaylistLimit,
			DownloadLimit: defaultDownloadLimit,
			DigestTitle:   defaultDigestTitle,
			DigestReport:  defaultDigestReport,
		},
		Server: Server{
			APIBind:                defaultAPIBind,
			MCPBind:                defaultMCPBind,
			CORSOrigins:            []string{"*"},
			StagingMaxAgeHours:     defaultStagingMaxAgeHours,
			ShutdownTimeoutSeconds: defaultShutdownTimeoutSeconds,
		},
		Report: Report{
			Encoding: defaultReportEncoding,
		},
		Scraper: Scraper{
			Binary:        defaultScraperBinary,
			AudioFormat:   defaultAudioFormat,
			AudioQuality:  defaultAudioQuality,
			SleepInterval: defaultScraperSleepInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
	}
}
