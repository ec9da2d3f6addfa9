package config

const (
	defaultDataDir               = "~/.local/share/trimreview"
	defaultLogDir                = "~/.local/share/trimreview/logs"
	defaultServerBind            = "127.0.0.1:7610"
	defaultAPIURL                = "http://127.0.0.1:7610"
	defaultPollIntervalSeconds   = 10
	defaultReconnectDelaySeconds = 5
	defaultRequestTimeoutSeconds = 10
	defaultNotifyTimeoutSeconds  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"

	configDirName   = "~/.config/trimreview"
	configFileName  = "config.toml"
	projectFileName = "trimreview.toml"

	envToken  = "TRIMREVIEW_TOKEN"
	envAPIURL = "TRIMREVIEW_API_URL"
)

// Role names accepted in [[users]].
const (
	RoleCreator  = "creator"
	RoleApprover = "approver"
	RoleAdmin    = "admin"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
		Client: Client{
			APIURL:         defaultAPIURL,
			PollInterval:   defaultPollIntervalSeconds,
			ReconnectDelay: defaultReconnectDelaySeconds,
			RequestTimeout: defaultRequestTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeoutSeconds,
			Submitted:      true,
			Reviewed:       true,
			Outcomes:       true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
