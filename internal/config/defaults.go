package config

const (
	defaultConfigPath           = "~/.config/strmrefresh/config.toml"
	defaultStateDir             = "~/.local/share/strmrefresh"
	defaultLogDir               = "~/.local/share/strmrefresh/logs"
	defaultAPIBind              = "127.0.0.1:7488"
	defaultServerTimeoutSeconds = 10
	defaultNotifyTimeout        = 10
	defaultHistoryRetentionDays = 30
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Plugin: Plugin{
			Enabled:      false,
			DelaySeconds: 0,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			StrmErrors:     true,
			RefreshErrors:  true,
		},
		History: History{
			Enabled:       true,
			RetentionDays: defaultHistoryRetentionDays,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
