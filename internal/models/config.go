package models

// Config holds the application configuration
type Config struct {
	Database DatabaseConfig `json:"database"`
	Server   ServerConfig   `json:"server"`
	Chat     ChatConfig     `json:"chat"`
	Sound    SoundConfig    `json:"sound"`
	Tracing  TracingConfig  `json:"tracing"`
	LogLevel string         `json:"log_level"`
}

// DatabaseConfig holds database related configurations
type DatabaseConfig struct {
	Path string `json:"path"`
}

// ServerConfig holds the local UI gateway configuration
type ServerConfig struct {
	Port    int  `json:"port"`
	Enabled bool `json:"enabled"`
}

// ChatConfig holds pacing and window settings for the conversation
// session. All delays are in milliseconds; zero values take the
// defaults from the constants package.
type ChatConfig struct {
	WindowSize        int `json:"windowSize"`
	ReplyThinkMs      int `json:"replyThinkMs"`
	DeliverySentMs    int `json:"deliverySentMs"`
	DeliverySeenMs    int `json:"deliverySeenMs"`
	ReplyFragmentMs   int `json:"replyFragmentMs"`
	WelcomeFragmentMs int `json:"welcomeFragmentMs"`
	PresenceResetMs   int `json:"presenceResetMs"`
	PersistDebounceMs int `json:"persistDebounceMs"`
	EventBufferSize   int `json:"eventBufferSize"`
}

// SoundConfig holds feedback cue configuration
type SoundConfig struct {
	Enabled bool `json:"enabled"`
	Muted   bool `json:"muted"`
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled      bool    `json:"enabled"`
	UseStdout    bool    `json:"use_stdout"`
	OTLPEndpoint string  `json:"otlp_endpoint"`
	SampleRate   float64 `json:"sample_rate"`
	Environment  string  `json:"environment"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
