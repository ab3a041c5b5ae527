package internal

import "time"

type Config struct {
	BufferSize           int           `env:"BUFFER_SIZE,required=true"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,required=true"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,required=true"`
	TelemetryInterval    time.Duration `env:"TELEMETRY_INTERVAL,required=true"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`
	Host           string `env:"HOST,required=true"`
	Port           int    `env:"PORT,required=true"`

	ModerationURL string `env:"MODERATION_URL,required=true"`

	DraftDebounce   time.Duration `env:"DRAFT_DEBOUNCE,default=420ms"`
	DraftTimeout    time.Duration `env:"DRAFT_TIMEOUT,default=7s"`
	SendTimeout     time.Duration `env:"SEND_TIMEOUT,default=10s"`
	SendGraceWindow time.Duration `env:"SEND_GRACE_WINDOW,default=15s"`

	HistoryLimit     int `env:"HISTORY_LIMIT,default=200"`
	MaxContentLength int `env:"MAX_CONTENT_LENGTH,required=true"`

	AuthSecret        string        `env:"AUTH_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=*"`
}
