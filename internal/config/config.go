package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	LiveKit  LiveKitConfig  `mapstructure:"livekit"`
	SIP      SIPConfig      `mapstructure:"sip"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Users    UsersConfig    `mapstructure:"users"`
	Log      LogConfig      `mapstructure:"log"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type LiveKitConfig struct {
	URL       string `mapstructure:"url"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

// SIPConfig carries the outbound trunk id and the process-wide fallbacks
// used when a dispatched job arrives with incomplete metadata.
type SIPConfig struct {
	OutboundTrunkID     string `mapstructure:"outbound_trunk_id"`
	FallbackPhoneNumber string `mapstructure:"fallback_phone_number"`
	FallbackMetadata    string `mapstructure:"fallback_metadata"`
}

type AgentConfig struct {
	Name           string        `mapstructure:"name"`
	IdentityPrefix string        `mapstructure:"identity_prefix"`
	MaxConcurrent  int           `mapstructure:"max_concurrent"`
	QueueSize      int           `mapstructure:"queue_size"`
	JoinTimeout    time.Duration `mapstructure:"join_timeout"`
	DispatchMode   string        `mapstructure:"dispatch_mode"` // embedded, lk
	LKBin          string        `mapstructure:"lk_bin"`
}

type EngineConfig struct {
	APIKey       string `mapstructure:"api_key"`
	Model        string `mapstructure:"model"`
	Voice        string `mapstructure:"voice"`
	BaseURL      string `mapstructure:"base_url"`
	Instructions string `mapstructure:"instructions"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type UsersConfig struct {
	DefaultAdminPassword string `mapstructure:"default_admin_password"`
}

var AppConfig Config

func LoadConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Config file not found, using defaults. Error: %v", err)
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	// The Python worker read these straight from the environment; keep the
	// same variable names working for existing deployments.
	if AppConfig.LiveKit.URL == "" {
		AppConfig.LiveKit.URL = viper.GetString("LIVEKIT_URL")
	}
	if AppConfig.LiveKit.APIKey == "" {
		AppConfig.LiveKit.APIKey = viper.GetString("LIVEKIT_API_KEY")
	}
	if AppConfig.LiveKit.APISecret == "" {
		AppConfig.LiveKit.APISecret = viper.GetString("LIVEKIT_API_SECRET")
	}
	if AppConfig.SIP.OutboundTrunkID == "" {
		AppConfig.SIP.OutboundTrunkID = viper.GetString("SIP_OUTBOUND_TRUNK_ID")
	}
	if AppConfig.SIP.FallbackPhoneNumber == "" {
		AppConfig.SIP.FallbackPhoneNumber = viper.GetString("DEFAULT_PHONE_NUMBER")
	}
	if AppConfig.Engine.APIKey == "" {
		AppConfig.Engine.APIKey = viper.GetString("OPENAI_API_KEY")
	}

	if AppConfig.Server.Port == "" {
		AppConfig.Server.Port = ":8000"
	}
	if AppConfig.Agent.Name == "" {
		AppConfig.Agent.Name = "outbound-caller"
	}
	if AppConfig.Agent.IdentityPrefix == "" {
		AppConfig.Agent.IdentityPrefix = "agent"
	}
	if AppConfig.Agent.MaxConcurrent <= 0 {
		AppConfig.Agent.MaxConcurrent = 4
	}
	if AppConfig.Agent.QueueSize <= 0 {
		AppConfig.Agent.QueueSize = 32
	}
	if AppConfig.Agent.JoinTimeout <= 0 {
		AppConfig.Agent.JoinTimeout = 30 * time.Second
	}
	if AppConfig.Agent.DispatchMode == "" {
		AppConfig.Agent.DispatchMode = "embedded"
	}
	if AppConfig.Agent.LKBin == "" {
		AppConfig.Agent.LKBin = "lk"
	}
	if AppConfig.Engine.Model == "" {
		AppConfig.Engine.Model = "gpt-4o-realtime-preview"
	}
	if AppConfig.Engine.Voice == "" {
		AppConfig.Engine.Voice = "alloy"
	}
	if AppConfig.Engine.BaseURL == "" {
		AppConfig.Engine.BaseURL = "wss://api.openai.com/v1/realtime"
	}
	if AppConfig.Auth.JWTSecret == "" {
		AppConfig.Auth.JWTSecret = "YOUR_SECRET_KEY_CHANGE_IN_PROD"
	}

	log.Println("Configuration loaded successfully")
}
