package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type DevServer struct {
	Port      int           `mapstructure:"port"`
	Secret    string        `mapstructure:"secret"`
	AccessTTL time.Duration `mapstructure:"access_ttl"`
	MediaTTL  time.Duration `mapstructure:"media_ttl"`
}

type Config struct {
	Mode string `mapstructure:"mode"`

	// BackendURL is the auth/token backend, MediaURL the voice server's
	// signaling endpoint. Both default to local development addresses.
	BackendURL string `mapstructure:"backend_url"`
	MediaURL   string `mapstructure:"media_url"`

	Room     string `mapstructure:"room"`
	Identity string `mapstructure:"identity"`

	// MediaProjectURL/MediaProjectKey belong to the managed-auth path and
	// stay empty unless that path is wired in.
	MediaProjectURL string `mapstructure:"media_project_url"`
	MediaProjectKey string `mapstructure:"media_project_key"`

	CredentialsPath string `mapstructure:"credentials_path"`
	KeyringDisabled bool   `mapstructure:"keyring_disabled"`
	CaptureSource   string `mapstructure:"capture_source"`
	CaptureOggPath  string `mapstructure:"capture_ogg_path"`
	LogLevel        string `mapstructure:"log_level"`

	DevServer DevServer `mapstructure:"dev_server"`
}

func Load() (*Config, error) {
	// .env is optional, same as in local backend setups.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("backend_url", "http://localhost:8000")
	v.SetDefault("media_url", "ws://localhost:8080/api/ws/signal")
	v.SetDefault("room", "main")
	v.SetDefault("identity", "")
	v.SetDefault("credentials_path", defaultCredentialsPath())
	v.SetDefault("keyring_disabled", false)
	v.SetDefault("capture_source", "silence")
	v.SetDefault("capture_ogg_path", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("dev_server.port", 8000)
	v.SetDefault("dev_server.secret", "dev-secret-change-me")
	v.SetDefault("dev_server.access_ttl", "24h")
	v.SetDefault("dev_server.media_ttl", "1h")

	v.SetEnvPrefix("VOICE")
	v.AutomaticEnv()
	_ = v.BindEnv("backend_url", "VOICE_BACKEND_URL", "BACKEND_URL")
	_ = v.BindEnv("media_url", "VOICE_MEDIA_URL", "MEDIA_URL")
	_ = v.BindEnv("media_project_url", "VOICE_MEDIA_PROJECT_URL")
	_ = v.BindEnv("media_project_key", "VOICE_MEDIA_PROJECT_KEY")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Backend: %s | Media: %s | Room: %s\n",
		cfg.Mode, cfg.BackendURL, cfg.MediaURL, cfg.Room)
	return &cfg, nil
}

func defaultCredentialsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".voiceclient/credentials.json"
	}
	return filepath.Join(dir, "voiceclient", "credentials.json")
}
