package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server       ServerConfig
	Redis        RedisConfig
	OpenAI       OpenAIConfig
	ElevenLabs   ElevenLabsConfig
	Replicate    ReplicateConfig
	R2           R2Config
	RenderWorker RenderWorkerConfig
	Scrape       ScrapeConfig
	RateLimit    RateLimitConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	ApiDomain string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// OpenAIConfig covers chat completions, moderation, DALL-E and TTS. A missing
// API key means every dependent step goes straight to its fallback without a
// network attempt.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	ChatModel string
	TTSModel  string
	TTSVoice  string
	Timeout   int // seconds
}

type ElevenLabsConfig struct {
	APIKey  string
	BaseURL string
	VoiceID string
	ModelID string
	Timeout int // seconds
}

type ReplicateConfig struct {
	APIToken string
	BaseURL  string
	Model    string
	Timeout  int // seconds
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

// RenderWorkerConfig points at the external FFmpeg compositing worker. An
// empty URL switches render dispatch to the staged mock progression.
type RenderWorkerConfig struct {
	URL     string
	Timeout int // seconds
}

type ScrapeConfig struct {
	UserAgent string
	Timeout   int // seconds
}

type RateLimitConfig struct {
	GeneratePerHour int
	RenderPerHour   int
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("OPENAI_API_KEY")
	readSecret("ELEVENLABS_API_KEY")
	readSecret("REPLICATE_API_TOKEN")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.api_domain", "API_DOMAIN")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = viper.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	_ = viper.BindEnv("openai.chat_model", "OPENAI_CHAT_MODEL")
	_ = viper.BindEnv("openai.tts_model", "OPENAI_TTS_MODEL")
	_ = viper.BindEnv("openai.tts_voice", "OPENAI_TTS_VOICE")
	_ = viper.BindEnv("openai.timeout", "OPENAI_TIMEOUT")
	_ = viper.BindEnv("elevenlabs.api_key", "ELEVENLABS_API_KEY")
	_ = viper.BindEnv("elevenlabs.base_url", "ELEVENLABS_BASE_URL")
	_ = viper.BindEnv("elevenlabs.voice_id", "ELEVENLABS_VOICE_ID")
	_ = viper.BindEnv("elevenlabs.model_id", "ELEVENLABS_MODEL_ID")
	_ = viper.BindEnv("elevenlabs.timeout", "ELEVENLABS_TIMEOUT")
	_ = viper.BindEnv("replicate.api_token", "REPLICATE_API_TOKEN")
	_ = viper.BindEnv("replicate.base_url", "REPLICATE_BASE_URL")
	_ = viper.BindEnv("replicate.model", "REPLICATE_MODEL")
	_ = viper.BindEnv("replicate.timeout", "REPLICATE_TIMEOUT")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = viper.BindEnv("renderworker.url", "RENDER_WORKER_URL")
	_ = viper.BindEnv("renderworker.timeout", "RENDER_WORKER_TIMEOUT")
	_ = viper.BindEnv("scrape.user_agent", "SCRAPE_USER_AGENT")
	_ = viper.BindEnv("scrape.timeout", "SCRAPE_TIMEOUT")
	_ = viper.BindEnv("ratelimit.generate_per_hour", "RATELIMIT_GENERATE_PER_HOUR")
	_ = viper.BindEnv("ratelimit.render_per_hour", "RATELIMIT_RENDER_PER_HOUR")

	// Defaults
	viper.SetDefault("server.port", "3000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("openai.chat_model", "gpt-4o")
	viper.SetDefault("openai.tts_model", "tts-1")
	viper.SetDefault("openai.tts_voice", "alloy")
	viper.SetDefault("openai.timeout", 60)

	viper.SetDefault("elevenlabs.base_url", "https://api.elevenlabs.io/v1")
	viper.SetDefault("elevenlabs.voice_id", "21m00Tcm4TlvDq8ikWAM")
	viper.SetDefault("elevenlabs.model_id", "eleven_monolingual_v1")
	viper.SetDefault("elevenlabs.timeout", 60)

	viper.SetDefault("replicate.base_url", "https://api.replicate.com/v1")
	viper.SetDefault("replicate.model", "stability-ai/sdxl")
	viper.SetDefault("replicate.timeout", 60)

	viper.SetDefault("renderworker.timeout", 30)

	viper.SetDefault("scrape.user_agent", "Mozilla/5.0 (compatible; NarriqBot/1.0; +https://narriq.ai)")
	viper.SetDefault("scrape.timeout", 30)

	viper.SetDefault("ratelimit.generate_per_hour", 10)
	viper.SetDefault("ratelimit.render_per_hour", 30)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("server.port"),
			Env:       viper.GetString("server.env"),
			LogLevel:  viper.GetString("server.log_level"),
			ApiDomain: viper.GetString("server.api_domain"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		OpenAI: OpenAIConfig{
			APIKey:    viper.GetString("openai.api_key"),
			BaseURL:   viper.GetString("openai.base_url"),
			ChatModel: viper.GetString("openai.chat_model"),
			TTSModel:  viper.GetString("openai.tts_model"),
			TTSVoice:  viper.GetString("openai.tts_voice"),
			Timeout:   viper.GetInt("openai.timeout"),
		},
		ElevenLabs: ElevenLabsConfig{
			APIKey:  viper.GetString("elevenlabs.api_key"),
			BaseURL: viper.GetString("elevenlabs.base_url"),
			VoiceID: viper.GetString("elevenlabs.voice_id"),
			ModelID: viper.GetString("elevenlabs.model_id"),
			Timeout: viper.GetInt("elevenlabs.timeout"),
		},
		Replicate: ReplicateConfig{
			APIToken: viper.GetString("replicate.api_token"),
			BaseURL:  viper.GetString("replicate.base_url"),
			Model:    viper.GetString("replicate.model"),
			Timeout:  viper.GetInt("replicate.timeout"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
		RenderWorker: RenderWorkerConfig{
			URL:     viper.GetString("renderworker.url"),
			Timeout: viper.GetInt("renderworker.timeout"),
		},
		Scrape: ScrapeConfig{
			UserAgent: viper.GetString("scrape.user_agent"),
			Timeout:   viper.GetInt("scrape.timeout"),
		},
		RateLimit: RateLimitConfig{
			GeneratePerHour: viper.GetInt("ratelimit.generate_per_hour"),
			RenderPerHour:   viper.GetInt("ratelimit.render_per_hour"),
		},
	}

	return cfg, nil
}
