package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderGTTS       = "gtts"
	ProviderElevenLabs = "elevenlabs"
	ProviderOpenAI     = "openai"
)

type Config struct {
	Host  string
	Port  string
	Debug bool

	WebhookURL       string
	WebhookTimeout   time.Duration
	MaxMessageLength int
	RateLimitPerMin  int

	TTS TTSConfig
	S3  S3Config

	TelegramToken string
	AdminChatIDs  []int64
}

type TTSConfig struct {
	Provider string
	Timeout  time.Duration

	Lang string
	TLD  string
	Slow bool

	ElevenLabsKey   string
	ElevenLabsVoice string

	OpenAIKey   string
	OpenAIVoice string
}

// S3Config пустой Endpoint означает, что архив аудио выключен.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Secure    bool
}

func (c S3Config) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Host:  getEnv("HOST", "0.0.0.0"),
		Port:  getEnv("PORT", "5000"),
		Debug: getEnvBool("DEBUG", false),

		WebhookURL:       strings.TrimSpace(os.Getenv("N8N_WEBHOOK_URL")),
		WebhookTimeout:   time.Duration(getEnvInt("TIMEOUT_N8N", 15)) * time.Second,
		MaxMessageLength: getEnvInt("MAX_MESSAGE_LENGTH", 500),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		TTS: TTSConfig{
			Provider: strings.ToLower(getEnv("TTS_PROVIDER", ProviderGTTS)),
			Timeout:  time.Duration(getEnvInt("TTS_TIMEOUT", 20)) * time.Second,

			Lang: getEnv("TTS_LANG", "es"),
			TLD:  getEnv("TTS_TLD", "com.mx"),
			Slow: getEnvBool("TTS_SLOW", false),

			ElevenLabsKey:   os.Getenv("ELEVENLABS_API_KEY"),
			ElevenLabsVoice: getEnv("ELEVENLABS_VOICE_ID", "EXAVITQu4vr4xnSDxMaL"),

			OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
			OpenAIVoice: getEnv("OPENAI_TTS_VOICE", "nova"),
		},

		S3: S3Config{
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			Bucket:    os.Getenv("S3_BUCKET"),
			Region:    os.Getenv("S3_REGION"),
			Secure:    getEnvBool("S3_SECURE", true),
		},

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		AdminChatIDs:  parseChatIDs(os.Getenv("TELEGRAM_ADMIN_CHAT_IDS")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.WebhookURL == "" {
		return fmt.Errorf("N8N_WEBHOOK_URL is not set")
	}
	if c.MaxMessageLength <= 0 {
		return fmt.Errorf("MAX_MESSAGE_LENGTH must be positive, got %d", c.MaxMessageLength)
	}
	if c.WebhookTimeout <= 0 {
		return fmt.Errorf("TIMEOUT_N8N must be positive, got %s", c.WebhookTimeout)
	}
	if c.TTS.Timeout <= 0 {
		return fmt.Errorf("TTS_TIMEOUT must be positive, got %s", c.TTS.Timeout)
	}

	switch c.TTS.Provider {
	case ProviderGTTS:
	case ProviderElevenLabs:
		if c.TTS.ElevenLabsKey == "" {
			return fmt.Errorf("ELEVENLABS_API_KEY not set")
		}
	case ProviderOpenAI:
		if c.TTS.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY not set")
		}
	default:
		return fmt.Errorf("unknown TTS_PROVIDER %q", c.TTS.Provider)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	switch strings.ToLower(getEnv(key, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

// "123, 456" -> [123 456], мусор пропускаем
func parseChatIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
