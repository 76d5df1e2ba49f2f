package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	DiscordToken  string `env:"DISCORD_TOKEN,required,notEmpty"`
	CommandPrefix string `env:"COMMAND_PREFIX" envDefault:"!"`

	// generador de texto
	Provider      string        `env:"GEN_PROVIDER" envDefault:"gemini"`
	GeminiAPIKey  string        `env:"GEMINI_API_KEY"`
	GeminiModel   string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	GeminiBaseURL string        `env:"GEMINI_BASE_URL"`
	OpenAIAPIKey  string        `env:"OPENAI_API_KEY"`
	OpenAIModel   string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL"`
	GenTimeout    time.Duration `env:"GEN_TIMEOUT" envDefault:"60s"`
	GenMaxRPS     float64       `env:"GEN_MAX_RPS" envDefault:"0"`

	// límite por usuario para menciones (0 = sin límite)
	MentionRatePerMin int           `env:"MENTION_RATE_PER_MIN" envDefault:"6"`
	CommandTimeout    time.Duration `env:"COMMAND_TIMEOUT" envDefault:"45s"`

	// recordatorios: 0 apaga el barrido
	ReminderSweepInterval time.Duration `env:"REMINDER_SWEEP_INTERVAL" envDefault:"60s"`
	ReminderTimezone      string        `env:"REMINDER_TIMEZONE"`

	// voz
	YtDlpPath   string `env:"YTDLP_PATH" envDefault:"yt-dlp"`
	FFmpegPath  string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	OpusBitrate int    `env:"OPUS_BITRATE" envDefault:"96000"`

	HTTPAddr string `env:"HTTP_ADDR"` // vacío = sin endpoint de status

	LogLevel          slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFile           string     `env:"LOG_FILE"`
	DiscordGoLogLevel slog.Level `env:"DISCORDGO_LOG_LEVEL" envDefault:"WARN"`
}

// Load lee el entorno (el .env ya lo cargó godotenv en main).
// opts permite inyectar un Environment en tests.
func Load(opts ...env.Options) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg, opts...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	switch c.Provider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return errors.New("config: faltante env GEMINI_API_KEY")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return errors.New("config: faltante env OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("config: GEN_PROVIDER %q no soportado (gemini|openai)", c.Provider)
	}

	if strings.TrimSpace(c.CommandPrefix) == "" {
		c.CommandPrefix = "!"
	}
	if c.GenTimeout <= 0 {
		c.GenTimeout = 60 * time.Second
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = 45 * time.Second
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// BotToken agrega el prefijo "Bot " si falta.
func (c Config) BotToken() string {
	auth := strings.TrimSpace(c.DiscordToken)
	if !strings.HasPrefix(strings.ToLower(auth), "bot ") {
		auth = "Bot " + auth
	}
	return auth
}

// Location es la zona con la que se interpretan las horas de !remind.
func (c Config) Location() (*time.Location, error) {
	if c.ReminderTimezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.ReminderTimezone)
	if err != nil {
		return nil, fmt.Errorf("config: REMINDER_TIMEZONE: %w", err)
	}
	return loc, nil
}
