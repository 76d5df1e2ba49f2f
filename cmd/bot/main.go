package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	discordrouter "github.com/jose-valero/gemini-discord-bot/internal/adapters/discord"
	"github.com/jose-valero/gemini-discord-bot/internal/adapters/gemini"
	"github.com/jose-valero/gemini-discord-bot/internal/adapters/httpstatus"
	"github.com/jose-valero/gemini-discord-bot/internal/adapters/media"
	mediaopus "github.com/jose-valero/gemini-discord-bot/internal/adapters/media/opus"
	"github.com/jose-valero/gemini-discord-bot/internal/adapters/openai"
	"github.com/jose-valero/gemini-discord-bot/internal/app/service"
	"github.com/jose-valero/gemini-discord-bot/internal/infra/config"
	"github.com/jose-valero/gemini-discord-bot/internal/infra/logging"
	"github.com/jose-valero/gemini-discord-bot/internal/infra/storage"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "gemini-bot",
	Short:         "Discord bot: Gemini answers, reminders, polls and music",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("env file %s: %w", envFile, err)
			}
		} else {
			_ = godotenv.Load()
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return run(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.Flags().StringVar(&envFile, "env-file", "", "archivo .env a cargar (default: ./.env si existe)")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	logs := logging.New(logging.Options{
		Level:          cfg.LogLevel,
		DiscordGoLevel: cfg.DiscordGoLogLevel,
		File:           cfg.LogFile,
	})
	defer logs.Close()
	log := logs.Logger()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// Discord session
	s, err := discordgo.New(cfg.BotToken())
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	s.LogLevel = logs.InstallDiscordgo(ctx)
	s.Identify.Intents = discordgo.IntentsAllWithoutPrivileged |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	gen := newGenerator(cfg)
	log.Info("generador listo", "provider", cfg.Provider, "model", gen.Model())

	out := discordrouter.NewMessenger(s, named(log, "discord"))

	// Repos + services
	remindersRepo := storage.NewReminderRepo()
	assistant := service.NewAssistantService(gen, out)
	reminders := service.NewReminderService(remindersRepo, out, loc, named(log, "reminders"))

	streamer := media.NewStreamer(cfg.FFmpegPath, mediaopus.NewEncoder(cfg.OpusBitrate), named(log, "media"))
	voice := service.NewVoiceService(
		discordrouter.NewConnector(s),
		discordrouter.NewPresence(s.State),
		media.NewResolver(cfg.YtDlpPath, cfg.CommandTimeout),
		streamer,
		out,
		named(log, "voice"),
	)

	r := discordrouter.NewRouter(s, s.State, named(log, "router"), out, assistant, reminders, voice, discordrouter.Options{
		Prefix:            cfg.CommandPrefix,
		CommandTimeout:    cfg.CommandTimeout,
		GenTimeout:        cfg.GenTimeout,
		MentionRatePerMin: cfg.MentionRatePerMin,
	})
	r.Handlers()

	if err := s.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	defer s.Close()

	go reminders.RunSweeper(ctx, cfg.ReminderSweepInterval)

	if cfg.HTTPAddr != "" {
		web := httpstatus.New(voice, remindersRepo, named(log, "http"))
		go func() {
			if err := web.Start(ctx, cfg.HTTPAddr); err != nil {
				log.Error("http server", tint.Err(err))
			}
		}()
	}

	log.Info("✅ bot corriendo, Ctrl+C para salir", "prefix", cfg.CommandPrefix)
	<-ctx.Done()
	log.Info("apagando…")

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := voice.Close(closeCtx); err != nil {
		log.Warn("voice close", tint.Err(err))
	}
	return nil
}

// generator es lo que tienen en común los clientes de gemini y openai.
type generator interface {
	service.Generator
	Model() string
}

func newGenerator(cfg config.Config) generator {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		opts := []openai.Option{openai.WithModel(cfg.OpenAIModel), openai.WithRateLimit(cfg.GenMaxRPS)}
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAIBaseURL))
		}
		return openai.New(cfg.OpenAIAPIKey, opts...)
	default:
		opts := []gemini.Option{gemini.WithModel(cfg.GeminiModel), gemini.WithRateLimit(cfg.GenMaxRPS)}
		if cfg.GeminiBaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(cfg.GeminiBaseURL))
		}
		return gemini.New(cfg.GeminiAPIKey, opts...)
	}
}

func named(log *slog.Logger, name string) *slog.Logger {
	return log.With(logging.LoggerNameKey, name)
}
