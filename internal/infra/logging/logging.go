// Package logging arma los handlers slog del bot: tint en la terminal y,
// opcionalmente, JSON rotado con lumberjack a un archivo.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggerNameKey es el atributo con el que se identifica cada componente.
const LoggerNameKey = "logger"

type Options struct {
	Level          slog.Level
	DiscordGoLevel slog.Level
	File           string    // vacío = sólo terminal
	Writer         io.Writer // default os.Stderr
}

type Logging struct {
	opts Options
	file *lumberjack.Logger
	out  io.Writer
}

func New(o Options) *Logging {
	l := &Logging{opts: o, out: o.Writer}
	if l.out == nil {
		l.out = os.Stderr
	}
	if o.File != "" {
		l.file = &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    20, // MB
			MaxBackups: 5,
			MaxAge:     14, // días
			Compress:   true,
		}
	}
	return l
}

// Handler devuelve un handler al nivel pedido (terminal + archivo si hay).
func (l *Logging) Handler(level slog.Level) slog.Handler {
	term := tint.NewHandler(l.out, &tint.Options{Level: level, AddSource: level <= slog.LevelDebug})
	if l.file == nil {
		return term
	}
	return fanout{term, slog.NewJSONHandler(l.file, &slog.HandlerOptions{Level: level})}
}

// Logger crea el logger principal y lo deja como default.
func (l *Logging) Logger() *slog.Logger {
	log := slog.New(l.Handler(l.opts.Level))
	slog.SetDefault(log)
	return log
}

// InstallDiscordgo redirige el logger global de discordgo a slog y devuelve
// el LogLevel que hay que setear en la sesión.
func (l *Logging) InstallDiscordgo(ctx context.Context) int {
	h := l.Handler(l.opts.DiscordGoLevel).WithAttrs([]slog.Attr{slog.String(LoggerNameKey, "discordgo")})
	discordgo.Logger = DiscordgoLoggerFunc(ctx, h)
	return DiscordgoLevel(l.opts.DiscordGoLevel)
}

func (l *Logging) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

var discordGoLogLevels = map[int]slog.Level{
	discordgo.LogDebug:         slog.LevelDebug,
	discordgo.LogError:         slog.LevelError,
	discordgo.LogWarning:       slog.LevelWarn,
	discordgo.LogInformational: slog.LevelInfo,
}

// DiscordgoLevel traduce un nivel slog al LogLevel de discordgo.
func DiscordgoLevel(level slog.Level) int {
	switch {
	case level <= slog.LevelDebug:
		return discordgo.LogDebug
	case level <= slog.LevelInfo:
		return discordgo.LogInformational
	case level <= slog.LevelWarn:
		return discordgo.LogWarning
	default:
		return discordgo.LogError
	}
}

func DiscordgoLoggerFunc(ctx context.Context, handler slog.Handler) func(msgL, caller int, format string, args ...any) {
	log := slog.New(handler)
	return func(msgL, _ int, format string, args ...any) {
		level, ok := discordGoLogLevels[msgL]
		if !ok {
			level = slog.LevelInfo
		}
		log.LogAttrs(ctx, level, strings.ReplaceAll(fmt.Sprintf(format, args...), "\n", ""))
	}
}

// fanout manda cada record a todos los handlers habilitados.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
