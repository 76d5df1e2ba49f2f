package service

import (
	"context"
	"errors"
	"time"

	"github.com/jose-valero/gemini-discord-bot/internal/domain"
	"github.com/jose-valero/gemini-discord-bot/internal/infra/storage"
)

// ErrMessageNotFound lo devuelve MessageSource cuando el mensaje no existe en el canal.
var ErrMessageNotFound = errors.New("message not found")

// ErrUsage: los argumentos no alcanzan para el comando. El router responde
// con el uso del comando armado con el prefijo configurado.
var ErrUsage = errors.New("usage")

// Lo implementan internal/adapters/gemini.Client y internal/adapters/openai.Client
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Lo implementa el adapter de discord (ChannelMessage)
type MessageSource interface {
	MessageContent(ctx context.Context, channelID, messageID string) (string, error)
}

// Lo implementa el adapter de discord (UserChannelCreate + ChannelMessageSend)
type DirectMessenger interface {
	SendDM(ctx context.Context, userID, content string) error
}

// Lo implementa internal/infra/storage.ReminderRepo
type ReminderRepo interface {
	Add(ctx context.Context, r storage.Reminder) (storage.Reminder, error)
	ListByOwner(ctx context.Context, ownerID string) ([]storage.Reminder, error)
	TakeDue(ctx context.Context, now time.Time) ([]storage.Reminder, error)
	Delete(ctx context.Context, ownerID string, id int64) (bool, error)
}

// --- Voz ---

// VoiceConn es la conexión de voz ya establecida en un guild.
type VoiceConn interface {
	ChannelID() string
	Speaking(on bool) error
	OpusSend() chan<- []byte
	Disconnect() error
}

// Lo implementa el adapter de discord (ChannelVoiceJoin)
type VoiceConnector interface {
	Connect(ctx context.Context, guildID, channelID string) (VoiceConn, error)
}

// Lo implementa el adapter de discord leyendo State.VoiceState
type VoicePresence interface {
	UserVoiceChannel(guildID, userID string) (string, bool)
}

// Lo implementa internal/adapters/media (yt-dlp)
type TrackResolver interface {
	Resolve(ctx context.Context, ref string) (domain.Track, error)
}

// Lo implementa internal/adapters/media (ffmpeg + opus). Bloquea hasta que
// termina el track o se cancela ctx.
type TrackStreamer interface {
	Stream(ctx context.Context, conn VoiceConn, track domain.Track) error
}

// Notifier manda avisos asíncronos a un canal de texto (ej: "Now playing").
type Notifier interface {
	Notify(channelID, content string)
}
