package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Session es lo que usamos de *discordgo.Session (los tests usan un fake).
type Session interface {
	AddHandler(handler interface{}) func()
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
}

// Ctx es lo que recibe cada comando de prefijo.
type Ctx struct {
	Log       *slog.Logger
	Msg       *discordgo.MessageCreate
	GuildID   string
	ChannelID string
	UserID    string
	// Args ya tokenizados; Rest es el texto crudo después del nombre del comando
	Args []string
	Rest string
}

type Command struct {
	Name        string
	Usage       string
	Description string
	// sólo dentro de un servidor (voz)
	GuildOnly bool
}
