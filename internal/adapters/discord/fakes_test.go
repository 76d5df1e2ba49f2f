package discord

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/gemini-discord-bot/internal/app/service"
	"github.com/jose-valero/gemini-discord-bot/internal/domain"
)

type sentMessage struct {
	ChannelID string
	Content   string
}

type reaction struct {
	ChannelID string
	MessageID string
	Emoji     string
}

// fakeSession graba todo lo que el router le manda a Discord.
type fakeSession struct {
	mu        sync.Mutex
	sent      []sentMessage
	embeds    []*discordgo.MessageEmbed
	reactions []reaction
	typing    int
	messages  map[string]*discordgo.Message // messageID -> message
	guilds    map[string]*discordgo.Guild
	sendErr   error
}

func newFakeSession() *fakeSession {
	return &fakeSession{messages: map[string]*discordgo.Message{}, guilds: map[string]*discordgo.Guild{}}
}

func (f *fakeSession) AddHandler(interface{}) func() { return func() {} }

func (f *fakeSession) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, sentMessage{channelID, content})
	return &discordgo.Message{ID: "m-sent", ChannelID: channelID, Content: content}, nil
}

func (f *fakeSession) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embeds = append(f.embeds, embed)
	return &discordgo.Message{ID: "poll-1", ChannelID: channelID, Embeds: []*discordgo.MessageEmbed{embed}}, nil
}

func (f *fakeSession) ChannelMessage(_, messageID string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.messages[messageID]; ok {
		return m, nil
	}
	return nil, &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMessage, Message: "Unknown Message"},
	}
}

func (f *fakeSession) MessageReactionAdd(channelID, messageID, emojiID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, reaction{channelID, messageID, emojiID})
	return nil
}

func (f *fakeSession) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: "dm-" + recipientID, Type: discordgo.ChannelTypeDM}, nil
}

func (f *fakeSession) Guild(guildID string, _ ...discordgo.RequestOption) (*discordgo.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.guilds[guildID]; ok {
		return g, nil
	}
	return nil, &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
}

func (f *fakeSession) ChannelTyping(string, ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing++
	return nil
}

func (f *fakeSession) sentMessages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func (f *fakeSession) contents() []string {
	var out []string
	for _, m := range f.sentMessages() {
		out = append(out, m.Content)
	}
	return out
}

type fakeGenerator struct {
	mu        sync.Mutex
	prompts   []string
	deadlines []time.Time
	reply     string
	err       error
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	d, _ := ctx.Deadline()
	g.deadlines = append(g.deadlines, d)
	return g.reply, g.err
}

func (g *fakeGenerator) lastDeadline() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.deadlines) == 0 {
		return time.Time{}
	}
	return g.deadlines[len(g.deadlines)-1]
}

func (g *fakeGenerator) seen() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// --- voz ---

type fakeConnector struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeConnector) Connect(_ context.Context, _, channelID string) (service.VoiceConn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return &fakeConn{channelID: channelID}, nil
}

func (f *fakeConnector) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeConn struct{ channelID string }

func (c *fakeConn) ChannelID() string       { return c.channelID }
func (c *fakeConn) Speaking(bool) error     { return nil }
func (c *fakeConn) OpusSend() chan<- []byte { return make(chan []byte, 1) }
func (c *fakeConn) Disconnect() error       { return nil }

type fakeResolver struct{}

func (fakeResolver) Resolve(_ context.Context, ref string) (domain.Track, error) {
	return domain.Track{Ref: ref, Title: ref, StreamURL: ref}, nil
}

// blockingStreamer suena hasta que lo cancelen.
type blockingStreamer struct{}

func (blockingStreamer) Stream(ctx context.Context, _ service.VoiceConn, _ domain.Track) error {
	<-ctx.Done()
	return ctx.Err()
}
