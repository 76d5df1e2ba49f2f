package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/gemini-discord-bot/internal/app/service"
)

// Presence implementa service.VoicePresence leyendo los voice states del gateway.
type Presence struct {
	state *discordgo.State
}

func NewPresence(state *discordgo.State) *Presence { return &Presence{state: state} }

func (p *Presence) UserVoiceChannel(guildID, userID string) (string, bool) {
	vs, err := p.state.VoiceState(guildID, userID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		return "", false
	}
	return vs.ChannelID, true
}

type voiceJoiner interface {
	ChannelVoiceJoin(gID, cID string, mute, deaf bool) (*discordgo.VoiceConnection, error)
}

// Connector implementa service.VoiceConnector sobre ChannelVoiceJoin.
type Connector struct {
	s voiceJoiner
}

func NewConnector(s voiceJoiner) *Connector { return &Connector{s: s} }

// Connect respeta ctx aunque ChannelVoiceJoin no lo haga: si ctx vence primero,
// la conexión que llegue tarde se desconecta sola.
func (c *Connector) Connect(ctx context.Context, guildID, channelID string) (service.VoiceConn, error) {
	type result struct {
		vc  *discordgo.VoiceConnection
		err error
	}
	ch := make(chan result, 1)
	go func() {
		vc, err := c.s.ChannelVoiceJoin(guildID, channelID, false, true)
		ch <- result{vc, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			if r.vc != nil {
				_ = r.vc.Disconnect()
			}
			return nil, r.err
		}
		return &voiceConn{vc: r.vc}, nil
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.vc != nil {
				_ = r.vc.Disconnect()
			}
		}()
		return nil, ctx.Err()
	}
}

type voiceConn struct {
	vc *discordgo.VoiceConnection
}

func (c *voiceConn) ChannelID() string {
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.ChannelID
}

func (c *voiceConn) Speaking(on bool) error  { return c.vc.Speaking(on) }
func (c *voiceConn) OpusSend() chan<- []byte { return c.vc.OpusSend }
func (c *voiceConn) Disconnect() error       { return c.vc.Disconnect() }

// onVoiceStateUpdate: si el bot quedó sin canal (kick, canal borrado), la sesión
// de voz del guild vuelve a Idle.
func (r *Router) onVoiceStateUpdate(_ *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	if vs == nil || vs.VoiceState == nil || r.voice == nil {
		return
	}
	if vs.UserID != r.botID() || vs.ChannelID != "" {
		return
	}
	r.voice.Forget(vs.GuildID)
}
