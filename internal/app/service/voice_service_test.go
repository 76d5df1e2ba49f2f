package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testGuild = "g1"
	testText  = "text1"
	testUser  = "u1"
)

type voiceHarness struct {
	svc       *VoiceService
	connector *fakeConnector
	streamer  *fakeStreamer
	notifier  *fakeNotifier
}

func newVoiceHarness(t *testing.T, presence fakePresence) *voiceHarness {
	t.Helper()
	h := &voiceHarness{
		connector: &fakeConnector{},
		streamer:  newFakeStreamer(),
		notifier:  &fakeNotifier{},
	}
	h.svc = NewVoiceService(h.connector, presence, fakeResolver{}, h.streamer, h.notifier, nil)
	t.Cleanup(func() { _ = h.svc.Close(context.Background()) })
	return h
}

func (h *voiceHarness) queueTitles(t *testing.T) []string {
	t.Helper()
	snap, err := h.svc.Snapshot(context.Background(), testGuild)
	require.NoError(t, err)
	out := make([]string, 0, len(snap.Queue))
	for _, e := range snap.Queue {
		out = append(out, e.Track.Title)
	}
	return out
}

func TestVoiceService_JoinWithoutPresence(t *testing.T) {
	h := newVoiceHarness(t, fakePresence{})
	ctx := context.Background()

	msg, err := h.svc.Join(ctx, testGuild, testUser, testText)
	require.NoError(t, err)
	assert.Equal(t, "You are not in a voice channel.", msg)
	assert.Equal(t, 0, h.connector.callCount())

	msg, err = h.svc.Play(ctx, testGuild, testUser, testText, "A")
	require.NoError(t, err)
	assert.Equal(t, "You are not in a voice channel.", msg)
	assert.Equal(t, 0, h.connector.callCount())
}

func TestVoiceService_JoinTwice(t *testing.T) {
	h := newVoiceHarness(t, fakePresence{testUser: "vc1"})
	ctx := context.Background()

	msg, err := h.svc.Join(ctx, testGuild, testUser, testText)
	require.NoError(t, err)
	assert.Equal(t, "Joined <#vc1>.", msg)

	msg, err = h.svc.Join(ctx, testGuild, testUser, testText)
	require.NoError(t, err)
	assert.Equal(t, "I am already in a voice channel.", msg)
	assert.Equal(t, 1, h.connector.callCount())
	assert.Equal(t, 1, h.svc.ConnectedGuilds())
}

func TestVoiceService_JoinConnectError(t *testing.T) {
	h := newVoiceHarness(t, fakePresence{testUser: "vc1"})
	h.connector.err = errors.New("timeout waiting for voice")

	_, err := h.svc.Join(context.Background(), testGuild, testUser, testText)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout waiting for voice")
	assert.Equal(t, 0, h.svc.ConnectedGuilds())
}

func TestVoiceService_LeaveIsIdempotent(t *testing.T) {
	h := newVoiceHarness(t, fakePresence{testUser: "vc1"})
	ctx := context.Background()

	msg, err := h.svc.Leave(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, "I am not in a voice channel.", msg)

	_, err = h.svc.Join(ctx, testGuild, testUser, testText)
	require.NoError(t, err)

	msg, err = h.svc.Leave(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, "Left the voice channel.", msg)

	msg, err = h.svc.Leave(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, "I am not in a voice channel.", msg)

	require.Len(t, h.connector.conns, 1)
	assert.Equal(t, 1, h.connector.conns[0].disconnects())
	assert.Equal(t, 0, h.svc.ConnectedGuilds())
}

func TestVoiceService_PlayImplicitJoinAndQueue(t *testing.T) {
	h := newVoiceHarness(t, fakePresence{testUser: "vc1"})
	ctx := context.Background()

	msg, err := h.svc.Play(ctx, testGuild, testUser, testText, "A")
	require.NoError(t, err)
	assert.Equal(t, "Now playing: **A**", msg)
	assert.Equal(t, 1, h.connector.callCount())

	msg, err = h.svc.Play(ctx, testGuild, testUser, testText, "B")
	require.NoError(t, err)
	assert.Equal(t, "Queued: **B** (position 1)", msg)
	assert.Equal(t, 1, h.connector.callCount())

	msg, err = h.svc.Queue(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, "Current Queue:\n1. A (now playing)\n2. B", msg)
}

func TestVoiceService_NaturalCompletionAdvances(t *testing.T) {
	h := newVoiceHarness(t, fakePresence{testUser: "vc1"})
	ctx := context.Background()

	_, err := h.svc.Play(ctx, testGuild, testUser, testText, "A")
	require.NoError(t, err)
	_, err = h.svc.Play(ctx, testGuild, testUser, testText, "B")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, h.queueTitles(t))

	h.streamer.finish("A", nil)

	assert.Eventually(t, func() bool {
		return len(h.streamer.startedTracks()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"A", "B"}, h.streamer.startedTracks())
	assert.Equal(t, []string{"B"}, h.queueTitles(t))
	assert.Contains(t, h.notifier.messages(), "Now playing: **B**")

	// último track: la cola queda vacía y seguimos conectados
	h.streamer.finish("B", nil)
	assert.Eventually(t, func() bool {
		return len(h.queueTitles(t)) == 0
	}, time.Second, 5*time.Millisecond)

	snap, err := h.svc.Snapshot(ctx, testGuild)
	require.NoError(t, err)
	assert.True(t, snap.Connected)
	assert.False(t, snap.Playing)
}

func TestVoiceService_SkipAdvancesExactlyOnce(t *testing.T) {
	h := newVoiceHarness(t, fakePresence{testUser: "vc1"})
	ctx := context.Background()

	for _, ref := range []string{"A", "B", "C"} {
		_, err := h.svc.Play(ctx, testGuild, testUser, testText, ref)
		require.NoError(t, err)
	}

	msg, err := h.svc.Skip(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, "Skipped the current song.", msg)

	assert.Eventually(t, func() bool {
		return len(h.streamer.startedTracks()) == 2
	}, time.Second, 5*time.Millisecond)

	// damos margen a un segundo avance espurio
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"A", "B"}, h.streamer.startedTracks())
	assert.Equal(t, []string{"B", "C"}, h.queueTitles(t))
}

func TestVoiceService_SkipWhenIdle(t *testing.T) {
	h := newVoiceHarness(t, fakePresence{testUser: "vc1"})

	msg, err := h.svc.Skip(context.Background(), testGuild)
	require.NoError(t, err)
	assert.Equal(t, "Nothing to skip.", msg)

	msg, err = h.svc.Queue(context.Background(), testGuild)
	require.NoError(t, err)
	assert.Equal(t, "Queue is empty.", msg)
}

func TestVoiceService_PlaybackErrorStillAdvances(t *testing.T) {
	h := newVoiceHarness(t, fakePresence{testUser: "vc1"})
	ctx := context.Background()

	_, _ = h.svc.Play(ctx, testGuild, testUser, testText, "A")
	_, _ = h.svc.Play(ctx, testGuild, testUser, testText, "B")

	h.streamer.finish("A", errors.New("ffmpeg exited"))

	assert.Eventually(t, func() bool {
		return len(h.streamer.startedTracks()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"B"}, h.queueTitles(t))
	assert.Contains(t, h.notifier.messages(), "Player error: ffmpeg exited")
}

func TestVoiceService_LeaveWhilePlayingDropsQueue(t *testing.T) {
	h := newVoiceHarness(t, fakePresence{testUser: "vc1"})
	ctx := context.Background()

	_, _ = h.svc.Play(ctx, testGuild, testUser, testText, "A")
	_, _ = h.svc.Play(ctx, testGuild, testUser, testText, "B")

	msg, err := h.svc.Leave(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, "Left the voice channel.", msg)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"A"}, h.streamer.startedTracks())
	assert.Empty(t, h.queueTitles(t))
}

func TestVoiceService_ForgetResetsSession(t *testing.T) {
	h := newVoiceHarness(t, fakePresence{testUser: "vc1"})
	ctx := context.Background()

	_, _ = h.svc.Play(ctx, testGuild, testUser, testText, "A")
	h.svc.Forget(testGuild)

	assert.Eventually(t, func() bool {
		snap, err := h.svc.Snapshot(ctx, testGuild)
		return err == nil && !snap.Connected
	}, time.Second, 5*time.Millisecond)

	msg, err := h.svc.Leave(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, "I am not in a voice channel.", msg)
}

func TestVoiceService_ClosedRejects(t *testing.T) {
	h := newVoiceHarness(t, fakePresence{testUser: "vc1"})
	require.NoError(t, h.svc.Close(context.Background()))

	_, err := h.svc.Join(context.Background(), testGuild, testUser, testText)
	assert.ErrorIs(t, err, ErrVoiceClosed)
}

func TestVoiceService_StaleForgetKeepsNewConnection(t *testing.T) {
	h := newVoiceHarness(t, fakePresence{testUser: "vc1"})
	ctx := context.Background()

	_, err := h.svc.Join(ctx, testGuild, testUser, testText)
	require.NoError(t, err)
	_, err = h.svc.Leave(ctx, testGuild)
	require.NoError(t, err)

	gate := h.connector.hold()
	type result struct {
		msg string
		err error
	}
	joined := make(chan result, 1)
	go func() {
		msg, err := h.svc.Join(ctx, testGuild, testUser, testText)
		joined <- result{msg, err}
	}()
	require.Eventually(t, func() bool { return h.connector.callCount() == 2 }, time.Second, 5*time.Millisecond)

	// llega el eco del leave mientras el join nuevo sigue conectando
	h.svc.Forget(testGuild)
	close(gate)

	res := <-joined
	require.NoError(t, res.err)
	assert.Equal(t, "Joined <#vc1>.", res.msg)

	// el Forget ya quedó encolado detrás del join; un Snapshot corre después
	snap, err := h.svc.Snapshot(ctx, testGuild)
	require.NoError(t, err)
	assert.True(t, snap.Connected)
	assert.Equal(t, 0, h.connector.lastConn().disconnects())
	assert.Equal(t, 1, h.svc.ConnectedGuilds())
}

func TestVoiceService_IdleCommandsDoNotStartLoop(t *testing.T) {
	h := newVoiceHarness(t, fakePresence{})
	ctx := context.Background()

	msg, err := h.svc.Queue(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, "Queue is empty.", msg)

	msg, err = h.svc.Skip(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, "Nothing to skip.", msg)

	msg, err = h.svc.Leave(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, "I am not in a voice channel.", msg)

	msg, err = h.svc.Play(ctx, testGuild, testUser, testText, "A")
	require.NoError(t, err)
	assert.Equal(t, "You are not in a voice channel.", msg)

	snap, err := h.svc.Snapshot(ctx, testGuild)
	require.NoError(t, err)
	assert.False(t, snap.Connected)

	h.svc.mu.Lock()
	loops := len(h.svc.guilds)
	h.svc.mu.Unlock()
	assert.Zero(t, loops)
}

func TestVoiceService_PlayEmptyRefIsUsage(t *testing.T) {
	h := newVoiceHarness(t, fakePresence{testUser: "vc1"})

	_, err := h.svc.Play(context.Background(), testGuild, testUser, testText, "  ")
	assert.ErrorIs(t, err, ErrUsage)
	assert.Equal(t, 0, h.connector.callCount())
}
