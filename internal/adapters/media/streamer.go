package media

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"github.com/lmittmann/tint"

	"github.com/jose-valero/gemini-discord-bot/internal/app/service"
	"github.com/jose-valero/gemini-discord-bot/internal/domain"
)

const (
	SampleRate = 48000
	Channels   = 2
	FrameSize  = 960 // 20ms a 48kHz
	pcmLen     = FrameSize * Channels
	maxOpus    = 4000
)

// FrameEncoder es lo mínimo que usamos de *opus.Encoder.
type FrameEncoder interface {
	Encode(pcm []int16, data []byte) (int, error)
}

type EncoderFactory func() (FrameEncoder, error)

// Streamer decodifica con ffmpeg a PCM s16le 48k estéreo, codifica a opus y
// lo empuja al canal de la conexión de voz.
type Streamer struct {
	ffmpeg     string
	newEncoder EncoderFactory
	log        *slog.Logger
}

func NewStreamer(ffmpegPath string, newEncoder EncoderFactory, log *slog.Logger) *Streamer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Streamer{ffmpeg: ffmpegPath, newEncoder: newEncoder, log: log}
}

// Stream bloquea hasta fin de track o ctx cancelado (skip/leave). En el segundo
// caso devuelve ctx.Err() para que la cola no lo trate como error de playback.
func (s *Streamer) Stream(ctx context.Context, conn service.VoiceConn, t domain.Track) error {
	enc, err := s.newEncoder()
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, s.ffmpeg,
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", t.StreamURL,
		"-vn",
		"-f", "s16le",
		"-ar", "48000",
		"-ac", "2",
		"-loglevel", "warning",
		"pipe:1",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &limitedWriter{w: &stderr, n: 4 << 10}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start: %w", err)
	}

	if err := conn.Speaking(true); err != nil {
		s.log.Warn("speaking(true)", tint.Err(err))
	}
	defer func() { _ = conn.Speaking(false) }()

	frames, pumpErr := pumpFrames(ctx, bufio.NewReaderSize(stdout, 16<<10), enc, conn.OpusSend())
	if pumpErr != nil {
		// ffmpeg puede quedar bloqueado escribiendo si dejamos de leer
		_ = cmd.Process.Kill()
	}
	waitErr := cmd.Wait()

	s.log.Debug("stream finished", "track", t.Title, "frames", frames)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if pumpErr != nil {
		return pumpErr
	}
	if waitErr != nil {
		return fmt.Errorf("ffmpeg: %w: %s", waitErr, lastLine(stderr.Bytes()))
	}
	return nil
}

// pumpFrames lee frames PCM completos, los codifica y los manda a out.
// Un frame final incompleto se descarta.
func pumpFrames(ctx context.Context, r io.Reader, enc FrameEncoder, out chan<- []byte) (int, error) {
	pcm := make([]int16, pcmLen)
	buf := make([]byte, maxOpus)
	sent := 0
	for {
		if err := binary.Read(r, binary.LittleEndian, pcm); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return sent, nil
			}
			if ctx.Err() != nil {
				return sent, ctx.Err()
			}
			return sent, fmt.Errorf("read pcm: %w", err)
		}

		n, err := enc.Encode(pcm, buf)
		if err != nil {
			return sent, fmt.Errorf("opus encode: %w", err)
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])

		select {
		case out <- frame:
			sent++
		case <-ctx.Done():
			return sent, ctx.Err()
		}
	}
}

type limitedWriter struct {
	w io.Writer
	n int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if l.n <= 0 {
		return len(p), nil
	}
	q := p
	if len(q) > l.n {
		q = q[:l.n]
	}
	n, err := l.w.Write(q)
	l.n -= n
	if err != nil {
		return n, err
	}
	return len(p), nil
}
