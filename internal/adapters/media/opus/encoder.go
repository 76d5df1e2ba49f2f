// Package opus envuelve libopus (cgo) para que el resto de media no dependa de cgo.
package opus

import (
	"fmt"

	"gopkg.in/hraban/opus.v2"

	"github.com/jose-valero/gemini-discord-bot/internal/adapters/media"
)

// NewEncoder crea un encoder 48kHz estéreo listo para Discord.
// bitrate <= 0 deja que libopus decida.
func NewEncoder(bitrate int) media.EncoderFactory {
	return func() (media.FrameEncoder, error) {
		enc, err := opus.NewEncoder(media.SampleRate, media.Channels, opus.AppAudio)
		if err != nil {
			return nil, fmt.Errorf("opus encoder: %w", err)
		}
		if bitrate > 0 {
			if err := enc.SetBitrate(bitrate); err != nil {
				return nil, fmt.Errorf("opus bitrate %d: %w", bitrate, err)
			}
		} else if err := enc.SetBitrateToAuto(); err != nil {
			return nil, fmt.Errorf("opus bitrate auto: %w", err)
		}
		if err := enc.SetMaxBandwidth(opus.Fullband); err != nil {
			return nil, fmt.Errorf("opus bandwidth: %w", err)
		}
		return enc, nil
	}
}
