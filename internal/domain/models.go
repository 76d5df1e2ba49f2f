package domain

import "time"

// Track es lo que devuelve el resolver: la referencia tal cual la escribió el usuario
// y la URL directa que consume ffmpeg.
type Track struct {
	Ref       string
	Title     string
	StreamURL string
	Duration  time.Duration
}

// QueueEntry es un item de la cola de reproducción de un guild.
// El primero de la cola es el que está sonando.
type QueueEntry struct {
	GuildID       string
	Track         Track
	RequestedBy   string
	TextChannelID string
}

// Poll es la tarjeta ya armada: una reacción por opción, en el mismo orden.
type Poll struct {
	Question  string
	Options   []string
	Reactions []string
}
