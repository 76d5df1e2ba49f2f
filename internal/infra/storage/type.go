package storage

import "time"

type Reminder struct {
	ID        int64
	OwnerID   string
	ChannelID string
	GuildID   string
	At        time.Time
	Message   string
	CreatedAt time.Time
}
