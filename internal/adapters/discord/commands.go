package discord

var Commands = []Command{
	{Name: "ping", Description: "Check that the bot is alive"},
	{Name: "hello", Description: "Say hello"},
	{Name: "help", Description: "List the available commands"},
	{Name: "remind", Usage: "<YYYY-MM-DD HH:MM> <message>", Description: "DM you a reminder at the given time"},
	{Name: "reminders", Description: "List your pending reminders"},
	{Name: "unremind", Usage: "<id>", Description: "Cancel one of your reminders"},
	{Name: "poll", Usage: "\"<question>\" <option> <option> ...", Description: "Start a reaction poll (2 to 10 options)"},
	{Name: "summarize", Usage: "<message_id>", Description: "Summarize a message from this channel"},
	{Name: "join", Description: "Join your voice channel", GuildOnly: true},
	{Name: "leave", Description: "Leave the voice channel", GuildOnly: true},
	{Name: "play", Usage: "<url or search>", Description: "Play a track or add it to the queue", GuildOnly: true},
	{Name: "skip", Description: "Skip the current track", GuildOnly: true},
	{Name: "queue", Description: "Show the playback queue", GuildOnly: true},
}

func lookupCommand(name string) (Command, bool) {
	for _, c := range Commands {
		if c.Name == name {
			return c, true
		}
	}
	return Command{}, false
}
