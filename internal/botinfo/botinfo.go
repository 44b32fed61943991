package botinfo

// Metadata captures static identifiers for the bot. Centralising the values
// makes it easy to clone this repository for new deployments.
type Metadata struct {
	Name        string
	BinaryName  string
	Slug        string
	Description string
}

// Info describes the current bot.
var Info = Metadata{
	Name:        "Talkscribe",
	BinaryName:  "talkscribe-bot",
	Slug:        "talkscribe",
	Description: "Telegram bot that turns voice messages into text with local Whisper.",
}
