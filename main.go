package main

import (
	"channel-rotator/bot"
	"channel-rotator/command"
	"channel-rotator/handlers"
)

func main() {
	bot.Run(handlers.Register, command.GetCommandDefinitions())
}
