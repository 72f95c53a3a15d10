package bot

import (
	"strings"

	"whitelist-bot/internal/service/registration"
	"whitelist-bot/internal/service/telegram"
)

// RegisterShortcut is the plain-text form of /whitelist.
const RegisterShortcut = "!whitelist"

var commands = map[string]registration.EventKind{
	"start":      registration.EventStart,
	"whitelist":  registration.EventRegister,
	"editwallet": registration.EventEdit,
	"mywallet":   registration.EventQuery,
	"cancel":     registration.EventCancel,
	"export":     registration.EventExport,
}

// Commands is the menu published with setMyCommands.
var Commands = []telegram.BotCommand{
	{Command: "start", Description: "How this bot works"},
	{Command: "whitelist", Description: "Add your Solana wallet"},
	{Command: "mywallet", Description: "Show your registered wallet"},
	{Command: "editwallet", Description: "Change your registered wallet"},
	{Command: "cancel", Description: "Cancel the current step"},
}

// ParseUpdate turns a private text message into an event. It reports false
// for anything the bot does not act on: non-message updates, group chats,
// messages without a sender, and unknown or foreign commands.
func ParseUpdate(u telegram.Update, botUsername string) (registration.Event, bool) {
	msg := u.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return registration.Event{}, false
	}
	if msg.Chat.Type != telegram.ChatTypePrivate {
		return registration.Event{}, false
	}

	ev := registration.Event{
		Kind:        registration.EventText,
		UserID:      msg.From.ID,
		ChatID:      msg.Chat.ID,
		Username:    msg.From.Username,
		DisplayName: msg.From.DisplayName(),
		Text:        msg.Text,
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return registration.Event{}, false
	}
	if strings.EqualFold(text, RegisterShortcut) {
		ev.Kind = registration.EventRegister
		return ev, true
	}
	if !strings.HasPrefix(text, "/") {
		return ev, true
	}

	name := strings.Fields(text)[0][1:]
	name, target, _ := strings.Cut(name, "@")
	if target != "" && !strings.EqualFold(target, botUsername) {
		return registration.Event{}, false
	}
	kind, ok := commands[strings.ToLower(name)]
	if !ok {
		return registration.Event{}, false
	}
	ev.Kind = kind
	return ev, true
}
