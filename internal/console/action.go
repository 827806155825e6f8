package console

import "strings"

// Action is a local operator action typed as a slash command. Anything
// else typed at the prompt is a remote command.
type Action int

const (
	ActionCommand Action = iota
	ActionConnect
	ActionDisconnect
	ActionClear
	ActionExport
	ActionAutoScroll
	ActionStatus
	ActionHelp
	ActionQuit
	ActionUnknown
)

var actionNames = map[string]Action{
	"connect":    ActionConnect,
	"reconnect":  ActionConnect,
	"disconnect": ActionDisconnect,
	"clear":      ActionClear,
	"export":     ActionExport,
	"autoscroll": ActionAutoScroll,
	"status":     ActionStatus,
	"help":       ActionHelp,
	"quit":       ActionQuit,
	"exit":       ActionQuit,
}

// ActionUsage lists the slash commands
const ActionUsage = "/connect [target]  /disconnect  /clear  /export [path]  /autoscroll  /status  /quit  (// sends a literal /)"

// ParseAction splits operator input into an action and its argument. For
// ActionCommand the argument is the text to send; a leading "//" sends a
// literal "/".
func ParseAction(raw string) (Action, string) {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "/") {
		return ActionCommand, text
	}
	if strings.HasPrefix(text, "//") {
		return ActionCommand, text[1:]
	}
	name, arg, _ := strings.Cut(text[1:], " ")
	if a, ok := actionNames[strings.ToLower(name)]; ok {
		return a, strings.TrimSpace(arg)
	}
	return ActionUnknown, name
}
