package engine

import "strings"

// Command is one decoded control-channel message.
type Command struct {
	Action string `json:"action"`
	Value  string `json:"value,omitempty"`
	Secret string `json:"secret,omitempty"`
}

// action is the closed command vocabulary, resolved once at ingestion.
type action int

const (
	actionUnknown action = iota
	actionSetColor
	actionSetBrightness
	actionSetMode
	actionGetState
	actionPrivatePulse
)

func parseAction(s string) action {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "setcolor":
		return actionSetColor
	case "setbrightness":
		return actionSetBrightness
	case "setmode":
		return actionSetMode
	case "getstate":
		return actionGetState
	case "privatepulse":
		return actionPrivatePulse
	default:
		return actionUnknown
	}
}
