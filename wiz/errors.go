package wiz

import "errors"

var (
	errNotGetPilotReply = errors.New("wiz: not a getPilot reply")
)
