// Package command parses slash command text into one of the bridge's fixed actions.
package command

import (
	"fmt"
	"strings"
)

// Action is a privileged directory change. The set is closed: the only values are
// the constants below, and Parse never produces anything else.
type Action int

const (
	Suspend Action = iota + 1
	Unsuspend
	Offboard
)

const helpToken = "help"

var actionTokens = map[string]Action{
	"suspend":   Suspend,
	"unsuspend": Unsuspend,
	"offboard":  Offboard,
}

func (a Action) String() string {
	switch a {
	case Suspend:
		return "suspend"
	case Unsuspend:
		return "unsuspend"
	case Offboard:
		return "offboard"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// RequiresMembership reports whether the invoker must belong to the privileged
// group. Unsuspend is the least privileged action and is open to everyone.
func (a Action) RequiresMembership() bool {
	return a != Unsuspend
}

// Command is a parsed invocation: either a help request or an action with an
// optional target.
type Command struct {
	Help   bool
	Action Action
	Target string
}

// HasTarget reports whether a target identity token was supplied.
func (c Command) HasTarget() bool {
	return c.Target != ""
}

// InvalidTokenError is returned for a first token outside the vocabulary.
type InvalidTokenError struct {
	Token string
}

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("%q is not a valid argument", e.Token)
}

// Parse splits text on whitespace. The first token selects the action, the second
// (if any) is the target identity. Extra tokens are ignored.
func Parse(text string) (Command, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 || tokens[0] == helpToken {
		return Command{Help: true}, nil
	}

	action, ok := actionTokens[tokens[0]]
	if !ok {
		return Command{}, &InvalidTokenError{Token: tokens[0]}
	}

	cmd := Command{Action: action}
	if len(tokens) > 1 {
		cmd.Target = tokens[1]
	}
	return cmd, nil
}
