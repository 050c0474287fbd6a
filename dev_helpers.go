// This file defines the helpers to debug a capture session.
// Such as tracing each state transition to see where a session gets stuck.

package regionshot

import (
	"fmt"

	"github.com/go-rod/regionshot/lib/utils"
)

// TraceMsg for logger
type TraceMsg struct {
	Session string
	State   State

	// Frame is zero outside the capture loop
	Frame int

	Err error
}

func (msg *TraceMsg) String() string {
	info := string(msg.State)
	if msg.Frame > 0 {
		info += fmt.Sprintf(" (%d)", msg.Frame)
	}
	if msg.Err != nil {
		info += " " + utils.MustToJSON(msg.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", msg.Session, info)
}
