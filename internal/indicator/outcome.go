package indicator

import "fmt"

// State is the resolved state of one indicator.
type State int

const (
	NotTriggered State = iota
	Triggered
	Undefined
)

func (s State) String() string {
	switch s {
	case Triggered:
		return "triggered"
	case Undefined:
		return "undefined"
	default:
		return "not_triggered"
	}
}

// Outcome is what one indicator evaluation produced. Reason is set for Undefined.
type Outcome struct {
	State  State
	Reason string
}

func triggeredIf(cond bool) Outcome {
	if cond {
		return Outcome{State: Triggered}
	}
	return Outcome{State: NotTriggered}
}

func undefined(format string, args ...interface{}) Outcome {
	return Outcome{State: Undefined, Reason: fmt.Sprintf(format, args...)}
}
