package monitor

import "sync"

// Action is what the orchestrator should do with a signal.
type Action int

const (
	ActionNew Action = iota
	ActionConfirmation
)

func (a Action) String() string {
	if a == ActionNew {
		return "new"
	}
	return "confirmation"
}

// Decision carries the action together with the counts it was based on.
// Previous is only meaningful for ActionConfirmation.
type Decision struct {
	Action   Action
	Count    int
	Previous int
}

// SignalMemory remembers the triggered count of the last new signal per symbol.
// It lives for the whole process and is never persisted, so a restart clears it.
type SignalMemory struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewSignalMemory() *SignalMemory {
	return &SignalMemory{counts: make(map[string]int)}
}

// Decide classifies a signal as an escalation or a reconfirmation and records
// escalations. Every call yields a message, including signals with nothing
// triggered, which qualify when min indicators is 0.
func (m *SignalMemory) Decide(symbol string, count int) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, seen := m.counts[symbol]
	if !seen || count > prev {
		m.counts[symbol] = count
		return Decision{Action: ActionNew, Count: count, Previous: prev}
	}
	return Decision{Action: ActionConfirmation, Count: count, Previous: prev}
}

// Get returns the remembered count for symbol.
func (m *SignalMemory) Get(symbol string) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count, ok := m.counts[symbol]
	return count, ok
}

func (m *SignalMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.counts)
}
