package fetch

// AttemptState is the retry state of a single fetch.
type AttemptState int

const (
	// PlainAttempt uses the plain transport.
	PlainAttempt AttemptState = iota
	// EscalatedAttempt uses the anti-blocking transport.
	EscalatedAttempt
	// Exhausted means no further attempts will be made.
	Exhausted
)

func (s AttemptState) String() string {
	switch s {
	case PlainAttempt:
		return "plain"
	case EscalatedAttempt:
		return "escalated"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// attemptMachine drives retries for one URL. Protected hosts start
// escalated. Block pages, 403/429/503 and failed challenges move to
// EscalatedAttempt; timeouts and connection errors retry in place; other
// HTTP errors and the attempt cap end in Exhausted.
type attemptMachine struct {
	state    AttemptState
	attempts int
	max      int
}

func newAttemptMachine(maxAttempts int, protected bool) *attemptMachine {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	m := &attemptMachine{state: PlainAttempt, max: maxAttempts}
	if protected {
		m.state = EscalatedAttempt
	}
	return m
}

// advance records a failed attempt and returns the next state.
func (m *attemptMachine) advance(o outcome) AttemptState {
	m.attempts++

	next := m.state
	switch o.kind {
	case outcomeTerminal:
		next = Exhausted
	case outcomeBlocked, outcomeEscalate, outcomeChallenge:
		next = EscalatedAttempt
	}
	if m.attempts >= m.max {
		next = Exhausted
	}
	m.state = next
	return next
}
