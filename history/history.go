package history

type Role string

const (
	User      Role = "user"
	Assistant Role = "assistant"
)

// Label is the speaker prefix used when a turn is rendered into a prompt.
func (r Role) Label() string {
	if r == User {
		return "User"
	}
	return "Assistant"
}

type Turn struct {
	Role Role
	Text string
}

// History is a bounded, chronological list of turns. One exchange is a
// user turn followed by an assistant turn; at most maxTurns exchanges are
// kept and the oldest are evicted first. Not safe for concurrent use.
type History struct {
	maxTurns int
	turns    []Turn
}

func New(maxTurns int) *History {
	return &History{maxTurns: maxTurns}
}

func (h *History) RecordExchange(user, reply string) {
	h.turns = append(h.turns, Turn{Role: User, Text: user}, Turn{Role: Assistant, Text: reply})

	limit := 2 * h.maxTurns
	if limit <= 0 {
		h.turns = nil
		return
	}
	if len(h.turns) > limit {
		// copy so the backing array does not grow without bound
		h.turns = append([]Turn(nil), h.turns[len(h.turns)-limit:]...)
	}
}

// Turns returns a snapshot; callers may not mutate the history through it.
func (h *History) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int { return len(h.turns) }

func (h *History) Reset() { h.turns = nil }
