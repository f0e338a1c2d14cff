package escalation

// Action is what the caller should do with the subject after a ledger change.
type Action string

const (
	ActionNone    Action = "none"
	ActionExclude Action = "exclude"
)

// DefaultThreshold is the active-warning count at which exclusion kicks in.
const DefaultThreshold = 3

// Policy decides whether an active-warning count warrants exclusion. It is
// deliberately stateless: it never touches the ledger and never performs the
// ban itself. Dropping back below the threshold via revocation does NOT
// produce an un-exclusion action — only a human reverses an exclusion.
type Policy struct {
	threshold int
}

func NewPolicy(threshold int) Policy {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Policy{threshold: threshold}
}

func (p Policy) Decide(activeCount int) Action {
	if activeCount >= p.threshold {
		return ActionExclude
	}
	return ActionNone
}

func (p Policy) Threshold() int {
	return p.threshold
}
