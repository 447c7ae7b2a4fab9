package download

import "sync"

// Policy is the conflict-resolution state for one download invocation.
// It starts Undetermined and transitions exactly once, on the first
// conflict, either to the remembered choice or to AlwaysAsk when the user
// declines to remember.
type Policy int

const (
	PolicyUndetermined Policy = iota
	PolicyAlwaysAsk
	PolicyAlwaysOverwrite
	PolicyAlwaysUniqueName
	PolicyAlwaysSkip
)

func (p Policy) String() string {
	switch p {
	case PolicyAlwaysAsk:
		return "always-ask"
	case PolicyAlwaysOverwrite:
		return "always-overwrite"
	case PolicyAlwaysUniqueName:
		return "always-unique-name"
	case PolicyAlwaysSkip:
		return "always-skip"
	default:
		return "undetermined"
	}
}

// Choice is the outcome of one conflict decision.
type Choice int

const (
	ChoiceOverwrite Choice = iota
	ChoiceSkip
	ChoiceUniqueName
)

// policyFor maps a remembered per-conflict choice to its policy.
func policyFor(c Choice) Policy {
	switch c {
	case ChoiceOverwrite:
		return PolicyAlwaysOverwrite
	case ChoiceUniqueName:
		return PolicyAlwaysUniqueName
	case ChoiceSkip:
		return PolicyAlwaysSkip
	default:
		return PolicyAlwaysAsk
	}
}

// PolicyStore is the shared mutable policy cell. Transfers on several
// goroutines consult it concurrently, so access is mutexed.
type PolicyStore struct {
	mu     sync.Mutex
	policy Policy
}

func NewPolicyStore() *PolicyStore {
	return &PolicyStore{}
}

// Reset prepares the store for a new invocation.
func (s *PolicyStore) Reset(initial Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = initial
}

// Get returns the current policy.
func (s *PolicyStore) Get() Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy
}

// Transition moves out of Undetermined. Calls after the first transition
// are ignored, so concurrent first conflicts settle on one policy.
func (s *PolicyStore) Transition(to Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.policy == PolicyUndetermined {
		s.policy = to
	}
}
