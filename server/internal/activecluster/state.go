package activecluster

import "github.com/yaroslav/stretchsim/models"

const (
	timerBaseline = "baselining"
	timerPreElect = "pre-elect"
)

// ArrayState is the synchronization state of one member array of a pod.
// Only the owning pod mutates it.
type ArrayState struct {
	member Member
	state  models.SyncState

	preElected bool
	elected    bool

	// Measured this tick.
	faConnected       bool
	mediatorConnected bool
	measured          bool

	// Measured last tick.
	lastFaConnected       bool
	lastMediatorConnected bool

	// lastKnownEpoch is the pod epoch this member last saw while synced.
	// Mediation requests carry it, so a member that missed an epoch bump
	// asks about the round it actually took part in.
	lastKnownEpoch uint64

	timers map[string]int
}

func newArrayState(member Member, state models.SyncState) *ArrayState {
	return &ArrayState{
		member: member,
		state:  state,
		timers: make(map[string]int),
	}
}

// Array returns the member array's name.
func (s *ArrayState) Array() string { return s.member.Name() }

// State returns the synchronization state.
func (s *ArrayState) State() models.SyncState { return s.state }

func (s *ArrayState) PreElected() bool       { return s.preElected }
func (s *ArrayState) Elected() bool          { return s.elected }
func (s *ArrayState) LastKnownEpoch() uint64 { return s.lastKnownEpoch }

// PeerConnected is the array-to-array reachability view.
func (s *ArrayState) PeerConnected() bool {
	if s.measured {
		return s.faConnected
	}
	return s.lastFaConnected
}

// MediatorConnected is the array-to-mediator reachability view.
func (s *ArrayState) MediatorConnected() bool {
	if s.measured {
		return s.mediatorConnected
	}
	return s.lastMediatorConnected
}

// rotate starts a new tick: measured flags become last tick's and are cleared.
func (s *ArrayState) rotate() {
	s.lastFaConnected = s.faConnected
	s.lastMediatorConnected = s.mediatorConnected
	s.faConnected = false
	s.mediatorConnected = false
	s.measured = false
}

// clearConnectivity forgets every measurement, current and previous.
func (s *ArrayState) clearConnectivity() {
	s.rotate()
	s.lastFaConnected = false
	s.lastMediatorConnected = false
}

// advance increments the named timer and reports whether it reached
// threshold. A timer that fires starts over.
func (s *ArrayState) advance(timer string, threshold int) bool {
	s.timers[timer]++
	if s.timers[timer] >= threshold {
		delete(s.timers, timer)
		return true
	}
	return false
}

func (s *ArrayState) resetTimer(timer string) {
	delete(s.timers, timer)
}

func (s *ArrayState) status() models.PodArrayStatus {
	return models.PodArrayStatus{
		Array:             s.member.Name(),
		State:             s.state,
		Writable:          s.state == models.SyncSynced,
		PeerConnected:     s.PeerConnected(),
		MediatorConnected: s.MediatorConnected(),
		PreElected:        s.preElected,
		Elected:           s.elected,
		LastKnownEpoch:    s.lastKnownEpoch,
	}
}
