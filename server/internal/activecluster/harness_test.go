package activecluster

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yaroslav/stretchsim/models"
)

type fakeArray struct {
	name   string
	online bool
	mapped map[string]bool
}

func newFakeArray(name string) *fakeArray {
	return &fakeArray{name: name, online: true, mapped: make(map[string]bool)}
}

func (a *fakeArray) Name() string   { return a.name }
func (a *fakeArray) IsOnline() bool { return a.online }
func (a *fakeArray) ControllerNames() []string {
	return []string{a.name + "-ct0", a.name + "-ct1"}
}
func (a *fakeArray) MapsVolume(v string) bool { return a.mapped[v] }

// harness stands in for the network: heartbeats are acked synchronously
// when the WAN is up and the peer array is online; mediator traffic is
// delivered when the sender can reach the mediator.
type harness struct {
	t          *testing.T
	pod        *Pod
	arrays     map[string]*fakeArray
	wanUp      bool
	roundTrip  float64
	mediatorUp map[string]bool
	requests   []models.MediationRequest
}

type harnessSender struct {
	h     *harness
	array string
}

func (s harnessSender) SendReplication(peers []string, tag models.MessageTag, payload any) {
	require.Len(s.h.t, peers, 2)
	if tag != models.TagHeartbeat || !s.h.wanUp {
		return
	}
	for name, a := range s.h.arrays {
		if name != s.array && a.online {
			s.h.pod.OnHeartbeatAck(s.array, s.h.roundTrip)
		}
	}
}

func (s harnessSender) SendManagement(dst, dstPort string, tag models.MessageTag, payload any) {
	require.Equal(s.h.t, "mediator", dst)
	if !s.h.mediatorUp[s.array] {
		return
	}
	switch tag {
	case models.TagMediatorHeartbeat:
		s.h.pod.OnMediatorHeartbeatAck(s.array)
	case models.TagMediationRequest:
		s.h.requests = append(s.h.requests, payload.(models.MediationRequest))
	}
}

// newHarness builds a pod stretched from array a to array b.
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:          t,
		pod:        New("pod1", "mediator", "eth0", DefaultConfig(), rand.New(rand.NewSource(7)), nil),
		arrays:     map[string]*fakeArray{"a": newFakeArray("a"), "b": newFakeArray("b")},
		wanUp:      true,
		roundTrip:  3,
		mediatorUp: map[string]bool{"a": true, "b": true},
	}
	require.NoError(t, h.pod.AddArray(h.arrays["a"]))
	require.NoError(t, h.pod.AddArray(h.arrays["b"]))
	return h
}

// tick runs one pre_step and steps every online member in join order.
func (h *harness) tick() {
	h.pod.PreStep()
	for _, name := range h.pod.Members() {
		if h.arrays[name].online {
			h.pod.Step(name, harnessSender{h: h, array: name})
		}
	}
}

func (h *harness) ticks(n int) {
	for i := 0; i < n; i++ {
		h.tick()
	}
}

func (h *harness) state(array string) *ArrayState {
	s, ok := h.pod.ArrayState(array)
	require.True(h.t, ok)
	return s
}

// joined runs the pod through baselining until both members are synced.
func (h *harness) joined() {
	h.ticks(3)
	require.Equal(h.t, models.SyncSynced, h.state("a").State())
	require.Equal(h.t, models.SyncSynced, h.state("b").State())
}
