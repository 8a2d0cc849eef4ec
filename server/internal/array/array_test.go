package array

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/server/internal/activecluster"
	"github.com/yaroslav/stretchsim/server/internal/network"
)

// hostStub records every packet delivered to its single port.
type hostStub struct {
	name string
	port *network.Port
	got  []*network.Packet
}

func newHostStub(name string) *hostStub {
	h := &hostStub{name: name}
	h.port = network.NewPort(h, "p0")
	return h
}

func (h *hostStub) Name() string   { return h.name }
func (h *hostStub) IsOnline() bool { return true }

func (h *hostStub) OnPacket(pkt *network.Packet, _ *network.Port) {
	h.got = append(h.got, pkt)
}

func (h *hostStub) last(t *testing.T) *network.Packet {
	t.Helper()
	require.NotEmpty(t, h.got)
	return h.got[len(h.got)-1]
}

// testCluster is two arrays whose controllers share a replication switch,
// with a host attached to fa1-ct0 fc0 and fa1-ct1 fc0.
type testCluster struct {
	reg      *network.Registry
	fa1, fa2 *FlashArray
	pod      *activecluster.Pod
	host     *hostStub
	host2    *hostStub
}

func newTestCluster(t *testing.T) *testCluster {
	t.Helper()
	tc := &testCluster{
		reg:   network.NewRegistry(nil),
		fa1:   New("fa1", DefaultConfig(), nil),
		fa2:   New("fa2", DefaultConfig(), nil),
		host:  newHostStub("esx1"),
		host2: newHostStub("esx1"),
	}

	sw := network.NewSwitch("repsw", nil)
	for _, fa := range []*FlashArray{tc.fa1, tc.fa2} {
		for _, c := range fa.Controllers() {
			rep, ok := c.Port(PortRep0)
			require.True(t, ok)
			_, err := tc.reg.Connect(rep, sw.AddPort(), 2, 10)
			require.NoError(t, err)
		}
	}

	fc0, _ := tc.fa1.ct0.Port(PortFC0)
	_, err := tc.reg.Connect(tc.host.port, fc0, 1, 20)
	require.NoError(t, err)
	fc1, _ := tc.fa1.ct1.Port(PortFC0)
	_, err = tc.reg.Connect(tc.host2.port, fc1, 1, 20)
	require.NoError(t, err)

	tc.pod = activecluster.New("pod1", "", "", activecluster.DefaultConfig(), nil, nil)
	require.NoError(t, tc.pod.AddArray(tc.fa1))
	tc.fa1.JoinPod(tc.pod)
	_, err = tc.pod.AddVolume("ds1")
	require.NoError(t, err)

	require.NoError(t, tc.fa1.CreateHostEntry("esx1"))
	require.NoError(t, tc.fa1.MapVolume("esx1", "pod1::ds1"))
	require.NoError(t, tc.fa1.MapVolume("esx1", "local1"))
	return tc
}

func (tc *testCluster) stretch(t *testing.T) {
	t.Helper()
	require.NoError(t, tc.pod.AddArray(tc.fa2))
	tc.fa2.JoinPod(tc.pod)
	for i := 0; i < 3; i++ {
		tc.tick()
	}
	require.True(t, tc.pod.IsForwarding())
}

func (tc *testCluster) tick() {
	tc.reg.ResetFlows()
	tc.pod.PreStep()
	tc.fa1.Step()
	tc.fa2.Step()
}

func TestNew(t *testing.T) {
	fa := New("fa1", DefaultConfig(), nil)

	assert.Equal(t, []string{"fa1-ct0", "fa1-ct1"}, fa.ControllerNames())
	assert.True(t, fa.IsOnline())
	require.NotNil(t, fa.Primary())
	assert.Equal(t, "fa1-ct0", fa.Primary().Name())

	c, ok := fa.Controller("CT1")
	require.True(t, ok)
	assert.Equal(t, models.ControllerSecondary, c.State())

	_, ok = fa.Controller("ct2")
	assert.False(t, ok)
}

func TestHandleAction(t *testing.T) {
	fa := New("fa1", DefaultConfig(), nil)

	assert.ErrorIs(t, fa.HandleAction(models.ActionPromote), models.ErrInvalidAction)

	require.NoError(t, fa.HandleAction(models.ActionFail))
	assert.False(t, fa.IsOnline())
	assert.Nil(t, fa.Primary())

	require.NoError(t, fa.HandleAction(models.ActionRecover))
	assert.True(t, fa.IsOnline())
	assert.Nil(t, fa.Primary(), "recovered controllers come back secondary")

	require.NoError(t, fa.HandleAction(models.ActionStep))
	require.NotNil(t, fa.Primary())
	assert.Equal(t, "fa1-ct0", fa.Primary().Name())
	assert.Equal(t, models.ControllerSecondary, fa.ct1.State())
}

func TestHandleControllerAction(t *testing.T) {
	fa := New("fa1", DefaultConfig(), nil)

	require.NoError(t, fa.HandleControllerAction("ct0", models.ActionFail))
	assert.Equal(t, "fa1-ct1", fa.Primary().Name())
	assert.True(t, fa.IsOnline())

	require.NoError(t, fa.HandleControllerAction("fa1-ct0", models.ActionRecover))
	require.NoError(t, fa.HandleControllerAction("ct0", models.ActionPromote))
	assert.Equal(t, "fa1-ct0", fa.Primary().Name())
	assert.Equal(t, models.ControllerSecondary, fa.ct1.State())

	assert.ErrorIs(t, fa.HandleControllerAction("ct9", models.ActionFail), models.ErrNotFound)
	assert.ErrorIs(t, fa.HandleControllerAction("ct0", models.Action("explode")), models.ErrInvalidAction)
}

func TestHostEntries(t *testing.T) {
	fa := New("fa1", DefaultConfig(), nil)

	require.NoError(t, fa.CreateHostEntry("esx1"))
	assert.ErrorIs(t, fa.CreateHostEntry("esx1"), models.ErrAlreadyExists)

	assert.ErrorIs(t, fa.MapVolume("esx9", "vol1"), models.ErrNotFound)
	assert.ErrorIs(t, fa.MapVolume("esx1", " "), models.ErrInvalidVolumeName)
	assert.ErrorIs(t, fa.MapVolume("esx1", "pod1::ds1"), models.ErrNotFound, "pod volume of a foreign pod")

	require.NoError(t, fa.MapVolume("esx1", "Vol1"))
	assert.ErrorIs(t, fa.MapVolume("esx1", "vol1"), models.ErrAlreadyExists)
	assert.True(t, fa.MapsVolume("vol1"))

	require.NoError(t, fa.AddPreferredArray("esx1", "fa2"))
	assert.ErrorIs(t, fa.AddPreferredArray("esx1", "fa2"), models.ErrAlreadyExists)
	assert.ErrorIs(t, fa.AddPreferredArray("esx9", "fa2"), models.ErrNotFound)

	st := fa.Status()
	require.Len(t, st.HostEntries, 1)
	assert.Equal(t, []string{"vol1"}, st.HostEntries[0].Volumes)
	assert.Equal(t, []string{"fa2"}, st.HostEntries[0].PreferredArrays)
}

func TestListVolumes(t *testing.T) {
	tc := newTestCluster(t)

	tc.host.port.SendTo("fa1-ct0", PortFC0, models.TagListVolumes, nil)
	resp := tc.host.last(t)
	assert.Equal(t, models.TagVolumes, resp.Tag)
	assert.Equal(t, []models.VolumeEntry{
		{Name: "pod1::ds1", Optimized: true, Ready: true},
		{Name: "local1", Optimized: true, Ready: true},
	}, resp.Payload)

	require.NoError(t, tc.fa1.AddPreferredArray("esx1", "fa2"))
	tc.host.port.SendTo("fa1-ct0", PortFC0, models.TagListVolumes, nil)
	for _, v := range tc.host.last(t).Payload.([]models.VolumeEntry) {
		assert.False(t, v.Optimized, v.Name)
	}
}

func TestListVolumes_NoHostEntry(t *testing.T) {
	tc := newTestCluster(t)
	other := newHostStub("esx9")
	fc1, _ := tc.fa1.ct0.Port(PortFC1)
	_, err := tc.reg.Connect(other.port, fc1, 1, 20)
	require.NoError(t, err)

	other.port.SendTo("fa1-ct0", PortFC1, models.TagListVolumes, nil)
	assert.Empty(t, other.got)
}

func TestWrite_LocalVolume(t *testing.T) {
	tc := newTestCluster(t)

	tc.host.port.SendTo("fa1-ct0", PortFC0, models.TagWrite, models.IOPayload{ID: 1, Volume: "local1"})
	resp := tc.host.last(t)
	assert.Equal(t, models.TagWriteAck, resp.Tag)
	assert.InDelta(t, 2.1, resp.CumulativeLatency, 1e-9)
	assert.Equal(t, 20.0, resp.MinBandwidth)

	tc.host.port.SendTo("fa1-ct0", PortFC0, models.TagRead, models.IOPayload{ID: 2, Volume: "local1"})
	resp = tc.host.last(t)
	assert.Equal(t, models.TagReadAck, resp.Tag)
	assert.InDelta(t, 2.5, resp.CumulativeLatency, 1e-9)
}

func TestWrite_UnmappedVolumeDropped(t *testing.T) {
	tc := newTestCluster(t)

	tc.host.port.SendTo("fa1-ct0", PortFC0, models.TagWrite, models.IOPayload{ID: 1, Volume: "other"})
	assert.Empty(t, tc.host.got)
}

func TestSecondaryRelaysToPrimary(t *testing.T) {
	tc := newTestCluster(t)

	tc.host2.port.SendTo("fa1-ct1", PortFC0, models.TagWrite, models.IOPayload{ID: 1, Volume: "local1"})
	resp := tc.host2.last(t)
	assert.Equal(t, models.TagWriteAck, resp.Tag)
	assert.Equal(t, "fa1-ct1", resp.Src)

	require.NoError(t, tc.fa1.HandleControllerAction("ct0", models.ActionFail))
	require.NoError(t, tc.fa1.HandleControllerAction("ct0", models.ActionRecover))
	require.NoError(t, tc.fa1.HandleControllerAction("ct1", models.ActionFail))
	tc.host2.got = nil
	tc.host2.port.SendTo("fa1-ct1", PortFC0, models.TagWrite, models.IOPayload{ID: 2, Volume: "local1"})
	assert.Empty(t, tc.host2.got, "failed controller drops")
}

func TestSecondaryWithoutPrimaryDrops(t *testing.T) {
	tc := newTestCluster(t)
	require.NoError(t, tc.fa1.HandleAction(models.ActionFail))
	require.NoError(t, tc.fa1.HandleAction(models.ActionRecover))

	tc.host2.port.SendTo("fa1-ct1", PortFC0, models.TagWrite, models.IOPayload{ID: 1, Volume: "local1"})
	assert.Empty(t, tc.host2.got)
}

func TestStretchedPodJoinsOverReplicationNetwork(t *testing.T) {
	tc := newTestCluster(t)
	tc.stretch(t)

	s, ok := tc.pod.ArrayState("fa2")
	require.True(t, ok)
	assert.Equal(t, models.SyncSynced, s.State())
	assert.True(t, s.PeerConnected())
	assert.Equal(t, []string{"pod1"}, tc.fa2.Status().Pods)
}

func TestWrite_ForwardedToPeer(t *testing.T) {
	tc := newTestCluster(t)
	tc.stretch(t)

	tc.host.port.SendTo("fa1-ct0", PortFC0, models.TagWrite, models.IOPayload{ID: 7, Volume: "pod1::ds1"})

	require.Len(t, tc.host.got, 1, "duplicate peer acks are ignored")
	resp := tc.host.got[0]
	assert.Equal(t, models.TagWriteAck, resp.Tag)
	// host link 1 + replication round trip 8 + write 0.1 + host link 1
	assert.InDelta(t, 10.1, resp.CumulativeLatency, 1e-9)
	assert.Equal(t, 10.0, resp.MinBandwidth)
	assert.Equal(t, models.IOPayload{ID: 7, Volume: "pod1::ds1"}, resp.Payload)
	assert.Empty(t, tc.fa1.ct0.pending)
}

func TestWrite_PeerNotSyncedDropsForwardedWrite(t *testing.T) {
	tc := newTestCluster(t)
	tc.stretch(t)

	// Fail the peer between ticks: the pod still believes it is forwarding,
	// but nothing answers the replicated write.
	require.NoError(t, tc.fa2.HandleAction(models.ActionFail))
	tc.host.port.SendTo("fa1-ct0", PortFC0, models.TagWrite, models.IOPayload{ID: 1, Volume: "pod1::ds1"})
	assert.Empty(t, tc.host.got)
	assert.Empty(t, tc.fa1.ct0.pending)
}

func TestArrayFailureAndPowerOn(t *testing.T) {
	tc := newTestCluster(t)
	tc.stretch(t)

	require.NoError(t, tc.fa2.HandleAction(models.ActionFail))
	tc.tick()

	s1, _ := tc.pod.ArrayState("fa1")
	s2, _ := tc.pod.ArrayState("fa2")
	assert.Equal(t, models.SyncSynced, s1.State())
	assert.True(t, s1.Elected(), "pre-elected member wins without a mediator")

	// Local writes continue on the survivor.
	tc.host.port.SendTo("fa1-ct0", PortFC0, models.TagWrite, models.IOPayload{ID: 1, Volume: "pod1::ds1"})
	assert.InDelta(t, 2.1, tc.host.last(t).CumulativeLatency, 1e-9)

	require.NoError(t, tc.fa2.HandleAction(models.ActionRecover))
	assert.Equal(t, models.SyncPaused, s2.State())

	tc.tick()
	assert.Equal(t, models.SyncResyncing, s2.State())
	tc.tick()
	assert.Equal(t, models.SyncSynced, s2.State())
	tc.tick()
	assert.True(t, tc.pod.IsForwarding())
	assert.False(t, s1.Elected())
}

func TestStatus(t *testing.T) {
	tc := newTestCluster(t)
	st := tc.fa1.Status()

	assert.Equal(t, "fa1", st.Name)
	assert.True(t, st.Online)
	assert.Equal(t, []models.ControllerStatus{
		{Name: "fa1-ct0", Array: "fa1", State: models.ControllerPrimary},
		{Name: "fa1-ct1", Array: "fa1", State: models.ControllerSecondary},
	}, st.Controllers)
	assert.Equal(t, []string{"pod1"}, st.Pods)
}
