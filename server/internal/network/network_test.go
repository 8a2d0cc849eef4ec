package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/models"
)

// endpoint is a terminating test device that records what it receives and
// optionally answers writes.
type endpoint struct {
	name   string
	online bool
	ports  map[string]*Port
	got    []*Packet
	reply  bool
}

func newEndpoint(name string, ports ...string) *endpoint {
	e := &endpoint{name: name, online: true, ports: make(map[string]*Port)}
	for _, p := range ports {
		e.ports[p] = NewPort(e, p)
	}
	return e
}

func (e *endpoint) Name() string   { return e.name }
func (e *endpoint) IsOnline() bool { return e.online }

func (e *endpoint) OnPacket(pkt *Packet, in *Port) {
	e.got = append(e.got, pkt)
	if e.reply && pkt.Tag == models.TagWrite {
		in.SendResponse(pkt, models.TagWriteAck, nil, 0.25, 100)
	}
}

func mustConnect(t *testing.T, r *Registry, a, b *Port, latency, bandwidth float64) *Connection {
	t.Helper()
	c, err := r.Connect(a, b, latency, bandwidth)
	require.NoError(t, err)
	return c
}

func TestLatencyAndBandwidthAccounting(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	a := newEndpoint("a", "p0")
	b := newEndpoint("b", "p0")
	s1 := NewSwitch("s1", nil)
	s2 := NewSwitch("s2", nil)

	mustConnect(t, reg, a.ports["p0"], s1.AddPort(), 1, 10)
	mustConnect(t, reg, s1.AddPort(), s2.AddPort(), 2, 5)
	mustConnect(t, reg, s2.AddPort(), b.ports["p0"], 0.5, 20)

	a.ports["p0"].SendTo("b", "p0", models.TagHeartbeat, nil)

	require.Len(t, b.got, 1)
	pkt := b.got[0]
	assert.InDelta(t, 3.5, pkt.CumulativeLatency, 1e-9)
	assert.Equal(t, 5.0, pkt.MinBandwidth)
	assert.Equal(t, []string{
		"a-p0--s1-0", "s1", "s1-1--s2-0", "s2", "s2-1--b-p0",
	}, routeDevices(pkt))
}

func TestCycleGuard_RingDeliversOnce(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	a := newEndpoint("a", "p0")
	b := newEndpoint("b", "p0")
	s1 := NewSwitch("s1", nil)
	s2 := NewSwitch("s2", nil)
	s3 := NewSwitch("s3", nil)

	mustConnect(t, reg, a.ports["p0"], s1.AddPort(), 0, 0)
	mustConnect(t, reg, s1.AddPort(), s2.AddPort(), 1, 0)
	mustConnect(t, reg, s2.AddPort(), s3.AddPort(), 1, 0)
	mustConnect(t, reg, s3.AddPort(), s1.AddPort(), 1, 0)
	mustConnect(t, reg, s3.AddPort(), b.ports["p0"], 0, 0)

	a.ports["p0"].SendTo("b", "p0", models.TagHeartbeat, nil)

	assert.Len(t, b.got, 1, "ring must not deliver the same send twice")
	assert.Empty(t, a.got, "sender must not receive its own packet back")
}

func TestCycleGuard_RouteAlreadyContainsConnection(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	a := newEndpoint("a", "p0")
	b := newEndpoint("b", "p0")
	c := mustConnect(t, reg, a.ports["p0"], b.ports["p0"], 1, 0)

	pkt := NewPacket("a", "p0", "b", "p0", models.TagHeartbeat, nil)
	pkt.Route = []Hop{{Device: c.Name(), Latency: 1, Bandwidth: 1}}
	a.ports["p0"].Send(pkt)

	assert.Empty(t, b.got)
}

func TestCycleGuard_SwitchReencounter(t *testing.T) {
	s := NewSwitch("s1", nil)
	in := s.AddPort()
	b := newEndpoint("b", "p0")
	reg := NewRegistry(zap.NewNop())
	mustConnect(t, reg, s.AddPort(), b.ports["p0"], 0, 0)

	pkt := NewPacket("a", "p0", "b", "p0", models.TagHeartbeat, nil)
	pkt.AddHop("s1", 0, UnlimitedBandwidth)
	s.OnPacket(pkt, in)

	assert.Empty(t, b.got)
}

func TestTerminatingPort_AddressMatching(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	a := newEndpoint("a", "p0")
	b := newEndpoint("b", "p0", "p1")
	s := NewSwitch("s", nil)
	mustConnect(t, reg, a.ports["p0"], s.AddPort(), 0, 0)
	mustConnect(t, reg, s.AddPort(), b.ports["p0"], 0, 0)
	mustConnect(t, reg, s.AddPort(), b.ports["p1"], 0, 0)

	a.ports["p0"].SendTo("b", "p1", models.TagHeartbeat, nil)
	a.ports["p0"].SendTo("c", "p0", models.TagHeartbeat, nil)

	require.Len(t, b.got, 1)
	assert.Equal(t, "p1", b.got[0].DstPort)
}

func TestOfflineDeviceAndFailedLink(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	a := newEndpoint("a", "p0")
	b := newEndpoint("b", "p0")
	c := mustConnect(t, reg, a.ports["p0"], b.ports["p0"], 1, 0)

	b.online = false
	a.ports["p0"].SendTo("b", "p0", models.TagHeartbeat, nil)
	assert.Empty(t, b.got)

	b.online = true
	require.NoError(t, c.HandleAction(models.ActionFail))
	assert.False(t, c.IsOnline())
	a.ports["p0"].SendTo("b", "p0", models.TagHeartbeat, nil)
	assert.Empty(t, b.got)

	require.NoError(t, c.HandleAction(models.ActionRecover))
	a.ports["p0"].SendTo("b", "p0", models.TagHeartbeat, nil)
	assert.Len(t, b.got, 1)
}

func TestResponse_CarriesLatencyAndFlowFlag(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	host := newEndpoint("host", "p0")
	ctl := newEndpoint("ctl", "fc0")
	ctl.reply = true
	s := NewSwitch("s", nil)
	up := mustConnect(t, reg, host.ports["p0"], s.AddPort(), 1, 50)
	down := mustConnect(t, reg, s.AddPort(), ctl.ports["fc0"], 2, 80)

	host.ports["p0"].SendTo("ctl", "fc0", models.TagWrite, models.IOPayload{ID: 1, Volume: "v"})

	require.Len(t, host.got, 1)
	ack := host.got[0]
	assert.Equal(t, models.TagWriteAck, ack.Tag)
	assert.Equal(t, "ctl", ack.Src)
	assert.Equal(t, "fc0", ack.SrcPort)
	assert.Equal(t, "p0", ack.DstPort)
	// 3 on the way in, 0.25 to commit, 3 on the way back.
	assert.InDelta(t, 6.25, ack.CumulativeLatency, 1e-9)
	assert.Equal(t, 50.0, ack.MinBandwidth)

	assert.True(t, up.DataFlowing())
	assert.True(t, down.DataFlowing())
	reg.ResetFlows()
	assert.False(t, up.DataFlowing())
	assert.False(t, down.DataFlowing())
}

func TestRegistry_Connect(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	a := newEndpoint("a", "p0")
	b := newEndpoint("b", "p0")
	c := newEndpoint("c", "p0")

	conn := mustConnect(t, reg, a.ports["p0"], b.ports["p0"], 1, 0)
	assert.Equal(t, "a-p0--b-p0", conn.Name())
	assert.Equal(t, UnlimitedBandwidth, conn.Status().Bandwidth)

	_, err := reg.Connect(a.ports["p0"], c.ports["p0"], 1, 1)
	assert.ErrorIs(t, err, models.ErrPortInUse)

	_, err = reg.Connect(c.ports["p0"], c.ports["p0"], 1, 1)
	assert.ErrorIs(t, err, models.ErrInvalidRequest)

	got, ok := reg.Get(conn.Name())
	require.True(t, ok)
	assert.Same(t, conn, got)

	conn.SetWAN(true)
	assert.Len(t, reg.WAN(), 1)

	reg.Reset()
	assert.Empty(t, reg.All())
	assert.False(t, a.ports["p0"].Connected())
}

func TestUnattachedPortDrops(t *testing.T) {
	a := newEndpoint("a", "p0")
	// Must not panic.
	a.ports["p0"].SendTo("b", "p0", models.TagHeartbeat, nil)
}

func TestHandleAction_Invalid(t *testing.T) {
	s := NewSwitch("s", nil)
	assert.ErrorIs(t, s.HandleAction(models.ActionPromote), models.ErrInvalidAction)
	assert.True(t, s.IsOnline())

	require.NoError(t, s.HandleAction(models.ActionFail))
	assert.False(t, s.Status().Online)
}

func routeDevices(pkt *Packet) []string {
	out := make([]string, 0, len(pkt.Route))
	for _, hop := range pkt.Route {
		out = append(out, hop.Device)
	}
	return out
}
