package array

import (
	"strings"

	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/server/internal/ha"
	"github.com/yaroslav/stretchsim/server/internal/logging"
	"github.com/yaroslav/stretchsim/server/internal/network"
)

// Controller is one of an array's two controllers. Only the primary serves
// host I/O and answers replication traffic; a secondary relays host I/O to
// a primary sibling.
type Controller struct {
	fa     *FlashArray
	member *ha.Member
	logger *zap.Logger

	ports map[string]*network.Port

	// Forwarded writes waiting for the first peer ack, by write ID.
	pending     map[uint64]pendingWrite
	nextWriteID uint64
}

type pendingWrite struct {
	req *network.Packet
	in  *network.Port
}

func newControllerPair(fa *FlashArray, logger *zap.Logger) (*Controller, *Controller) {
	m0, m1 := ha.NewPair(fa.name+"-ct0", fa.name+"-ct1", logger)
	return newController(fa, m0, logger), newController(fa, m1, logger)
}

func newController(fa *FlashArray, m *ha.Member, logger *zap.Logger) *Controller {
	c := &Controller{
		fa:      fa,
		member:  m,
		logger:  logger.With(zap.String(logging.FieldController, m.Name())),
		ports:   make(map[string]*network.Port),
		pending: make(map[uint64]pendingWrite),
	}
	for _, group := range [][]string{fcPorts, repPorts, mgmtPorts} {
		for _, name := range group {
			c.ports[name] = network.NewPort(c, name)
		}
	}
	return c
}

func (c *Controller) Name() string                  { return c.member.Name() }
func (c *Controller) Array() *FlashArray            { return c.fa }
func (c *Controller) State() models.ControllerState { return c.member.Mode() }
func (c *Controller) IsOnline() bool                { return c.member.IsOnline() }
func (c *Controller) IsPrimary() bool               { return c.member.IsPrimary() }

// Port returns the named port.
func (c *Controller) Port(name string) (*network.Port, bool) {
	p, ok := c.ports[name]
	return p, ok
}

// HandleAction applies a failover action.
func (c *Controller) HandleAction(action models.Action) error {
	_, err := c.member.Apply(action)
	if err != nil {
		c.logger.Warn("invalid controller action", zap.String(logging.FieldAction, string(action)))
	}
	return err
}

// Step self-promotes a secondary whose sibling is not primary.
func (c *Controller) Step() { c.member.Step() }

// Status returns a snapshot of the controller.
func (c *Controller) Status() models.ControllerStatus {
	return models.ControllerStatus{Name: c.Name(), Array: c.fa.name, State: c.member.Mode()}
}

func (c *Controller) sibling() *Controller {
	if c.fa.ct0 == c {
		return c.fa.ct1
	}
	return c.fa.ct0
}

// SendReplication sends to every peer controller out of each replication
// port, addressed to the peer's port of the same name.
func (c *Controller) SendReplication(peerControllers []string, tag models.MessageTag, payload any) {
	for _, name := range repPorts {
		port := c.ports[name]
		for _, peer := range peerControllers {
			port.SendTo(peer, name, tag, payload)
		}
	}
}

// SendManagement sends to dst out of each management port.
func (c *Controller) SendManagement(dst, dstPort string, tag models.MessageTag, payload any) {
	for _, name := range mgmtPorts {
		c.ports[name].SendTo(dst, dstPort, tag, payload)
	}
}

// OnPacket dispatches by the kind of port the packet arrived on.
func (c *Controller) OnPacket(pkt *network.Packet, in *network.Port) {
	switch {
	case strings.HasPrefix(in.Name(), "fc"):
		c.onHostPacket(pkt, in)
	case strings.HasPrefix(in.Name(), "rep"):
		c.onReplicationPacket(pkt, in)
	case strings.HasPrefix(in.Name(), "mgmt"):
		c.onManagementPacket(pkt)
	}
}

func (c *Controller) onHostPacket(pkt *network.Packet, in *network.Port) {
	if !c.member.IsPrimary() {
		sib := c.sibling()
		if !sib.member.IsPrimary() {
			c.logger.Debug("no primary to relay host request", zap.String(logging.FieldTag, string(pkt.Tag)))
			return
		}
		pkt.AddHop(c.Name(), 0, network.UnlimitedBandwidth)
		sib.onHostPacket(pkt, in)
		return
	}

	switch pkt.Tag {
	case models.TagListVolumes:
		volumes, ok := c.fa.listVolumes(pkt.Src)
		if !ok {
			c.logger.Debug("no host entry", zap.String("host", pkt.Src))
			return
		}
		in.SendResponse(pkt, models.TagVolumes, volumes, 0, network.UnlimitedBandwidth)
	case models.TagRead:
		c.serveRead(pkt, in)
	case models.TagWrite:
		c.serveWrite(pkt, in)
	}
}

// mappedVolume returns the I/O payload if the sender's host entry maps the
// requested volume.
func (c *Controller) mappedVolume(pkt *network.Packet) (models.IOPayload, bool) {
	io, ok := pkt.Payload.(models.IOPayload)
	if !ok {
		return io, false
	}
	e, ok := c.fa.HostEntry(pkt.Src)
	if !ok || !e.Maps(io.Volume) {
		c.logger.Debug("volume not mapped to host",
			zap.String("host", pkt.Src),
			zap.String("volume", io.Volume),
		)
		return io, false
	}
	return io, true
}

func (c *Controller) serveRead(pkt *network.Packet, in *network.Port) {
	io, ok := c.mappedVolume(pkt)
	if !ok {
		return
	}
	if p := c.fa.podForVolume(io.Volume); p != nil && p.AdmitRead(c.fa.name) == models.AdmitDrop {
		return
	}
	in.SendResponse(pkt, models.TagReadAck, io, c.fa.cfg.ReadLatency, network.UnlimitedBandwidth)
}

func (c *Controller) serveWrite(pkt *network.Packet, in *network.Port) {
	io, ok := c.mappedVolume(pkt)
	if !ok {
		return
	}
	p := c.fa.podForVolume(io.Volume)
	if p == nil {
		in.SendResponse(pkt, models.TagWriteAck, io, c.fa.cfg.WriteLatency, network.UnlimitedBandwidth)
		return
	}

	switch p.AdmitWrite(c.fa.name) {
	case models.AdmitLocal:
		in.SendResponse(pkt, models.TagWriteAck, io, c.fa.cfg.WriteLatency, network.UnlimitedBandwidth)
	case models.AdmitForward:
		c.nextWriteID++
		id := c.nextWriteID
		c.pending[id] = pendingWrite{req: pkt, in: in}
		c.SendReplication(p.PeerControllers(c.fa.name), models.TagReplicaWrite, models.ReplicationPayload{
			Pod:     p.Name(),
			Array:   c.fa.name,
			WriteID: id,
		})
		if _, waiting := c.pending[id]; waiting {
			delete(c.pending, id)
			c.logger.Debug("replicated write not acknowledged",
				zap.String(logging.FieldPod, p.Name()),
				zap.Uint64("write_id", id),
			)
		}
	default:
		c.logger.Debug("write refused by pod",
			zap.String(logging.FieldPod, p.Name()),
			zap.String("volume", io.Volume),
		)
	}
}

func (c *Controller) onReplicationPacket(pkt *network.Packet, in *network.Port) {
	rp, ok := pkt.Payload.(models.ReplicationPayload)
	if !ok {
		return
	}
	p := c.fa.Pod(rp.Pod)
	if p == nil {
		return
	}

	switch pkt.Tag {
	case models.TagHeartbeat:
		if c.member.IsPrimary() {
			in.SendResponse(pkt, models.TagHeartbeatAck, models.ReplicationPayload{Pod: rp.Pod, Array: c.fa.name}, 0, network.UnlimitedBandwidth)
		}
	case models.TagHeartbeatAck:
		p.OnHeartbeatAck(c.fa.name, pkt.CumulativeLatency)
	case models.TagReplicaWrite:
		if !c.member.IsPrimary() {
			return
		}
		if s, ok := p.ArrayState(c.fa.name); !ok || s.State() != models.SyncSynced {
			return
		}
		in.SendResponse(pkt, models.TagReplicaAck, rp, 0, network.UnlimitedBandwidth)
	case models.TagReplicaAck:
		w, ok := c.pending[rp.WriteID]
		if !ok {
			return
		}
		delete(c.pending, rp.WriteID)
		w.in.SendResponse(w.req, models.TagWriteAck, w.req.Payload,
			pkt.CumulativeLatency+c.fa.cfg.WriteLatency, pkt.MinBandwidth)
	}
}

func (c *Controller) onManagementPacket(pkt *network.Packet) {
	switch pkt.Tag {
	case models.TagMediatorHeartbeatAck:
		if rp, ok := pkt.Payload.(models.ReplicationPayload); ok {
			if p := c.fa.Pod(rp.Pod); p != nil {
				p.OnMediatorHeartbeatAck(c.fa.name)
			}
		}
	case models.TagMediationWon, models.TagMediationLost:
		if resp, ok := pkt.Payload.(models.MediationResponse); ok {
			if p := c.fa.Pod(resp.Pod); p != nil {
				p.OnMediationResponse(resp)
			}
		}
	}
}
