package network

import (
	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/server/internal/metrics"
)

// Device is implemented by every variant that owns ports: switches,
// controllers, mediators and hosts.
type Device interface {
	Name() string
	IsOnline() bool
	OnPacket(pkt *Packet, in *Port)
}

// Port attaches a device to at most one connection.
//
// A terminating port hands a packet to its owner only when the packet is
// addressed to that owner and port name. A forwarding port, as used by
// switches, hands over every packet.
type Port struct {
	name       string
	owner      Device
	forwarding bool
	conn       *Connection
}

// NewPort creates a terminating port named name on owner.
func NewPort(owner Device, name string) *Port {
	return &Port{name: name, owner: owner}
}

// NewForwardingPort creates a port that relays every packet to owner.
func NewForwardingPort(owner Device, name string) *Port {
	return &Port{name: name, owner: owner, forwarding: true}
}

// Name returns the port name local to its device.
func (p *Port) Name() string { return p.name }

// Owner returns the device the port belongs to.
func (p *Port) Owner() Device { return p.owner }

// FullName returns "<device>-<port>".
func (p *Port) FullName() string { return p.owner.Name() + "-" + p.name }

// Connection returns the attached link, or nil.
func (p *Port) Connection() *Connection { return p.conn }

// Connected reports whether a link is attached.
func (p *Port) Connected() bool { return p.conn != nil }

// Send transmits pkt over the attached connection.
func (p *Port) Send(pkt *Packet) {
	if p.conn == nil {
		metrics.PacketsDropped.WithLabelValues(DropUnattached).Inc()
		return
	}
	p.conn.carry(pkt, p)
}

// SendTo creates a packet from this port to dst/dstPort and sends it.
func (p *Port) SendTo(dst, dstPort string, tag models.MessageTag, payload any) {
	metrics.PacketsSent.WithLabelValues(string(tag)).Inc()
	p.Send(NewPacket(p.owner.Name(), p.name, dst, dstPort, tag, payload))
}

// SendResponse answers req out of this port. extraLatency and bandwidth are
// the responder's own contribution, e.g. the time to commit a write.
func (p *Port) SendResponse(req *Packet, tag models.MessageTag, payload any, extraLatency, bandwidth float64) {
	metrics.PacketsSent.WithLabelValues(string(tag)).Inc()
	p.Send(req.Response(tag, payload, extraLatency, bandwidth))
}

// receive delivers pkt to the owner. It returns the drop reason when the
// packet is not delivered.
func (p *Port) receive(pkt *Packet) string {
	if !p.owner.IsOnline() {
		return DropDeviceOffline
	}
	if p.forwarding {
		p.owner.OnPacket(pkt, p)
		return ""
	}
	if pkt.Dst != p.owner.Name() || pkt.DstPort != p.name {
		return DropUnaddressed
	}
	metrics.PacketsDelivered.WithLabelValues(string(pkt.Tag)).Inc()
	p.owner.OnPacket(pkt, p)
	return ""
}
