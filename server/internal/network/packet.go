// Package network models the packet substrate every simulated device talks
// through: ports, point-to-point connections and flooding switches.
//
// Delivery is synchronous. Sending a packet runs every hop, and the
// destination's handler, before Send returns. Each hop appends itself to the
// packet's route, summing latency and keeping the minimum bandwidth.
package network

import (
	"math"

	"github.com/yaroslav/stretchsim/models"
)

// UnlimitedBandwidth is the ceiling recorded by hops that do not constrain bandwidth.
const UnlimitedBandwidth = 10_000_000.0

// Hop is one traversed element of a packet's route.
type Hop struct {
	Device    string  `json:"device"`
	Latency   float64 `json:"latency"`
	Bandwidth float64 `json:"bandwidth"`
}

// Packet is a message envelope travelling through the substrate.
//
// A switch clones a packet per egress port so Route is always the trail of a
// single path. Clones of one send share a visited set, which makes every
// connection and switch handle a given send at most once.
type Packet struct {
	Src     string
	SrcPort string
	Dst     string
	DstPort string
	Tag     models.MessageTag
	Payload any

	Route             []Hop
	CumulativeLatency float64
	MinBandwidth      float64

	visited map[string]bool
}

// NewPacket creates a packet with an empty route.
func NewPacket(src, srcPort, dst, dstPort string, tag models.MessageTag, payload any) *Packet {
	return &Packet{
		Src:          src,
		SrcPort:      srcPort,
		Dst:          dst,
		DstPort:      dstPort,
		Tag:          tag,
		Payload:      payload,
		MinBandwidth: UnlimitedBandwidth,
		visited:      make(map[string]bool),
	}
}

// AddHop records that the packet traversed device with the given latency and
// bandwidth ceiling.
func (p *Packet) AddHop(device string, latency, bandwidth float64) {
	p.Route = append(p.Route, Hop{Device: device, Latency: latency, Bandwidth: bandwidth})
	p.CumulativeLatency += latency
	p.MinBandwidth = math.Min(p.MinBandwidth, bandwidth)
	if p.visited == nil {
		p.visited = make(map[string]bool)
	}
	p.visited[device] = true
}

// Traversed reports whether device already handled this packet, either on
// this packet's own route or on a sibling branch of the same send.
func (p *Packet) Traversed(device string) bool {
	if p.visited[device] {
		return true
	}
	for _, hop := range p.Route {
		if hop.Device == device {
			return true
		}
	}
	return false
}

// Clone copies the packet for a new branch. The route is copied; the visited
// set is shared.
func (p *Packet) Clone() *Packet {
	clone := *p
	clone.Route = make([]Hop, len(p.Route), len(p.Route)+4)
	copy(clone.Route, p.Route)
	if clone.visited == nil {
		clone.visited = make(map[string]bool)
		p.visited = clone.visited
	}
	return &clone
}

// Response builds the reply to p: source and destination are swapped, the
// route starts empty, and the latency accumulated by the request plus the
// responder's extraLatency is carried forward. Bandwidth is the minimum of
// the request's and the responder's ceiling.
func (p *Packet) Response(tag models.MessageTag, payload any, extraLatency, bandwidth float64) *Packet {
	resp := NewPacket(p.Dst, p.DstPort, p.Src, p.SrcPort, tag, payload)
	resp.CumulativeLatency = p.CumulativeLatency + extraLatency
	resp.MinBandwidth = math.Min(p.MinBandwidth, bandwidth)
	return resp
}
