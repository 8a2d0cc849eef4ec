package network

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/server/internal/logging"
	"github.com/yaroslav/stretchsim/server/internal/metrics"
)

// Drop reasons reported in metrics and debug logs.
const (
	DropCycle         = "cycle"
	DropLinkDown      = "link_down"
	DropDeviceOffline = "device_offline"
	DropUnaddressed   = "unaddressed"
	DropUnattached    = "unattached"
)

// Connection is a point-to-point link between two ports with a fixed latency
// and bandwidth ceiling.
type Connection struct {
	name      string
	a, b      *Port
	latency   float64
	bandwidth float64
	online    bool
	wan       bool

	// dataFlowing is set when host data acks cross the link and cleared
	// every tick. It is for rendering only.
	dataFlowing bool

	logger *zap.Logger
}

// Name returns "<portA>--<portB>".
func (c *Connection) Name() string { return c.name }

// Ports returns both attached ports.
func (c *Connection) Ports() (*Port, *Port) { return c.a, c.b }

func (c *Connection) IsOnline() bool    { return c.online }
func (c *Connection) IsWAN() bool       { return c.wan }
func (c *Connection) DataFlowing() bool { return c.dataFlowing }
func (c *Connection) Latency() float64  { return c.latency }

// SetLatency changes the link latency for subsequent packets.
func (c *Connection) SetLatency(latency float64) { c.latency = latency }

// SetWAN marks the link as part of the inter-site WAN.
func (c *Connection) SetWAN(wan bool) { c.wan = wan }

// HandleAction applies fail/recover and the tick phase actions.
func (c *Connection) HandleAction(action models.Action) error {
	switch action {
	case models.ActionFail:
		c.online = false
	case models.ActionRecover:
		c.online = true
	case models.ActionPreStep:
		c.dataFlowing = false
	case models.ActionStep, models.ActionPostStep:
	default:
		return fmt.Errorf("%w: %s on connection %s", models.ErrInvalidAction, action, c.name)
	}
	return nil
}

// Status returns a snapshot of the link.
func (c *Connection) Status() models.ConnectionStatus {
	return models.ConnectionStatus{
		Name:        c.name,
		Online:      c.online,
		Latency:     c.latency,
		Bandwidth:   c.bandwidth,
		WAN:         c.wan,
		DataFlowing: c.dataFlowing,
	}
}

func (c *Connection) other(p *Port) *Port {
	if p == c.a {
		return c.b
	}
	return c.a
}

func (c *Connection) carry(pkt *Packet, from *Port) {
	if !c.online {
		c.drop(pkt, DropLinkDown)
		return
	}
	if pkt.Traversed(c.name) {
		c.drop(pkt, DropCycle)
		return
	}

	pkt.AddHop(c.name, c.latency, c.bandwidth)
	if pkt.Tag.IsDataAck() {
		c.dataFlowing = true
	}

	if reason := c.other(from).receive(pkt); reason != "" {
		c.drop(pkt, reason)
	}
}

func (c *Connection) drop(pkt *Packet, reason string) {
	metrics.PacketsDropped.WithLabelValues(reason).Inc()
	if reason == DropUnaddressed {
		// Flooding makes these the common case.
		return
	}
	c.logger.Debug("packet dropped",
		zap.String(logging.FieldConnection, c.name),
		zap.String(logging.FieldTag, string(pkt.Tag)),
		zap.String("dst", pkt.Dst+"/"+pkt.DstPort),
		zap.String("reason", reason),
	)
}
