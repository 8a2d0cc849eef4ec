package network

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/server/internal/logging"
	"github.com/yaroslav/stretchsim/server/internal/metrics"
)

// Switch floods every packet it receives out of all its other ports.
type Switch struct {
	name   string
	online bool
	ports  []*Port
	logger *zap.Logger
}

// NewSwitch creates an online switch without ports.
func NewSwitch(name string, logger *zap.Logger) *Switch {
	return &Switch{
		name:   name,
		online: true,
		logger: logging.Component(logger, "switch").With(zap.String(logging.FieldDevice, name)),
	}
}

func (s *Switch) Name() string   { return s.name }
func (s *Switch) IsOnline() bool { return s.online }

// AddPort creates the next forwarding port, named by its index.
func (s *Switch) AddPort() *Port {
	p := NewForwardingPort(s, strconv.Itoa(len(s.ports)))
	s.ports = append(s.ports, p)
	return p
}

// Port returns the port with the given name.
func (s *Switch) Port(name string) (*Port, bool) {
	for _, p := range s.ports {
		if p.name == name {
			return p, true
		}
	}
	return nil, false
}

// OnPacket floods pkt to every connected port except in.
func (s *Switch) OnPacket(pkt *Packet, in *Port) {
	if pkt.Traversed(s.name) {
		metrics.PacketsDropped.WithLabelValues(DropCycle).Inc()
		s.logger.Debug("packet dropped", zap.String(logging.FieldTag, string(pkt.Tag)), zap.String("reason", DropCycle))
		return
	}
	pkt.AddHop(s.name, 0, UnlimitedBandwidth)

	for _, p := range s.ports {
		if p == in || !p.Connected() {
			continue
		}
		p.Send(pkt.Clone())
	}
}

// HandleAction applies fail/recover. Switches have no per-tick logic.
func (s *Switch) HandleAction(action models.Action) error {
	switch action {
	case models.ActionFail:
		s.online = false
	case models.ActionRecover:
		s.online = true
	case models.ActionStep, models.ActionPreStep, models.ActionPostStep:
	default:
		return fmt.Errorf("%w: %s on switch %s", models.ErrInvalidAction, action, s.name)
	}
	s.logger.Debug("action applied", zap.String(logging.FieldAction, string(action)))
	return nil
}

// Status returns a snapshot of the switch.
func (s *Switch) Status() models.SwitchStatus {
	return models.SwitchStatus{Name: s.name, Online: s.online, Ports: len(s.ports)}
}
