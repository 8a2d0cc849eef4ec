package sim

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/server/internal/activecluster"
	"github.com/yaroslav/stretchsim/server/internal/array"
	"github.com/yaroslav/stretchsim/server/internal/host"
	"github.com/yaroslav/stretchsim/server/internal/logging"
	"github.com/yaroslav/stretchsim/server/internal/mediator"
	"github.com/yaroslav/stretchsim/server/internal/network"
	"github.com/yaroslav/stretchsim/server/internal/util"
)

// PortRef names a port on a device. For a switch, an empty Port attaches a
// new port.
type PortRef struct {
	Device string `json:"device" yaml:"device"`
	Port   string `json:"port" yaml:"port"`
}

func (r PortRef) String() string { return r.Device + ":" + r.Port }

// rejected logs a refused factory operation and returns err.
func (s *Simulation) rejected(op string, err error, fields ...zap.Field) error {
	s.logger.Warn(op+" rejected", append(fields, zap.Error(err))...)
	return err
}

func (s *Simulation) claim(op string, kind models.DeviceKind, names ...string) error {
	for _, name := range names {
		if err := util.ValidateName(name); err != nil {
			return s.rejected(op, err)
		}
		if existing, ok := s.names[name]; ok {
			return s.rejected(op, fmt.Errorf("%w: %s %s", models.ErrAlreadyExists, existing, name))
		}
	}
	for _, name := range names {
		s.names[name] = kind
	}
	return nil
}

// CreateArray creates an array and its two controllers.
func (s *Simulation) CreateArray(name string) (*array.FlashArray, error) {
	if err := s.claim("create array", models.KindArray, name); err != nil {
		return nil, err
	}
	a := array.New(name, s.cfg.Array, s.logger)
	for _, c := range a.ControllerNames() {
		if _, taken := s.names[c]; taken {
			delete(s.names, name)
			return nil, s.rejected("create array", fmt.Errorf("%w: controller %s", models.ErrAlreadyExists, c))
		}
	}
	for _, c := range a.ControllerNames() {
		s.names[c] = models.KindController
	}
	s.arrays = append(s.arrays, a)
	s.logger.Info("array created", zap.String(logging.FieldArray, name))
	return a, nil
}

// CreateSwitch creates a switch without ports.
func (s *Simulation) CreateSwitch(name string) (*network.Switch, error) {
	if err := s.claim("create switch", models.KindSwitch, name); err != nil {
		return nil, err
	}
	sw := network.NewSwitch(name, s.logger)
	s.switches = append(s.switches, sw)
	return sw, nil
}

// CreateMediator creates a mediator sharing the simulation's random source.
func (s *Simulation) CreateMediator(name string) (*mediator.Mediator, error) {
	if err := s.claim("create mediator", models.KindMediator, name); err != nil {
		return nil, err
	}
	m := mediator.New(name, s.cfg.Mediator, s.rng, s.logger)
	s.mediators = append(s.mediators, m)
	s.logger.Info("mediator created", zap.String(logging.FieldDevice, name))
	return m, nil
}

// CreateHost creates a host with ports p0..p<ports-1>.
func (s *Simulation) CreateHost(name string, ports int) (*host.Host, error) {
	if ports < 1 {
		return nil, s.rejected("create host", fmt.Errorf("%w: host needs at least one port", models.ErrInvalidRequest))
	}
	if err := s.claim("create host", models.KindHost, name); err != nil {
		return nil, err
	}
	h := host.New(name, ports, s.logger)
	s.hosts = append(s.hosts, h)
	return h, nil
}

// CreatePod creates an empty pod arbitrated by the named mediator. An empty
// mediator name creates a pod that relies on pre-election alone.
func (s *Simulation) CreatePod(name, mediatorName string) (*activecluster.Pod, error) {
	port := ""
	if mediatorName != "" {
		if _, err := s.Mediator(mediatorName); err != nil {
			return nil, s.rejected("create pod", err)
		}
		port = mediator.DefaultPort
	}
	if err := s.claim("create pod", models.KindPod, name); err != nil {
		return nil, err
	}
	p := activecluster.New(name, mediatorName, port, s.cfg.Pod, s.rng, s.logger)
	s.pods = append(s.pods, p)
	s.logger.Info("pod created", zap.String(logging.FieldPod, name), zap.String("mediator", mediatorName))
	return p, nil
}

// AddArrayToPod stretches pod to array.
func (s *Simulation) AddArrayToPod(podName, arrayName string) error {
	p, a, err := s.podAndArray(podName, arrayName)
	if err != nil {
		return s.rejected("add array to pod", err)
	}
	if err := p.AddArray(a); err != nil {
		return s.rejected("add array to pod", err)
	}
	a.JoinPod(p)
	return nil
}

// RemoveArrayFromPod un-stretches pod from array.
func (s *Simulation) RemoveArrayFromPod(podName, arrayName string) error {
	p, a, err := s.podAndArray(podName, arrayName)
	if err != nil {
		return s.rejected("remove array from pod", err)
	}
	if err := p.RemoveArray(arrayName); err != nil {
		return s.rejected("remove array from pod", err)
	}
	a.LeavePod(podName)
	return nil
}

// AddVolumeToPod adds a volume and returns its qualified name.
func (s *Simulation) AddVolumeToPod(podName, volume string) (string, error) {
	p, err := s.Pod(podName)
	if err != nil {
		return "", s.rejected("add volume", err)
	}
	v, err := p.AddVolume(volume)
	if err != nil {
		return v, s.rejected("add volume", err)
	}
	return v, nil
}

// SetFailoverPreference sets the pod's preferred array.
func (s *Simulation) SetFailoverPreference(podName, arrayName string) error {
	p, err := s.Pod(podName)
	if err != nil {
		return s.rejected("set failover preference", err)
	}
	if err := p.SetFailoverPreference(arrayName); err != nil {
		return s.rejected("set failover preference", err)
	}
	return nil
}

// ClearFailoverPreference removes the pod's preferred array.
func (s *Simulation) ClearFailoverPreference(podName string) error {
	p, err := s.Pod(podName)
	if err != nil {
		return s.rejected("clear failover preference", err)
	}
	p.ClearFailoverPreference()
	return nil
}

// CreateHostEntry grants host access on array.
func (s *Simulation) CreateHostEntry(arrayName, hostName string) error {
	a, err := s.Array(arrayName)
	if err != nil {
		return s.rejected("create host entry", err)
	}
	if err := a.CreateHostEntry(hostName); err != nil {
		return s.rejected("create host entry", err)
	}
	return nil
}

// MapVolume maps volume to host on array.
func (s *Simulation) MapVolume(arrayName, hostName, volume string) error {
	a, err := s.Array(arrayName)
	if err != nil {
		return s.rejected("map volume", err)
	}
	if err := a.MapVolume(hostName, volume); err != nil {
		return s.rejected("map volume", err)
	}
	return nil
}

// AddPreferredArray marks preferred as the preferred array for host's entry
// on arrayName.
func (s *Simulation) AddPreferredArray(arrayName, hostName, preferred string) error {
	a, err := s.Array(arrayName)
	if err != nil {
		return s.rejected("add preferred array", err)
	}
	if _, err := s.Array(preferred); err != nil {
		return s.rejected("add preferred array", err)
	}
	if err := a.AddPreferredArray(hostName, preferred); err != nil {
		return s.rejected("add preferred array", err)
	}
	return nil
}

// AddHostTarget registers a controller port the host discovers paths on.
func (s *Simulation) AddHostTarget(hostName string, t host.Target) error {
	h, err := s.Host(hostName)
	if err != nil {
		return s.rejected("add host target", err)
	}
	if err := h.AddTarget(t); err != nil {
		return s.rejected("add host target", err)
	}
	return nil
}

// SetHostWorkload sets the volume the host writes every tick.
func (s *Simulation) SetHostWorkload(hostName, volume string) error {
	h, err := s.Host(hostName)
	if err != nil {
		return s.rejected("set host workload", err)
	}
	h.SetVolume(volume)
	return nil
}

// Connect links two device ports. WAN links can later be retuned as a group
// with SetWANLatency.
func (s *Simulation) Connect(a, b PortRef, latency, bandwidth float64, wan bool) (*network.Connection, error) {
	if err := util.ValidateLatency(latency); err != nil {
		return nil, s.rejected("connect", err)
	}
	pa, err := s.resolvePort(a)
	if err != nil {
		return nil, s.rejected("connect", err, zap.String("port", a.String()))
	}
	pb, err := s.resolvePort(b)
	if err != nil {
		return nil, s.rejected("connect", err, zap.String("port", b.String()))
	}
	c, err := s.registry.Connect(pa, pb, latency, bandwidth)
	if err != nil {
		return nil, s.rejected("connect", err)
	}
	c.SetWAN(wan)
	return c, nil
}

// resolvePort finds the port named by r, adding one to a switch when r.Port
// is empty.
func (s *Simulation) resolvePort(r PortRef) (*network.Port, error) {
	var (
		port *network.Port
		ok   bool
	)
	switch s.names[r.Device] {
	case models.KindSwitch:
		sw, _ := s.Switch(r.Device)
		if r.Port == "" {
			return sw.AddPort(), nil
		}
		port, ok = sw.Port(r.Port)
	case models.KindController:
		c, _ := s.Controller(r.Device)
		port, ok = c.Port(r.Port)
	case models.KindMediator:
		m, _ := s.Mediator(r.Device)
		port, ok = m.Port(r.Port)
	case models.KindHost:
		h, _ := s.Host(r.Device)
		port, ok = h.Port(r.Port)
	default:
		return nil, fmt.Errorf("%w: no device with ports named %s", models.ErrNotFound, r.Device)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownPort, r)
	}
	return port, nil
}

// SetConnectionLatency changes one link's latency.
func (s *Simulation) SetConnectionLatency(name string, latency float64) error {
	if err := util.ValidateLatency(latency); err != nil {
		return s.rejected("set connection latency", err)
	}
	c, err := s.Connection(name)
	if err != nil {
		return s.rejected("set connection latency", err)
	}
	c.SetLatency(latency)
	return nil
}

// SetWANLatency sets the round-trip WAN latency: every WAN link gets half.
func (s *Simulation) SetWANLatency(total float64) error {
	if err := util.ValidateLatency(total); err != nil {
		return s.rejected("set WAN latency", err)
	}
	for _, c := range s.registry.WAN() {
		c.SetLatency(total / 2)
	}
	s.logger.Info("WAN latency set",
		zap.Float64(logging.FieldLatency, total),
		zap.Int("links", len(s.registry.WAN())),
	)
	return nil
}
