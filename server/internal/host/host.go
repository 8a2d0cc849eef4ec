// Package host models a host endpoint that discovers volume paths on array
// controllers and drives a read/write workload through the best one.
package host

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/server/internal/logging"
	"github.com/yaroslav/stretchsim/server/internal/metrics"
	"github.com/yaroslav/stretchsim/server/internal/network"
)

// Target is a controller port the host reaches out of one of its own ports.
type Target struct {
	HostPort       string
	Controller     string
	ControllerPort string
}

// String returns "<controller>:<port>".
func (t Target) String() string { return t.Controller + ":" + t.ControllerPort }

// Host issues list_volumes to every target each tick and writes its workload
// volume through the first ready, optimized path. Every second tick it also
// reads the volume through that path.
type Host struct {
	name   string
	online bool
	logger *zap.Logger

	ports   []*network.Port
	targets []Target
	volume  string

	// Volume listings received this tick, by target.
	paths map[Target][]models.VolumeEntry

	steps   uint64
	nextIO  uint64
	pending map[uint64]models.MessageTag

	readsSent       uint64
	readsAcked      uint64
	lastReadLatency float64
	writesSent      uint64
	writesAcked     uint64
	lastLatency     float64
	lastBandwidth   float64
}

// New creates an online host with ports p0..p<n-1>.
func New(name string, ports int, logger *zap.Logger) *Host {
	h := &Host{
		name:    name,
		online:  true,
		logger:  logging.Component(logger, "host").With(zap.String(logging.FieldDevice, name)),
		paths:   make(map[Target][]models.VolumeEntry),
		pending: make(map[uint64]models.MessageTag),
	}
	for i := 0; i < ports; i++ {
		h.ports = append(h.ports, network.NewPort(h, "p"+strconv.Itoa(i)))
	}
	return h
}

func (h *Host) Name() string   { return h.name }
func (h *Host) IsOnline() bool { return h.online }
func (h *Host) Volume() string { return h.volume }

// Port returns the named port.
func (h *Host) Port(name string) (*network.Port, bool) {
	for _, p := range h.ports {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// AddTarget registers a controller port to discover paths on.
func (h *Host) AddTarget(t Target) error {
	if _, ok := h.Port(t.HostPort); !ok {
		return fmt.Errorf("%w: %s has no port %s", models.ErrUnknownPort, h.name, t.HostPort)
	}
	for _, existing := range h.targets {
		if existing == t {
			return fmt.Errorf("%w: target %s on %s", models.ErrAlreadyExists, t, h.name)
		}
	}
	h.targets = append(h.targets, t)
	return nil
}

// Targets returns the registered targets in discovery order.
func (h *Host) Targets() []Target {
	return append([]Target(nil), h.targets...)
}

// SetVolume sets the workload volume. An empty name stops the workload.
func (h *Host) SetVolume(volume string) {
	h.volume = volume
}

// HandleAction applies fail/recover and the tick phases.
func (h *Host) HandleAction(action models.Action) error {
	switch action {
	case models.ActionFail:
		h.online = false
	case models.ActionRecover:
		h.online = true
	case models.ActionStep:
		h.Step()
	case models.ActionPreStep, models.ActionPostStep:
	default:
		return fmt.Errorf("%w: %s on host %s", models.ErrInvalidAction, action, h.name)
	}
	return nil
}

// Step rediscovers paths and issues one write, preceded by a read on even
// steps.
func (h *Host) Step() {
	if !h.online {
		return
	}
	h.steps++
	clear(h.paths)
	clear(h.pending)

	for _, t := range h.targets {
		h.send(t, models.TagListVolumes, nil)
	}

	if h.volume == "" {
		return
	}
	t, ok := h.bestPath()
	if !ok {
		h.logger.Debug("no ready path", zap.String("volume", h.volume))
		return
	}

	if h.steps%2 == 0 {
		h.readsSent++
		h.issue(t, models.TagRead)
	}
	h.writesSent++
	h.issue(t, models.TagWrite)
}

func (h *Host) issue(t Target, tag models.MessageTag) {
	h.nextIO++
	h.pending[h.nextIO] = tag
	h.send(t, tag, models.IOPayload{ID: h.nextIO, Volume: h.volume})
}

// acked matches an ack against the request it answers. A repeated or
// mismatched ack returns false.
func (h *Host) acked(pkt *network.Packet, request models.MessageTag) bool {
	io, ok := pkt.Payload.(models.IOPayload)
	if !ok || h.pending[io.ID] != request {
		return false
	}
	delete(h.pending, io.ID)
	return true
}

func (h *Host) send(t Target, tag models.MessageTag, payload any) {
	port, _ := h.Port(t.HostPort)
	port.SendTo(t.Controller, t.ControllerPort, tag, payload)
}

// bestPath prefers the first ready and optimized path, then any ready one.
func (h *Host) bestPath() (Target, bool) {
	var fallback *Target
	for i, t := range h.targets {
		for _, v := range h.paths[t] {
			if v.Name != h.volume || !v.Ready {
				continue
			}
			if v.Optimized {
				return t, true
			}
			if fallback == nil {
				fallback = &h.targets[i]
			}
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return Target{}, false
}

// ReadyPaths lists the targets on which the workload volume was reported
// ready this tick.
func (h *Host) ReadyPaths() []string {
	var out []string
	for _, t := range h.targets {
		for _, v := range h.paths[t] {
			if v.Name == h.volume && v.Ready {
				out = append(out, t.String())
				break
			}
		}
	}
	return out
}

// OnPacket records path listings and I/O acks.
func (h *Host) OnPacket(pkt *network.Packet, in *network.Port) {
	switch pkt.Tag {
	case models.TagVolumes:
		volumes, _ := pkt.Payload.([]models.VolumeEntry)
		t := Target{HostPort: in.Name(), Controller: pkt.Src, ControllerPort: pkt.SrcPort}
		h.paths[t] = volumes
	case models.TagReadAck:
		if !h.acked(pkt, models.TagRead) {
			return
		}
		h.readsAcked++
		h.lastReadLatency = pkt.CumulativeLatency
		metrics.HostIOLatency.WithLabelValues(h.name, metrics.HostOpRead).Observe(pkt.CumulativeLatency)
	case models.TagWriteAck:
		if !h.acked(pkt, models.TagWrite) {
			return
		}
		h.writesAcked++
		h.lastLatency = pkt.CumulativeLatency
		h.lastBandwidth = pkt.MinBandwidth
		metrics.HostIOLatency.WithLabelValues(h.name, metrics.HostOpWrite).Observe(pkt.CumulativeLatency)
	}
}

// Status returns a snapshot of the host.
func (h *Host) Status() models.HostStatus {
	return models.HostStatus{
		Name:               h.name,
		Online:             h.online,
		Volume:             h.volume,
		ReadyPaths:         h.ReadyPaths(),
		ReadsSent:          h.readsSent,
		ReadsAcked:         h.readsAcked,
		LastReadLatency:    h.lastReadLatency,
		WritesSent:         h.writesSent,
		WritesAcked:        h.writesAcked,
		LastWriteLatency:   h.lastLatency,
		LastWriteBandwidth: h.lastBandwidth,
	}
}
