package network

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/server/internal/logging"
)

// Registry owns every connection of one simulation.
type Registry struct {
	byName map[string]*Connection
	order  []*Connection
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		byName: make(map[string]*Connection),
		logger: logging.Component(logger, "network"),
	}
}

// Connect links two ports. Each port may carry a single connection; a port
// that is already attached yields models.ErrPortInUse.
func (r *Registry) Connect(a, b *Port, latency, bandwidth float64) (*Connection, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: nil port", models.ErrUnknownPort)
	}
	if a == b {
		return nil, fmt.Errorf("%w: cannot connect %s to itself", models.ErrInvalidRequest, a.FullName())
	}
	for _, p := range []*Port{a, b} {
		if p.conn != nil {
			return nil, fmt.Errorf("%w: %s is attached to %s", models.ErrPortInUse, p.FullName(), p.conn.name)
		}
	}
	if bandwidth <= 0 {
		bandwidth = UnlimitedBandwidth
	}

	c := &Connection{
		name:      a.FullName() + "--" + b.FullName(),
		a:         a,
		b:         b,
		latency:   latency,
		bandwidth: bandwidth,
		online:    true,
		logger:    r.logger,
	}
	a.conn = c
	b.conn = c
	r.byName[c.name] = c
	r.order = append(r.order, c)

	r.logger.Debug("connection created",
		zap.String(logging.FieldConnection, c.name),
		zap.Float64(logging.FieldLatency, latency),
		zap.Float64("bandwidth", bandwidth),
	)
	return c, nil
}

// Get looks up a connection by name.
func (r *Registry) Get(name string) (*Connection, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// All returns connections in creation order.
func (r *Registry) All() []*Connection {
	out := make([]*Connection, len(r.order))
	copy(out, r.order)
	return out
}

// WAN returns the connections marked as inter-site links.
func (r *Registry) WAN() []*Connection {
	var out []*Connection
	for _, c := range r.order {
		if c.wan {
			out = append(out, c)
		}
	}
	return out
}

// ResetFlows clears the dataFlowing flag of every connection. It runs at
// the start of every tick.
func (r *Registry) ResetFlows() {
	for _, c := range r.order {
		c.dataFlowing = false
	}
}

// Reset detaches and forgets every connection.
func (r *Registry) Reset() {
	for _, c := range r.order {
		c.a.conn = nil
		c.b.conn = nil
	}
	r.byName = make(map[string]*Connection)
	r.order = nil
}
