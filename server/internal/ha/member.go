package ha

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/server/internal/logging"
	"github.com/yaroslav/stretchsim/server/internal/metrics"
)

// Member is one controller of a sibling pair.
//
// The single-primary rule is soft: Promote demotes a primary sibling, and
// Step lets a secondary take over whenever its sibling is not primary, so a
// pair that disagrees converges on the next tick.
type Member struct {
	name    string
	mode    Mode
	sibling *Member
	logger  *zap.Logger
}

// NewPair creates two sibling members. The first starts primary, the second
// secondary.
func NewPair(first, second string, logger *zap.Logger) (*Member, *Member) {
	logger = logging.Component(logger, "ha")
	a := &Member{name: first, mode: ModePrimary, logger: logger.With(zap.String(logging.FieldController, first))}
	b := &Member{name: second, mode: ModeSecondary, logger: logger.With(zap.String(logging.FieldController, second))}
	a.sibling = b
	b.sibling = a
	return a, b
}

func (m *Member) Name() string      { return m.name }
func (m *Member) Mode() Mode        { return m.mode }
func (m *Member) Sibling() *Member  { return m.sibling }
func (m *Member) IsOnline() bool    { return m.mode != ModeFailed }
func (m *Member) IsPrimary() bool   { return m.mode == ModePrimary }
func (m *Member) IsSecondary() bool { return m.mode == ModeSecondary }

// Fail takes the member offline. A secondary sibling takes over immediately.
func (m *Member) Fail() bool {
	if m.mode == ModeFailed {
		return false
	}
	m.set(ModeFailed, "failed")
	if m.sibling.IsSecondary() {
		m.sibling.set(ModePrimary, "sibling failed")
	}
	return true
}

// Recover brings a failed member back as secondary. A primary stays primary.
func (m *Member) Recover() bool {
	if m.mode != ModeFailed {
		return false
	}
	m.set(ModeSecondary, "recovered")
	return true
}

// Promote makes the member primary and demotes a primary sibling. A failed
// member cannot be promoted.
func (m *Member) Promote() bool {
	switch m.mode {
	case ModePrimary:
		return false
	case ModeFailed:
		m.logger.Warn("ignoring promote of failed controller")
		return false
	}
	if m.sibling.IsPrimary() {
		m.sibling.set(ModeSecondary, "sibling promoted")
	}
	m.set(ModePrimary, "promoted")
	return true
}

// Step self-promotes a secondary whose sibling is not primary.
func (m *Member) Step() bool {
	if m.mode != ModeSecondary || m.sibling.IsPrimary() {
		return false
	}
	m.set(ModePrimary, "sibling not primary")
	return true
}

// Apply dispatches a device action. Tick phase actions other than step are
// accepted and have no effect on the failover state.
func (m *Member) Apply(action models.Action) (bool, error) {
	switch action {
	case models.ActionFail:
		return m.Fail(), nil
	case models.ActionRecover:
		return m.Recover(), nil
	case models.ActionPromote:
		return m.Promote(), nil
	case models.ActionStep:
		return m.Step(), nil
	case models.ActionPreStep, models.ActionPostStep:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s on controller %s", models.ErrInvalidAction, action, m.name)
	}
}

func (m *Member) set(to Mode, reason string) {
	from := m.mode
	m.mode = to
	metrics.ControllerStateTransitions.WithLabelValues(string(from), string(to)).Inc()
	m.logger.Info("controller state changed",
		zap.String(logging.FieldFromState, string(from)),
		zap.String(logging.FieldToState, string(to)),
		zap.String("reason", reason),
	)
}
