package sim

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/server/internal/logging"
)

// HandleAction delivers action to the named array, controller, switch,
// mediator, host, pod or connection. An unknown target or an action the
// target does not accept leaves the simulation unchanged.
func (s *Simulation) HandleAction(name string, action models.Action) error {
	err := s.dispatch(name, action)
	fields := []zap.Field{
		zap.String(logging.FieldDevice, name),
		zap.String(logging.FieldAction, string(action)),
		zap.Uint64(logging.FieldTick, s.tick),
	}
	if err != nil {
		s.logger.Warn("action rejected", append(fields, zap.Error(err))...)
		return err
	}
	switch action {
	case models.ActionFail, models.ActionRecover, models.ActionPromote:
		s.logger.Info("action applied", fields...)
	}
	return nil
}

func (s *Simulation) dispatch(name string, action models.Action) error {
	if !action.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidAction, action)
	}
	kind, ok := s.Kind(name)
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrNotFound, name)
	}

	switch kind {
	case models.KindArray:
		a, err := s.Array(name)
		if err != nil {
			return err
		}
		return a.HandleAction(action)
	case models.KindController:
		c, err := s.Controller(name)
		if err != nil {
			return err
		}
		return c.Array().HandleControllerAction(c.Name(), action)
	case models.KindSwitch:
		sw, err := s.Switch(name)
		if err != nil {
			return err
		}
		return sw.HandleAction(action)
	case models.KindMediator:
		m, err := s.Mediator(name)
		if err != nil {
			return err
		}
		return m.HandleAction(action)
	case models.KindHost:
		h, err := s.Host(name)
		if err != nil {
			return err
		}
		return h.HandleAction(action)
	case models.KindPod:
		p, err := s.Pod(name)
		if err != nil {
			return err
		}
		return p.HandleAction(action)
	case models.KindConnection:
		c, err := s.Connection(name)
		if err != nil {
			return err
		}
		return c.HandleAction(action)
	}
	return fmt.Errorf("%w: %s", models.ErrNotFound, name)
}
