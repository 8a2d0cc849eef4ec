package sim

import (
	"fmt"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/server/internal/activecluster"
	"github.com/yaroslav/stretchsim/server/internal/array"
	"github.com/yaroslav/stretchsim/server/internal/host"
	"github.com/yaroslav/stretchsim/server/internal/mediator"
	"github.com/yaroslav/stretchsim/server/internal/network"
)

type named interface{ Name() string }

func find[T named](items []T, kind models.DeviceKind, name string) (T, error) {
	for _, item := range items {
		if item.Name() == name {
			return item, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: %s %s", models.ErrNotFound, kind, name)
}

func (s *Simulation) Array(name string) (*array.FlashArray, error) {
	return find(s.arrays, models.KindArray, name)
}

func (s *Simulation) Switch(name string) (*network.Switch, error) {
	return find(s.switches, models.KindSwitch, name)
}

func (s *Simulation) Mediator(name string) (*mediator.Mediator, error) {
	return find(s.mediators, models.KindMediator, name)
}

func (s *Simulation) Host(name string) (*host.Host, error) {
	return find(s.hosts, models.KindHost, name)
}

func (s *Simulation) Pod(name string) (*activecluster.Pod, error) {
	return find(s.pods, models.KindPod, name)
}

// Connection finds a link by its registry name.
func (s *Simulation) Connection(name string) (*network.Connection, error) {
	if c, ok := s.registry.Get(name); ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s %s", models.ErrNotFound, models.KindConnection, name)
}

// Controller finds a controller by its full name.
func (s *Simulation) Controller(name string) (*array.Controller, error) {
	for _, a := range s.arrays {
		for _, c := range a.Controllers() {
			if c.Name() == name {
				return c, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s %s", models.ErrNotFound, models.KindController, name)
}

// Kind reports what a name refers to. Connections are looked up in the
// registry.
func (s *Simulation) Kind(name string) (models.DeviceKind, bool) {
	if k, ok := s.names[name]; ok {
		return k, true
	}
	if _, ok := s.registry.Get(name); ok {
		return models.KindConnection, true
	}
	return "", false
}

// Arrays returns the arrays in creation order.
func (s *Simulation) Arrays() []*array.FlashArray {
	return append([]*array.FlashArray(nil), s.arrays...)
}

// Pods returns the pods in creation order.
func (s *Simulation) Pods() []*activecluster.Pod {
	return append([]*activecluster.Pod(nil), s.pods...)
}

// Hosts returns the hosts in creation order.
func (s *Simulation) Hosts() []*host.Host {
	return append([]*host.Host(nil), s.hosts...)
}

func (s *Simulation) podAndArray(podName, arrayName string) (*activecluster.Pod, *array.FlashArray, error) {
	p, err := s.Pod(podName)
	if err != nil {
		return nil, nil, err
	}
	a, err := s.Array(arrayName)
	if err != nil {
		return nil, nil, err
	}
	return p, a, nil
}
