package array

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/server/internal/activecluster"
	"github.com/yaroslav/stretchsim/server/internal/logging"
	"github.com/yaroslav/stretchsim/server/internal/metrics"
)

// FlashArray is a dual-controller array. It is online while either
// controller is.
type FlashArray struct {
	name   string
	cfg    Config
	logger *zap.Logger

	ct0, ct1 *Controller

	hostEntries []*HostEntry
	pods        []*activecluster.Pod
}

// New creates an array with controllers "<name>-ct0" (primary) and
// "<name>-ct1" (secondary).
func New(name string, cfg Config, logger *zap.Logger) *FlashArray {
	logger = logging.Component(logger, "array").With(zap.String(logging.FieldArray, name))
	fa := &FlashArray{name: name, cfg: cfg, logger: logger}
	fa.ct0, fa.ct1 = newControllerPair(fa, logger)
	metrics.ControllersPrimary.WithLabelValues(name).Set(1)
	return fa
}

func (fa *FlashArray) Name() string   { return fa.name }
func (fa *FlashArray) Config() Config { return fa.cfg }

// IsOnline reports whether at least one controller is online.
func (fa *FlashArray) IsOnline() bool {
	return fa.ct0.IsOnline() || fa.ct1.IsOnline()
}

// Controllers returns ct0 and ct1.
func (fa *FlashArray) Controllers() []*Controller {
	return []*Controller{fa.ct0, fa.ct1}
}

// ControllerNames returns the full controller names.
func (fa *FlashArray) ControllerNames() []string {
	return []string{fa.ct0.Name(), fa.ct1.Name()}
}

// Controller finds a controller by full name ("fa1-ct0") or short name ("ct0").
func (fa *FlashArray) Controller(name string) (*Controller, bool) {
	for _, c := range fa.Controllers() {
		if c.Name() == name || fa.name+"-"+strings.ToLower(name) == c.Name() {
			return c, true
		}
	}
	return nil, false
}

// Primary returns the primary controller, or nil.
func (fa *FlashArray) Primary() *Controller {
	for _, c := range fa.Controllers() {
		if c.member.IsPrimary() {
			return c
		}
	}
	return nil
}

// HandleAction applies an array-level action to both controllers. Promote
// only makes sense for a single controller.
func (fa *FlashArray) HandleAction(action models.Action) error {
	switch action {
	case models.ActionPromote:
		return fmt.Errorf("%w: %s on array %s", models.ErrInvalidAction, action, fa.name)
	case models.ActionStep:
		fa.Step()
		return nil
	}
	return fa.whilePowerChecked(func() error {
		for _, c := range fa.Controllers() {
			if err := c.HandleAction(action); err != nil {
				return err
			}
		}
		return nil
	})
}

// HandleControllerAction applies action to one controller.
func (fa *FlashArray) HandleControllerAction(controller string, action models.Action) error {
	c, ok := fa.Controller(controller)
	if !ok {
		return fmt.Errorf("%w: controller %s on array %s", models.ErrNotFound, controller, fa.name)
	}
	return fa.whilePowerChecked(func() error { return c.HandleAction(action) })
}

// whilePowerChecked runs fn and re-enters the array's pods if the array went
// from offline to online.
func (fa *FlashArray) whilePowerChecked(fn func() error) error {
	wasOnline := fa.IsOnline()
	err := fn()
	if !wasOnline && fa.IsOnline() {
		fa.logger.Info("array powered on")
		for _, p := range fa.pods {
			p.ArrayPowerOn(fa.name)
		}
	} else if wasOnline && !fa.IsOnline() {
		fa.logger.Info("array offline")
	}
	fa.updatePrimaryGauge()
	return err
}

// Step runs one tick: both controllers step, then the primary drives every
// pod the array belongs to.
func (fa *FlashArray) Step() {
	fa.ct0.Step()
	fa.ct1.Step()
	fa.updatePrimaryGauge()

	primary := fa.Primary()
	if primary == nil {
		return
	}
	for _, p := range fa.pods {
		p.Step(fa.name, primary)
	}
}

func (fa *FlashArray) updatePrimaryGauge() {
	n := 0
	for _, c := range fa.Controllers() {
		if c.member.IsPrimary() {
			n++
		}
	}
	metrics.ControllersPrimary.WithLabelValues(fa.name).Set(float64(n))
}

// JoinPod records membership in p. The pod itself tracks the member state.
func (fa *FlashArray) JoinPod(p *activecluster.Pod) {
	if fa.Pod(p.Name()) == nil {
		fa.pods = append(fa.pods, p)
	}
}

// LeavePod forgets membership in the named pod.
func (fa *FlashArray) LeavePod(name string) {
	fa.pods = slices.DeleteFunc(fa.pods, func(p *activecluster.Pod) bool { return p.Name() == name })
}

// Pod returns the named pod if the array is a member.
func (fa *FlashArray) Pod(name string) *activecluster.Pod {
	for _, p := range fa.pods {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// Pods returns the pods the array belongs to.
func (fa *FlashArray) Pods() []*activecluster.Pod { return slices.Clone(fa.pods) }

func (fa *FlashArray) podForVolume(volume string) *activecluster.Pod {
	for _, p := range fa.pods {
		if p.HasVolume(volume) {
			return p
		}
	}
	return nil
}

// CreateHostEntry adds an entry for host.
func (fa *FlashArray) CreateHostEntry(host string) error {
	if _, ok := fa.HostEntry(host); ok {
		return fmt.Errorf("%w: host entry %s on %s", models.ErrAlreadyExists, host, fa.name)
	}
	fa.hostEntries = append(fa.hostEntries, &HostEntry{Host: host})
	return nil
}

// HostEntry returns the entry for host.
func (fa *FlashArray) HostEntry(host string) (*HostEntry, bool) {
	for _, e := range fa.hostEntries {
		if e.Host == host {
			return e, true
		}
	}
	return nil, false
}

// MapVolume maps volume to host. A pod-qualified volume must belong to a pod
// this array is a member of.
func (fa *FlashArray) MapVolume(host, volume string) error {
	e, ok := fa.HostEntry(host)
	if !ok {
		return fmt.Errorf("%w: host entry %s on %s", models.ErrNotFound, host, fa.name)
	}
	volume = strings.ToLower(strings.TrimSpace(volume))
	if volume == "" {
		return fmt.Errorf("%w: empty volume name", models.ErrInvalidVolumeName)
	}
	if strings.Contains(volume, activecluster.VolumeSeparator) && fa.podForVolume(volume) == nil {
		return fmt.Errorf("%w: pod volume %s on %s", models.ErrNotFound, volume, fa.name)
	}
	if e.Maps(volume) {
		return fmt.Errorf("%w: %s already mapped to %s", models.ErrAlreadyExists, volume, host)
	}
	e.Volumes = append(e.Volumes, volume)
	fa.logger.Info("volume mapped", zap.String("host", host), zap.String("volume", volume))
	return nil
}

// AddPreferredArray marks array as preferred for host.
func (fa *FlashArray) AddPreferredArray(host, array string) error {
	e, ok := fa.HostEntry(host)
	if !ok {
		return fmt.Errorf("%w: host entry %s on %s", models.ErrNotFound, host, fa.name)
	}
	if slices.Contains(e.PreferredArrays, array) {
		return fmt.Errorf("%w: %s already preferred by %s", models.ErrAlreadyExists, array, host)
	}
	e.PreferredArrays = append(e.PreferredArrays, array)
	return nil
}

// MapsVolume reports whether any host entry maps volume.
func (fa *FlashArray) MapsVolume(volume string) bool {
	return slices.ContainsFunc(fa.hostEntries, func(e *HostEntry) bool { return e.Maps(volume) })
}

// listVolumes builds the volume list reported to host.
func (fa *FlashArray) listVolumes(host string) ([]models.VolumeEntry, bool) {
	e, ok := fa.HostEntry(host)
	if !ok {
		return nil, false
	}
	optimized := e.Optimized(fa.name)
	volumes := make([]models.VolumeEntry, 0, len(e.Volumes))
	for _, v := range e.Volumes {
		ready := true
		if p := fa.podForVolume(v); p != nil {
			ready = p.IsVolumeReady(fa.name)
		}
		volumes = append(volumes, models.VolumeEntry{Name: v, Optimized: optimized, Ready: ready})
	}
	return volumes, true
}

// Status returns a snapshot of the array.
func (fa *FlashArray) Status() models.ArrayStatus {
	st := models.ArrayStatus{
		Name:        fa.name,
		Online:      fa.IsOnline(),
		Pods:        make([]string, 0, len(fa.pods)),
		HostEntries: make([]models.HostEntryStatus, 0, len(fa.hostEntries)),
	}
	for _, c := range fa.Controllers() {
		st.Controllers = append(st.Controllers, c.Status())
	}
	for _, p := range fa.pods {
		st.Pods = append(st.Pods, p.Name())
	}
	for _, e := range fa.hostEntries {
		st.HostEntries = append(st.HostEntries, e.status())
	}
	return st
}
