package activecluster

import (
	"fmt"
	"math/rand"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/server/internal/logging"
	"github.com/yaroslav/stretchsim/server/internal/metrics"
)

// VolumeSeparator joins a pod name and a volume name.
const VolumeSeparator = "::"

// Pod is a stretched volume group with at most two member arrays.
type Pod struct {
	name   string
	cfg    Config
	rng    *rand.Rand
	logger *zap.Logger

	mediator     string
	mediatorPort string

	members []string
	states  map[string]*ArrayState

	volumes    []string
	preference string

	// epoch is the mediation request id. It never decreases.
	epoch uint64
}

// New creates an empty pod arbitrated by mediator/mediatorPort. The random
// source breaks pre-election ties; nil uses a fixed seed.
func New(name, mediator, mediatorPort string, cfg Config, rng *rand.Rand, logger *zap.Logger) *Pod {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Pod{
		name:         name,
		cfg:          cfg,
		rng:          rng,
		logger:       logging.Component(logger, "pod").With(zap.String(logging.FieldPod, name)),
		mediator:     mediator,
		mediatorPort: mediatorPort,
		states:       make(map[string]*ArrayState),
	}
}

func (p *Pod) Name() string               { return p.name }
func (p *Pod) Epoch() uint64              { return p.epoch }
func (p *Pod) Mediator() string           { return p.mediator }
func (p *Pod) FailoverPreference() string { return p.preference }

// Members returns member array names in join order.
func (p *Pod) Members() []string { return slices.Clone(p.members) }

// Volumes returns the pod's qualified volume names.
func (p *Pod) Volumes() []string { return slices.Clone(p.volumes) }

// IsStretched reports whether the pod spans two arrays.
func (p *Pod) IsStretched() bool { return len(p.members) == 2 }

// ArrayState returns the state of a member array.
func (p *Pod) ArrayState(array string) (*ArrayState, bool) {
	s, ok := p.states[array]
	return s, ok
}

// HasVolume reports whether the qualified volume belongs to the pod.
func (p *Pod) HasVolume(volume string) bool {
	return slices.Contains(p.volumes, volume)
}

// AddArray adds a member. The first member starts synced and pre-elected;
// the second starts added and baselines once it reaches the first.
func (p *Pod) AddArray(m Member) error {
	name := m.Name()
	if _, ok := p.states[name]; ok {
		return fmt.Errorf("%w: %s is already a member of pod %s", models.ErrAlreadyExists, name, p.name)
	}
	if len(p.members) >= 2 {
		return fmt.Errorf("%w: cannot add %s to pod %s", models.ErrPodFull, name, p.name)
	}

	var s *ArrayState
	if len(p.members) == 0 {
		s = newArrayState(m, models.SyncSynced)
		s.preElected = true
		s.lastKnownEpoch = p.epoch
	} else {
		s = newArrayState(m, models.SyncAdded)
	}
	p.states[name] = s
	p.members = append(p.members, name)

	p.logger.Info("array added to pod",
		zap.String(logging.FieldArray, name),
		zap.String("state", string(s.state)),
	)
	return nil
}

// RemoveArray un-stretches the pod. The last member cannot be removed, and
// neither can a member whose host entries still map a pod volume.
func (p *Pod) RemoveArray(array string) error {
	s, ok := p.states[array]
	if !ok {
		return fmt.Errorf("%w: %s is not in pod %s", models.ErrNotMember, array, p.name)
	}
	if len(p.members) == 1 {
		return fmt.Errorf("%w: %s", models.ErrLastMember, p.name)
	}
	for _, v := range p.volumes {
		if s.member.MapsVolume(v) {
			return fmt.Errorf("%w: %s on %s", models.ErrVolumeInUse, v, array)
		}
	}

	delete(p.states, array)
	p.members = slices.DeleteFunc(p.members, func(m string) bool { return m == array })
	if p.preference == array {
		p.preference = ""
	}

	p.logger.Info("array removed from pod", zap.String(logging.FieldArray, array))
	return nil
}

// QualifyVolume returns the pod-qualified form of a volume name.
func (p *Pod) QualifyVolume(volume string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(volume))
	prefix, rest, found := strings.Cut(v, VolumeSeparator)
	if !found {
		rest = v
	} else if prefix != p.name {
		return "", fmt.Errorf("%w: %s is not in pod %s", models.ErrInvalidVolumeName, volume, p.name)
	}
	if rest == "" {
		return "", fmt.Errorf("%w: empty volume name", models.ErrInvalidVolumeName)
	}
	return p.name + VolumeSeparator + rest, nil
}

// AddVolume adds a volume and returns its qualified name.
func (p *Pod) AddVolume(volume string) (string, error) {
	v, err := p.QualifyVolume(volume)
	if err != nil {
		return "", err
	}
	if p.HasVolume(v) {
		return v, fmt.Errorf("%w: volume %s", models.ErrAlreadyExists, v)
	}
	p.volumes = append(p.volumes, v)
	return v, nil
}

// SetFailoverPreference makes array the tie-break winner for pre-election
// and mediation.
func (p *Pod) SetFailoverPreference(array string) error {
	if _, ok := p.states[array]; !ok {
		return fmt.Errorf("%w: %s is not in pod %s", models.ErrNotMember, array, p.name)
	}
	p.preference = array
	p.logger.Info("failover preference set", zap.String(logging.FieldArray, array))
	return nil
}

// ClearFailoverPreference removes the tie-break preference.
func (p *Pod) ClearFailoverPreference() {
	p.preference = ""
}

// State summarizes the pod over its online members.
func (p *Pod) State() models.PodState {
	online, paused := 0, 0
	for _, name := range p.members {
		s := p.states[name]
		if !s.member.IsOnline() {
			continue
		}
		online++
		switch s.state {
		case models.SyncSynced:
			return models.PodSynced
		case models.SyncPaused:
			paused++
		}
	}
	if online > 0 && paused == online {
		return models.PodPaused
	}
	return models.PodFailed
}

// HandleAction runs the tick phase actions. Pods cannot be failed directly.
func (p *Pod) HandleAction(action models.Action) error {
	switch action {
	case models.ActionPreStep:
		p.PreStep()
	case models.ActionStep, models.ActionPostStep:
	default:
		return fmt.Errorf("%w: %s on pod %s", models.ErrInvalidAction, action, p.name)
	}
	return nil
}

// Status returns a snapshot of the pod and its members in join order.
func (p *Pod) Status() models.PodStatus {
	st := models.PodStatus{
		Name:               p.name,
		State:              p.State(),
		Stretched:          p.IsStretched(),
		Forwarding:         p.IsForwarding(),
		Epoch:              p.epoch,
		FailoverPreference: p.preference,
		Mediator:           p.mediator,
		Volumes:            p.Volumes(),
		Arrays:             make([]models.PodArrayStatus, 0, len(p.members)),
	}
	for _, name := range p.members {
		st.Arrays = append(st.Arrays, p.states[name].status())
	}
	return st
}

// PeerControllers returns the controller names of array's peer member, or
// nil when the pod is not stretched.
func (p *Pod) PeerControllers(array string) []string {
	if _, ok := p.states[array]; !ok || !p.IsStretched() {
		return nil
	}
	return p.peerOf(array).member.ControllerNames()
}

func (p *Pod) peerOf(array string) *ArrayState {
	for _, name := range p.members {
		if name != array {
			return p.states[name]
		}
	}
	return nil
}

func (p *Pod) transition(s *ArrayState, to models.SyncState) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	metrics.PodStateTransitions.WithLabelValues(p.name, string(from), string(to)).Inc()
	p.logger.Info("pod member state changed",
		zap.String(logging.FieldArray, s.Array()),
		zap.String(logging.FieldFromState, string(from)),
		zap.String(logging.FieldToState, string(to)),
		zap.Uint64(logging.FieldEpoch, p.epoch),
	)
}

func (p *Pod) setSynced(s *ArrayState) {
	p.transition(s, models.SyncSynced)
	s.lastKnownEpoch = p.epoch
}

func (p *Pod) bumpEpoch(s *ArrayState, reason string) {
	p.epoch++
	p.logger.Info("mediation epoch advanced",
		zap.String(logging.FieldArray, s.Array()),
		zap.Uint64(logging.FieldEpoch, p.epoch),
		zap.String("reason", reason),
	)
}

func (p *Pod) elect(s *ArrayState, cause string) {
	s.elected = true
	metrics.PodElections.WithLabelValues(p.name, cause).Inc()
	fields := []zap.Field{
		zap.String(logging.FieldArray, s.Array()),
		zap.String("cause", cause),
	}
	if peer := p.peerOf(s.Array()); peer != nil {
		fields = append(fields, zap.String(logging.FieldPeer, peer.Array()))
	}
	p.logger.Info("pod member elected", fields...)
}
