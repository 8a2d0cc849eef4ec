// Package mediator implements the cloud mediator: a third party that grants
// write authority to exactly one member of a partitioned pod.
//
// Requests are queued as they arrive and resolved in Step, once per tick.
// Each pod has one mediation state per epoch; a request with a higher epoch
// opens a new state and a request with a lower epoch is answered lost.
package mediator

import (
	"cmp"
	"fmt"
	"math/rand"
	"slices"

	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/server/internal/logging"
	"github.com/yaroslav/stretchsim/server/internal/metrics"
	"github.com/yaroslav/stretchsim/server/internal/network"
)

// DefaultPort is the mediator's only port.
const DefaultPort = "eth0"

// Decision reasons.
const (
	ReasonSoleResponder      = "sole_responder"
	ReasonPreference         = "preference"
	ReasonPreferenceOverride = "preference_override"
	ReasonQuorumPreference   = "quorum_preference"
	ReasonQuorumRandom       = "quorum_random"
)

// Config holds the arbitration delays, in ticks since the epoch opened.
type Config struct {
	// DecisionDelay is how long to wait before choosing between two
	// requesters.
	DecisionDelay int `yaml:"decision_delay" json:"decision_delay"`

	// PreferenceOverride is how long a lone requester that is not the
	// preferred array waits for the preferred one.
	PreferenceOverride int `yaml:"preference_override" json:"preference_override"`
}

const (
	DefaultDecisionDelay      = 2
	DefaultPreferenceOverride = 3
)

// DefaultConfig returns the default delays.
func DefaultConfig() Config {
	return Config{DecisionDelay: DefaultDecisionDelay, PreferenceOverride: DefaultPreferenceOverride}
}

type requestKey struct {
	pod   string
	array string
}

type pendingRequest struct {
	req models.MediationRequest
	pkt *network.Packet
	in  *network.Port
}

// state is the mediator's view of one pod epoch.
type state struct {
	pod        string
	epoch      uint64
	heardFrom  []string
	preference string
	decision   string
	reason     string
	elapsed    int
}

// Mediator arbitrates pods that name it as their mediator.
type Mediator struct {
	name   string
	cfg    Config
	rng    *rand.Rand
	logger *zap.Logger
	online bool
	port   *network.Port

	pending map[requestKey]*pendingRequest
	states  map[string]*state
}

// New creates an online mediator with a single port named DefaultPort. The
// random source breaks ties between two requesters; nil uses a fixed seed.
func New(name string, cfg Config, rng *rand.Rand, logger *zap.Logger) *Mediator {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	m := &Mediator{
		name:    name,
		cfg:     cfg,
		rng:     rng,
		logger:  logging.Component(logger, "mediator").With(zap.String(logging.FieldDevice, name)),
		online:  true,
		pending: make(map[requestKey]*pendingRequest),
		states:  make(map[string]*state),
	}
	m.port = network.NewPort(m, DefaultPort)
	return m
}

func (m *Mediator) Name() string   { return m.name }
func (m *Mediator) IsOnline() bool { return m.online }

// Port returns the named port.
func (m *Mediator) Port(name string) (*network.Port, bool) {
	if name != m.port.Name() {
		return nil, false
	}
	return m.port, true
}

// OnPacket answers heartbeats and queues mediation requests.
func (m *Mediator) OnPacket(pkt *network.Packet, in *network.Port) {
	switch pkt.Tag {
	case models.TagMediatorHeartbeat:
		in.SendResponse(pkt, models.TagMediatorHeartbeatAck, pkt.Payload, 0, network.UnlimitedBandwidth)
	case models.TagMediationRequest:
		req, ok := pkt.Payload.(models.MediationRequest)
		if !ok {
			return
		}
		m.enqueue(req, pkt, in)
	}
}

// enqueue keeps one request per (pod, array). A resend with an older epoch
// is ignored; one with the same epoch keeps the older age.
func (m *Mediator) enqueue(req models.MediationRequest, pkt *network.Packet, in *network.Port) {
	k := requestKey{pod: req.Pod, array: req.Array}
	if prev, ok := m.pending[k]; ok {
		if req.Epoch < prev.req.Epoch {
			m.logger.Debug("older mediation request ignored",
				zap.String(logging.FieldPod, req.Pod),
				zap.String(logging.FieldArray, req.Array),
				zap.Uint64(logging.FieldEpoch, req.Epoch),
			)
			return
		}
		if req.Epoch == prev.req.Epoch {
			req.TicksSinceSent = max(req.TicksSinceSent, prev.req.TicksSinceSent)
		}
	} else {
		metrics.MediationPending.Inc()
	}
	m.pending[k] = &pendingRequest{req: req, pkt: pkt, in: in}
}

// HandleAction applies fail/recover and the tick phases. A failed mediator
// forgets its queued requests but keeps per-pod epochs.
func (m *Mediator) HandleAction(action models.Action) error {
	switch action {
	case models.ActionFail:
		if m.online {
			m.online = false
			metrics.MediationPending.Sub(float64(len(m.pending)))
			clear(m.pending)
			m.logger.Info("mediator failed")
		}
	case models.ActionRecover:
		if !m.online {
			m.online = true
			m.logger.Info("mediator recovered")
		}
	case models.ActionStep:
		m.Step()
	case models.ActionPreStep, models.ActionPostStep:
	default:
		return fmt.Errorf("%w: %s on mediator %s", models.ErrInvalidAction, action, m.name)
	}
	return nil
}

// Step resolves queued requests.
func (m *Mediator) Step() {
	if !m.online {
		return
	}

	// Age.
	for _, st := range m.states {
		st.elapsed++
	}
	for _, p := range m.pending {
		p.req.TicksSinceSent++
	}

	keys := m.sortedKeys()

	// Open a fresh state for any higher epoch.
	for _, k := range keys {
		req := m.pending[k].req
		if st, ok := m.states[req.Pod]; !ok || req.Epoch > st.epoch {
			m.states[req.Pod] = &state{pod: req.Pod, epoch: req.Epoch, preference: req.FailoverPreference}
			metrics.MediationEpoch.WithLabelValues(req.Pod).Set(float64(req.Epoch))
			m.logger.Info("mediation epoch opened",
				zap.String(logging.FieldPod, req.Pod),
				zap.Uint64(logging.FieldEpoch, req.Epoch),
				zap.String("preference", req.FailoverPreference),
			)
		}
	}

	// Stale requesters lose; the rest are heard.
	for _, k := range keys {
		p := m.pending[k]
		st := m.states[k.pod]
		if p.req.Epoch < st.epoch {
			m.answer(k, false)
			continue
		}
		if !slices.Contains(st.heardFrom, k.array) {
			st.heardFrom = append(st.heardFrom, k.array)
		}
	}

	// Decide and answer.
	for _, k := range keys {
		if _, ok := m.pending[k]; !ok {
			continue
		}
		st := m.states[k.pod]
		if st.decision == "" {
			m.decide(st)
		}
		if st.decision != "" {
			m.answer(k, st.decision == k.array)
		}
	}
}

func (m *Mediator) decide(st *state) {
	var winner, reason string

	switch len(st.heardFrom) {
	case 0:
		return
	case 1:
		sole := st.heardFrom[0]
		switch {
		case st.preference == "":
			winner, reason = sole, ReasonSoleResponder
		case st.preference == sole:
			winner, reason = sole, ReasonPreference
		case st.elapsed >= m.cfg.PreferenceOverride:
			winner, reason = sole, ReasonPreferenceOverride
		default:
			return
		}
	default:
		if st.elapsed < m.cfg.DecisionDelay {
			return
		}
		if slices.Contains(st.heardFrom, st.preference) {
			winner, reason = st.preference, ReasonQuorumPreference
		} else {
			winner, reason = st.heardFrom[m.rng.Intn(len(st.heardFrom))], ReasonQuorumRandom
		}
	}

	st.decision = winner
	st.reason = reason
	metrics.MediationDecisions.WithLabelValues(st.pod, reason).Inc()
	m.logger.Info("mediation decided",
		zap.String(logging.FieldPod, st.pod),
		zap.Uint64(logging.FieldEpoch, st.epoch),
		zap.String(logging.FieldArray, winner),
		zap.String("reason", reason),
		zap.Strings("heard_from", st.heardFrom),
		zap.Int("elapsed", st.elapsed),
	)
}

// answer responds to and retires the pending request k.
func (m *Mediator) answer(k requestKey, won bool) {
	p := m.pending[k]
	delete(m.pending, k)
	metrics.MediationPending.Dec()

	tag, outcome := models.TagMediationLost, "lost"
	if won {
		tag, outcome = models.TagMediationWon, "won"
	}
	metrics.MediationResponses.WithLabelValues(outcome).Inc()
	m.logger.Debug("mediation answered",
		zap.String(logging.FieldPod, k.pod),
		zap.String(logging.FieldArray, k.array),
		zap.Uint64(logging.FieldEpoch, p.req.Epoch),
		zap.String("outcome", outcome),
	)

	resp := models.MediationResponse{Pod: k.pod, Array: k.array, Epoch: p.req.Epoch, Won: won}
	p.in.SendResponse(p.pkt, tag, resp, 0, network.UnlimitedBandwidth)
}

func (m *Mediator) sortedKeys() []requestKey {
	keys := make([]requestKey, 0, len(m.pending))
	for k := range m.pending {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b requestKey) int {
		return cmp.Or(cmp.Compare(a.pod, b.pod), cmp.Compare(a.array, b.array))
	})
	return keys
}

// Pending returns the number of queued requests.
func (m *Mediator) Pending() int { return len(m.pending) }

// Mediation returns the current state for pod.
func (m *Mediator) Mediation(pod string) (models.MediationStatus, bool) {
	st, ok := m.states[pod]
	if !ok {
		return models.MediationStatus{}, false
	}
	return st.status(), true
}

// Status returns a snapshot of the mediator, pods in name order.
func (m *Mediator) Status() models.MediatorStatus {
	st := models.MediatorStatus{
		Name:    m.name,
		Online:  m.online,
		Pending: len(m.pending),
		Pods:    make([]models.MediationStatus, 0, len(m.states)),
	}
	for _, s := range m.states {
		st.Pods = append(st.Pods, s.status())
	}
	slices.SortFunc(st.Pods, func(a, b models.MediationStatus) int { return cmp.Compare(a.Pod, b.Pod) })
	return st
}

func (s *state) status() models.MediationStatus {
	return models.MediationStatus{
		Pod:       s.pod,
		Epoch:     s.epoch,
		HeardFrom: slices.Clone(s.heardFrom),
		Decision:  s.decision,
		Reason:    s.reason,
		Elapsed:   s.elapsed,
	}
}
