package activecluster

import (
	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/server/internal/logging"
)

// Election causes, as reported in metrics.
const (
	causePreElection = "pre_election"
	causeMediator    = "mediator"
	causePeerOffline = "peer_offline"
)

// PreStep starts a new tick for every member.
func (p *Pod) PreStep() {
	for _, s := range p.states {
		s.rotate()
	}
}

// Step runs one tick of the state machine for the member array, driven by
// its primary controller c.
func (p *Pod) Step(array string, c Sender) {
	s, ok := p.states[array]
	if !ok {
		return
	}
	s.faConnected = false
	s.mediatorConnected = false
	s.measured = true

	if !p.IsStretched() {
		if s.state != models.SyncSynced {
			p.setSynced(s)
		}
		return
	}
	peer := p.peerOf(array)

	hello := models.ReplicationPayload{Pod: p.name, Array: array}
	c.SendReplication(peer.member.ControllerNames(), models.TagHeartbeat, hello)
	if p.mediator != "" {
		c.SendManagement(p.mediator, p.mediatorPort, models.TagMediatorHeartbeat, hello)
	}

	if s.faConnected {
		p.stepConnected(s, peer)
	} else {
		p.stepPartitioned(s, peer, c)
	}
}

func (p *Pod) stepConnected(s, peer *ArrayState) {
	switch peer.state {
	case models.SyncSynced:
		switch s.state {
		case models.SyncAdded:
			p.transition(s, models.SyncBaselining)
			s.resetTimer(timerBaseline)
		case models.SyncBaselining:
			if s.advance(timerBaseline, p.cfg.BaselineTicks) {
				p.setSynced(s)
				p.releaseElection(peer)
			}
		case models.SyncOffline, models.SyncPaused:
			p.transition(s, models.SyncResyncing)
		case models.SyncResyncing:
			p.setSynced(s)
			p.releaseElection(peer)
		case models.SyncSynced:
			p.releaseElection(s)
			p.preElect(s, peer)
		}

	case models.SyncOffline:
		switch s.state {
		case models.SyncPaused:
			// The peer is out of the race; no mediator round is needed.
			p.elect(s, causePeerOffline)
			p.bumpEpoch(s, "peer offline")
			p.setSynced(s)
		case models.SyncOffline:
			if s.elected {
				p.setSynced(s)
			}
		}

	case models.SyncPaused:
		if s.state != models.SyncPaused {
			return
		}
		switch {
		case s.elected:
			p.setSynced(s)
		case p.epoch == s.lastKnownEpoch:
			// First of two paused members to see the other wins the
			// round and invalidates it for the loser.
			p.bumpEpoch(s, "first to see paused peer")
			p.setSynced(s)
		}
	}
}

func (p *Pod) stepPartitioned(s, peer *ArrayState, c Sender) {
	switch s.state {
	case models.SyncSynced:
		if s.elected {
			return
		}
		switch {
		case s.preElected:
			p.elect(s, causePreElection)
		case peer.preElected:
			p.transition(s, models.SyncOffline)
		default:
			p.transition(s, models.SyncPaused)
		}

	case models.SyncPaused:
		if s.elected {
			p.setSynced(s)
			return
		}
		if p.mediator == "" {
			return
		}
		c.SendManagement(p.mediator, p.mediatorPort, models.TagMediationRequest, models.MediationRequest{
			Array:              s.Array(),
			Pod:                p.name,
			Epoch:              s.lastKnownEpoch,
			FailoverPreference: p.preference,
		})

	case models.SyncBaselining:
		s.resetTimer(timerBaseline)
	}
}

// releaseElection drops s's election once both members are in sync. The
// peer that just caught up releases it too, so a partition on the very next
// tick cannot find a stale winner.
func (p *Pod) releaseElection(s *ArrayState) {
	if !s.elected {
		return
	}
	s.elected = false
	p.logger.Info("election released, peer in sync", zap.String(logging.FieldArray, s.Array()))
}

// preElect designates a tie-break winner ahead of time while both members
// are synced and neither reaches the mediator. Once forwarding is healthy
// and the mediator is reachable again, any pre-election is dropped.
func (p *Pod) preElect(s, peer *ArrayState) {
	if s.MediatorConnected() || peer.MediatorConnected() {
		p.clearElections()
		return
	}
	if s.preElected || peer.preElected || s.elected || peer.elected {
		return
	}
	if !s.advance(timerPreElect, p.cfg.PreElectTicks) {
		return
	}

	winner := p.preference
	if winner == "" {
		winner = p.members[p.rng.Intn(len(p.members))]
	}
	p.states[winner].preElected = true
	p.logger.Info("pod member pre-elected",
		zap.String(logging.FieldArray, winner),
		zap.Bool("by_preference", p.preference != ""),
	)
}

func (p *Pod) clearElections() {
	if !p.IsForwarding() {
		return
	}
	for _, name := range p.members {
		s := p.states[name]
		if s.preElected || s.elected {
			p.logger.Info("pre-election cleared", zap.String(logging.FieldArray, name))
		}
		s.preElected = false
		s.elected = false
		s.resetTimer(timerPreElect)
	}
}

// OnHeartbeatAck records a peer heartbeat ack received by array. Acks at
// or above the WAN threshold count as no ack at all.
func (p *Pod) OnHeartbeatAck(array string, roundTrip float64) {
	s, ok := p.states[array]
	if !ok {
		return
	}
	if roundTrip >= p.cfg.WANLatencyThreshold {
		p.logger.Debug("heartbeat ack over WAN threshold",
			zap.String(logging.FieldArray, array),
			zap.Float64(logging.FieldLatency, roundTrip),
		)
		return
	}
	s.faConnected = true
}

// OnMediatorHeartbeatAck records mediator reachability for array.
func (p *Pod) OnMediatorHeartbeatAck(array string) {
	if s, ok := p.states[array]; ok {
		s.mediatorConnected = true
	}
}

// OnMediationResponse applies the mediator's answer. Answers for another
// epoch, or arriving when the member is no longer paused, are stale. A grant
// must also match the pod's current epoch: once the peer has bumped it, the
// round the grant answers is void. A denial still applies at the member's
// own epoch.
func (p *Pod) OnMediationResponse(resp models.MediationResponse) {
	s, ok := p.states[resp.Array]
	if !ok {
		return
	}
	if s.state != models.SyncPaused || resp.Epoch != s.lastKnownEpoch || (resp.Won && resp.Epoch != p.epoch) {
		p.logger.Debug("stale mediation response ignored",
			zap.String(logging.FieldArray, resp.Array),
			zap.Uint64(logging.FieldEpoch, resp.Epoch),
			zap.Uint64("last_known_epoch", s.lastKnownEpoch),
			zap.Uint64("pod_epoch", p.epoch),
			zap.Bool("won", resp.Won),
		)
		return
	}

	if resp.Won {
		p.elect(s, causeMediator)
		p.bumpEpoch(s, "mediator grant")
		p.setSynced(s)
		return
	}
	p.transition(s, models.SyncOffline)
}

// ArrayPowerOn re-enters a member whose array just came back online. An
// elected member keeps its state; otherwise a member that was serving must
// earn write authority again.
func (p *Pod) ArrayPowerOn(array string) {
	s, ok := p.states[array]
	if !ok {
		return
	}
	s.clearConnectivity()
	if s.elected {
		return
	}
	switch s.state {
	case models.SyncSynced:
		p.transition(s, models.SyncPaused)
	case models.SyncBaselining:
		p.transition(s, models.SyncAdded)
	case models.SyncResyncing:
		p.transition(s, models.SyncOffline)
	}
}
