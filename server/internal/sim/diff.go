package sim

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/yaroslav/stretchsim/models"
)

// diff reports what changed between two snapshots. Components that are new
// in cur have no previous state and report nothing.
func diff(tick uint64, prev, cur models.Snapshot) []models.Transition {
	var out []models.Transition
	add := func(kind models.TransitionKind, subject, from, to, detail string) {
		out = append(out, models.Transition{Tick: tick, Kind: kind, Subject: subject, From: from, To: to, Detail: detail})
	}

	controllers := func(arrays []models.ArrayStatus) []models.ControllerStatus {
		return lo.FlatMap(arrays, func(a models.ArrayStatus, _ int) []models.ControllerStatus { return a.Controllers })
	}
	prevControllers := lo.KeyBy(controllers(prev.Arrays), func(c models.ControllerStatus) string { return c.Name })
	for _, c := range controllers(cur.Arrays) {
		if p, ok := prevControllers[c.Name]; ok && p.State != c.State {
			add(models.TransitionController, c.Name, string(p.State), string(c.State), c.Array)
		}
	}

	prevPods := lo.KeyBy(prev.Pods, func(p models.PodStatus) string { return p.Name })
	for _, pod := range cur.Pods {
		pp, ok := prevPods[pod.Name]
		if !ok {
			continue
		}
		if pp.Epoch != pod.Epoch {
			add(models.TransitionEpoch, pod.Name, fmt.Sprint(pp.Epoch), fmt.Sprint(pod.Epoch), "")
		}
		prevMembers := lo.KeyBy(pp.Arrays, func(m models.PodArrayStatus) string { return m.Array })
		for _, m := range pod.Arrays {
			pm, ok := prevMembers[m.Array]
			if !ok {
				continue
			}
			subject := pod.Name + "/" + m.Array
			if pm.State != m.State {
				add(models.TransitionPodState, subject, string(pm.State), string(m.State), fmt.Sprintf("epoch %d", pod.Epoch))
			}
			if from, to := electionLabel(pm), electionLabel(m); from != to {
				add(models.TransitionElection, subject, from, to, "")
			}
		}
	}

	prevMediations := make(map[string]models.MediationStatus)
	for _, m := range prev.Mediators {
		for _, st := range m.Pods {
			prevMediations[m.Name+"/"+st.Pod] = st
		}
	}
	for _, m := range cur.Mediators {
		for _, st := range m.Pods {
			if st.Decision == "" {
				continue
			}
			subject := m.Name + "/" + st.Pod
			p := prevMediations[subject]
			if p.Epoch == st.Epoch && p.Decision == st.Decision {
				continue
			}
			add(models.TransitionMediation, subject, lo.Ternary(p.Epoch == st.Epoch, p.Decision, ""), st.Decision,
				fmt.Sprintf("epoch %d, %s", st.Epoch, st.Reason))
		}
	}

	prevLinks := lo.KeyBy(prev.Connections, func(c models.ConnectionStatus) string { return c.Name })
	for _, c := range cur.Connections {
		if p, ok := prevLinks[c.Name]; ok && p.Online != c.Online {
			add(models.TransitionLink, c.Name, linkLabel(p.Online), linkLabel(c.Online), "")
		}
	}
	return out
}

func electionLabel(m models.PodArrayStatus) string {
	switch {
	case m.Elected:
		return "elected"
	case m.PreElected:
		return "pre-elected"
	}
	return "none"
}

func linkLabel(online bool) string {
	return lo.Ternary(online, "up", "down")
}
