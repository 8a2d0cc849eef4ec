package activecluster

import "github.com/yaroslav/stretchsim/models"

// IsForwarding reports whether writes are replicated: both members synced
// and reaching each other.
func (p *Pod) IsForwarding() bool {
	if !p.IsStretched() {
		return false
	}
	for _, name := range p.members {
		s := p.states[name]
		if s.state != models.SyncSynced || !s.PeerConnected() {
			return false
		}
	}
	return true
}

// AdmitWrite decides how a write arriving at array is handled.
func (p *Pod) AdmitWrite(array string) models.Admission {
	s, ok := p.states[array]
	if !ok {
		return models.AdmitDrop
	}
	if p.IsForwarding() {
		return models.AdmitForward
	}
	if s.state == models.SyncSynced {
		return models.AdmitLocal
	}
	return models.AdmitDrop
}

// AdmitRead decides how a read arriving at array is handled. Reads are
// always served locally.
func (p *Pod) AdmitRead(array string) models.Admission {
	if s, ok := p.states[array]; ok && s.state == models.SyncSynced {
		return models.AdmitLocal
	}
	return models.AdmitDrop
}

// IsVolumeReady reports whether pod volumes can serve I/O through array.
func (p *Pod) IsVolumeReady(array string) bool {
	return p.AdmitRead(array) != models.AdmitDrop
}
