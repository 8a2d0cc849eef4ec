package activecluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaroslav/stretchsim/models"
)

func TestAddArray(t *testing.T) {
	p := New("pod1", "mediator", "eth0", DefaultConfig(), nil, nil)
	a, b, c := newFakeArray("a"), newFakeArray("b"), newFakeArray("c")

	require.NoError(t, p.AddArray(a))
	sa, _ := p.ArrayState("a")
	assert.Equal(t, models.SyncSynced, sa.State())
	assert.True(t, sa.PreElected())
	assert.False(t, p.IsStretched())

	assert.ErrorIs(t, p.AddArray(a), models.ErrAlreadyExists)

	require.NoError(t, p.AddArray(b))
	sb, _ := p.ArrayState("b")
	assert.Equal(t, models.SyncAdded, sb.State())
	assert.False(t, sb.PreElected())
	assert.True(t, p.IsStretched())

	assert.ErrorIs(t, p.AddArray(c), models.ErrPodFull)
	assert.Equal(t, []string{"a", "b"}, p.Members())
}

func TestRemoveArray(t *testing.T) {
	h := newHarness(t)
	v, err := h.pod.AddVolume("ds1")
	require.NoError(t, err)

	assert.ErrorIs(t, h.pod.RemoveArray("zz"), models.ErrNotMember)

	h.arrays["b"].mapped[v] = true
	assert.ErrorIs(t, h.pod.RemoveArray("b"), models.ErrVolumeInUse)
	assert.True(t, h.pod.IsStretched())

	h.arrays["b"].mapped[v] = false
	require.NoError(t, h.pod.SetFailoverPreference("b"))
	require.NoError(t, h.pod.RemoveArray("b"))
	assert.Equal(t, []string{"a"}, h.pod.Members())
	assert.Empty(t, h.pod.FailoverPreference())

	assert.ErrorIs(t, h.pod.RemoveArray("a"), models.ErrLastMember)
}

func TestAddVolume(t *testing.T) {
	p := New("pod1", "mediator", "eth0", DefaultConfig(), nil, nil)

	tests := []struct {
		input   string
		want    string
		wantErr error
	}{
		{input: "ds1", want: "pod1::ds1"},
		{input: "POD1::DS2", want: "pod1::ds2"},
		{input: "pod2::ds3", wantErr: models.ErrInvalidVolumeName},
		{input: "  ", wantErr: models.ErrInvalidVolumeName},
		{input: "pod1::ds1", want: "pod1::ds1", wantErr: models.ErrAlreadyExists},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := p.AddVolume(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, []string{"pod1::ds1", "pod1::ds2"}, p.Volumes())
	assert.True(t, p.HasVolume("pod1::ds2"))
}

func TestSetFailoverPreference(t *testing.T) {
	h := newHarness(t)

	assert.ErrorIs(t, h.pod.SetFailoverPreference("c"), models.ErrNotMember)
	require.NoError(t, h.pod.SetFailoverPreference("b"))
	assert.Equal(t, "b", h.pod.FailoverPreference())

	h.pod.ClearFailoverPreference()
	assert.Empty(t, h.pod.FailoverPreference())
}

func TestPodState(t *testing.T) {
	h := newHarness(t)
	h.joined()
	assert.Equal(t, models.PodSynced, h.pod.State())

	h.state("a").state = models.SyncPaused
	h.state("b").state = models.SyncPaused
	assert.Equal(t, models.PodPaused, h.pod.State())

	h.arrays["a"].online = false
	assert.Equal(t, models.PodPaused, h.pod.State(), "offline members do not count")

	h.state("b").state = models.SyncOffline
	assert.Equal(t, models.PodFailed, h.pod.State())

	h.arrays["b"].online = false
	assert.Equal(t, models.PodFailed, h.pod.State())
}

func TestHandleAction(t *testing.T) {
	p := New("pod1", "mediator", "eth0", DefaultConfig(), nil, nil)

	assert.NoError(t, p.HandleAction(models.ActionPreStep))
	assert.NoError(t, p.HandleAction(models.ActionPostStep))
	assert.ErrorIs(t, p.HandleAction(models.ActionFail), models.ErrInvalidAction)
}

func TestStatus(t *testing.T) {
	h := newHarness(t)
	_, err := h.pod.AddVolume("ds1")
	require.NoError(t, err)
	h.joined()

	st := h.pod.Status()
	assert.Equal(t, "pod1", st.Name)
	assert.True(t, st.Stretched)
	assert.True(t, st.Forwarding)
	assert.Equal(t, "mediator", st.Mediator)
	assert.Equal(t, []string{"pod1::ds1"}, st.Volumes)
	require.Len(t, st.Arrays, 2)
	assert.Equal(t, "a", st.Arrays[0].Array)
	assert.True(t, st.Arrays[0].Writable)
	assert.True(t, st.Arrays[1].PeerConnected)
	assert.True(t, st.Arrays[1].MediatorConnected)
}
