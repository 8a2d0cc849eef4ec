package api

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/sdk"
)

// setupServer serves a fresh router over HTTP and returns an SDK client for it.
func setupServer(t *testing.T) *sdk.Client {
	t.Helper()
	r, _ := setupRouter(t)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	client, err := sdk.NewClient(sdk.ClientConfig{BaseURLs: []string{server.URL}, RetryAttempts: -1})
	require.NoError(t, err)
	return client
}

func podStatus(t *testing.T, client *sdk.Client) *models.PodStatus {
	t.Helper()
	device, err := client.Device(context.Background(), "pod1")
	require.NoError(t, err)
	pod, err := device.Pod()
	require.NoError(t, err)
	return pod
}

func member(t *testing.T, pod *models.PodStatus, array string) models.PodArrayStatus {
	t.Helper()
	for _, m := range pod.Arrays {
		if m.Array == array {
			return m
		}
	}
	t.Fatalf("pod %s has no member %s", pod.Name, array)
	return models.PodArrayStatus{}
}

func TestE2E_WANPartitionAndHeal(t *testing.T) {
	client := setupServer(t)
	ctx := context.Background()

	health, err := client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "connected", health.Journal)

	_, err = client.SetFailoverPreference(ctx, "pod1", "site1fa1")
	require.NoError(t, err)

	res, err := client.Tick(ctx, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 4, res.Tick)
	pod := podStatus(t, client)
	assert.Equal(t, models.PodSynced, pod.State)
	assert.True(t, pod.Forwarding)

	// Partition the sites; the mediator grants the preferred array.
	require.NoError(t, client.SetWANLatency(ctx, 24))
	_, err = client.Tick(ctx, 5)
	require.NoError(t, err)

	pod = podStatus(t, client)
	assert.EqualValues(t, 1, pod.Epoch)
	assert.True(t, member(t, pod, "site1fa1").Elected)
	assert.True(t, member(t, pod, "site1fa1").Writable)
	assert.Equal(t, models.SyncOffline, member(t, pod, "site2fa1").State)
	assert.False(t, member(t, pod, "site2fa1").Writable)

	mediations, err := client.Transitions(ctx, sdk.TransitionFilter{Kind: models.TransitionMediation})
	require.NoError(t, err)
	require.NotEmpty(t, mediations.Transitions)
	assert.Equal(t, "cloud-mediator/pod1", mediations.Transitions[0].Subject)
	assert.Equal(t, "site1fa1", mediations.Transitions[0].To)

	// Healing the WAN resyncs the loser.
	require.NoError(t, client.SetWANLatency(ctx, 3))
	_, err = client.Tick(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, models.SyncSynced, member(t, podStatus(t, client), "site2fa1").State)

	require.NoError(t, client.Reset(ctx))
	status, err := client.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, status.Snapshot.Tick)
	all, err := client.Transitions(ctx, sdk.TransitionFilter{})
	require.NoError(t, err)
	assert.Zero(t, all.Total)
}

func TestE2E_ErrorsMapToSentinels(t *testing.T) {
	client := setupServer(t)
	ctx := context.Background()

	_, err := client.Device(ctx, "nope")
	assert.ErrorIs(t, err, sdk.ErrNotFound)

	_, err = client.Action(ctx, "site1fa1", models.ActionPromote)
	assert.ErrorIs(t, err, sdk.ErrBadRequest)

	_, err = client.SetFailoverPreference(ctx, "pod1", "cloud-mediator")
	assert.ErrorIs(t, err, sdk.ErrConflict)

	_, err = client.Tick(ctx, 0)
	assert.ErrorIs(t, err, sdk.ErrBadRequest)

	var apiErr *sdk.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid_request", apiErr.Code)
	assert.NotEmpty(t, apiErr.RequestID)

	err = client.SetWANLatency(ctx, -1)
	assert.ErrorIs(t, err, sdk.ErrBadRequest)
}

func TestE2E_ControllerFailover(t *testing.T) {
	client := setupServer(t)
	ctx := context.Background()

	_, err := client.Tick(ctx, 4)
	require.NoError(t, err)

	act, err := client.Action(ctx, "site1fa1-ct0", models.ActionFail)
	require.NoError(t, err)
	assert.Equal(t, "site1fa1-ct0", act.Device)

	res, err := client.Tick(ctx, 3)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Transitions)

	status, err := client.Status(ctx)
	require.NoError(t, err)
	for _, a := range status.Snapshot.Arrays {
		if a.Name != "site1fa1" {
			continue
		}
		for _, c := range a.Controllers {
			if c.Name == "site1fa1-ct1" {
				assert.Equal(t, models.ControllerPrimary, c.State)
			}
		}
	}
}
