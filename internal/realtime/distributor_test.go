package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenworks/signboard/internal/model"
)

type fakePlanFinder struct {
	plans []model.Plan
	err   error
}

func (f *fakePlanFinder) ListActivePlans(now time.Time) ([]model.Plan, error) {
	return f.plans, f.err
}

func activePlan(id string, priority int, start time.Time, campaigns model.CampaignList) model.Plan {
	end := start.Add(2 * time.Hour)
	return model.Plan{
		ID:        id,
		Status:    model.PlanStatusActive,
		Priority:  priority,
		Start:     &start,
		End:       &end,
		Campaigns: campaigns,
	}
}

func decodeCampaigns(t *testing.T, env model.Envelope) model.CampaignList {
	t.Helper()
	var out model.CampaignList
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestCatchUpWithNoActivePlansClearsDisplay(t *testing.T) {
	hub, _, _ := newTestHub()
	conn := newFakeConn()
	require.NoError(t, hub.RegisterPlayer("dev-1", newSession(conn)))

	dist := NewDistributor(hub, &fakePlanFinder{}, nil)
	dist.CatchUp("dev-1")

	env := conn.waitEvent(t, model.EventContentUpdate)
	assert.Empty(t, decodeCampaigns(t, env))
}

func TestCatchUpPushesSingleActivePlan(t *testing.T) {
	hub, _, _ := newTestHub()
	conn := newFakeConn()
	require.NoError(t, hub.RegisterPlayer("dev-1", newSession(conn)))

	campaigns := model.CampaignList{{CampaignID: "c1", Name: "spring sale", Duration: 20}}
	finder := &fakePlanFinder{plans: []model.Plan{
		activePlan("p1", 1, time.Now().Add(-time.Hour), campaigns),
	}}
	dist := NewDistributor(hub, finder, nil)
	dist.CatchUp("dev-1")

	env := conn.waitEvent(t, model.EventContentUpdate)
	assert.Equal(t, campaigns, decodeCampaigns(t, env))
}

func TestCatchUpPrefersHighestPriorityEarliestStart(t *testing.T) {
	hub, _, _ := newTestHub()
	conn := newFakeConn()
	require.NoError(t, hub.RegisterPlayer("dev-1", newSession(conn)))

	low := activePlan("low", 1, time.Now().Add(-3*time.Hour),
		model.CampaignList{{CampaignID: "c-low"}})
	later := activePlan("later", 5, time.Now().Add(-time.Hour),
		model.CampaignList{{CampaignID: "c-later"}})
	earlier := activePlan("earlier", 5, time.Now().Add(-2*time.Hour),
		model.CampaignList{{CampaignID: "c-earlier"}})

	finder := &fakePlanFinder{plans: []model.Plan{low, later, earlier}}
	dist := NewDistributor(hub, finder, nil)
	dist.CatchUp("dev-1")

	env := conn.waitEvent(t, model.EventContentUpdate)
	got := decodeCampaigns(t, env)
	require.Len(t, got, 1)
	assert.Equal(t, "c-earlier", got[0].CampaignID)
}

func TestPushToDisconnectedDeviceIsSilentNoop(t *testing.T) {
	hub, _, _ := newTestHub()
	dist := NewDistributor(hub, &fakePlanFinder{}, nil)

	// nothing registered for the device; must not error or panic
	dist.PushToDevice("ghost", model.CampaignList{{CampaignID: "c1"}})
}

func TestPlanStartedReachesPlayersAndAdmins(t *testing.T) {
	hub, _, _ := newTestHub()
	playerConn := newFakeConn()
	adminConn := newFakeConn()
	require.NoError(t, hub.RegisterPlayer("dev-1", newSession(playerConn)))
	require.NoError(t, hub.RegisterUser(1, newSession(adminConn)))

	dist := NewDistributor(hub, &fakePlanFinder{}, nil)
	start := time.Now().Add(-time.Minute)
	plan := activePlan("p1", 3, start, model.CampaignList{{CampaignID: "c1"}})
	plan.MaxPlaysPerHour = 6
	dist.PlanStarted(&plan)

	for _, conn := range []*fakeConn{playerConn, adminConn} {
		env := conn.waitEvent(t, model.EventPlanStarted)
		var payload model.PlanStartedPayload
		require.NoError(t, json.Unmarshal(env.Data, &payload))
		assert.Equal(t, "p1", payload.PlanID)
		assert.Equal(t, 6, payload.MaxPlaysPerHour)
		assert.Equal(t, 3, payload.Priority)
	}
}

func TestPlanEndedReevaluatesConnectedDevices(t *testing.T) {
	hub, _, _ := newTestHub()
	conn := newFakeConn()
	require.NoError(t, hub.RegisterPlayer("dev-1", newSession(conn)))

	// nothing else is active once the plan ends
	dist := NewDistributor(hub, &fakePlanFinder{}, nil)
	dist.PlanEnded("p1")

	env := conn.waitEvent(t, model.EventPlanEnded)
	var payload model.PlanEndedPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "p1", payload.PlanID)

	// followed by an explicit empty snapshot, not a stale display
	env = conn.waitEvent(t, model.EventContentUpdate)
	assert.Empty(t, decodeCampaigns(t, env))
}
