package db_test

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenworks/signboard/internal/db"
	"github.com/lumenworks/signboard/internal/model"
)

// TestStoreIntegration exercises the plan and player stores against a real
// database. Set TEST_DATABASE_URL to run it.
func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping store integration test")
	}
	require.NoError(t, db.Init(dsn))
	require.NoError(t, db.RunMigrations("../../migrations"))

	store := db.NewStore()

	t.Run("Plan Lifecycle", func(t *testing.T) {
		start := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
		end := start.Add(2 * time.Hour)
		plan := model.Plan{
			ID:        uuid.NewString(),
			Name:      "store test plan",
			EventType: "default",
			Start:     &start,
			End:       &end,
			Repeat:    model.RepeatNone,
			Status:    model.PlanStatusPending,
			Priority:  3,
			Campaigns: model.CampaignList{{CampaignID: "c1", Name: "campaign", Duration: 30}},
		}

		created, err := store.CreatePlan(plan)
		require.NoError(t, err)
		assert.Equal(t, plan.ID, created.ID)
		assert.Len(t, created.Campaigns, 1)

		fetched, err := store.GetPlanByID(plan.ID)
		require.NoError(t, err)
		assert.Equal(t, plan.Name, fetched.Name)
		assert.True(t, fetched.Start.Equal(start))

		require.NoError(t, store.UpdatePlanStatus(plan.ID, model.PlanStatusActive))

		active, err := store.ListActivePlans(time.Now())
		require.NoError(t, err)
		found := false
		for _, p := range active {
			if p.ID == plan.ID {
				found = true
			}
		}
		assert.True(t, found, "active plan missing from ListActivePlans")

		nextStart := start.Add(24 * time.Hour)
		nextEnd := end.Add(24 * time.Hour)
		require.NoError(t, store.ReschedulePlan(plan.ID, nextStart, nextEnd, model.PlanStatusPending))
		rescheduled, err := store.GetPlanByID(plan.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PlanStatusPending, rescheduled.Status)
		assert.True(t, rescheduled.Start.Equal(nextStart))

		schedulable, err := store.ListSchedulablePlans()
		require.NoError(t, err)
		assert.NotEmpty(t, schedulable)

		require.NoError(t, store.DeletePlan(plan.ID))
		_, err = store.GetPlanByID(plan.ID)
		assert.Error(t, err)
	})

	t.Run("Player Presence", func(t *testing.T) {
		deviceID := "test-" + uuid.NewString()

		created, err := store.UpsertPlayerByDeviceID(deviceID, model.PlayerStatusOnline, time.Now())
		require.NoError(t, err)
		assert.Equal(t, deviceID, created.DeviceID)
		assert.Equal(t, model.PlayerStatusOnline, created.Status)

		// second registration reuses the durable record
		again, err := store.UpsertPlayerByDeviceID(deviceID, model.PlayerStatusOnline, time.Now())
		require.NoError(t, err)
		assert.Equal(t, created.ID, again.ID)

		require.NoError(t, store.TouchPlayerHeartbeat(deviceID, time.Now().Add(-time.Hour)))
		stale, err := store.ListStalePlayers(time.Now().Add(-30 * time.Minute))
		require.NoError(t, err)
		found := false
		for _, p := range stale {
			if p.DeviceID == deviceID {
				found = true
			}
		}
		assert.True(t, found, "stale player missing from sweep query")

		require.NoError(t, store.SetPlayerStatus(deviceID, model.PlayerStatusOffline))
		fetched, err := store.GetPlayerByDeviceID(deviceID)
		require.NoError(t, err)
		assert.Equal(t, model.PlayerStatusOffline, fetched.Status)
	})
}
