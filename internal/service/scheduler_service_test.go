package service

import (
	"context"
	"testing"

	"equity-research/internal/dto"
	"equity-research/internal/model"
	"equity-research/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func createScheduleRequest(promptID uint) dto.CreateScheduleRequest {
	return dto.CreateScheduleRequest{
		Name:           "daily research",
		PromptID:       promptID,
		Provider:       dto.ProviderDeepResearch,
		Selection:      string(model.SelectionAll),
		CronExpression: "0 9 * * *",
		Timezone:       "America/New_York",
	}
}

func TestCreateSchedule_ArmsTimer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prompt := f.seedPrompt(t, "Analyze {{tickers}}")

	schedule, err := f.scheduler.CreateSchedule(ctx, createScheduleRequest(prompt.ID))
	require.NoError(t, err)
	assert.True(t, schedule.Enabled)
	require.NotNil(t, schedule.NextRunAt)
	require.NotNil(t, schedule.NextTimerID)
	assert.Equal(t, 1, f.timers.Len())

	// Timer state persisted together with the handle.
	var stored model.Schedule
	require.NoError(t, f.db.First(&stored, schedule.ID).Error)
	require.NotNil(t, stored.NextRunAt)
	require.NotNil(t, stored.NextTimerID)
	assert.Equal(t, *schedule.NextTimerID, *stored.NextTimerID)
}

func TestCreateSchedule_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prompt := f.seedPrompt(t, "Analyze {{tickers}}")

	req := createScheduleRequest(prompt.ID)
	req.CronExpression = "0 9 * *"
	_, err := f.scheduler.CreateSchedule(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidScheduleSpec)

	req = createScheduleRequest(prompt.ID)
	req.Timezone = "Mars/Olympus"
	_, err = f.scheduler.CreateSchedule(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidScheduleSpec)

	req = createScheduleRequest(999)
	_, err = f.scheduler.CreateSchedule(ctx, req)
	assert.ErrorIs(t, err, ErrPromptNotFound)

	req = createScheduleRequest(prompt.ID)
	req.Provider = "other"
	_, err = f.scheduler.CreateSchedule(ctx, req)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestToggleSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prompt := f.seedPrompt(t, "Analyze {{tickers}}")
	schedule, err := f.scheduler.CreateSchedule(ctx, createScheduleRequest(prompt.ID))
	require.NoError(t, err)
	require.Equal(t, 1, f.timers.Len())

	disabled, err := f.scheduler.ToggleSchedule(ctx, schedule.ID, false)
	require.NoError(t, err)
	assert.False(t, disabled.Enabled)
	assert.Nil(t, disabled.NextRunAt)
	assert.Nil(t, disabled.NextTimerID)
	assert.Equal(t, 0, f.timers.Len())

	enabled, err := f.scheduler.ToggleSchedule(ctx, schedule.ID, true)
	require.NoError(t, err)
	assert.True(t, enabled.Enabled)
	require.NotNil(t, enabled.NextRunAt)
	require.NotNil(t, enabled.NextTimerID)
	assert.Equal(t, 1, f.timers.Len())
}

func TestUpdateSchedule_RearmsTimer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prompt := f.seedPrompt(t, "Analyze {{tickers}}")
	schedule, err := f.scheduler.CreateSchedule(ctx, createScheduleRequest(prompt.ID))
	require.NoError(t, err)
	oldTimer := *schedule.NextTimerID

	newExpr := "30 18 * * 5"
	updated, err := f.scheduler.UpdateSchedule(ctx, schedule.ID, dto.UpdateScheduleRequest{
		CronExpression: &newExpr,
	})
	require.NoError(t, err)
	assert.Equal(t, newExpr, updated.CronExpression)
	require.NotNil(t, updated.NextTimerID)
	assert.NotEqual(t, oldTimer, *updated.NextTimerID)
	// Old timer replaced, not accumulated.
	assert.Equal(t, 1, f.timers.Len())
}

func TestDeleteSchedule_CancelsTimer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prompt := f.seedPrompt(t, "Analyze {{tickers}}")
	schedule, err := f.scheduler.CreateSchedule(ctx, createScheduleRequest(prompt.ID))
	require.NoError(t, err)
	require.Equal(t, 1, f.timers.Len())

	require.NoError(t, f.scheduler.DeleteSchedule(ctx, schedule.ID))
	assert.Equal(t, 0, f.timers.Len())

	_, err = f.scheduler.GetSchedule(ctx, schedule.ID)
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestGlobalPause(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prompt := f.seedPrompt(t, "Analyze {{tickers}}")

	paused, err := f.scheduler.IsPaused(ctx)
	require.NoError(t, err)
	assert.False(t, paused)

	schedule, err := f.scheduler.CreateSchedule(ctx, createScheduleRequest(prompt.ID))
	require.NoError(t, err)
	require.Equal(t, 1, f.timers.Len())

	// Pausing disarms: the timer is cancelled and the persisted timer state
	// is cleared, not just flagged.
	require.NoError(t, f.scheduler.SetGlobalPause(ctx, true))
	paused, err = f.scheduler.IsPaused(ctx)
	require.NoError(t, err)
	assert.True(t, paused)
	assert.Equal(t, 0, f.timers.Len())

	var stored model.Schedule
	require.NoError(t, f.db.First(&stored, schedule.ID).Error)
	assert.Nil(t, stored.NextRunAt)
	assert.Nil(t, stored.NextTimerID)

	// Unpausing re-arms every enabled schedule in one sweep.
	require.NoError(t, f.scheduler.SetGlobalPause(ctx, false))
	paused, err = f.scheduler.IsPaused(ctx)
	require.NoError(t, err)
	assert.False(t, paused)
	assert.Equal(t, 1, f.timers.Len())

	require.NoError(t, f.db.First(&stored, schedule.ID).Error)
	require.NotNil(t, stored.NextRunAt)
	require.NotNil(t, stored.NextTimerID)
}

func TestRearmAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prompt := f.seedPrompt(t, "Analyze {{tickers}}")

	for i := 0; i < 3; i++ {
		_, err := f.scheduler.CreateSchedule(ctx, createScheduleRequest(prompt.ID))
		require.NoError(t, err)
	}
	disabledReq := createScheduleRequest(prompt.ID)
	disabledReq.Enabled = ptr(false)
	_, err := f.scheduler.CreateSchedule(ctx, disabledReq)
	require.NoError(t, err)

	// Simulate a restart: in-memory timers are gone.
	f.timers.StopAll()
	require.Equal(t, 0, f.timers.Len())

	require.NoError(t, f.scheduler.RearmAll(ctx))
	assert.Equal(t, 3, f.timers.Len())
}

func TestResolveStockIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	aapl := f.seedStock(t, "AAPL", "tech", "megacap")
	msft := f.seedStock(t, "MSFT", "tech")
	f.seedStock(t, "XOM", "energy")

	svc := f.scheduler.(*schedulerService)

	encode := func(v interface{}) datatypes.JSON {
		raw, err := utils.EncodeJSON(v)
		require.NoError(t, err)
		return raw
	}

	all := &model.Schedule{Selection: model.SelectionAll}
	ids, err := svc.resolveStockIDs(ctx, all)
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	tagged := &model.Schedule{Selection: model.SelectionTagged, SelectionTags: encode([]string{"tech"})}
	ids, err = svc.resolveStockIDs(ctx, tagged)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{aapl.ID, msft.ID}, ids)

	specific := &model.Schedule{Selection: model.SelectionSpecific, SelectionStockIDs: encode([]uint{msft.ID})}
	ids, err = svc.resolveStockIDs(ctx, specific)
	require.NoError(t, err)
	assert.Equal(t, []uint{msft.ID}, ids)

	none := &model.Schedule{Selection: model.SelectionNone}
	ids, err = svc.resolveStockIDs(ctx, none)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
