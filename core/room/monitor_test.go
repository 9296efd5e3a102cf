package room_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DailyDoseOfWezs/Schedulink/core"
	"github.com/DailyDoseOfWezs/Schedulink/core/room"
)

func newMonitorConf(interval time.Duration) *core.Config {
	return &core.Config{Polling: core.PollingConfig{RoomRefreshInterval: interval}}
}

func TestMonitor_Run(t *testing.T) {
	svc := newService()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rm, err := svc.Create(ctx, teacher, room.NewRoom{Name: "Mac Lab", Building: room.DefaultBuilding})
	require.NoError(t, err)

	monitor := room.NewMonitor(svc, newMonitorConf(5*time.Millisecond), nil)
	go monitor.Run(ctx)

	// the first refresh lands without waiting a full interval
	assert.Eventually(t, func() bool {
		return len(monitor.Snapshot()) == 1
	}, time.Second, time.Millisecond)

	// a mutation shows up on a later poll
	_, err = svc.Occupy(ctx, teacher, rm.ID, "Mr. Banza", "BSIT 3-1")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		rooms := monitor.Snapshot()
		return len(rooms) == 1 && !rooms[0].IsAvailable
	}, time.Second, time.Millisecond)

	grouped := monitor.Grouped()
	require.Len(t, grouped, 1)
	assert.Equal(t, room.DefaultBuilding, grouped[0].Building)

	// cancellation stops the loop deterministically
	cancel()
	time.Sleep(20 * time.Millisecond)
	before := monitor.Snapshot()

	_, err = svc.Create(context.Background(), teacher, room.NewRoom{Name: "Dell Lab", Building: room.DefaultBuilding})
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, len(before), len(monitor.Snapshot()))
}

func TestMonitor_SnapshotIsACopy(t *testing.T) {
	svc := newService()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := svc.Create(ctx, teacher, room.NewRoom{Name: "Mac Lab", Building: room.DefaultBuilding})
	require.NoError(t, err)

	monitor := room.NewMonitor(svc, newMonitorConf(5*time.Millisecond), nil)
	go monitor.Run(ctx)

	require.Eventually(t, func() bool {
		return len(monitor.Snapshot()) == 1
	}, time.Second, time.Millisecond)

	rooms := monitor.Snapshot()
	rooms[0].Name = "mutated"
	assert.Equal(t, "Mac Lab", monitor.Snapshot()[0].Name)
}
