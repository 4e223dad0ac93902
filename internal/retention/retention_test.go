package retention

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sparkchat/pkg/config"
	"sparkchat/pkg/models"
	"sparkchat/pkg/store"
)

func seedActivities(t *testing.T, owner string, n int, read bool) {
	t.Helper()
	for i := 0; i < n; i++ {
		a := &models.Activity{Owner: owner, Actor: "bob", Type: models.ActivityLike, Read: read}
		require.NoError(t, store.SaveActivity(a))
	}
}

func TestRunOncePurgesOnlyOldReadRecords(t *testing.T) {
	require.NoError(t, store.Open(t.TempDir()))
	t.Cleanup(func() { store.Close() })

	seedActivities(t, "alice", 3, true)
	seedActivities(t, "alice", 2, false)

	// Period of one nanosecond makes everything saved above "old".
	cfg := &config.Config{}
	cfg.Retention.Period = config.Duration(time.Nanosecond)
	cfg.Retention.BatchSize = 2

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, RunOnce(context.Background(), cfg))

	acts, err := store.ListActivitiesFor("alice", 0)
	require.NoError(t, err)
	require.Len(t, acts, 2, "unread records survive the purge")
	for _, a := range acts {
		require.False(t, a.Read)
	}
}

func TestRunOnceDryRunDeletesNothing(t *testing.T) {
	require.NoError(t, store.Open(t.TempDir()))
	t.Cleanup(func() { store.Close() })

	seedActivities(t, "alice", 4, true)

	cfg := &config.Config{}
	cfg.Retention.Period = config.Duration(time.Nanosecond)
	cfg.Retention.DryRun = true

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, RunOnce(context.Background(), cfg))

	acts, err := store.ListActivitiesFor("alice", 0)
	require.NoError(t, err)
	require.Len(t, acts, 4)
}

func TestRunOnceKeepsRecentReadRecords(t *testing.T) {
	require.NoError(t, store.Open(t.TempDir()))
	t.Cleanup(func() { store.Close() })

	seedActivities(t, "alice", 3, true)

	cfg := &config.Config{}
	cfg.Retention.Period = config.Duration(24 * time.Hour)

	require.NoError(t, RunOnce(context.Background(), cfg))

	acts, err := store.ListActivitiesFor("alice", 0)
	require.NoError(t, err)
	require.Len(t, acts, 3, "records newer than the period are kept")
}

func TestStartDisabled(t *testing.T) {
	cfg := &config.Config{}
	cancel, err := Start(context.Background(), cfg)
	require.NoError(t, err)
	cancel()
}

func TestStartRejectsInvalidCron(t *testing.T) {
	cfg := &config.Config{}
	cfg.Retention.Enabled = true
	cfg.Retention.Cron = "not a cron"
	_, err := Start(context.Background(), cfg)
	require.Error(t, err)
}
