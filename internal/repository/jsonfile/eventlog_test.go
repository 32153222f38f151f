package jsonfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"diettracker/internal/model"
	"diettracker/internal/repository"
)

func newLog(t *testing.T) *EventLog {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "tracker_log.json"))
}

func TestQuery_MissingFileIsEmpty(t *testing.T) {
	log := newLog(t)

	events, err := log.Query(nil)
	require.NoError(t, err)
	require.Empty(t, events)

	total, err := log.DailyTotal("Asha", time.Now())
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestAppend_RoundTrip(t *testing.T) {
	log := newLog(t)

	withProfile := model.TrackingEvent{
		Timestamp: "2025-06-15 08:00:00",
		User:      "Asha",
		Profile: &model.ProfileSnapshot{
			Age: 30, Gender: "male", Height: 175, Weight: 70.5, ActivityLevel: "moderate", Goal: "maintain",
		},
		Foods:         []string{"apple", "apple", "banana"},
		TotalCalories: 295,
		DailyGoal:     2556,
	}
	withoutProfile := model.TrackingEvent{
		Timestamp:     "2025-06-15 12:00:00",
		User:          "Asha",
		Foods:         []string{"pizza"},
		TotalCalories: 285,
		DailyGoal:     2556,
	}

	require.NoError(t, log.Append(withProfile))
	events, err := log.Query(nil)
	require.NoError(t, err)
	require.Equal(t, withProfile, events[len(events)-1])

	require.NoError(t, log.Append(withoutProfile))
	events, err = log.Query(nil)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, withoutProfile, events[1])
	require.Nil(t, events[1].Profile)
}

func TestAppend_CreatesDirectory(t *testing.T) {
	log := New(filepath.Join(t.TempDir(), "nested", "dir", "log.json"))

	require.NoError(t, log.Append(model.TrackingEvent{User: "Asha", Foods: []string{"cake"}}))

	_, err := os.Stat(log.Path())
	require.NoError(t, err)
}

func TestReadsLegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker_log.json")
	legacy := `[
    {
        "timestamp": "2025-06-15 08:00:00",
        "user": "Asha",
        "foods": ["apple"],
        "total_calories": 95,
        "daily_goal": 2556
    }
]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	log := New(path)
	require.NoError(t, log.Append(model.TrackingEvent{Timestamp: "2025-06-15 09:00:00", User: "Asha", Foods: []string{"cake"}, TotalCalories: 235}))

	events, err := log.Query(repository.ForUser("Asha"))
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Nil(t, events[0].Profile)
	require.Equal(t, []string{"apple"}, events[0].Foods)
}

func TestDailyTotal(t *testing.T) {
	log := newLog(t)
	entries := []model.TrackingEvent{
		{Timestamp: "2025-06-14 22:00:00", User: "Asha", TotalCalories: 400},
		{Timestamp: "2025-06-15 08:00:00", User: "Asha", TotalCalories: 95},
		{Timestamp: "2025-06-15 09:00:00", User: "Ben", TotalCalories: 1000},
		{Timestamp: "2025-06-15 13:00:00", User: "Asha", TotalCalories: 285},
	}
	for _, e := range entries {
		require.NoError(t, log.Append(e))
	}

	total, err := log.DailyTotal("Asha", time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local))
	require.NoError(t, err)
	require.Equal(t, 380.0, total)
}

func TestCorruptFileIsStorageUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker_log.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	log := New(path)

	_, err := log.Query(nil)
	require.ErrorIs(t, err, model.ErrStorageUnavailable)

	err = log.Append(model.TrackingEvent{User: "Asha"})
	require.ErrorIs(t, err, model.ErrStorageUnavailable)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	require.Equal(t, "{not json", string(data), "a failed append must not rewrite the file")
}

func TestAppend_SerializedWithinProcess(t *testing.T) {
	log := newLog(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			err := log.Append(model.TrackingEvent{User: fmt.Sprintf("user-%d", idx), Foods: []string{"apple"}, TotalCalories: 95})
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	events, err := log.Query(nil)
	require.NoError(t, err)
	require.Len(t, events, 20)

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(log.Path()), "*.tmp"))
	require.NoError(t, err)
	require.Empty(t, leftovers)
}
