package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"diettracker/internal/logger"
)

func newTestBuffer(t *testing.T, limit int) (*BufferService, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "images")
	buf := NewBufferService(dir, limit, logger.Discard())
	buf.now = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 0, 0, time.Local) }
	return buf, dir
}

func TestMealPhotoFilename(t *testing.T) {
	photo := MealPhoto{Timestamp: "2024-05-01_12-30-00", User: "Jan Kowalski", Foods: []string{"hot dog", "apple"}}
	require.Equal(t, "2024-05-01_12-30-00_Jan-Kowalski_hot-dog+apple.jpg", photo.Filename())

	photo = MealPhoto{Timestamp: "2024-05-01_12-30-00", User: "../..", Foods: nil}
	require.Equal(t, "2024-05-01_12-30-00_unknown_.jpg", photo.Filename())
}

func TestFlushImages(t *testing.T) {
	buf, dir := newTestBuffer(t, 5)

	require.True(t, buf.AddImage([]byte("one"), "alice", []string{"apple"}))
	require.True(t, buf.AddImage([]byte("two"), "bob", []string{"pizza", "cake"}))
	require.Equal(t, 2, buf.Pending())

	require.Equal(t, 2, buf.FlushImages())
	require.Equal(t, 0, buf.Pending())

	data, err := os.ReadFile(filepath.Join(dir, "2024-05-01_12-30-00_bob_pizza+cake.jpg"))
	require.NoError(t, err)
	require.Equal(t, "two", string(data))

	require.Equal(t, 0, buf.FlushImages())
}

func TestAddImage_DropsWhenFull(t *testing.T) {
	buf, _ := newTestBuffer(t, 1)

	require.True(t, buf.AddImage([]byte("one"), "alice", []string{"apple"}))
	require.False(t, buf.AddImage([]byte("two"), "alice", []string{"apple"}))
	require.Equal(t, 1, buf.Pending())
}

func TestRun_FlushesOnStop(t *testing.T) {
	buf, dir := newTestBuffer(t, 5)
	buf.AddImage([]byte("one"), "alice", []string{"banana"})

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		buf.Run(3600, stop)
		close(done)
	}()
	close(stop)
	<-done

	_, err := os.Stat(filepath.Join(dir, "2024-05-01_12-30-00_alice_banana.jpg"))
	require.NoError(t, err)
}

func TestParseFilename(t *testing.T) {
	photo, err := ParseFilename("2024-05-01_12-30-00_Jan-Kowalski_hot-dog+apple.jpg")
	require.NoError(t, err)
	require.Equal(t, "2024-05-01_12-30-00", photo.Timestamp)
	require.Equal(t, "Jan-Kowalski", photo.User)
	require.Equal(t, []string{"hot-dog", "apple"}, photo.Foods)

	for _, name := range []string{
		"notes.txt",
		"2024-05-01.jpg",
		"2024-13-01_12-30-00_alice_apple.jpg",
		"2024-05-01_12-30-00_alice.jpg",
		"2024-05-01_12-30-00__apple.jpg",
	} {
		_, err := ParseFilename(name)
		require.Error(t, err, name)
	}
}
