// Package storage archives annotated meal photos. Photos are buffered in
// memory and flushed to disk on a ticker so a burst of sessions does not
// block on file I/O.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"diettracker/internal/logger"
)

const fileTimestampLayout = "2006-01-02_15-04-05"

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9-]+`)

type MealPhoto struct {
	Timestamp string
	User      string
	Foods     []string
	Data      []byte
}

// Filename is <timestamp>_<user>_<foods>.jpg with foods joined by '+'.
func (p MealPhoto) Filename() string {
	foods := make([]string, 0, len(p.Foods))
	for _, food := range p.Foods {
		foods = append(foods, SanitizeLabel(food))
	}
	return fmt.Sprintf("%s_%s_%s.jpg", p.Timestamp, SanitizeLabel(p.User), strings.Join(foods, "+"))
}

// ParseFilename is the inverse of MealPhoto.Filename, without the data.
func ParseFilename(name string) (MealPhoto, error) {
	base := strings.TrimSuffix(name, ".jpg")
	if base == name || len(base) < len(fileTimestampLayout)+1 {
		return MealPhoto{}, fmt.Errorf("not a meal photo: %s", name)
	}

	timestamp := base[:len(fileTimestampLayout)]
	if _, err := time.ParseInLocation(fileTimestampLayout, timestamp, time.Local); err != nil {
		return MealPhoto{}, fmt.Errorf("invalid timestamp in %s: %w", name, err)
	}

	parts := strings.Split(strings.TrimPrefix(base[len(timestamp):], "_"), "_")
	if len(parts) != 2 || parts[0] == "" {
		return MealPhoto{}, fmt.Errorf("invalid meal photo name: %s", name)
	}

	photo := MealPhoto{Timestamp: timestamp, User: parts[0]}
	if parts[1] != "" {
		photo.Foods = strings.Split(parts[1], "+")
	}
	return photo, nil
}

// SanitizeLabel is the form a user name or food label takes inside a photo
// filename, e.g. "hot dog" becomes "hot-dog". Compare query values through
// it when matching parsed filenames.
func SanitizeLabel(s string) string {
	s = unsafeChars.ReplaceAllString(strings.TrimSpace(s), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "unknown"
	}
	return s
}

type BufferService struct {
	imagesDir   string
	images      []MealPhoto
	bufferLimit int
	now         func() time.Time
	mu          sync.Mutex
	logger      *logger.Logger
}

func NewBufferService(imagesDir string, bufferLimit int, logger *logger.Logger) *BufferService {
	return &BufferService{
		imagesDir:   imagesDir,
		bufferLimit: bufferLimit,
		images:      make([]MealPhoto, 0),
		now:         time.Now,
		logger:      logger,
	}
}

// Run flushes every flushInterval seconds until stop is closed, then flushes
// once more.
func (s *BufferService) Run(flushInterval int, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Duration(flushInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.FlushImages()
		case <-stop:
			s.FlushImages()
			return
		}
	}
}

// AddImage queues a photo. It reports false when the buffer is full and the
// photo was dropped.
func (s *BufferService) AddImage(imageData []byte, user string, foods []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.images) >= s.bufferLimit {
		s.logger.Warning("Photo buffer full (%d), dropping photo for %s", s.bufferLimit, user)
		return false
	}

	s.images = append(s.images, MealPhoto{
		Timestamp: s.now().Format(fileTimestampLayout),
		User:      user,
		Foods:     append([]string(nil), foods...),
		Data:      imageData,
	})
	s.logger.Info("Buffer size: %d/%d", len(s.images), s.bufferLimit)
	return true
}

// Pending is the number of photos waiting for the next flush.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// FlushImages writes every buffered photo and returns how many were written.
func (s *BufferService) FlushImages() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.images) == 0 {
		return 0
	}

	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return 0
	}

	written := 0
	for _, image := range s.images {
		filename := image.Filename()
		fullpath := filepath.Join(s.imagesDir, filename)

		if err := os.WriteFile(fullpath, image.Data, 0644); err != nil {
			s.logger.Error("Error saving image %s: %v", filename, err)
			continue
		}
		written++
	}

	s.logger.Info("Flushed %d images to disk", written)
	s.images = s.images[:0]
	return written
}
