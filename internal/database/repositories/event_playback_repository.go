// Package repositories contains the data access layer.
package repositories

import (
	"context"
	"log"

	"github.com/lucsky/cuid"
	"gorm.io/gorm"

	"github.com/presencelamp/presencelamp-go/internal/database/models"
)

// EventPlaybackRepository handles special-date playback memory.
type EventPlaybackRepository struct {
	db *gorm.DB
}

// NewEventPlaybackRepository creates a new EventPlaybackRepository.
func NewEventPlaybackRepository(db *gorm.DB) *EventPlaybackRepository {
	return &EventPlaybackRepository{db: db}
}

// FindByName returns the playback record for an event, or nil when absent.
func (r *EventPlaybackRepository) FindByName(ctx context.Context, name string) (*models.EventPlayback, error) {
	var playback models.EventPlayback
	result := r.db.WithContext(ctx).First(&playback, "event_name = ?", name)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &playback, nil
}

// Upsert creates or updates the playback record for an event.
func (r *EventPlaybackRepository) Upsert(ctx context.Context, name, day string) (*models.EventPlayback, error) {
	var playback models.EventPlayback

	result := r.db.WithContext(ctx).First(&playback, "event_name = ?", name)

	if result.Error == gorm.ErrRecordNotFound {
		playback = models.EventPlayback{
			ID:         cuid.New(),
			EventName:  name,
			LastPlayed: day,
		}
		if err := r.db.WithContext(ctx).Create(&playback).Error; err != nil {
			return nil, err
		}
		return &playback, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}

	playback.LastPlayed = day
	if err := r.db.WithContext(ctx).Save(&playback).Error; err != nil {
		return nil, err
	}
	return &playback, nil
}

// PlaybackStore adapts the repository to the engine's PlaybackStore
// interface. Database errors are logged and degrade to "never played", which
// at worst replays an event rather than halting the loop.
type PlaybackStore struct {
	repo *EventPlaybackRepository
}

// NewPlaybackStore wraps a repository for the engine.
func NewPlaybackStore(repo *EventPlaybackRepository) *PlaybackStore {
	return &PlaybackStore{repo: repo}
}

// LastPlayed returns the stored day for an event name.
func (s *PlaybackStore) LastPlayed(name string) string {
	playback, err := s.repo.FindByName(context.Background(), name)
	if err != nil {
		log.Printf("event playback lookup failed for %q: %v", name, err)
		return ""
	}
	if playback == nil {
		return ""
	}
	return playback.LastPlayed
}

// MarkPlayed stores the day an event played.
func (s *PlaybackStore) MarkPlayed(name, day string) {
	if _, err := s.repo.Upsert(context.Background(), name, day); err != nil {
		log.Printf("event playback save failed for %q: %v", name, err)
	}
}
