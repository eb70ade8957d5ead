package service

import (
	"log"
	"time"

	"godlykids/internal/events"
	"godlykids/internal/models"
	"godlykids/internal/repository"
)

// ActivityService records what profiles do so parents get a usage picture.
// Raw events are rolled up into per-day summaries by the aggregation job.
type ActivityService struct {
	activityRepo *repository.ActivityRepository
	stop         func()
}

// NewActivityService creates a new activity service
func NewActivityService(activityRepo *repository.ActivityRepository) *ActivityService {
	return &ActivityService{activityRepo: activityRepo}
}

// Record stores one activity event for a profile
func (s *ActivityService) Record(profileID int64, kind, detail string) error {
	return s.activityRepo.RecordEvent(profileID, kind, detail)
}

// GetRecentEvents retrieves a profile's latest raw events
func (s *ActivityService) GetRecentEvents(profileID int64, limit int) ([]models.ActivityEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.activityRepo.GetRecentEvents(profileID, limit)
}

// GetSummaries retrieves a profile's per-day aggregates for a date range
func (s *ActivityService) GetSummaries(profileID int64, from, to time.Time) ([]models.ActivitySummary, error) {
	return s.activityRepo.GetSummaries(profileID, from, to)
}

// ListenForSwitches records a profile_switch event whenever a session
// activates a profile. Runs until Stop is called.
func (s *ActivityService) ListenForSwitches(bus *events.Bus) {
	ch, unsubscribe := bus.Subscribe(events.TopicProfileSwitched)
	s.stop = unsubscribe

	go func() {
		for event := range ch {
			if err := s.activityRepo.RecordEvent(event.ProfileID, "profile_switch", ""); err != nil {
				log.Printf("Error recording profile switch: %v", err)
			}
		}
	}()
}

// Stop unsubscribes the switch listener
func (s *ActivityService) Stop() {
	if s.stop != nil {
		s.stop()
	}
}
