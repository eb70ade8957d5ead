package jobs

import (
	"log"
	"time"

	"godlykids/internal/repository"
)

// ActivityAggregator rolls raw activity events up into per-day summaries.
// Each run re-aggregates yesterday and today, so late events and restarts
// are covered without double counting.
type ActivityAggregator struct {
	activityRepo *repository.ActivityRepository
}

// NewActivityAggregator creates a new activity aggregator
func NewActivityAggregator(activityRepo *repository.ActivityRepository) *ActivityAggregator {
	return &ActivityAggregator{activityRepo: activityRepo}
}

// Run aggregates the last two days of activity. Called by the scheduler.
func (a *ActivityAggregator) Run() {
	now := time.Now()
	for _, day := range []time.Time{now.AddDate(0, 0, -1), now} {
		if err := a.activityRepo.AggregateDay(day); err != nil {
			log.Printf("Error aggregating activity for %s: %v", day.Format("2006-01-02"), err)
		}
	}
	log.Println("Activity aggregation finished")
}
