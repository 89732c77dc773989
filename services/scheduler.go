// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartExpiryScheduler persists the expired status for overdue user quests
// on a fixed cadence. Claims are independently guarded at read time, so a
// missed tick costs nothing but staleness in listings.
func (s *QuestService) StartExpiryScheduler(interval time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			expired, err := s.ExpireOverdue(time.Now())
			if err != nil {
				log.Printf("[Scheduler] quest expiry sweep failed: %v", err)
				return
			}
			if expired > 0 {
				log.Printf("⏰ Expired %d overdue user quest(s)", expired)
			}
		}),
	)
}
