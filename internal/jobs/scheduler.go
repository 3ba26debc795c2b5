package jobs

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/phuslu/log"
	"github.com/vrsandeep/shelfie-go/internal/config"
)

// Starter submits runs. *Runner implements it.
type Starter interface {
	Start(req Request) error
}

// StartScheduler registers every configured schedule and starts the
// scheduler in the background. Callers stop it with Stop.
func StartScheduler(starter Starter, schedules []config.Schedule) *gocron.Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	for i, sc := range schedules {
		scheduleScrape(s, starter, fmt.Sprintf("scrape-%d", i+1), sc)
	}

	log.Info().Int("jobs", len(s.Jobs())).Msg("Starting background job scheduler...")
	s.StartAsync()
	return s
}

func scheduleScrape(s *gocron.Scheduler, starter Starter, jobID string, sc config.Schedule) {
	if sc.EveryMinutes <= 0 {
		log.Info().Str("job", jobID).Str("store", sc.StoreType).Msg("Schedule interval is 0, scheduled scrape is disabled.")
		return
	}

	log.Info().Str("job", jobID).Str("store", sc.StoreType).Msgf("Scheduling job to run every %d minutes.", sc.EveryMinutes)
	_, err := s.Every(sc.EveryMinutes).Minutes().WaitForSchedule().Tag(jobID).Do(func() {
		triggerScheduledScrape(starter, jobID, sc)
	})
	if err != nil {
		log.Error().Err(err).Str("job", jobID).Msg("Error scheduling scrape job")
	}
}

// triggerScheduledScrape submits the run to the runner instead of scraping
// directly, so it cannot overlap a manually started run.
func triggerScheduledScrape(starter Starter, jobID string, sc config.Schedule) error {
	log.Info().Str("job", jobID).Msg("Scheduler is triggering job")
	err := starter.Start(Request{
		StoreType:  sc.StoreType,
		URL:        sc.URL,
		MaxPages:   sc.MaxPages,
		Categories: append([]string(nil), sc.Categories...),
		Source:     SourceSchedule,
	})
	if err != nil {
		log.Warn().Err(err).Str("job", jobID).Msg("Scheduled job could not start")
	}
	return err
}
