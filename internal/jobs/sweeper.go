package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nanai10a/genkai-point-server/internal/repository"
)

// SweeperJob force-closes sessions that have been open longer than maxAge.
// It is a last line of defense for a gateway that dies without ever sending
// a reconciliation snapshot.
type SweeperJob struct {
	sessionRepo repository.SessionRepository
	maxAge      time.Duration
	interval    time.Duration
	done        chan struct{}
}

func NewSweeperJob(sessionRepo repository.SessionRepository, maxAge, interval time.Duration) *SweeperJob {
	return &SweeperJob{
		sessionRepo: sessionRepo,
		maxAge:      maxAge,
		interval:    interval,
		done:        make(chan struct{}),
	}
}

func (j *SweeperJob) Start() {
	go j.run()
	log.Info().
		Dur("interval", j.interval).
		Dur("maxAge", j.maxAge).
		Msg("session sweeper started")
}

func (j *SweeperJob) Stop() {
	close(j.done)
	log.Info().Msg("session sweeper stopped")
}

func (j *SweeperJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *SweeperJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now().UTC()
	closed, err := j.sessionRepo.CloseStale(ctx, now.Add(-j.maxAge), now)
	if err != nil {
		log.Error().Err(err).Msg("failed to sweep stale sessions")
	} else if closed > 0 {
		log.Info().Int64("count", closed).Msg("closed stale sessions")
	}
}
