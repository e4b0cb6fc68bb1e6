package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nanai10a/genkai-point-server/internal/notify"
	"github.com/Nanai10a/genkai-point-server/internal/repository"
	"github.com/Nanai10a/genkai-point-server/internal/scoring"
)

// Notifier is the outbound messaging capability. notify.Broker satisfies it.
type Notifier interface {
	Publish(ctx context.Context, msg notify.Message) error
}

// LifecycleService reacts to presence changes and snapshot reconciliation,
// driving the store through the open/close protocol.
type LifecycleService struct {
	sessionRepo repository.SessionRepository
	notifier    Notifier
	point       scoring.PointFunc
}

func NewLifecycleService(
	sessionRepo repository.SessionRepository,
	notifier Notifier,
	point scoring.PointFunc,
) *LifecycleService {
	return &LifecycleService{
		sessionRepo: sessionRepo,
		notifier:    notifier,
		point:       point,
	}
}

// HandleJoin opens a session for the user. A session already being open is
// expected after a reconnect glitch, not an error.
func (s *LifecycleService) HandleJoin(ctx context.Context, userID uint64, joinedAt time.Time) error {
	created, err := s.sessionRepo.CreateNewSession(ctx, userID, joinedAt)
	if err != nil {
		return fmt.Errorf("create new session: %w", err)
	}

	if !created {
		log.Debug().Uint64("userId", userID).Msg("user already has an open session")
	}
	return nil
}

// HandleLeave closes the user's open session and, when the just-closed
// session earned points, announces the new cumulative total.
func (s *LifecycleService) HandleLeave(ctx context.Context, userID uint64, leftAt time.Time) error {
	if err := s.sessionRepo.CloseSession(ctx, userID, leftAt); err != nil {
		return fmt.Errorf("close session: %w", err)
	}

	sessions, err := s.sessionRepo.GetAllSessions(ctx, userID)
	if err != nil {
		return fmt.Errorf("get all closed sessions: %w", err)
	}
	if len(sessions) == 0 {
		return fmt.Errorf("no closed session recorded for user %d after close", userID)
	}

	// sessions are ordered by left_at, so the last one is the one just closed
	delta, err := scoring.SessionPoint(sessions[len(sessions)-1], s.point)
	if err != nil {
		return fmt.Errorf("score session: %w", err)
	}
	if delta == 0 {
		return nil
	}

	total, _, err := scoring.Aggregate(sessions, s.point)
	if err != nil {
		return fmt.Errorf("aggregate sessions: %w", err)
	}

	msg := fmt.Sprintf("now <@!%d> has %d genkai point (+%d)", userID, total, delta)
	if err := s.notifier.Publish(ctx, notify.Message{Content: msg}); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Reconcile repairs persisted state against the authoritative presence
// snapshot delivered after a (re)connect. Joins missed during downtime are
// backfilled starting from now, and leaves missed during downtime are closed
// at now; both timestamps are approximate since the true event times are
// unrecoverable. No notification is emitted for these transitions.
func (s *LifecycleService) Reconcile(ctx context.Context, present []uint64, now time.Time) error {
	presentSet := make(map[uint64]struct{}, len(present))

	// The create pass must fully complete before the close pass so a user
	// present across the reconnect is never spuriously closed.
	for _, userID := range present {
		presentSet[userID] = struct{}{}

		created, err := s.sessionRepo.CreateNewSession(ctx, userID, now)
		if err != nil {
			return fmt.Errorf("create new session: %w", err)
		}

		if created {
			log.Info().Uint64("userId", userID).Msg("user joined vc during downtime")
		} else {
			log.Info().Uint64("userId", userID).Msg("user already has an open session")
		}
	}

	open, err := s.sessionRepo.GetUsersWithOpenSession(ctx)
	if err != nil {
		return fmt.Errorf("get users with open session: %w", err)
	}

	for _, userID := range open {
		if _, ok := presentSet[userID]; ok {
			continue
		}

		if err := s.sessionRepo.CloseSession(ctx, userID, now); err != nil {
			return fmt.Errorf("close session: %w", err)
		}

		log.Info().Uint64("userId", userID).Msg("user left vc during downtime")
	}

	return nil
}
