package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "github.com/Nanai10a/genkai-point-server/internal/errors"
	"github.com/Nanai10a/genkai-point-server/internal/model"
	"github.com/Nanai10a/genkai-point-server/internal/scoring"
)

// MemorySessionRepository keeps sessions in process memory. It backs unit
// tests and ad-hoc runs without a database. A single RWMutex serializes the
// check-then-mutate paths, which is all the one-open-session invariant needs.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[uint64][]model.Session
	nextID   int64
	point    scoring.PointFunc
}

func NewMemorySessionRepository(point scoring.PointFunc) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[uint64][]model.Session),
		nextID:   1,
		point:    point,
	}
}

var _ SessionRepository = (*MemorySessionRepository)(nil)

func (r *MemorySessionRepository) CreateNewSession(ctx context.Context, userID uint64, joinedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.openIndex(userID) >= 0 {
		return false, nil
	}

	r.sessions[userID] = append(r.sessions[userID], model.Session{
		ID:       r.nextID,
		UserID:   userID,
		JoinedAt: joinedAt,
	})
	r.nextID++
	return true, nil
}

func (r *MemorySessionRepository) HasOpenSession(ctx context.Context, userID uint64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.openIndex(userID) >= 0, nil
}

func (r *MemorySessionRepository) CloseSession(ctx context.Context, userID uint64, leftAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.openIndex(userID)
	if i < 0 {
		return apperrors.NoOpenSession(userID)
	}

	left := leftAt
	r.sessions[userID][i].LeftAt = &left
	return nil
}

func (r *MemorySessionRepository) CloseStale(ctx context.Context, cutoff time.Time, leftAt time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var closed int64
	for userID, sessions := range r.sessions {
		for i, s := range sessions {
			if s.LeftAt == nil && s.JoinedAt.Before(cutoff) {
				left := leftAt
				r.sessions[userID][i].LeftAt = &left
				closed++
			}
		}
	}
	return closed, nil
}

func (r *MemorySessionRepository) GetAllSessions(ctx context.Context, userID uint64) ([]model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var closed []model.Session
	for _, s := range r.sessions[userID] {
		if s.Closed() {
			closed = append(closed, s)
		}
	}
	sortSessionsByLeftAt(closed)
	return closed, nil
}

func (r *MemorySessionRepository) GetUsersWithOpenSession(ctx context.Context) ([]uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var users []uint64
	for userID := range r.sessions {
		if r.openIndex(userID) >= 0 {
			users = append(users, userID)
		}
	}
	return users, nil
}

func (r *MemorySessionRepository) GetAllUserStats(ctx context.Context) ([]model.UserStat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats []model.UserStat
	for userID, sessions := range r.sessions {
		stat := model.UserStat{UserID: userID}
		var hasClosed bool
		for _, s := range sessions {
			if !s.Closed() {
				continue
			}
			hasClosed = true
			stat.GenkaiPoint += r.point(s.JoinedAt, *s.LeftAt)
			stat.TotalVCDuration += s.LeftAt.Sub(s.JoinedAt)
		}
		if hasClosed {
			stats = append(stats, stat)
		}
	}
	return stats, nil
}

func (r *MemorySessionRepository) CountOpenSessions(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for userID := range r.sessions {
		if r.openIndex(userID) >= 0 {
			count++
		}
	}
	return count, nil
}

// openIndex returns the index of the user's open session, or -1.
// Callers must hold the lock.
func (r *MemorySessionRepository) openIndex(userID uint64) int {
	for i, s := range r.sessions[userID] {
		if !s.Closed() {
			return i
		}
	}
	return -1
}

func sortSessionsByLeftAt(sessions []model.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LeftAt.Before(*sessions[j].LeftAt)
	})
}
