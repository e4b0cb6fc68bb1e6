package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	apperrors "github.com/Nanai10a/genkai-point-server/internal/errors"
	"github.com/Nanai10a/genkai-point-server/internal/model"
	"github.com/Nanai10a/genkai-point-server/internal/scoring"
)

// SessionRepository is the durable store for voice presence sessions.
// Implementations own the one-open-session-per-user invariant: no
// interleaving of calls may leave a user with two open sessions.
type SessionRepository interface {
	// CreateNewSession inserts a new open session unless the user already
	// has one, in which case it is a no-op. Returns whether it was created.
	// The false result is an expected signal, not an error.
	CreateNewSession(ctx context.Context, userID uint64, joinedAt time.Time) (bool, error)
	HasOpenSession(ctx context.Context, userID uint64) (bool, error)
	// CloseSession stamps leftAt on the user's open session. Calling it for
	// a user with no open session is a coordination bug and returns a
	// PROTOCOL_VIOLATION error.
	CloseSession(ctx context.Context, userID uint64, leftAt time.Time) error
	// CloseStale closes open sessions that started before the cutoff,
	// returning how many were closed.
	CloseStale(ctx context.Context, cutoff time.Time, leftAt time.Time) (int64, error)
	// GetAllSessions returns the user's closed sessions ordered by leftAt
	// ascending. The currently open session, if any, is excluded: only
	// closed sessions carry a point value.
	GetAllSessions(ctx context.Context, userID uint64) ([]model.Session, error)
	GetUsersWithOpenSession(ctx context.Context) ([]uint64, error)
	// GetAllUserStats returns one entry per user with at least one closed
	// session.
	GetAllUserStats(ctx context.Context) ([]model.UserStat, error)
	// CountOpenSessions reports how many sessions are currently open.
	CountOpenSessions(ctx context.Context) (int, error)
}

// sessionDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sessionDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type sessionRepo struct {
	db    sessionDB
	point scoring.PointFunc
}

// NewSessionRepository returns the Postgres-backed store. The point policy
// is needed to derive user stats from closed sessions.
func NewSessionRepository(db *sqlx.DB, point scoring.PointFunc) SessionRepository {
	return &sessionRepo{db: db, point: point}
}

// sessionRow mirrors the sessions table. user_id is stored as BIGINT since
// lib/pq does not bind uint64; platform snowflakes fit in int64.
type sessionRow struct {
	ID       int64      `db:"id"`
	UserID   int64      `db:"user_id"`
	JoinedAt time.Time  `db:"joined_at"`
	LeftAt   *time.Time `db:"left_at"`
}

func (r sessionRow) toModel() model.Session {
	return model.Session{
		ID:       r.ID,
		UserID:   uint64(r.UserID),
		JoinedAt: r.JoinedAt,
		LeftAt:   r.LeftAt,
	}
}

func (r *sessionRepo) CreateNewSession(ctx context.Context, userID uint64, joinedAt time.Time) (bool, error) {
	// The partial unique index on (user_id) WHERE left_at IS NULL makes
	// this atomic: concurrent inserts for the same user cannot both win.
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, joined_at)
		VALUES ($1, $2)
		ON CONFLICT (user_id) WHERE left_at IS NULL DO NOTHING
	`, int64(userID), joinedAt)
	if err != nil {
		return false, apperrors.Storage(err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Storage(err)
	}
	return inserted > 0, nil
}

func (r *sessionRepo) HasOpenSession(ctx context.Context, userID uint64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM sessions WHERE user_id = $1 AND left_at IS NULL
		)
	`, int64(userID))
	if err != nil {
		return false, apperrors.Storage(err)
	}
	return exists, nil
}

func (r *sessionRepo) CloseSession(ctx context.Context, userID uint64, leftAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET left_at = $2
		WHERE user_id = $1 AND left_at IS NULL
	`, int64(userID), leftAt)
	if err != nil {
		return apperrors.Storage(err)
	}

	closed, err := result.RowsAffected()
	if err != nil {
		return apperrors.Storage(err)
	}
	if closed == 0 {
		return apperrors.NoOpenSession(userID)
	}
	return nil
}

func (r *sessionRepo) CloseStale(ctx context.Context, cutoff time.Time, leftAt time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET left_at = $2
		WHERE left_at IS NULL AND joined_at < $1
	`, cutoff, leftAt)
	if err != nil {
		return 0, apperrors.Storage(err)
	}

	closed, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Storage(err)
	}
	return closed, nil
}

func (r *sessionRepo) GetAllSessions(ctx context.Context, userID uint64) ([]model.Session, error) {
	var rows []sessionRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM sessions
		WHERE user_id = $1 AND left_at IS NOT NULL
		ORDER BY left_at ASC
	`, int64(userID))
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	sessions := make([]model.Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, row.toModel())
	}
	return sessions, nil
}

func (r *sessionRepo) GetUsersWithOpenSession(ctx context.Context) ([]uint64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, `
		SELECT user_id FROM sessions WHERE left_at IS NULL
	`)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	users := make([]uint64, 0, len(ids))
	for _, id := range ids {
		users = append(users, uint64(id))
	}
	return users, nil
}

func (r *sessionRepo) GetAllUserStats(ctx context.Context) ([]model.UserStat, error) {
	var rows []sessionRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM sessions
		WHERE left_at IS NOT NULL
		ORDER BY user_id ASC, left_at ASC
	`)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	var stats []model.UserStat
	for _, row := range rows {
		s := row.toModel()
		if len(stats) == 0 || stats[len(stats)-1].UserID != s.UserID {
			stats = append(stats, model.UserStat{UserID: s.UserID})
		}
		cur := &stats[len(stats)-1]
		cur.GenkaiPoint += r.point(s.JoinedAt, *s.LeftAt)
		cur.TotalVCDuration += s.LeftAt.Sub(s.JoinedAt)
	}
	return stats, nil
}

func (r *sessionRepo) CountOpenSessions(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM sessions WHERE left_at IS NULL
	`)
	if err != nil {
		return 0, apperrors.Storage(err)
	}
	return count, nil
}
