package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Nanai10a/genkai-point-server/internal/errors"
)

// onePointPerHour is a trivial policy for store tests.
func onePointPerHour(joinedAt, leftAt time.Time) uint64 {
	return uint64(leftAt.Sub(joinedAt) / time.Hour)
}

func TestMemorySessionRepository_CreateNewSession(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	t.Run("create is idempotent while open", func(t *testing.T) {
		repo := NewMemorySessionRepository(onePointPerHour)

		created, err := repo.CreateNewSession(ctx, 1, base)
		require.NoError(t, err)
		assert.True(t, created)

		created, err = repo.CreateNewSession(ctx, 1, base.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, created)

		open, err := repo.GetUsersWithOpenSession(ctx)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1}, open)
	})

	t.Run("new session allowed after close", func(t *testing.T) {
		repo := NewMemorySessionRepository(onePointPerHour)

		created, err := repo.CreateNewSession(ctx, 1, base)
		require.NoError(t, err)
		assert.True(t, created)
		require.NoError(t, repo.CloseSession(ctx, 1, base.Add(time.Hour)))

		created, err = repo.CreateNewSession(ctx, 1, base.Add(2*time.Hour))
		require.NoError(t, err)
		assert.True(t, created)

		has, err := repo.HasOpenSession(ctx, 1)
		require.NoError(t, err)
		assert.True(t, has)
	})

	t.Run("concurrent creates leave one open session", func(t *testing.T) {
		repo := NewMemorySessionRepository(onePointPerHour)

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.CreateNewSession(ctx, 1, base)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		count, err := repo.CountOpenSessions(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestMemorySessionRepository_CloseSession(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	t.Run("closes the open session", func(t *testing.T) {
		repo := NewMemorySessionRepository(onePointPerHour)
		_, err := repo.CreateNewSession(ctx, 1, base)
		require.NoError(t, err)

		require.NoError(t, repo.CloseSession(ctx, 1, base.Add(time.Hour)))

		has, err := repo.HasOpenSession(ctx, 1)
		require.NoError(t, err)
		assert.False(t, has)

		sessions, err := repo.GetAllSessions(ctx, 1)
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		assert.Equal(t, base.Add(time.Hour), *sessions[0].LeftAt)
	})

	t.Run("close without open session is a protocol violation", func(t *testing.T) {
		repo := NewMemorySessionRepository(onePointPerHour)

		err := repo.CloseSession(ctx, 1, base)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeProtocol, apperrors.GetCode(err))
	})
}

func TestMemorySessionRepository_CloseStale(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	repo := NewMemorySessionRepository(onePointPerHour)
	_, err := repo.CreateNewSession(ctx, 1, base)
	require.NoError(t, err)
	_, err = repo.CreateNewSession(ctx, 2, base.Add(3*time.Hour))
	require.NoError(t, err)

	closed, err := repo.CloseStale(ctx, base.Add(time.Hour), base.Add(4*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), closed)

	has, err := repo.HasOpenSession(ctx, 1)
	require.NoError(t, err)
	assert.False(t, has)

	has, err = repo.HasOpenSession(ctx, 2)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestMemorySessionRepository_GetAllSessions(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	repo := NewMemorySessionRepository(onePointPerHour)

	for i := 0; i < 3; i++ {
		joined := base.Add(time.Duration(i*2) * time.Hour)
		_, err := repo.CreateNewSession(ctx, 1, joined)
		require.NoError(t, err)
		require.NoError(t, repo.CloseSession(ctx, 1, joined.Add(time.Hour)))
	}
	_, err := repo.CreateNewSession(ctx, 1, base.Add(10*time.Hour))
	require.NoError(t, err)

	t.Run("returns closed sessions only, ordered by left_at", func(t *testing.T) {
		sessions, err := repo.GetAllSessions(ctx, 1)
		require.NoError(t, err)
		require.Len(t, sessions, 3)
		for i := 1; i < len(sessions); i++ {
			assert.True(t, sessions[i-1].LeftAt.Before(*sessions[i].LeftAt))
		}
	})

	t.Run("unknown user yields empty slice", func(t *testing.T) {
		sessions, err := repo.GetAllSessions(ctx, 99)
		require.NoError(t, err)
		assert.Empty(t, sessions)
	})
}

func TestMemorySessionRepository_GetAllUserStats(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	repo := NewMemorySessionRepository(onePointPerHour)

	// user 1: two closed sessions, 3h total
	_, err := repo.CreateNewSession(ctx, 1, base)
	require.NoError(t, err)
	require.NoError(t, repo.CloseSession(ctx, 1, base.Add(2*time.Hour)))
	_, err = repo.CreateNewSession(ctx, 1, base.Add(5*time.Hour))
	require.NoError(t, err)
	require.NoError(t, repo.CloseSession(ctx, 1, base.Add(6*time.Hour)))

	// user 2: open session only
	_, err = repo.CreateNewSession(ctx, 2, base)
	require.NoError(t, err)

	stats, err := repo.GetAllUserStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, uint64(1), stats[0].UserID)
	assert.Equal(t, uint64(3), stats[0].GenkaiPoint)
	assert.Equal(t, 3*time.Hour, stats[0].TotalVCDuration)
}
