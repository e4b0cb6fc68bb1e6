package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nanai10a/genkai-point-server/internal/repository"
)

func noPoint(joinedAt, leftAt time.Time) uint64 { return 0 }

func TestSweeperJob(t *testing.T) {
	t.Run("sweep closes only stale sessions", func(t *testing.T) {
		ctx := context.Background()
		repo := repository.NewMemorySessionRepository(noPoint)

		_, err := repo.CreateNewSession(ctx, 1, time.Now().Add(-48*time.Hour))
		require.NoError(t, err)
		_, err = repo.CreateNewSession(ctx, 2, time.Now().Add(-time.Minute))
		require.NoError(t, err)

		job := NewSweeperJob(repo, 24*time.Hour, time.Hour)
		job.sweep()

		has, err := repo.HasOpenSession(ctx, 1)
		require.NoError(t, err)
		assert.False(t, has)

		has, err = repo.HasOpenSession(ctx, 2)
		require.NoError(t, err)
		assert.True(t, has)
	})

	t.Run("start and stop do not race", func(t *testing.T) {
		repo := repository.NewMemorySessionRepository(noPoint)
		job := NewSweeperJob(repo, 24*time.Hour, time.Hour)

		job.Start()
		job.Stop()
	})
}
