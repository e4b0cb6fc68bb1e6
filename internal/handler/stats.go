package handler

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/Nanai10a/genkai-point-server/internal/httputil"
	"github.com/Nanai10a/genkai-point-server/internal/repository"
	"github.com/Nanai10a/genkai-point-server/internal/scoring"
)

// StatsHandler exposes a read-only operator view of the store.
type StatsHandler struct {
	sessionRepo repository.SessionRepository
}

func NewStatsHandler(sessionRepo repository.SessionRepository) *StatsHandler {
	return &StatsHandler{sessionRepo: sessionRepo}
}

type leaderboardEntry struct {
	UserID      uint64  `json:"userId"`
	GenkaiPoint uint64  `json:"genkaiPoint"`
	VCHours     float64 `json:"vcHours"`
}

func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	openCount, err := h.sessionRepo.CountOpenSessions(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to count open sessions")
		httputil.WriteError(w, err)
		return
	}

	stats, err := h.sessionRepo.GetAllUserStats(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch user stats")
		httputil.WriteError(w, err)
		return
	}

	top := scoring.Top(scoring.Rank(stats, scoring.ByPoint), scoring.RankingPageSize)
	leaderboard := make([]leaderboardEntry, 0, len(top))
	for _, stat := range top {
		leaderboard = append(leaderboard, leaderboardEntry{
			UserID:      stat.UserID,
			GenkaiPoint: stat.GenkaiPoint,
			VCHours:     stat.TotalVCDuration.Hours(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"openSessions": openCount,
		"leaderboard":  leaderboard,
	})
}
