package scoring

import (
	"sort"

	"github.com/Nanai10a/genkai-point-server/internal/model"
)

// RankingPageSize is the conventional leaderboard page.
const RankingPageSize = 20

// Less orders two UserStats by a ranking key.
type Less func(a, b model.UserStat) bool

func ByPoint(a, b model.UserStat) bool {
	return a.GenkaiPoint < b.GenkaiPoint
}

func ByDuration(a, b model.UserStat) bool {
	return a.TotalVCDuration < b.TotalVCDuration
}

// Rank returns a copy of stats sorted ascending by the key, with user id
// (ascending) as the tiebreak. Presentation takes entries from the end, so
// among equal keys the larger user id ranks higher.
func Rank(stats []model.UserStat, less Less) []model.UserStat {
	ranked := make([]model.UserStat, len(stats))
	copy(ranked, stats)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].UserID < ranked[j].UserID
	})
	sort.SliceStable(ranked, func(i, j int) bool {
		return less(ranked[i], ranked[j])
	})

	return ranked
}

// Top takes the n highest entries of an ascending ranking, best first.
func Top(ranked []model.UserStat, n int) []model.UserStat {
	if n > len(ranked) {
		n = len(ranked)
	}
	top := make([]model.UserStat, 0, n)
	for i := len(ranked) - 1; i >= len(ranked)-n; i-- {
		top = append(top, ranked[i])
	}
	return top
}
