package service

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/Nanai10a/genkai-point-server/internal/errors"
	"github.com/Nanai10a/genkai-point-server/internal/notify"
	"github.com/Nanai10a/genkai-point-server/internal/repository"
	"github.com/Nanai10a/genkai-point-server/internal/scoring"
)

const commandPrefix = "g!point"

const helpText = "```asciidoc\n" +
	"= genkai_point =\n" +
	"g!point [subcommand] [args...]\n" +
	"\n" +
	"= subcommands =\n" +
	"    help                        :: この文を出します\n" +
	"    show                        :: あなたの限界ポイントなどを出します\n" +
	"    ranking [duration or point] :: ランキングを出します\n" +
	"```"

// NameResolver resolves a platform user id to a display name.
type NameResolver interface {
	ResolveName(ctx context.Context, userID uint64) (string, error)
}

// CommandService formats ranking/summary/help replies from store queries.
// It only reads the store.
type CommandService struct {
	sessionRepo repository.SessionRepository
	resolver    NameResolver
	notifier    Notifier
	point       scoring.PointFunc
}

func NewCommandService(
	sessionRepo repository.SessionRepository,
	resolver NameResolver,
	notifier Notifier,
	point scoring.PointFunc,
) *CommandService {
	return &CommandService{
		sessionRepo: sessionRepo,
		resolver:    resolver,
		notifier:    notifier,
		point:       point,
	}
}

// Respond handles a chat message end to end: builds the reply, if any, and
// publishes it. Returns whether a reply was sent.
func (s *CommandService) Respond(ctx context.Context, content string, authorID uint64, authorName string) (bool, error) {
	reply, err := s.HandleMessage(ctx, content, authorID, authorName)
	if err != nil {
		return false, err
	}
	if reply == "" {
		return false, nil
	}

	if err := s.notifier.Publish(ctx, notify.Message{Content: reply}); err != nil {
		return false, fmt.Errorf("publish reply: %w", err)
	}
	return true, nil
}

// HandleMessage builds the reply for a chat message, or "" when the message
// is not addressed to the bot.
func (s *CommandService) HandleMessage(ctx context.Context, content string, authorID uint64, authorName string) (string, error) {
	tokens := strings.Fields(content)

	if len(tokens) == 0 || tokens[0] != commandPrefix {
		return "", nil
	}

	switch {
	case len(tokens) >= 2 && (tokens[1] == "show" || tokens[1] == "限界ポイント"):
		return s.show(ctx, authorID, authorName)

	case len(tokens) == 3 && tokens[1] == "ranking" && tokens[2] == "duration":
		return s.ranking(ctx, "sorted by vc duration", scoring.ByDuration)

	case (len(tokens) == 2 && tokens[1] == "ranking") ||
		(len(tokens) == 3 && tokens[1] == "ranking" && tokens[2] == "point"):
		return s.ranking(ctx, "sorted by genkai point", scoring.ByPoint)

	default:
		return helpText, nil
	}
}

func (s *CommandService) show(ctx context.Context, userID uint64, name string) (string, error) {
	sessions, err := s.sessionRepo.GetAllSessions(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("get sessions: %w", err)
	}

	points, duration, err := scoring.Aggregate(sessions, s.point)
	if err != nil {
		return "", fmt.Errorf("aggregate sessions: %w", err)
	}

	return fmt.Sprintf(
		"```\n%s\n  - points: %d\n  - total vc duration: %.2f h \n```",
		name, points, duration.Hours(),
	), nil
}

// ranking renders the top 20. If any display name fails to resolve the whole
// response is aborted: a partial leaderboard would misrepresent standings.
func (s *CommandService) ranking(ctx context.Context, sortMsg string, less scoring.Less) (string, error) {
	stats, err := s.sessionRepo.GetAllUserStats(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch ranking: %w", err)
	}

	top := scoring.Top(scoring.Rank(stats, less), scoring.RankingPageSize)

	lines := []string{"```", sortMsg}
	for i, stat := range top {
		name, err := s.resolver.ResolveName(ctx, stat.UserID)
		if err != nil {
			return "", apperrors.Lookup(stat.UserID, err)
		}

		lines = append(lines, fmt.Sprintf(
			"#%02d %4dpt. %4.2fh %s",
			i+1, stat.GenkaiPoint, stat.TotalVCDuration.Hours(), name,
		))
	}
	lines = append(lines, "```")

	return strings.Join(lines, "\n"), nil
}
