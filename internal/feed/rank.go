// Package feed orders confession records for display. Ranking is a pure
// computation over the full record set; there is no maintained order and
// every view re-ranks from scratch.
package feed

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sugarlabs-app/confessions/backend/internal/confessions"
)

// Mode selects a feed ordering.
type Mode string

const (
	// ModeNewest orders by creation time, most recent first.
	ModeNewest Mode = "newest"
	// ModeMostLiked orders by like count, highest first.
	ModeMostLiked Mode = "most-liked"
	// ModeHot orders by a time-decayed popularity score.
	ModeHot Mode = "hot"
)

const (
	hotGravity      = 1.5
	hotAgeOffset    = 2.0
	minimumAgeHours = 0.01
)

// ErrUnknownMode indicates an unrecognized feed mode.
var ErrUnknownMode = errors.New("feed: unknown mode")

// ParseMode resolves raw input to a Mode. Empty input means newest.
func ParseMode(rawInput string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(rawInput)) {
	case "", string(ModeNewest):
		return ModeNewest, nil
	case string(ModeMostLiked):
		return ModeMostLiked, nil
	case string(ModeHot):
		return ModeHot, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, rawInput)
	}
}

// HotScore computes likes / (ageHours + 2)^1.5 against the supplied clock
// reading. Age is floored at 0.01 hours so just-posted records do not blow
// up the denominator.
func HotScore(likes int64, createdAtSeconds int64, now time.Time) float64 {
	ageHours := now.Sub(time.Unix(createdAtSeconds, 0)).Hours()
	if ageHours < minimumAgeHours {
		ageHours = minimumAgeHours
	}
	return float64(likes) / math.Pow(ageHours+hotAgeOffset, hotGravity)
}

// Rank returns a new slice holding the records in the order the mode
// dictates. The input is never mutated. Ordering is total: every mode
// breaks ties by identifier descending, so the result is deterministic
// given (records, mode, now).
func Rank(records []confessions.Confession, mode Mode, now time.Time) ([]confessions.Confession, error) {
	ranked := make([]confessions.Confession, len(records))
	copy(ranked, records)

	switch mode {
	case ModeNewest:
		sort.SliceStable(ranked, func(i, j int) bool {
			if ranked[i].CreatedAtSeconds != ranked[j].CreatedAtSeconds {
				return ranked[i].CreatedAtSeconds > ranked[j].CreatedAtSeconds
			}
			return ranked[i].ID > ranked[j].ID
		})
	case ModeMostLiked:
		sort.SliceStable(ranked, func(i, j int) bool {
			if ranked[i].Likes != ranked[j].Likes {
				return ranked[i].Likes > ranked[j].Likes
			}
			return ranked[i].ID > ranked[j].ID
		})
	case ModeHot:
		scores := make([]float64, len(ranked))
		for i, record := range ranked {
			scores[i] = HotScore(record.Likes, record.CreatedAtSeconds, now)
		}
		order := make([]int, len(ranked))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(i, j int) bool {
			if scores[order[i]] != scores[order[j]] {
				return scores[order[i]] > scores[order[j]]
			}
			return ranked[order[i]].ID > ranked[order[j]].ID
		})
		reordered := make([]confessions.Confession, len(ranked))
		for position, index := range order {
			reordered[position] = ranked[index]
		}
		ranked = reordered
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	return ranked, nil
}
