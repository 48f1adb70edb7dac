package workers

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"learnQuestAPI/services"
)

const defaultRecomputeMinutes = 15

// StartLeaderboardWorker runs the periodic batch recompute of every
// leaderboard. The interval comes from LEADERBOARD_RECOMPUTE_MINUTES; single
// user refreshes keep standings fresh between runs, this pass repairs the
// entries time alone changes (a window rolling over drops users out of it).
func StartLeaderboardWorker(leaderboardService *services.LeaderboardService) {
	minutes := defaultRecomputeMinutes
	if v := os.Getenv("LEADERBOARD_RECOMPUTE_MINUTES"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			log.Printf("Invalid LEADERBOARD_RECOMPUTE_MINUTES %q, using default %d", v, defaultRecomputeMinutes)
		} else {
			minutes = parsed
		}
	}

	ticker := time.NewTicker(time.Duration(minutes) * time.Minute)

	go func() {
		for range ticker.C {
			recomputeLeaderboards(leaderboardService)
		}
	}()

	log.Printf("Leaderboard worker started, recomputing every %d minutes", minutes)
}

func recomputeLeaderboards(leaderboardService *services.LeaderboardService) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log.Println("Starting scheduled leaderboard recompute...")
	entries, err := leaderboardService.RecomputeAll(ctx)
	if err != nil {
		log.Printf("Scheduled leaderboard recompute finished with errors: %v", err)
		return
	}
	log.Printf("Scheduled leaderboard recompute done, %d entries", entries)
}
