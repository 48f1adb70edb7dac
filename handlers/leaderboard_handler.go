package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"learnQuestAPI/internal/types/leaderboard"
	"learnQuestAPI/middleware"
	"learnQuestAPI/services"
)

type LeaderboardHandler struct {
	leaderboards *services.LeaderboardService
	users        *services.UserService
}

func NewLeaderboardHandler(leaderboardService *services.LeaderboardService, userService *services.UserService) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboards: leaderboardService,
		users:        userService,
	}
}

// leaderboardParams parses the shared scope/course_id/period query params.
// Defaults are global scope and the all_time period.
func leaderboardParams(r *http.Request) (leaderboard.Scope, *uuid.UUID, leaderboard.Period, error) {
	scope := leaderboard.ScopeGlobal
	var courseID *uuid.UUID

	if c := r.URL.Query().Get("course_id"); c != "" {
		id, err := uuid.Parse(c)
		if err != nil {
			return "", nil, "", err
		}
		scope = leaderboard.ScopeCourse
		courseID = &id
	}

	period := leaderboard.PeriodAllTime
	if p := r.URL.Query().Get("period"); p != "" {
		period = leaderboard.Period(p)
		valid := false
		for _, known := range leaderboard.Periods {
			if period == known {
				valid = true
				break
			}
		}
		if !valid {
			return "", nil, "", &invalidPeriodError{p}
		}
	}

	return scope, courseID, period, nil
}

type invalidPeriodError struct{ period string }

func (e *invalidPeriodError) Error() string {
	return "unknown period: " + e.period
}

func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	scope, courseID, period, err := leaderboardParams(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	lb, err := h.leaderboards.GetLeaderboard(ctx, scope, courseID, period, page)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, lb)
}

func (h *LeaderboardHandler) GetUserRank(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	userID, err := h.users.GetUserIDFromClerkID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	scope, courseID, period, err := leaderboardParams(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	rank, err := h.leaderboards.GetUserRank(ctx, userID, scope, courseID, period)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, rank)
}

// Recalculate kicks off a full batch recompute, for admins. The scheduled
// worker does the same thing on a timer.
func (h *LeaderboardHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	entries, err := h.leaderboards.RecomputeAll(ctx)
	if err != nil {
		log.Printf("Recalculate Handler: %v", err)
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"message": "Leaderboards recalculated",
		"entries": entries,
	})
}
